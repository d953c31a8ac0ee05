package service

import (
	"context"
	"math"
	nethttp "net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationListArticles      = "/api/articles"
	OperationGetArticle        = "/api/articles/{id}"
	OperationSearchArticles    = "/api/articles/search/{query}"
	OperationListEntities      = "/api/entities"
	OperationEntityGraph       = "/api/entity-graph"
	OperationStats             = "/api/stats"
	OperationSourceStats       = "/api/stats/sources"
	OperationFacts             = "/api/facts"
	OperationRefreshFacts      = "/api/facts/refresh"
	OperationFetchNow          = "/api/fetch-now"
	OperationAnalyzePending    = "/api/analyze-pending"
	OperationStatus            = "/api/status"
	OperationAnalyzeDuplicates = "/api/entities/analyze-duplicates"
	OperationUnify             = "/api/entities/unify"
	OperationHealth            = "/api/health"
)

type statusCoder interface {
	StatusCode() int
}

// handler 解析参数后经过服务端中间件调用业务方法
func handler[Req, Reply any](op string, parse func(http.Context) (*Req, error), call func(context.Context, *Req) (Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		in, err := parse(ctx)
		if err != nil {
			return err
		}
		http.SetOperation(ctx, op)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			out, err := call(ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return out, nil
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		code := nethttp.StatusOK
		if sc, ok := out.(statusCoder); ok {
			code = sc.StatusCode()
		}
		return ctx.Result(code, out)
	}
}

// RegisterNewsHTTPServer 注册 /api 下的全部路由
func RegisterNewsHTTPServer(s *http.Server, srv *NewsService) {
	r := s.Route("/api")
	r.GET("/articles", handler(OperationListArticles, parseListArticles, srv.ListArticles))
	r.GET("/articles/search/{query}", handler(OperationSearchArticles, parseSearchArticles, srv.SearchArticles))
	r.GET("/articles/{id}", handler(OperationGetArticle, parseGetArticle, srv.GetArticle))
	r.GET("/entities", handler(OperationListEntities, parseListEntities, srv.ListEntities))
	r.GET("/entities/analyze-duplicates", handler(OperationAnalyzeDuplicates, parseAnalyzeDuplicates, srv.AnalyzeDuplicates))
	r.POST("/entities/unify", handler(OperationUnify, parseUnify, srv.Unify))
	r.GET("/entity-graph", handler(OperationEntityGraph, parseEntityGraph, srv.EntityGraph))
	r.GET("/stats", handler(OperationStats, parseEmpty, srv.Stats))
	r.GET("/stats/sources", handler(OperationSourceStats, parseSourceStats, srv.SourceStats))
	r.GET("/facts", handler(OperationFacts, parseFacts, srv.Facts))
	r.POST("/facts/refresh", handler(OperationRefreshFacts, parseFacts, srv.RefreshFacts))
	r.POST("/fetch-now", handler(OperationFetchNow, parseFetchNow, srv.FetchNow))
	r.POST("/analyze-pending", handler(OperationAnalyzePending, parseAnalyzePending, srv.AnalyzePending))
	r.GET("/status", handler(OperationStatus, parseEmpty, srv.Status))
	r.GET("/health", handler(OperationHealth, parseEmpty, srv.Health))
}

func parseEmpty(http.Context) (*Empty, error) {
	return &Empty{}, nil
}

func parseListArticles(ctx http.Context) (*ListArticlesRequest, error) {
	q := ctx.Query()
	req := &ListArticlesRequest{}
	var err error
	if req.Page, err = intParam(q, "page", 1, 1, math.MaxInt32); err != nil {
		return nil, err
	}
	if req.PageSize, err = intParam(q, "page_size", 20, 1, 100); err != nil {
		return nil, err
	}
	f := &req.Filter
	if f.Biases, err = biasesParam(q, "political_bias"); err != nil {
		return nil, err
	}
	if f.Tones, err = tonesParam(q, "tone"); err != nil {
		return nil, err
	}
	f.Entity = strings.TrimSpace(q.Get("entity"))
	f.Source = strings.TrimSpace(q.Get("source"))
	f.Search = strings.TrimSpace(q.Get("search"))
	if f.DateFrom, err = timeParam(q, "date_from", false); err != nil {
		return nil, err
	}
	if f.DateTo, err = timeParam(q, "date_to", true); err != nil {
		return nil, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return nil, badRequest("date_from is after date_to")
	}
	return req, nil
}

func parseGetArticle(ctx http.Context) (*GetArticleRequest, error) {
	id := strings.TrimSpace(ctx.Vars().Get("id"))
	if id == "" {
		return nil, badRequest("id is required")
	}
	return &GetArticleRequest{ID: id}, nil
}

func parseSearchArticles(ctx http.Context) (*SearchArticlesRequest, error) {
	query := strings.TrimSpace(ctx.Vars().Get("query"))
	if query == "" {
		return nil, badRequest("query is required")
	}
	limit, err := intParam(ctx.Query(), "limit", 20, 1, 100)
	if err != nil {
		return nil, err
	}
	return &SearchArticlesRequest{Query: query, Limit: limit}, nil
}

func parseListEntities(ctx http.Context) (*ListEntitiesRequest, error) {
	q := ctx.Query()
	et, err := entityTypeParam(q, "entity_type")
	if err != nil {
		return nil, err
	}
	limit, err := intParam(q, "limit", 50, 1, 200)
	if err != nil {
		return nil, err
	}
	return &ListEntitiesRequest{Type: et, Limit: limit}, nil
}

func parseEntityGraph(ctx http.Context) (*EntityGraphRequest, error) {
	q := ctx.Query()
	req := &EntityGraphRequest{}
	var err error
	if req.Types, err = entityTypesParam(q, "entity_type"); err != nil {
		return nil, err
	}
	if req.MinConnections, err = intParam(q, "min_connections", 2, 1, math.MaxInt32); err != nil {
		return nil, err
	}
	if req.Limit, err = intParam(q, "limit", 100, 10, 500); err != nil {
		return nil, err
	}
	return req, nil
}

func parseSourceStats(ctx http.Context) (*SourceStatsRequest, error) {
	q := ctx.Query()
	limit, err := intParam(q, "limit", 20, 1, 50)
	if err != nil {
		return nil, err
	}
	minArticles, err := intParam(q, "min_articles", 3, 1, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	return &SourceStatsRequest{Limit: limit, MinArticles: minArticles}, nil
}

func parseFacts(ctx http.Context) (*FactsRequest, error) {
	q := ctx.Query()
	refresh, err := boolParam(q, "refresh", false)
	if err != nil {
		return nil, err
	}
	return &FactsRequest{
		DateFrom: strings.TrimSpace(q.Get("date_from")),
		DateTo:   strings.TrimSpace(q.Get("date_to")),
		Refresh:  refresh,
	}, nil
}

func parseFetchNow(ctx http.Context) (*FetchNowRequest, error) {
	wait, err := boolParam(ctx.Query(), "wait", false)
	if err != nil {
		return nil, err
	}
	return &FetchNowRequest{Wait: wait}, nil
}

func parseAnalyzePending(ctx http.Context) (*AnalyzePendingRequest, error) {
	limit, err := intParam(ctx.Query(), "limit", 10, 1, 100)
	if err != nil {
		return nil, err
	}
	return &AnalyzePendingRequest{Limit: limit}, nil
}

func parseAnalyzeDuplicates(ctx http.Context) (*AnalyzeDuplicatesRequest, error) {
	et, err := entityTypeParam(ctx.Query(), "entity_type")
	if err != nil {
		return nil, err
	}
	return &AnalyzeDuplicatesRequest{Type: et}, nil
}

func parseUnify(ctx http.Context) (*UnifyRequest, error) {
	dryRun, err := boolParam(ctx.Query(), "dry_run", true)
	if err != nil {
		return nil, err
	}
	return &UnifyRequest{DryRun: dryRun}, nil
}
