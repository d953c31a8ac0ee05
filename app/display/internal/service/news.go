package service

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/usecase"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/unify"
)

// NewsService 新闻门户 HTTP 服务
type NewsService struct {
	ucArticle *usecase.ArticleUseCase
	ucInsight *usecase.InsightUseCase
	ucFact    *usecase.FactUseCase
	ucIngest  *usecase.IngestUseCase
	ucEntity  *usecase.EntityUseCase
	log       *log.Helper
}

// NewNewsService 创建服务实例
func NewNewsService(
	ucArticle *usecase.ArticleUseCase,
	ucInsight *usecase.InsightUseCase,
	ucFact *usecase.FactUseCase,
	ucIngest *usecase.IngestUseCase,
	ucEntity *usecase.EntityUseCase,
	logger log.Logger,
) *NewsService {
	return &NewsService{
		ucArticle: ucArticle,
		ucInsight: ucInsight,
		ucFact:    ucFact,
		ucIngest:  ucIngest,
		ucEntity:  ucEntity,
		log:       log.NewHelper(logger),
	}
}

// convertErr 将领域错误转换为 kratos 错误
func (s *NewsService) convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return errors.NotFound("ARTICLE_NOT_FOUND", "article not found")
	case errors.Is(err, usecase.ErrInvalidArgument):
		return errors.BadRequest(reasonValidation, err.Error())
	case errors.Is(err, engine.ErrRunInProgress):
		return errors.Conflict("RUN_IN_PROGRESS", "an ingestion run is already in progress")
	case errors.Is(err, llm.ErrNotConfigured):
		return errors.ServiceUnavailable("NOT_CONFIGURED", "llm provider is not configured")
	}
	s.log.Errorf("请求处理失败: %v", err)
	return errors.InternalServer("INTERNAL", err.Error())
}

type ListArticlesRequest struct {
	Filter   domain.ArticleFilter
	Page     int
	PageSize int
}

func (s *NewsService) ListArticles(ctx context.Context, req *ListArticlesRequest) (*domain.ArticleList, error) {
	list, err := s.ucArticle.List(ctx, req.Filter, req.Page, req.PageSize)
	return list, s.convertErr(err)
}

type GetArticleRequest struct {
	ID string
}

func (s *NewsService) GetArticle(ctx context.Context, req *GetArticleRequest) (*domain.Article, error) {
	a, err := s.ucArticle.Get(ctx, req.ID)
	return a, s.convertErr(err)
}

type SearchArticlesRequest struct {
	Query string
	Limit int
}

func (s *NewsService) SearchArticles(ctx context.Context, req *SearchArticlesRequest) ([]*domain.Article, error) {
	arts, err := s.ucArticle.Search(ctx, req.Query, req.Limit)
	return arts, s.convertErr(err)
}

type ListEntitiesRequest struct {
	Type  model.EntityType
	Limit int
}

func (s *NewsService) ListEntities(ctx context.Context, req *ListEntitiesRequest) ([]domain.EntityCount, error) {
	out, err := s.ucInsight.Entities(ctx, req.Type, req.Limit)
	return out, s.convertErr(err)
}

type EntityGraphRequest struct {
	Types          []model.EntityType
	MinConnections int
	Limit          int
}

func (s *NewsService) EntityGraph(ctx context.Context, req *EntityGraphRequest) (*domain.EntityGraph, error) {
	g, err := s.ucInsight.EntityGraph(ctx, req.Types, req.MinConnections, req.Limit)
	return g, s.convertErr(err)
}

// Empty 无参数请求
type Empty struct{}

func (s *NewsService) Stats(ctx context.Context, _ *Empty) (*domain.Stats, error) {
	st, err := s.ucInsight.Stats(ctx)
	return st, s.convertErr(err)
}

type SourceStatsRequest struct {
	Limit       int
	MinArticles int
}

func (s *NewsService) SourceStats(ctx context.Context, req *SourceStatsRequest) (*domain.SourceStats, error) {
	st, err := s.ucInsight.SourceStats(ctx, req.Limit, req.MinArticles)
	return st, s.convertErr(err)
}

type FactsRequest struct {
	DateFrom string
	DateTo   string
	Refresh  bool
}

func (s *NewsService) Facts(ctx context.Context, req *FactsRequest) (*facts.Digest, error) {
	d, err := s.ucFact.Digest(ctx, req.DateFrom, req.DateTo, req.Refresh)
	return d, s.convertErr(err)
}

func (s *NewsService) RefreshFacts(ctx context.Context, req *FactsRequest) (*domain.FactRefresh, error) {
	res, err := s.ucFact.Refresh(ctx, req.DateFrom, req.DateTo)
	return res, s.convertErr(err)
}

type FetchNowRequest struct {
	Wait bool
}

// FetchReply 手动抓取结果，后台执行时返回 202
type FetchReply struct {
	Status string            `json:"status"`
	Report *engine.RunReport `json:"report,omitempty"`
}

// StatusCode 用于设置 HTTP 状态码
func (r *FetchReply) StatusCode() int {
	if r.Status == "started" {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (s *NewsService) FetchNow(ctx context.Context, req *FetchNowRequest) (*FetchReply, error) {
	rep, err := s.ucIngest.FetchNow(ctx, req.Wait)
	switch {
	case errors.Is(err, engine.ErrSourceUnavailable):
		return &FetchReply{Status: "failed", Report: rep}, nil
	case err != nil:
		return nil, s.convertErr(err)
	case rep == nil:
		return &FetchReply{Status: "started"}, nil
	}
	return &FetchReply{Status: "completed", Report: rep}, nil
}

type AnalyzePendingRequest struct {
	Limit int
}

func (s *NewsService) AnalyzePending(ctx context.Context, req *AnalyzePendingRequest) (*engine.RunReport, error) {
	rep, err := s.ucIngest.AnalyzePending(ctx, req.Limit)
	if err != nil {
		return nil, s.convertErr(err)
	}
	return rep, nil
}

func (s *NewsService) Status(ctx context.Context, _ *Empty) (*engine.Status, error) {
	st := s.ucIngest.Status()
	return &st, nil
}

type AnalyzeDuplicatesRequest struct {
	Type model.EntityType
}

func (s *NewsService) AnalyzeDuplicates(ctx context.Context, req *AnalyzeDuplicatesRequest) (*unify.Analysis, error) {
	a, err := s.ucEntity.AnalyzeDuplicates(ctx, req.Type)
	return a, s.convertErr(err)
}

type UnifyRequest struct {
	DryRun bool
}

func (s *NewsService) Unify(ctx context.Context, req *UnifyRequest) (*unify.Result, error) {
	res, err := s.ucEntity.Unify(ctx, req.DryRun)
	return res, s.convertErr(err)
}

// HealthReply 健康检查
type HealthReply struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *NewsService) Health(ctx context.Context, _ *Empty) (*HealthReply, error) {
	return &HealthReply{Status: "ok", Timestamp: time.Now().UTC()}, nil
}
