package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/repo"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const (
	topEntitiesInStats = 10
	maxLinkArticles    = 10
)

// InsightUseCase 统计与关系图业务逻辑
type InsightUseCase struct {
	repo repo.InsightRepo
	log  *log.Helper
	now  func() time.Time
}

// NewInsightUseCase 创建统计业务逻辑实例
func NewInsightUseCase(repo repo.InsightRepo, logger log.Logger) *InsightUseCase {
	return &InsightUseCase{repo: repo, log: log.NewHelper(logger), now: time.Now}
}

// Stats 门户总体统计，今日以 UTC 零点为界
func (uc *InsightUseCase) Stats(ctx context.Context) (*domain.Stats, error) {
	now := uc.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		st  domain.Stats
		err error
	)
	if st.TotalArticles, err = uc.repo.CountArticles(ctx, nil); err != nil {
		return nil, err
	}
	if st.ArticlesToday, err = uc.repo.CountArticles(ctx, &today); err != nil {
		return nil, err
	}
	if st.SourcesCount, err = uc.repo.CountSources(ctx); err != nil {
		return nil, err
	}
	bias, err := uc.repo.BiasDistribution(ctx)
	if err != nil {
		return nil, err
	}
	tone, err := uc.repo.ToneDistribution(ctx)
	if err != nil {
		return nil, err
	}
	st.BiasDistribution = make(map[string]int, len(bias))
	for b, n := range bias {
		st.BiasDistribution[string(b)] = n
	}
	st.ToneDistribution = make(map[string]int, len(tone))
	for t, n := range tone {
		st.ToneDistribution[string(t)] = n
	}
	if st.TopEntities, err = uc.Entities(ctx, "", topEntitiesInStats); err != nil {
		return nil, err
	}
	return &st, nil
}

// Entities 列出实体及出现次数，et 为空时不限类型
func (uc *InsightUseCase) Entities(ctx context.Context, et model.EntityType, limit int) ([]domain.EntityCount, error) {
	out, err := uc.repo.TopEntities(ctx, et, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.EntityCount{}
	}
	return out, nil
}

// SourceStats 各媒体的倾向得分和分布
func (uc *InsightUseCase) SourceStats(ctx context.Context, limit, minArticles int) (*domain.SourceStats, error) {
	counts, err := uc.repo.SourceCounts(ctx, minArticles, limit)
	if err != nil {
		return nil, err
	}
	out := &domain.SourceStats{Sources: make([]domain.SourceStat, 0, len(counts))}
	for _, c := range counts {
		out.Sources = append(out.Sources, sourceStat(c))
	}
	out.TotalSources = len(out.Sources)
	return out, nil
}

func sourceStat(c domain.SourceCounts) domain.SourceStat {
	st := domain.SourceStat{
		SourceName:       c.Name,
		TotalArticles:    c.Total,
		DominantBias:     model.BiasCenter,
		DominantTone:     model.ToneNeutral,
		BiasDistribution: make(map[string]int, len(model.Biases)),
		ToneDistribution: make(map[string]int, len(model.Tones)),
	}

	biased, weighted, top := 0, 0, 0
	for _, b := range model.Biases {
		n := c.Bias[b]
		st.BiasDistribution[string(b)] = n
		biased += n
		weighted += n * b.Score()
		// 并列时取枚举顺序中的第一个
		if n > top {
			top = n
			st.DominantBias = b
		}
	}
	if biased > 0 {
		st.BiasScore = math.Round(float64(weighted)/float64(biased)*100) / 100
	}

	top = 0
	for _, t := range model.Tones {
		n := c.Tone[t]
		st.ToneDistribution[string(t)] = n
		if n > top {
			top = n
			st.DominantTone = t
		}
	}
	return st
}

// EntityGraph 实体共现关系图。出现次数和共享文章数都至少为 minConnections
func (uc *InsightUseCase) EntityGraph(ctx context.Context, types []model.EntityType, minConnections, limit int) (*domain.EntityGraph, error) {
	mentions, err := uc.repo.EntityMentions(ctx, types)
	if err != nil {
		return nil, err
	}
	return buildGraph(mentions, minConnections, limit), nil
}

type graphEntity struct {
	node     domain.GraphNode
	articles map[string]struct{}
}

func buildGraph(mentions []domain.Mention, minConnections, limit int) *domain.EntityGraph {
	byID := make(map[string]*graphEntity)
	for _, m := range mentions {
		id := string(m.Type) + ":" + m.Value
		ge, ok := byID[id]
		if !ok {
			ge = &graphEntity{
				node:     domain.GraphNode{ID: id, Label: m.Value, Type: m.Type},
				articles: make(map[string]struct{}),
			}
			byID[id] = ge
		}
		ge.node.Count++
		ge.articles[m.ArticleID] = struct{}{}
	}

	kept := make([]*graphEntity, 0, len(byID))
	for _, ge := range byID {
		if ge.node.Count >= minConnections {
			kept = append(kept, ge)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].node.Count != kept[j].node.Count {
			return kept[i].node.Count > kept[j].node.Count
		}
		return kept[i].node.ID < kept[j].node.ID
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}

	g := &domain.EntityGraph{
		Nodes: make([]domain.GraphNode, 0, len(kept)),
		Links: []domain.GraphLink{},
	}
	for _, ge := range kept {
		ge.node.Articles = sortedKeys(ge.articles)
		g.Nodes = append(g.Nodes, ge.node)
	}
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			var shared []string
			for id := range kept[i].articles {
				if _, ok := kept[j].articles[id]; ok {
					shared = append(shared, id)
				}
			}
			if len(shared) == 0 || len(shared) < minConnections {
				continue
			}
			sort.Strings(shared)
			link := domain.GraphLink{
				Source: kept[i].node.ID,
				Target: kept[j].node.ID,
				Value:  len(shared),
			}
			if len(shared) > maxLinkArticles {
				shared = shared[:maxLinkArticles]
			}
			link.Articles = shared
			g.Links = append(g.Links, link)
		}
	}
	g.TotalEntities = len(g.Nodes)
	g.TotalConnections = len(g.Links)
	return g
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
