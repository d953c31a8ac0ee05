package repo

import (
	"context"
	"time"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// ArticleRepo 文章仓库接口
type ArticleRepo interface {
	// ListArticles 按过滤条件分页查询文章，返回当前页和总数
	ListArticles(ctx context.Context, f domain.ArticleFilter, page, pageSize int) ([]*domain.Article, int, error)
	// GetArticle 根据ID获取文章详情，不存在时返回 storage.ErrNotFound
	GetArticle(ctx context.Context, id string) (*domain.Article, error)
	// SearchArticles 在标题、摘要和正文中搜索
	SearchArticles(ctx context.Context, query string, limit int) ([]*domain.Article, error)
}

// InsightRepo 统计仓库接口
type InsightRepo interface {
	// CountArticles 统计文章数，since 不为 nil 时只统计此后入库的文章
	CountArticles(ctx context.Context, since *time.Time) (int, error)
	// CountSources 统计不同媒体数量
	CountSources(ctx context.Context) (int, error)
	BiasDistribution(ctx context.Context) (map[model.Bias]int, error)
	ToneDistribution(ctx context.Context) (map[model.Tone]int, error)
	// TopEntities 按出现次数降序列出实体，et 为空时不限类型
	TopEntities(ctx context.Context, et model.EntityType, limit int) ([]domain.EntityCount, error)
	// SourceCounts 统计文章数不少于 minArticles 的媒体
	SourceCounts(ctx context.Context, minArticles, limit int) ([]domain.SourceCounts, error)
	// EntityMentions 列出实体出现记录，types 为空时不限类型
	EntityMentions(ctx context.Context, types []model.EntityType) ([]domain.Mention, error)
}

// FactRepo 事实摘要所需的文章查询
type FactRepo interface {
	// AnalyzedArticles 发布时间在 [from, to) 内的已标注文章，按发布时间倒序
	AnalyzedArticles(ctx context.Context, from, to time.Time, limit int) ([]facts.Article, error)
}
