package data

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

// Data 数据层公共资源
type Data struct {
	store *storage.Storage
}

// NewData 打开数据库并建表
func NewData(c *config.Config, logger log.Logger) (*Data, func(), error) {
	store, err := storage.Open(context.Background(), c.DB.Driver, c.DB.Source)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		store.Close()
	}
	return &Data{store: store}, cleanup, nil
}

// NewStorage 供抓取引擎和实体合并共用同一连接
func NewStorage(d *Data) *storage.Storage {
	return d.store
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs[T ~string](vals []T) []any {
	args := make([]any, 0, len(vals))
	for _, v := range vals {
		args = append(args, string(v))
	}
	return args
}

// loadAnalyses 批量查询标注，按文章ID索引
func (d *Data) loadAnalyses(ctx context.Context, ids []string) (map[string]*model.Analysis, error) {
	out := make(map[string]*model.Analysis, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := d.store.DB().QueryContext(ctx, d.store.Rebind("SELECT "+storage.AnalysisColumns+
		" FROM article_analysis an WHERE an.article_id IN ("+placeholders(len(ids))+")"), stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		an, err := storage.ScanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out[an.ArticleID] = an
	}
	return out, rows.Err()
}

// loadEntities 批量查询实体，每篇文章内按相关度降序
func (d *Data) loadEntities(ctx context.Context, ids []string) (map[string][]model.Entity, error) {
	out := make(map[string][]model.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := d.store.DB().QueryContext(ctx, d.store.Rebind("SELECT "+storage.EntityColumns+
		" FROM entities e WHERE e.article_id IN ("+placeholders(len(ids))+
		") ORDER BY e.relevance DESC, e.entity_type, e.entity_value"), stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := storage.ScanEntity(rows)
		if err != nil {
			return nil, err
		}
		out[e.ArticleID] = append(out[e.ArticleID], *e)
	}
	return out, rows.Err()
}

// scanArticles 读取 storage.ArticleColumns 查询结果
func scanArticles(ctx context.Context, d *Data, query string, args ...any) ([]*model.Article, error) {
	rows, err := d.store.DB().QueryContext(ctx, d.store.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Article
	for rows.Next() {
		a, err := storage.ScanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func articleIDs(arts []*model.Article) []string {
	ids := make([]string, 0, len(arts))
	for _, a := range arts {
		ids = append(ids, a.ID)
	}
	return ids
}
