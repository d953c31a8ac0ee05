package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/repo"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

type factRepo struct {
	data *Data
	log  *log.Helper
}

// NewFactRepo 创建事实摘要文章仓库
func NewFactRepo(data *Data, logger log.Logger) repo.FactRepo {
	return &factRepo{data: data, log: log.NewHelper(logger)}
}

func (r *factRepo) AnalyzedArticles(ctx context.Context, from, to time.Time, limit int) ([]facts.Article, error) {
	arts, err := scanArticles(ctx, r.data, "SELECT "+storage.ArticleColumns+` FROM articles a
		JOIN article_analysis an ON an.article_id = a.id
		WHERE a.published_at >= ? AND a.published_at < ?
		ORDER BY a.published_at DESC, a.id DESC
		LIMIT ?`, storage.DBTime(from), storage.DBTime(to), limit)
	if err != nil {
		return nil, err
	}
	ids := articleIDs(arts)
	analyses, err := r.data.loadAnalyses(ctx, ids)
	if err != nil {
		return nil, err
	}
	entities, err := r.data.loadEntities(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]facts.Article, 0, len(arts))
	for _, a := range arts {
		out = append(out, facts.Article{Article: a, Analysis: analyses[a.ID], Entities: entities[a.ID]})
	}
	return out, nil
}
