package data

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/repo"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

// 发布时间为空的文章排在最后，id 保证顺序唯一，分页不重不漏
const articleOrder = " ORDER BY a.published_at DESC NULLS LAST, a.id DESC"

type articleRepo struct {
	data *Data
	log  *log.Helper
}

// NewArticleRepo 创建文章仓库
func NewArticleRepo(data *Data, logger log.Logger) repo.ArticleRepo {
	return &articleRepo{data: data, log: log.NewHelper(logger)}
}

// articleWhere 将过滤条件转为 WHERE 子句
func articleWhere(f domain.ArticleFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.Biases) > 0 {
		conds = append(conds, "an.political_bias IN ("+placeholders(len(f.Biases))+")")
		args = append(args, stringArgs(f.Biases)...)
	}
	if len(f.Tones) > 0 {
		conds = append(conds, "an.tone IN ("+placeholders(len(f.Tones))+")")
		args = append(args, stringArgs(f.Tones)...)
	}
	if f.Entity != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM entities e WHERE e.article_id = a.id AND LOWER(e.entity_value) LIKE ? ESCAPE '\')`)
		args = append(args, storage.LikePattern(f.Entity))
	}
	if f.Source != "" {
		conds = append(conds, `LOWER(a.source_name) LIKE ? ESCAPE '\'`)
		args = append(args, storage.LikePattern(f.Source))
	}
	if f.Search != "" {
		p := storage.LikePattern(f.Search)
		conds = append(conds, `(LOWER(a.title) LIKE ? ESCAPE '\' OR LOWER(a.description) LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}
	if f.DateFrom != nil {
		conds = append(conds, "a.published_at >= ?")
		args = append(args, storage.DBTime(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "a.published_at <= ?")
		args = append(args, storage.DBTime(*f.DateTo))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *articleRepo) ListArticles(ctx context.Context, f domain.ArticleFilter, page, pageSize int) ([]*domain.Article, int, error) {
	where, args := articleWhere(f)
	from := " FROM articles a LEFT JOIN article_analysis an ON an.article_id = a.id" + where

	var total int
	if err := r.data.store.DB().QueryRowContext(ctx, r.data.store.Rebind("SELECT COUNT(*)"+from), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*domain.Article{}, 0, nil
	}

	offset := (page - 1) * pageSize
	arts, err := scanArticles(ctx, r.data, "SELECT "+storage.ArticleColumns+from+articleOrder+" LIMIT ? OFFSET ?",
		append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.attach(ctx, arts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *articleRepo) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	a, err := r.data.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := r.attach(ctx, []*model.Article{a})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *articleRepo) SearchArticles(ctx context.Context, query string, limit int) ([]*domain.Article, error) {
	p := storage.LikePattern(query)
	arts, err := scanArticles(ctx, r.data, "SELECT "+storage.ArticleColumns+` FROM articles a
		WHERE LOWER(a.title) LIKE ? ESCAPE '\' OR LOWER(a.description) LIKE ? ESCAPE '\' OR LOWER(a.content) LIKE ? ESCAPE '\'`+
		articleOrder+" LIMIT ?", p, p, p, limit)
	if err != nil {
		return nil, err
	}
	return r.attach(ctx, arts)
}

// attach 批量补充标注和实体
func (r *articleRepo) attach(ctx context.Context, arts []*model.Article) ([]*domain.Article, error) {
	ids := articleIDs(arts)
	analyses, err := r.data.loadAnalyses(ctx, ids)
	if err != nil {
		return nil, err
	}
	entities, err := r.data.loadEntities(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Article, 0, len(arts))
	for _, a := range arts {
		out = append(out, domain.NewArticle(a, analyses[a.ID], entities[a.ID]))
	}
	return out, nil
}
