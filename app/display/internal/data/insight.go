package data

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/repo"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

type insightRepo struct {
	data *Data
	log  *log.Helper
}

// NewInsightRepo 创建统计仓库
func NewInsightRepo(data *Data, logger log.Logger) repo.InsightRepo {
	return &insightRepo{data: data, log: log.NewHelper(logger)}
}

func (r *insightRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.data.store.DB().QueryRowContext(ctx, r.data.store.Rebind(query), args...).Scan(&n)
	return n, err
}

func (r *insightRepo) CountArticles(ctx context.Context, since *time.Time) (int, error) {
	if since == nil {
		return r.count(ctx, "SELECT COUNT(*) FROM articles")
	}
	return r.count(ctx, "SELECT COUNT(*) FROM articles WHERE created_at >= ?", storage.DBTime(*since))
}

func (r *insightRepo) CountSources(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(DISTINCT source_name) FROM articles WHERE source_name IS NOT NULL AND source_name <> ''")
}

// distribution 按列分组计数，忽略空值
func (r *insightRepo) distribution(ctx context.Context, column string) (map[string]int, error) {
	rows, err := r.data.store.DB().QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM article_analysis WHERE "+
		column+" IS NOT NULL GROUP BY "+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *insightRepo) BiasDistribution(ctx context.Context) (map[model.Bias]int, error) {
	raw, err := r.distribution(ctx, "political_bias")
	if err != nil {
		return nil, err
	}
	out := make(map[model.Bias]int, len(raw))
	for k, n := range raw {
		if b, ok := model.ParseBias(k); ok {
			out[b] += n
		}
	}
	return out, nil
}

func (r *insightRepo) ToneDistribution(ctx context.Context) (map[model.Tone]int, error) {
	raw, err := r.distribution(ctx, "tone")
	if err != nil {
		return nil, err
	}
	out := make(map[model.Tone]int, len(raw))
	for k, n := range raw {
		if t, ok := model.ParseTone(k); ok {
			out[t] += n
		}
	}
	return out, nil
}

func (r *insightRepo) TopEntities(ctx context.Context, et model.EntityType, limit int) ([]domain.EntityCount, error) {
	query := "SELECT entity_type, entity_value, COUNT(*) AS cnt FROM entities"
	var args []any
	if et != "" {
		query += " WHERE entity_type = ?"
		args = append(args, string(et))
	}
	query += " GROUP BY entity_type, entity_value ORDER BY cnt DESC, entity_type, entity_value LIMIT ?"
	args = append(args, limit)

	rows, err := r.data.store.DB().QueryContext(ctx, r.data.store.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.EntityCount{}
	for rows.Next() {
		var (
			ec domain.EntityCount
			t  string
		)
		if err := rows.Scan(&t, &ec.Value, &ec.Count); err != nil {
			return nil, err
		}
		ec.Type = model.EntityType(t)
		out = append(out, ec)
	}
	return out, rows.Err()
}

func (r *insightRepo) SourceCounts(ctx context.Context, minArticles, limit int) ([]domain.SourceCounts, error) {
	var (
		cols []string
		args []any
	)
	for _, b := range model.Biases {
		cols = append(cols, "SUM(CASE WHEN an.political_bias = ? THEN 1 ELSE 0 END)")
		args = append(args, string(b))
	}
	for _, t := range model.Tones {
		cols = append(cols, "SUM(CASE WHEN an.tone = ? THEN 1 ELSE 0 END)")
		args = append(args, string(t))
	}
	query := "SELECT a.source_name, COUNT(*) AS total, " + strings.Join(cols, ", ") + `
		FROM articles a LEFT JOIN article_analysis an ON an.article_id = a.id
		WHERE a.source_name IS NOT NULL AND a.source_name <> ''
		GROUP BY a.source_name
		HAVING COUNT(*) >= ?
		ORDER BY total DESC, a.source_name
		LIMIT ?`
	args = append(args, minArticles, limit)

	rows, err := r.data.store.DB().QueryContext(ctx, r.data.store.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SourceCounts
	for rows.Next() {
		biases := make([]int, len(model.Biases))
		tones := make([]int, len(model.Tones))
		sc := domain.SourceCounts{
			Bias: make(map[model.Bias]int, len(model.Biases)),
			Tone: make(map[model.Tone]int, len(model.Tones)),
		}
		dest := []any{&sc.Name, &sc.Total}
		for i := range biases {
			dest = append(dest, &biases[i])
		}
		for i := range tones {
			dest = append(dest, &tones[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, b := range model.Biases {
			sc.Bias[b] = biases[i]
		}
		for i, t := range model.Tones {
			sc.Tone[t] = tones[i]
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *insightRepo) EntityMentions(ctx context.Context, types []model.EntityType) ([]domain.Mention, error) {
	query := "SELECT entity_type, entity_value, article_id FROM entities"
	var args []any
	if len(types) > 0 {
		query += " WHERE entity_type IN (" + placeholders(len(types)) + ")"
		args = stringArgs(types)
	}
	rows, err := r.data.store.DB().QueryContext(ctx, r.data.store.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Mention
	for rows.Next() {
		var (
			m domain.Mention
			t string
		)
		if err := rows.Scan(&t, &m.Value, &m.ArticleID); err != nil {
			return nil, err
		}
		m.Type = model.EntityType(t)
		out = append(out, m)
	}
	return out, rows.Err()
}
