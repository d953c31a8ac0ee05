package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// SaveAnalysis 在同一事务内写入标注和实体。文章已有标注时返回 saved=false，不覆盖
func (s *Storage) SaveAnalysis(ctx context.Context, an *model.Analysis, entities []model.Entity) (bool, error) {
	if an.ID == "" {
		an.ID = uuid.NewString()
	}
	if an.AnalyzedAt.IsZero() {
		an.AnalyzedAt = time.Now()
	}
	an.AnalyzedAt = DBTime(an.AnalyzedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	rollback := func(err error) (bool, error) {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %v", err, rerr)
		}
		return false, err
	}

	var bias, tone any
	if an.PoliticalBias != nil {
		bias = string(*an.PoliticalBias)
	}
	if an.Tone != nil {
		tone = string(*an.Tone)
	}
	res, err := tx.ExecContext(ctx, s.Rebind(`INSERT INTO article_analysis
		(id, article_id, political_bias, bias_confidence, tone, tone_confidence, summary, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (article_id) DO NOTHING`),
		an.ID, an.ArticleID, bias, nullFloat(an.BiasConfidence), tone, nullFloat(an.ToneConfidence),
		nullString(clean(an.Summary, 0)), an.AnalyzedAt)
	if err != nil {
		return rollback(fmt.Errorf("insert analysis: %w", err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return rollback(err)
	} else if n == 0 {
		return false, tx.Rollback()
	}

	for i := range entities {
		e := &entities[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.ArticleID = an.ArticleID
		_, err := tx.ExecContext(ctx, s.Rebind(`INSERT INTO entities (id, article_id, entity_type, entity_value, relevance)
			VALUES (?, ?, ?, ?, ?)`),
			e.ID, e.ArticleID, string(e.Type), clean(e.Value, maxEntityValue), e.Relevance)
		if err != nil {
			return rollback(fmt.Errorf("insert entity: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// GetAnalysis 查询文章的标注，未标注返回 ErrNotFound
func (s *Storage) GetAnalysis(ctx context.Context, articleID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind("SELECT "+AnalysisColumns+" FROM article_analysis an WHERE an.article_id = ?"), articleID)
	an, err := ScanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return an, err
}

// AnalysisColumns 标注表查询列，与 ScanAnalysis 顺序一致
const AnalysisColumns = "an.id, an.article_id, an.political_bias, an.bias_confidence, an.tone, an.tone_confidence, an.summary, an.analyzed_at"

// ScanAnalysis 按 AnalysisColumns 的顺序读取一行
func ScanAnalysis(row RowScanner) (*model.Analysis, error) {
	var (
		an             model.Analysis
		bias, tone, sm sql.NullString
		bc, tc         sql.NullFloat64
	)
	if err := row.Scan(&an.ID, &an.ArticleID, &bias, &bc, &tone, &tc, &sm, &an.AnalyzedAt); err != nil {
		return nil, err
	}
	if b, ok := model.ParseBias(bias.String); bias.Valid && ok {
		an.PoliticalBias = &b
	}
	if t, ok := model.ParseTone(tone.String); tone.Valid && ok {
		an.Tone = &t
	}
	if bc.Valid {
		an.BiasConfidence = &bc.Float64
	}
	if tc.Valid {
		an.ToneConfidence = &tc.Float64
	}
	an.Summary = sm.String
	an.AnalyzedAt = an.AnalyzedAt.UTC()
	return &an, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
