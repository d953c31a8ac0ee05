package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const maxEntityValue = 500

// EntityColumns 实体表查询列
const EntityColumns = "e.id, e.article_id, e.entity_type, e.entity_value, e.relevance"

// ScanEntity 按 EntityColumns 的顺序读取一行
func ScanEntity(row RowScanner) (*model.Entity, error) {
	var (
		e  model.Entity
		et string
	)
	if err := row.Scan(&e.ID, &e.ArticleID, &et, &e.Value, &e.Relevance); err != nil {
		return nil, err
	}
	e.Type = model.EntityType(et)
	return &e, nil
}

// ArticleEntities 查询文章的实体，按相关度降序
func (s *Storage) ArticleEntities(ctx context.Context, articleID string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind("SELECT "+EntityColumns+
		" FROM entities e WHERE e.article_id = ? ORDER BY e.relevance DESC, e.entity_type, e.entity_value"), articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := ScanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// FrequentEntities 某类型下出现至少 minCount 次的实体值，按次数降序
func (s *Storage) FrequentEntities(ctx context.Context, et model.EntityType, minCount, limit int) ([]model.EntityCount, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind(`SELECT entity_value, COUNT(*) AS cnt FROM entities
		WHERE entity_type = ?
		GROUP BY entity_value
		HAVING COUNT(*) >= ?
		ORDER BY cnt DESC, entity_value
		LIMIT ?`), string(et), minCount, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EntityCount
	for rows.Next() {
		ec := model.EntityCount{Type: et}
		if err := rows.Scan(&ec.Value, &ec.Count); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// CountEntityValue 统计某个实体值的出现次数
func (s *Storage) CountEntityValue(ctx context.Context, et model.EntityType, value string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.Rebind("SELECT COUNT(*) FROM entities WHERE entity_type = ? AND entity_value = ?"),
		string(et), value).Scan(&n)
	return n, err
}

// RenameEntity 将同类型的实体值 from 改为 to。同一文章已有 to 时删除 from，保持文章内不重复
func (s *Storage) RenameEntity(ctx context.Context, et model.EntityType, from, to string) (int64, error) {
	to = clean(strings.TrimSpace(to), maxEntityValue)
	if from == to || to == "" {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.Rebind(`DELETE FROM entities
		WHERE entity_type = ? AND entity_value = ?
		AND article_id IN (SELECT article_id FROM entities
			WHERE entity_type = ? AND LOWER(entity_value) = LOWER(CAST(? AS TEXT)) AND entity_value <> ?)`),
		string(et), from, string(et), to, from)
	if err != nil {
		return 0, fmt.Errorf("delete merged entities: %w", err)
	}
	deleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, s.Rebind("UPDATE entities SET entity_value = ? WHERE entity_type = ? AND entity_value = ?"),
		to, string(et), from)
	if err != nil {
		return 0, fmt.Errorf("rename entities: %w", err)
	}
	updated, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted + updated, nil
}
