package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const (
	maxShortField = 255
	maxLongField  = 2048
)

// ArticleColumns 文章表查询列，与 ScanArticle 顺序一致
const ArticleColumns = `a.id, a.external_id, a.title, a.description, a.content, a.url, a.image_url,
	a.source_name, a.language, a.country, a.published_at, a.fetched_at, a.created_at`

// RowScanner *sql.Row 和 *sql.Rows 的公共接口
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanArticle 按 ArticleColumns 的顺序读取一行
func ScanArticle(row RowScanner) (*model.Article, error) {
	var (
		a                                             model.Article
		externalID, desc, content, image, source, cty sql.NullString
		published                                     sql.NullTime
	)
	err := row.Scan(&a.ID, &externalID, &a.Title, &desc, &content, &a.URL, &image,
		&source, &a.Language, &cty, &published, &a.FetchedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ExternalID = externalID.String
	a.Description = desc.String
	a.Content = content.String
	a.ImageURL = image.String
	a.SourceName = source.String
	a.Country = cty.String
	if published.Valid {
		t := published.Time.UTC()
		a.PublishedAt = &t
	}
	a.FetchedAt = a.FetchedAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// ArticleExists 按去重键判断文章是否已入库
func (s *Storage) ArticleExists(ctx context.Context, art model.CanonicalArticle) (bool, error) {
	query := "SELECT 1 FROM articles WHERE url = ?"
	args := []any{art.URL}
	if art.ExternalID != "" {
		query += " OR external_id = ?"
		args = append(args, clean(art.ExternalID, maxShortField))
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.Rebind(query+" LIMIT 1"), args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// InsertArticle 插入一篇文章。唯一键冲突时返回 inserted=false 且不报错
func (s *Storage) InsertArticle(ctx context.Context, art model.CanonicalArticle, fetchedAt time.Time) (*model.Article, bool, error) {
	now := DBTime(time.Now())
	a := &model.Article{
		ID:          uuid.NewString(),
		ExternalID:  clean(art.ExternalID, maxShortField),
		Title:       clean(art.Title, 0),
		Description: clean(art.Description, 0),
		Content:     clean(art.Content, 0),
		URL:         art.URL,
		ImageURL:    art.ImageURL,
		SourceName:  clean(art.SourceName, maxShortField),
		Language:    clean(art.Language, 10),
		Country:     clean(art.Country, maxShortField),
		FetchedAt:   DBTime(fetchedAt),
		CreatedAt:   now,
	}
	if a.Language == "" {
		a.Language = "es"
	}
	if len(a.ImageURL) > maxLongField {
		a.ImageURL = ""
	}
	if art.PublishedAt != nil {
		t := DBTime(*art.PublishedAt)
		a.PublishedAt = &t
	}

	var published any
	if a.PublishedAt != nil {
		published = *a.PublishedAt
	}
	_, err := s.db.ExecContext(ctx, s.Rebind(`INSERT INTO articles
		(id, external_id, title, description, content, url, image_url, source_name, language, country, published_at, fetched_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, nullString(a.ExternalID), a.Title, nullString(a.Description), nullString(a.Content), a.URL,
		nullString(a.ImageURL), nullString(a.SourceName), a.Language, nullString(a.Country),
		published, a.FetchedAt, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("insert article: %w", err)
	}
	return a, true, nil
}

// GetArticle 按 ID 查询文章
func (s *Storage) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind("SELECT "+ArticleColumns+" FROM articles a WHERE a.id = ?"), id)
	a, err := ScanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// PendingAnalysis 按入库时间升序返回尚未标注的文章，limit <= 0 表示不限
func (s *Storage) PendingAnalysis(ctx context.Context, limit int) ([]*model.Article, error) {
	query := "SELECT " + ArticleColumns + ` FROM articles a
		LEFT JOIN article_analysis an ON an.article_id = a.id
		WHERE an.id IS NULL
		ORDER BY a.created_at ASC, a.id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Article
	for rows.Next() {
		a, err := ScanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// clean 去掉 NULL 字节和非法 UTF-8，max > 0 时按字符截断
func clean(s string, max int) string {
	// 移除无效的 UTF-8 字符
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	// PostgreSQL 文本字段不支持 NULL 字节
	s = removeNullBytes(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}

func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
