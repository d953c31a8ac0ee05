package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// Dialect SQL 方言
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Storage 文章库，postgres 用于生产，sqlite 用于本地和测试
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// Open 打开数据库并建表
func Open(ctx context.Context, driver, source string) (*Storage, error) {
	var (
		db  *sql.DB
		err error
	)
	switch Dialect(driver) {
	case Postgres:
		db, err = sql.Open("postgres", source)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	case SQLite:
		if dir := filepath.Dir(source); source != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		db, err = sql.Open("sqlite", sqliteDSN(source))
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		// sqlite 单写者
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}

	s := &Storage{db: db, dialect: Dialect(driver)}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func sqliteDSN(source string) string {
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Close 关闭连接
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB 底层连接，供只读查询使用
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Dialect 当前方言
func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// Rebind 将 ? 占位符转换为当前方言的占位符
func (s *Storage) Rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// Migrate 建表，可重复执行
func (s *Storage) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DBTime 统一为 UTC 并截断到微秒，两种方言存取一致
func DBTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// LikePattern 生成大小写不敏感的包含匹配模式，配合 ESCAPE '\' 使用
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
