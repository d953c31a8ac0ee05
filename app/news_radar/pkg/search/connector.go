package search

import (
	"context"
	"fmt"
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// ConnectorConfig 单个新闻源的抓取参数
type ConnectorConfig struct {
	Language   string
	MaxResults int
	Timeout    time.Duration // 整个新闻源的抓取时限，所有查询共用
}

// Batch 一次抓取的标准化结果
type Batch struct {
	Provider      string
	Articles      []model.CanonicalArticle
	Skipped       int // 格式不合法被跳过的条目
	FailedQueries int
}

// Connector 将一个 Searcher 适配为按查询集合抓取标准文章
type Connector struct {
	name     string
	searcher Searcher
	cfg      ConnectorConfig
}

// NewConnector 创建连接器
func NewConnector(name string, searcher Searcher, cfg ConnectorConfig) *Connector {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Connector{name: name, searcher: searcher, cfg: cfg}
}

// Name 新闻源名称
func (c *Connector) Name() string {
	return c.name
}

// Fetch 依次执行查询并合并结果。单条结果不合法只计数；超时后剩余查询记为失败，
// 所有查询都失败时返回 ErrSourceUnavailable
func (c *Connector) Fetch(ctx context.Context, queries []string) (*Batch, error) {
	if qi, ok := c.searcher.(QueryIndependent); ok && qi.QueryIndependent() {
		queries = []string{""}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: %s: no queries", ErrSourceUnavailable, c.name)
	}

	log := logger.Log.WithField("provider", c.name)
	batch := &Batch{Provider: c.name}
	seen := make(map[string]bool)
	var lastErr error

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.name, err)
		}
		if err := fetchCtx.Err(); err != nil {
			batch.FailedQueries += len(queries) - i
			lastErr = err
			log.Warnf("抓取超时，跳过剩余 %d 个查询", len(queries)-i)
			break
		}

		resp, err := c.search(fetchCtx, q)
		if err != nil {
			batch.FailedQueries++
			lastErr = err
			log.WithField("query", q).Warnf("查询失败: %v", err)
			continue
		}

		batch.Skipped += resp.Skipped
		if resp.Skipped > 0 {
			log.WithField("query", q).Warnf("%d 条结果格式不合法，已跳过", resp.Skipped)
		}
		for _, r := range resp.Results {
			art, err := Normalize(r, c.cfg.Language)
			if err != nil {
				batch.Skipped++
				log.WithField("url", r.URL).Debugf("跳过不合法条目: %v", err)
				continue
			}
			key, urlKey := art.DedupKey(), "url:"+art.URL
			if seen[key] || seen[urlKey] {
				continue
			}
			seen[key], seen[urlKey] = true, true
			batch.Articles = append(batch.Articles, art)
		}
	}

	if batch.FailedQueries == len(queries) {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, c.name, lastErr)
	}
	log.Infof("抓取完成: %d 篇, 跳过 %d, 失败查询 %d", len(batch.Articles), batch.Skipped, batch.FailedQueries)
	return batch, nil
}

func (c *Connector) search(ctx context.Context, q string) (*Response, error) {
	return c.searcher.Search(ctx, &Request{
		Query:      q,
		Topic:      "news",
		Language:   c.cfg.Language,
		MaxResults: c.cfg.MaxResults,
	})
}
