package extract

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// FetchFunc 抓取网页正文
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// Enricher 正文过短的文章用 readability 补全正文
type Enricher struct {
	minLength int
	workers   int
	timeout   time.Duration
	fetch     FetchFunc
}

// NewEnricher 创建正文补全器
func NewEnricher(minLength, workers int, timeout time.Duration) *Enricher {
	if minLength <= 0 {
		minLength = 500
	}
	if workers <= 0 {
		workers = 5
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Enricher{minLength: minLength, workers: workers, timeout: timeout, fetch: fetchReadable}
}

// WithFetcher 替换抓取实现
func (e *Enricher) WithFetcher(f FetchFunc) *Enricher {
	e.fetch = f
	return e
}

// Enrich 并发补全正文，返回被补全的数量。抓取失败或结果更短时保留原正文
func (e *Enricher) Enrich(ctx context.Context, articles []model.CanonicalArticle) int {
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	enriched := 0

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				art := &articles[i]
				text, err := e.fetch(ctx, art.URL, e.timeout)
				if err != nil {
					logger.Log.WithField("url", art.URL).Debugf("正文抓取失败: %v", err)
					continue
				}
				if utf8.RuneCountInString(text) <= utf8.RuneCountInString(art.Content) {
					continue
				}
				art.Content = text
				mu.Lock()
				enriched++
				mu.Unlock()
			}
		}()
	}

	for i := range articles {
		if utf8.RuneCountInString(articles[i].Content) >= e.minLength {
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	return enriched
}

func fetchReadable(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
