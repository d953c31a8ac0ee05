package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
)

// Client 基于 RSS/Atom 订阅的新闻源，与查询关键词无关
type Client struct {
	feeds    []string
	keywords []string
	parser   *gofeed.Parser
}

// NewClient 创建 RSS 客户端，keywords 为空时不过滤
func NewClient(feeds, keywords []string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: timeout}
	fp.UserAgent = "news_radar/1.0"

	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &Client{feeds: feeds, keywords: lower, parser: fp}
}

var (
	_ search.Searcher         = (*Client)(nil)
	_ search.QueryIndependent = (*Client)(nil)
)

// QueryIndependent implements search.QueryIndependent
func (c *Client) QueryIndependent() bool { return true }

// Search 抓取全部订阅；单个订阅失败只记录日志，全部失败才返回错误
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	var results []search.Result
	var lastErr error
	failed := 0
	for _, feedURL := range c.feeds {
		feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failed++
			lastErr = err
			logger.Log.WithField("feed", feedURL).Warnf("解析订阅失败: %v", err)
			continue
		}
		for _, item := range feed.Items {
			if !c.match(item) {
				continue
			}
			results = append(results, toResult(feed, item, req.Language))
		}
	}
	if failed == len(c.feeds) {
		return nil, fmt.Errorf("all feeds failed: %w", lastErr)
	}
	return &search.Response{Results: results}, nil
}

func (c *Client) match(item *gofeed.Item) bool {
	if len(c.keywords) == 0 {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func toResult(feed *gofeed.Feed, item *gofeed.Item, language string) search.Result {
	published := item.Published
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if published == "" && item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	var image string
	if item.Image != nil {
		image = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				image = enc.URL
				break
			}
		}
	}

	lang := language
	if feed.Language != "" {
		lang = strings.ToLower(strings.SplitN(feed.Language, "-", 2)[0])
	}

	return search.Result{
		ExternalID:    item.GUID,
		Title:         item.Title,
		Description:   item.Description,
		Content:       item.Content,
		URL:           item.Link,
		ImageURL:      image,
		Source:        feed.Title,
		Language:      lang,
		PublishedDate: published,
	}
}
