package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	// DefaultActor Google News 抓取 actor
	DefaultActor = "easyapi~google-news-scraper"
)

// Client Apify actor 同步运行客户端
type Client struct {
	token   string
	actor   string
	baseURL string
	client  *http.Client
}

// NewClient 创建 Apify 客户端
func NewClient(token, actor, baseURL string) *Client {
	if actor == "" {
		actor = DefaultActor
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		actor:   actor,
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// RunInput actor 输入
type RunInput struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
	MaxItems int    `json:"maxItems,omitempty"`
}

// Item actor 数据集中的一条新闻
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Date        string `json:"date"`
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	maxItems := req.MaxResults
	if maxItems == 0 {
		maxItems = 100
	}
	payload, err := json.Marshal(RunInput{Query: req.Query, Language: req.Language, MaxItems: maxItems})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL, url.PathEscape(c.actor), url.QueryEscape(c.token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	// run-sync 成功时返回 200 或 201
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 500))
		return nil, fmt.Errorf("apify api error (status %d): %s", res.StatusCode, string(body))
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	items, skipped := search.DecodeItems[Item](raw)

	results := make([]search.Result, 0, len(items))
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = it.URL
		}
		published := it.PublishedAt
		if published == "" {
			published = it.Date
		}
		results = append(results, search.Result{
			ExternalID:    id,
			Title:         it.Title,
			Description:   it.Description,
			Content:       it.Content,
			URL:           it.URL,
			ImageURL:      it.Image,
			Source:        it.Source,
			Language:      req.Language,
			PublishedDate: published,
		})
	}
	return &search.Response{Results: results, Skipped: skipped}, nil
}
