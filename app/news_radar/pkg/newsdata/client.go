package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
)

const defaultBaseURL = "https://newsdata.io/api/1/latest"

// Client NewsData.io API 客户端
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的 NewsData.io 客户端，baseURL 为空时使用官方地址
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// LatestResponse /latest 接口响应
type LatestResponse struct {
	Status       string            `json:"status"`
	TotalResults int               `json:"totalResults"`
	Results      []json.RawMessage `json:"results"` // 逐条解码为 Article
	NextPage     string            `json:"nextPage"`
}

// Article NewsData.io 文章
type Article struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"image_url"`
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"source_name"`
	PubDate     string   `json:"pubDate"`
	Language    string   `json:"language"`
	Country     []string `json:"country"`
}

// errorResponse status=error 时 results 是错误对象
type errorResponse struct {
	Status  string `json:"status"`
	Results struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"results"`
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	if req.Query != "" {
		q.Set("q", req.Query)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsdata api error (status %d): %s", res.StatusCode, truncate(string(body), 500))
	}

	var latest LatestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Status != "" && e.Status != "success" {
			return nil, fmt.Errorf("newsdata api error: %s", e.Results.Message)
		}
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	if latest.Status != "success" {
		return nil, fmt.Errorf("newsdata api error: status %q", latest.Status)
	}

	articles, skipped := search.DecodeItems[Article](latest.Results)
	results := make([]search.Result, 0, len(articles))
	for _, a := range articles {
		source := a.SourceID
		if source == "" {
			source = a.SourceName
		}
		results = append(results, search.Result{
			ExternalID:    a.ArticleID,
			Title:         a.Title,
			Description:   a.Description,
			Content:       a.Content,
			URL:           a.Link,
			ImageURL:      a.ImageURL,
			Source:        source,
			Language:      languageCode(a.Language),
			Country:       strings.Join(a.Country, ","),
			PublishedDate: a.PubDate,
		})
	}
	return &search.Response{Results: results, Skipped: skipped}, nil
}

// NewsData 返回语言全称，例如 "spanish"
func languageCode(lang string) string {
	switch strings.ToLower(lang) {
	case "spanish", "es":
		return "es"
	case "english", "en":
		return "en"
	case "portuguese", "pt":
		return "pt"
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
