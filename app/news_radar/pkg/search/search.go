package search

import (
	"context"
	"errors"
)

// ErrSourceUnavailable 新闻源出错或超时
var ErrSourceUnavailable = errors.New("news source unavailable")

// Searcher 定义通用的新闻搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// QueryIndependent 由不依赖关键词的新闻源实现（例如 RSS），一次运行只抓取一次
type QueryIndependent interface {
	QueryIndependent() bool
}

// Request 通用搜索请求
type Request struct {
	Query      string
	Topic      string // "news" or "general"
	Language   string
	MaxResults int
	StartDate  string // Format: YYYY-MM-DD
	EndDate    string // Format: YYYY-MM-DD
}

// Response 通用搜索响应
type Response struct {
	Results []Result
	Skipped int // 无法解码被丢弃的条目数
}

// Result 单条原始结果，字段尚未校验
type Result struct {
	ExternalID    string
	Title         string
	Description   string
	Content       string
	URL           string
	ImageURL      string
	Source        string
	Language      string
	Country       string
	PublishedDate string
}
