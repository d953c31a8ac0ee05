package factory

import (
	"fmt"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/apify"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/newsdata"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/rss"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/searxng"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/tavily"
)

// NewSearcher 根据单个新闻源配置创建搜索实例
func NewSearcher(p config.ProviderConfig) (search.Searcher, error) {
	switch p.Name {
	case "newsdata":
		if p.APIKey == "" {
			return nil, fmt.Errorf("newsdata api key is missing")
		}
		return newsdata.NewClient(p.APIKey, p.BaseURL), nil

	case "apify":
		if p.APIKey == "" {
			return nil, fmt.Errorf("apify api token is missing")
		}
		return apify.NewClient(p.APIKey, p.Actor, p.BaseURL), nil

	case "tavily":
		if p.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(p.APIKey, p.BaseURL), nil

	case "searxng":
		if p.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(p.BaseURL, p.Timeout), nil

	case "rss":
		if len(p.Feeds) == 0 {
			return nil, fmt.Errorf("rss feeds are missing")
		}
		return rss.NewClient(p.Feeds, p.Keywords, p.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", p.Name)
	}
}

// NewConnectors 按配置顺序创建连接器，第一个为主源，其余为备用源
func NewConnectors(cfg config.FetchConfig) ([]*search.Connector, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("search provider not configured")
	}
	connectors := make([]*search.Connector, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		s, err := NewSearcher(p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		timeout := p.Timeout
		if timeout == 0 {
			timeout = cfg.Timeout
		}
		connectors = append(connectors, search.NewConnector(p.Name, s, search.ConnectorConfig{
			Language:   cfg.Language,
			MaxResults: cfg.MaxResults,
			Timeout:    timeout,
		}))
	}
	return connectors, nil
}
