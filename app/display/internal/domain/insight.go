package domain

import (
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// EntityCount 实体及其出现次数
type EntityCount struct {
	Type  model.EntityType `json:"type"`
	Value string           `json:"value"`
	Count int              `json:"count"`
}

// Stats 门户总体统计
type Stats struct {
	TotalArticles    int            `json:"total_articles"`
	ArticlesToday    int            `json:"articles_today"`
	SourcesCount     int            `json:"sources_count"`
	BiasDistribution map[string]int `json:"bias_distribution"`
	ToneDistribution map[string]int `json:"tone_distribution"`
	TopEntities      []EntityCount  `json:"top_entities"`
}

// SourceCounts 单个媒体的原始计数
type SourceCounts struct {
	Name  string
	Total int
	Bias  map[model.Bias]int
	Tone  map[model.Tone]int
}

// SourceStat 单个媒体的倾向和语气统计
type SourceStat struct {
	SourceName       string         `json:"source_name"`
	TotalArticles    int            `json:"total_articles"`
	BiasScore        float64        `json:"bias_score"` // -2 (left) .. +2 (right)
	DominantBias     model.Bias     `json:"dominant_bias"`
	DominantTone     model.Tone     `json:"dominant_tone"`
	BiasDistribution map[string]int `json:"bias_distribution"`
	ToneDistribution map[string]int `json:"tone_distribution"`
}

// SourceStats 媒体统计列表
type SourceStats struct {
	Sources      []SourceStat `json:"sources"`
	TotalSources int          `json:"total_sources"`
}

// Mention 实体在某篇文章中出现一次
type Mention struct {
	Type      model.EntityType
	Value     string
	ArticleID string
}

// GraphNode 关系图节点
type GraphNode struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Type     model.EntityType `json:"type"`
	Count    int              `json:"count"`
	Articles []string         `json:"articles"`
}

// GraphLink 两个实体在同一文章中共同出现
type GraphLink struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Value    int      `json:"value"`
	Articles []string `json:"articles"`
}

// EntityGraph 实体关系图
type EntityGraph struct {
	Nodes            []GraphNode `json:"nodes"`
	Links            []GraphLink `json:"links"`
	TotalEntities    int         `json:"total_entities"`
	TotalConnections int         `json:"total_connections"`
}

// FactRefresh 事实摘要刷新结果
type FactRefresh struct {
	Status       string    `json:"status"`
	DateFrom     string    `json:"date_from"`
	DateTo       string    `json:"date_to"`
	ArticleCount int       `json:"article_count"`
	FactCount    int       `json:"fact_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}
