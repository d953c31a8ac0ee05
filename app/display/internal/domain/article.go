package domain

import (
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// Article 文章详情，附带标注和实体
type Article struct {
	ID          string     `json:"id"`
	ExternalID  *string    `json:"external_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Content     *string    `json:"content"`
	URL         string     `json:"url"`
	ImageURL    *string    `json:"image_url"`
	SourceName  *string    `json:"source_name"`
	PublishedAt *time.Time `json:"published_at"`
	Language    string     `json:"language"`
	Country     *string    `json:"country"`
	FetchedAt   time.Time  `json:"fetched_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Analysis    *Analysis  `json:"analysis"`
	Entities    []Entity   `json:"entities"`
}

// Analysis 文章标注
type Analysis struct {
	ID             string      `json:"id"`
	PoliticalBias  *model.Bias `json:"political_bias"`
	BiasConfidence *float64    `json:"bias_confidence"`
	Tone           *model.Tone `json:"tone"`
	ToneConfidence *float64    `json:"tone_confidence"`
	SummaryAI      *string     `json:"summary_ai"`
	AnalyzedAt     time.Time   `json:"analyzed_at"`
}

// Entity 文章中的实体
type Entity struct {
	ID          string           `json:"id"`
	EntityType  model.EntityType `json:"entity_type"`
	EntityValue string           `json:"entity_value"`
	Relevance   float64          `json:"relevance"`
}

// ArticleFilter 文章列表过滤条件，字段之间为 AND，字段内多个值为 OR
type ArticleFilter struct {
	Biases   []model.Bias
	Tones    []model.Tone
	Entity   string
	Source   string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ArticleList 文章分页结果
type ArticleList struct {
	Articles   []*Article `json:"articles"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// NewArticle 由存储模型组装文章详情，an 可以为 nil
func NewArticle(a *model.Article, an *model.Analysis, entities []model.Entity) *Article {
	out := &Article{
		ID:          a.ID,
		ExternalID:  optional(a.ExternalID),
		Title:       a.Title,
		Description: optional(a.Description),
		Content:     optional(a.Content),
		URL:         a.URL,
		ImageURL:    optional(a.ImageURL),
		SourceName:  optional(a.SourceName),
		PublishedAt: a.PublishedAt,
		Language:    a.Language,
		Country:     optional(a.Country),
		FetchedAt:   a.FetchedAt,
		CreatedAt:   a.CreatedAt,
		Entities:    make([]Entity, 0, len(entities)),
	}
	if an != nil {
		out.Analysis = &Analysis{
			ID:             an.ID,
			PoliticalBias:  an.PoliticalBias,
			BiasConfidence: an.BiasConfidence,
			Tone:           an.Tone,
			ToneConfidence: an.ToneConfidence,
			SummaryAI:      optional(an.Summary),
			AnalyzedAt:     an.AnalyzedAt,
		}
	}
	for _, e := range entities {
		out.Entities = append(out.Entities, Entity{
			ID:          e.ID,
			EntityType:  e.Type,
			EntityValue: e.Value,
			Relevance:   e.Relevance,
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
