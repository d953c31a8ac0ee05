package facts

import (
	"context"
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// 事实分类
const (
	CategoryEvent     = "event"
	CategoryStatement = "statement"
	CategoryDataPoint = "data-point"
	CategoryDecision  = "decision"
	CategoryConflict  = "conflict"
	CategoryAgreement = "agreement"
)

// 重要程度和可信度共用 high/medium/low
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Article 参与摘要的已标注文章
type Article struct {
	*model.Article
	Analysis *model.Analysis
	Entities []model.Entity
}

// SourceRef 事实引用的文章
type SourceRef struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Source      string      `json:"source"`
	URL         string      `json:"url"`
	PublishedAt *time.Time  `json:"published_at"`
	Bias        *model.Bias `json:"bias"`
	Tone        *model.Tone `json:"tone"`
}

// Fact 从多篇文章归纳出的事实
type Fact struct {
	ID           string      `json:"id"`
	Fact         string      `json:"fact"`
	Category     string      `json:"category"`
	Importance   string      `json:"importance"`
	Participants []string    `json:"participants"`
	Location     string      `json:"location,omitempty"`
	When         string      `json:"when,omitempty"`
	Quote        string      `json:"quote,omitempty"`
	QuoteAuthor  string      `json:"quote_author,omitempty"`
	Sources      []SourceRef `json:"sources"`
	SourceCount  int         `json:"source_count"`
	Verification string      `json:"verification"`
	Sentiment    string      `json:"sentiment"`
}

// TimelineEvent 时间线事件
type TimelineEvent struct {
	Date    string   `json:"date"`
	Event   string   `json:"event"`
	FactIDs []string `json:"fact_ids"`
}

// KeyFigure 关键人物
type KeyFigure struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Stance   string `json:"stance"`
	Mentions int    `json:"mentions"`
}

// Digest 一个日期区间的事实摘要
type Digest struct {
	Facts          []Fact          `json:"facts"`
	TimelineEvents []TimelineEvent `json:"timeline_events"`
	KeyFigures     []KeyFigure     `json:"key_figures"`
	ArticleCount   int             `json:"article_count"`
	DateFrom       string          `json:"date_from"`
	DateTo         string          `json:"date_to"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Cached         bool            `json:"cached"`
}

// Synthesizer 由文章生成事实摘要，文章按发布时间倒序传入
type Synthesizer interface {
	Synthesize(ctx context.Context, articles []Article) (*Digest, error)
}

// Verification 按来源数量给出可信度
func Verification(sourceCount int) string {
	switch {
	case sourceCount >= 3:
		return LevelHigh
	case sourceCount == 2:
		return LevelMedium
	default:
		return LevelLow
	}
}

func sourceRef(a Article) SourceRef {
	ref := SourceRef{
		ID:          a.ID,
		Title:       a.Title,
		Source:      a.SourceName,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
	}
	if a.Analysis != nil {
		ref.Bias = a.Analysis.PoliticalBias
		ref.Tone = a.Analysis.Tone
	}
	return ref
}

func emptyDigest(n int) *Digest {
	return &Digest{
		Facts:          []Fact{},
		TimelineEvents: []TimelineEvent{},
		KeyFigures:     []KeyFigure{},
		ArticleCount:   n,
	}
}
