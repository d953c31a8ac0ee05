package model

import (
	"strings"
	"time"
)

// Bias 政治倾向
type Bias string

const (
	BiasLeft        Bias = "left"
	BiasCenterLeft  Bias = "center-left"
	BiasCenter      Bias = "center"
	BiasCenterRight Bias = "center-right"
	BiasRight       Bias = "right"
)

// Biases 按左到右的顺序排列
var Biases = []Bias{BiasLeft, BiasCenterLeft, BiasCenter, BiasCenterRight, BiasRight}

var biasScore = map[Bias]int{
	BiasLeft:        -2,
	BiasCenterLeft:  -1,
	BiasCenter:      0,
	BiasCenterRight: 1,
	BiasRight:       2,
}

// ParseBias 解析倾向值，非法值返回 false
func ParseBias(s string) (Bias, bool) {
	b := Bias(strings.ToLower(strings.TrimSpace(s)))
	_, ok := biasScore[b]
	return b, ok
}

// Score 将倾向映射到 -2..+2
func (b Bias) Score() int {
	return biasScore[b]
}

// Tone 语气
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneNegative Tone = "negative"
	ToneAlarming Tone = "alarming"
)

// Tones 固定顺序
var Tones = []Tone{TonePositive, ToneNeutral, ToneNegative, ToneAlarming}

// ParseTone 解析语气值，非法值返回 false
func ParseTone(s string) (Tone, bool) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Tones {
		if v == t {
			return t, true
		}
	}
	return "", false
}

// EntityType 实体类型
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityPlace        EntityType = "place"
	EntityOrganization EntityType = "organization"
	EntityDate         EntityType = "date"
	EntityCountry      EntityType = "country"
	EntityCity         EntityType = "city"
)

// EntityTypes 全部实体类型
var EntityTypes = []EntityType{EntityPerson, EntityPlace, EntityOrganization, EntityDate, EntityCountry, EntityCity}

// ParseEntityType 解析实体类型
func ParseEntityType(s string) (EntityType, bool) {
	et := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range EntityTypes {
		if v == et {
			return et, true
		}
	}
	return "", false
}

// CanonicalArticle 与新闻源无关的标准化文章
type CanonicalArticle struct {
	ExternalID  string
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	SourceName  string
	Language    string
	Country     string
	PublishedAt *time.Time
}

// DedupKey external_id 优先，否则使用 URL
func (a CanonicalArticle) DedupKey() string {
	if a.ExternalID != "" {
		return "ext:" + a.ExternalID
	}
	return "url:" + a.URL
}

// Article 入库后的文章
type Article struct {
	ID          string
	ExternalID  string
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	SourceName  string
	Language    string
	Country     string
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
}

// Analysis 文章标注结果，与文章一对一
type Analysis struct {
	ID             string
	ArticleID      string
	PoliticalBias  *Bias
	BiasConfidence *float64
	Tone           *Tone
	ToneConfidence *float64
	Summary        string
	AnalyzedAt     time.Time
}

// Entity 文章中提到的实体
type Entity struct {
	ID        string
	ArticleID string
	Type      EntityType
	Value     string
	Relevance float64
}

// EntityCount 实体及其出现次数
type EntityCount struct {
	Type  EntityType
	Value string
	Count int
}
