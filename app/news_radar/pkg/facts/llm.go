package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
)

const (
	maxFacts        = 10
	maxArticleRunes = 1500
)

// LLMSynthesizer 让 LLM 抽取并聚合事实，失败时退回 fallback
type LLMSynthesizer struct {
	client   llm.Client
	fallback Synthesizer
}

// NewLLMSynthesizer 创建 LLM 摘要器，fallback 为 nil 时使用 Deterministic
func NewLLMSynthesizer(c llm.Client, fallback Synthesizer) *LLMSynthesizer {
	if fallback == nil {
		fallback = Deterministic{}
	}
	return &LLMSynthesizer{client: c, fallback: fallback}
}

// Synthesize implements Synthesizer
func (s *LLMSynthesizer) Synthesize(ctx context.Context, articles []Article) (*Digest, error) {
	if len(articles) == 0 {
		return emptyDigest(0), nil
	}
	d, err := s.synthesize(ctx, articles)
	if err != nil {
		logger.Log.Warnf("LLM 事实抽取失败，使用规则摘要: %v", err)
		return s.fallback.Synthesize(ctx, articles)
	}
	return d, nil
}

type llmFact struct {
	ID             string   `json:"id"`
	Fact           string   `json:"fact"`
	Category       string   `json:"category"`
	Importance     string   `json:"importance"`
	Who            []string `json:"who"`
	When           string   `json:"when"`
	Where          string   `json:"where"`
	Quote          *string  `json:"quote"`
	QuoteAuthor    *string  `json:"quote_author"`
	ArticleIndices []int    `json:"article_indices"`
	Sentiment      string   `json:"sentiment"`
}

type llmDigest struct {
	Facts          []llmFact       `json:"facts"`
	TimelineEvents []TimelineEvent `json:"timeline_events"`
	KeyFigures     []KeyFigure     `json:"key_figures"`
}

func (s *LLMSynthesizer) synthesize(ctx context.Context, articles []Article) (*Digest, error) {
	raw, err := s.client.Complete(ctx, "Eres un analista de noticias. Responde solo con JSON válido.", buildPrompt(articles))
	if err != nil {
		return nil, err
	}
	text, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no json object in response")
	}
	var out llmDigest
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		if err2 := json.Unmarshal([]byte(llm.StripTrailingCommas(text)), &out); err2 != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	}

	d := emptyDigest(len(articles))
	ids := make(map[string]bool)
	// 模型给出的 ID 到最终 ID，时间线按它改写引用
	remap := make(map[string]string)
	for _, lf := range out.Facts {
		if strings.TrimSpace(lf.Fact) == "" {
			continue
		}
		rawID := strings.TrimSpace(lf.ID)
		f := Fact{
			ID:           rawID,
			Fact:         strings.TrimSpace(lf.Fact),
			Category:     normalizeCategory(lf.Category),
			Participants: nonEmpty(lf.Who),
			Location:     strings.TrimSpace(lf.Where),
			When:         strings.TrimSpace(lf.When),
			Sources:      []SourceRef{},
			Sentiment:    normalizeSentiment(lf.Sentiment),
		}
		if f.ID == "" || ids[f.ID] {
			f.ID = uuid.NewSHA1(factNamespace, []byte(f.Fact)).String()
		}
		ids[f.ID] = true
		if _, ok := remap[rawID]; rawID != "" && !ok {
			remap[rawID] = f.ID
		}
		if lf.Quote != nil {
			f.Quote = strings.TrimSpace(*lf.Quote)
		}
		if lf.QuoteAuthor != nil {
			f.QuoteAuthor = strings.TrimSpace(*lf.QuoteAuthor)
		}

		seen := make(map[int]bool)
		for _, idx := range lf.ArticleIndices {
			if idx < 0 || idx >= len(articles) || seen[idx] {
				continue
			}
			seen[idx] = true
			f.Sources = append(f.Sources, sourceRef(articles[idx]))
		}
		f.SourceCount = len(f.Sources)
		f.Verification = Verification(f.SourceCount)
		f.Importance = normalizeImportance(lf.Importance, f.Verification)

		d.Facts = append(d.Facts, f)
		if len(d.Facts) == maxFacts {
			break
		}
	}
	for _, ev := range out.TimelineEvents {
		if strings.TrimSpace(ev.Event) == "" {
			continue
		}
		ev.FactIDs = remapFactIDs(ev.FactIDs, remap)
		d.TimelineEvents = append(d.TimelineEvents, ev)
	}
	for _, kf := range out.KeyFigures {
		if strings.TrimSpace(kf.Name) != "" {
			d.KeyFigures = append(d.KeyFigures, kf)
		}
	}
	return d, nil
}

// remapFactIDs 改写为最终的事实 ID，丢弃不存在的引用
func remapFactIDs(raw []string, remap map[string]string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, id := range raw {
		id, ok := remap[strings.TrimSpace(id)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func buildPrompt(articles []Article) string {
	var sb strings.Builder
	for i, a := range articles {
		content := a.Content
		if content == "" {
			content = a.Description
		}
		if utf8.RuneCountInString(content) > maxArticleRunes {
			content = string([]rune(content)[:maxArticleRunes])
		}
		fmt.Fprintf(&sb, "\n[Artículo %d] - %s\nTítulo: %s\nContenido: %s\n", i, a.SourceName, a.Title, content)
	}
	return fmt.Sprintf(factsPrompt, sb.String())
}

const factsPrompt = `Analiza los siguientes artículos de noticias y extrae los HECHOS CONCRETOS más importantes.

ARTÍCULOS:
%s

INSTRUCCIONES:
1. Extrae hechos verificables, no opiniones: qué pasó, quién, cuándo y dónde.
2. Si el mismo hecho aparece en varios artículos, agrúpalos en article_indices.
3. Incluye citas textuales relevantes con su autor.
4. Usa exactamente los valores en inglés indicados para category, importance y sentiment.

Responde SOLO con JSON válido (sin markdown):
{
    "facts": [
        {
            "id": "identificador_unico",
            "fact": "Descripción clara y concisa del hecho",
            "category": "event|statement|data-point|decision|conflict|agreement",
            "importance": "high|medium|low",
            "who": ["personas o entidades involucradas"],
            "when": "fecha o momento",
            "where": "lugar",
            "quote": "cita textual o null",
            "quote_author": "autor de la cita o null",
            "article_indices": [0, 1],
            "sentiment": "positive|negative|neutral|alarming"
        }
    ],
    "timeline_events": [
        {"date": "YYYY-MM-DD", "event": "descripción breve", "fact_ids": ["id1"]}
    ],
    "key_figures": [
        {"name": "Nombre", "role": "cargo", "stance": "posición principal", "mentions": 3}
    ]
}

Máximo 10 hechos, ordenados por importancia.`

var categoryAliases = map[string]string{
	CategoryEvent:     CategoryEvent,
	CategoryStatement: CategoryStatement,
	CategoryDataPoint: CategoryDataPoint,
	CategoryDecision:  CategoryDecision,
	CategoryConflict:  CategoryConflict,
	CategoryAgreement: CategoryAgreement,
	"evento":          CategoryEvent,
	"declaracion":     CategoryStatement,
	"declaración":     CategoryStatement,
	"dato":            CategoryDataPoint,
	"decisión":        CategoryDecision,
	"conflicto":       CategoryConflict,
	"acuerdo":         CategoryAgreement,
}

func normalizeCategory(s string) string {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryEvent
}

var importanceAliases = map[string]string{
	LevelHigh: LevelHigh, LevelMedium: LevelMedium, LevelLow: LevelLow,
	"alta": LevelHigh, "media": LevelMedium, "baja": LevelLow,
}

func normalizeImportance(s, fallback string) string {
	if v, ok := importanceAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return fallback
}

var sentimentAliases = map[string]string{
	"positive": "positive", "negative": "negative", "neutral": "neutral", "alarming": "alarming",
	"positivo": "positive", "negativo": "negative", "alarmante": "alarming",
}

func normalizeSentiment(s string) string {
	if v, ok := sentimentAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return "neutral"
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
