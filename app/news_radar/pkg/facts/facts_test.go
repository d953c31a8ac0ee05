package facts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

func ptr[T any](v T) *T { return &v }

func article(id, source string, published time.Time, tone model.Tone, summary string, ents ...model.Entity) Article {
	return Article{
		Article:  &model.Article{ID: id, Title: "Título " + id, SourceName: source, URL: "https://a.example/" + id, PublishedAt: &published},
		Analysis: &model.Analysis{ArticleID: id, Tone: &tone, Summary: summary},
		Entities: ents,
	}
}

func person(v string, rel float64) model.Entity {
	return model.Entity{Type: model.EntityPerson, Value: v, Relevance: rel}
}

func TestVerification(t *testing.T) {
	tests := map[int]string{0: LevelLow, 1: LevelLow, 2: LevelMedium, 3: LevelHigh, 7: LevelHigh}
	for n, want := range tests {
		if got := Verification(n); got != want {
			t.Errorf("Verification(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestDeterministic_Synthesize(t *testing.T) {
	day1 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	articles := []Article{
		article("a1", "BBC", day2.Add(2*time.Hour), model.ToneAlarming, "Resumen más reciente",
			person("Nicolás Maduro", 0.9), model.Entity{Type: model.EntityCity, Value: "Caracas", Relevance: 1}),
		article("a2", "CNN", day2, model.ToneNegative, "Otro", person("nicolás maduro", 0.8), person("Donald Trump", 0.5)),
		article("a3", "EFE", day1, model.ToneAlarming, "", person("Nicolás Maduro", 1)),
		article("a4", "Reuters", day1, model.TonePositive, "Acuerdo firmado",
			model.Entity{Type: model.EntityOrganization, Value: "ONU", Relevance: 0.7}),
		article("a5", "AP", day1, model.ToneNeutral, ""),
	}

	d, err := Deterministic{}.Synthesize(context.Background(), articles)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if d.ArticleCount != 5 || len(d.Facts) != 3 {
		t.Fatalf("digest = %+v", d)
	}

	top := d.Facts[0]
	if top.SourceCount != 3 || top.Verification != LevelHigh || top.Importance != LevelHigh {
		t.Errorf("top fact = %+v", top)
	}
	if top.Fact != "Resumen más reciente" || top.Category != CategoryConflict || top.Sentiment != "alarming" {
		t.Errorf("top fact = %+v", top)
	}
	if top.Location != "Caracas" || top.Participants[0] != "Nicolás Maduro" {
		t.Errorf("top fact location/participants = %q %v", top.Location, top.Participants)
	}

	if d.Facts[1].Category != CategoryAgreement || d.Facts[1].Verification != LevelLow {
		t.Errorf("second fact = %+v", d.Facts[1])
	}
	// 无摘要时使用标题
	if d.Facts[2].Fact != "Título a5" || d.Facts[2].Category != CategoryEvent {
		t.Errorf("third fact = %+v", d.Facts[2])
	}

	if len(d.TimelineEvents) != 2 || d.TimelineEvents[0].Date != "2026-01-03" || d.TimelineEvents[1].FactIDs[0] != top.ID {
		t.Errorf("timeline = %+v", d.TimelineEvents)
	}
	if len(d.KeyFigures) != 2 || d.KeyFigures[0].Name != "Nicolás Maduro" || d.KeyFigures[0].Mentions != 3 {
		t.Errorf("key figures = %+v", d.KeyFigures)
	}

	again, _ := Deterministic{}.Synthesize(context.Background(), articles)
	if again.Facts[0].ID != top.ID {
		t.Error("fact ids should be stable")
	}
}

func TestDeterministic_Empty(t *testing.T) {
	d, err := Deterministic{}.Synthesize(context.Background(), nil)
	if err != nil || d.Facts == nil || len(d.Facts) != 0 || d.KeyFigures == nil {
		t.Errorf("Synthesize(nil) = %+v, %v", d, err)
	}
}

type stubLLM struct {
	out    string
	err    error
	prompt string
}

func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	s.prompt = user
	return s.out, s.err
}

func TestLLMSynthesizer(t *testing.T) {
	day := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	articles := []Article{
		article("a1", "BBC", day, model.ToneNeutral, "", person("Maduro", 1)),
		article("a2", "CNN", day, model.ToneNeutral, ""),
	}

	t.Run("parses and enriches", func(t *testing.T) {
		c := &stubLLM{out: "```json\n" + `{
			"facts": [
				{"id": "f1", "fact": "Explosiones en Caracas", "category": "conflicto", "importance": "alta",
				 "who": ["Maduro", " "], "article_indices": [0, 1, 1, 9], "sentiment": "alarmante", "quote": null},
				{"fact": "", "article_indices": [0]},
				{"fact": "Sin fuentes", "category": "rumor", "importance": "??", "sentiment": "x"},
			],
			"timeline_events": [{"date": "2026-01-03", "event": "Explosiones", "fact_ids": ["f1"]}],
			"key_figures": [{"name": "Maduro", "role": "presidente", "stance": "", "mentions": 2}, {"name": ""}]
		}` + "\n```"}
		d, err := NewLLMSynthesizer(c, nil).Synthesize(context.Background(), articles)
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if !strings.Contains(c.prompt, "[Artículo 1] - CNN") {
			t.Errorf("prompt = %q", c.prompt)
		}
		if len(d.Facts) != 2 {
			t.Fatalf("facts = %+v", d.Facts)
		}
		f := d.Facts[0]
		if f.Category != CategoryConflict || f.Importance != LevelHigh || f.Sentiment != "alarming" {
			t.Errorf("fact = %+v", f)
		}
		if f.SourceCount != 2 || f.Verification != LevelMedium || len(f.Participants) != 1 {
			t.Errorf("fact sources = %+v", f)
		}
		g := d.Facts[1]
		if g.ID == "" || g.Category != CategoryEvent || g.Importance != LevelLow || g.Sentiment != "neutral" {
			t.Errorf("fact = %+v", g)
		}
		if len(d.TimelineEvents) != 1 || len(d.KeyFigures) != 1 {
			t.Errorf("timeline/key figures = %+v %+v", d.TimelineEvents, d.KeyFigures)
		}
	})

	t.Run("timeline follows regenerated ids", func(t *testing.T) {
		c := &stubLLM{out: `{
			"facts": [
				{"id": "f1", "fact": "Explosiones en Caracas", "article_indices": [0]},
				{"id": "f1", "fact": "Cierre del espacio aéreo", "article_indices": [1]},
				{"fact": "Sin identificador", "article_indices": [0]}
			],
			"timeline_events": [
				{"date": "2026-01-03", "event": "Explosiones", "fact_ids": ["f1", "f1", "f9", ""]},
				{"date": "2026-01-04", "event": "Sin hechos", "fact_ids": null}
			]
		}`}
		d, err := NewLLMSynthesizer(c, nil).Synthesize(context.Background(), articles)
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if len(d.Facts) != 3 || d.Facts[0].ID != "f1" || d.Facts[1].ID == "f1" {
			t.Fatalf("facts = %+v", d.Facts)
		}
		known := make(map[string]bool)
		for _, f := range d.Facts {
			known[f.ID] = true
		}
		if len(d.TimelineEvents) != 2 {
			t.Fatalf("timeline = %+v", d.TimelineEvents)
		}
		ev := d.TimelineEvents[0]
		if len(ev.FactIDs) != 1 || ev.FactIDs[0] != "f1" {
			t.Errorf("fact ids = %v, want [f1]", ev.FactIDs)
		}
		for _, ev := range d.TimelineEvents {
			if ev.FactIDs == nil {
				t.Errorf("event %q fact ids = nil", ev.Event)
			}
			for _, id := range ev.FactIDs {
				if !known[id] {
					t.Errorf("event %q references unknown fact %q", ev.Event, id)
				}
			}
		}
	})

	t.Run("falls back on error", func(t *testing.T) {
		c := &stubLLM{err: errors.New("quota")}
		d, err := NewLLMSynthesizer(c, nil).Synthesize(context.Background(), articles)
		if err != nil || len(d.Facts) != 2 {
			t.Errorf("fallback digest = %+v, %v", d, err)
		}
	})

	t.Run("falls back on garbage", func(t *testing.T) {
		c := &stubLLM{out: "no puedo"}
		d, err := NewLLMSynthesizer(c, nil).Synthesize(context.Background(), articles)
		if err != nil || len(d.Facts) != 2 {
			t.Errorf("fallback digest = %+v, %v", d, err)
		}
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	key := CacheKey("2026-01-02", "2026-01-03")

	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("empty cache hit")
	}
	if err := c.Set(ctx, key, &Digest{ArticleCount: 4, DateFrom: "2026-01-02"}, 2*time.Hour); err != nil {
		t.Fatal(err)
	}
	d, ok, err := c.Get(ctx, key)
	if err != nil || !ok || d.ArticleCount != 4 {
		t.Fatalf("Get() = %+v, %v, %v", d, ok, err)
	}
	d.ArticleCount = 99
	if again, _, _ := c.Get(ctx, key); again.ArticleCount != 4 {
		t.Error("cached digest was mutated through returned pointer")
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Error("expired entry returned")
	}
}
