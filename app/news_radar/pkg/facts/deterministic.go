package facts

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

var factNamespace = uuid.MustParse("6f1f0c8e-3c1a-4d55-9b38-0d8b9a6f2a41")

// Deterministic 不依赖 LLM，按主要人物/机构聚合文章
type Deterministic struct{}

var _ Synthesizer = Deterministic{}

type group struct {
	key      string
	subject  string
	articles []Article
}

// Synthesize implements Synthesizer
func (Deterministic) Synthesize(ctx context.Context, articles []Article) (*Digest, error) {
	d := emptyDigest(len(articles))
	if len(articles) == 0 {
		return d, nil
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, a := range articles {
		key, subject := subjectOf(a)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, subject: subject}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.articles = append(g.articles, a)
	}

	// 来源多的在前，相同时保持最新优先
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].articles) > len(groups[j].articles)
	})

	for _, g := range groups {
		d.Facts = append(d.Facts, buildFact(g))
	}
	d.TimelineEvents = timeline(d.Facts)
	d.KeyFigures = keyFigures(articles)
	return d, nil
}

// subjectOf 文章相关度最高的人物或机构，没有时文章自成一组
func subjectOf(a Article) (string, string) {
	var best *model.Entity
	for i := range a.Entities {
		e := &a.Entities[i]
		if e.Type != model.EntityPerson && e.Type != model.EntityOrganization {
			continue
		}
		if best == nil || e.Relevance > best.Relevance {
			best = e
		}
	}
	if best == nil {
		return "article:" + a.ID, ""
	}
	return string(best.Type) + ":" + strings.ToLower(best.Value), best.Value
}

func buildFact(g *group) Fact {
	newest := g.articles[0]
	text := newest.Title
	if newest.Analysis != nil && strings.TrimSpace(newest.Analysis.Summary) != "" {
		text = newest.Analysis.Summary
	}

	tone := dominantTone(g.articles)
	f := Fact{
		ID:           uuid.NewSHA1(factNamespace, []byte(g.key)).String(),
		Fact:         text,
		Category:     categoryForTone(tone),
		Participants: participants(g),
		Location:     location(g.articles),
		Sources:      make([]SourceRef, 0, len(g.articles)),
		SourceCount:  len(g.articles),
		Sentiment:    string(tone),
	}
	for _, a := range g.articles {
		f.Sources = append(f.Sources, sourceRef(a))
	}
	f.Verification = Verification(f.SourceCount)
	f.Importance = f.Verification
	if newest.PublishedAt != nil {
		f.When = newest.PublishedAt.UTC().Format("2006-01-02")
	}
	return f
}

func dominantTone(articles []Article) model.Tone {
	counts := make(map[model.Tone]int)
	for _, a := range articles {
		if a.Analysis != nil && a.Analysis.Tone != nil {
			counts[*a.Analysis.Tone]++
		}
	}
	best, top := model.ToneNeutral, 0
	for _, t := range model.Tones {
		if counts[t] > top {
			best, top = t, counts[t]
		}
	}
	return best
}

func categoryForTone(t model.Tone) string {
	switch t {
	case model.ToneAlarming, model.ToneNegative:
		return CategoryConflict
	case model.TonePositive:
		return CategoryAgreement
	default:
		return CategoryEvent
	}
}

func participants(g *group) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(v string) {
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, v)
	}
	add(g.subject)
	for _, a := range g.articles {
		for _, e := range a.Entities {
			if e.Type == model.EntityPerson || e.Type == model.EntityOrganization {
				add(e.Value)
			}
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func location(articles []Article) string {
	counts := make(map[string]int)
	var order []string
	for _, a := range articles {
		for _, e := range a.Entities {
			if e.Type != model.EntityCity && e.Type != model.EntityPlace && e.Type != model.EntityCountry {
				continue
			}
			if counts[e.Value] == 0 {
				order = append(order, e.Value)
			}
			counts[e.Value]++
		}
	}
	best, top := "", 0
	for _, v := range order {
		if counts[v] > top {
			best, top = v, counts[v]
		}
	}
	return best
}

var importanceRank = map[string]int{LevelHigh: 3, LevelMedium: 2, LevelLow: 1}

// timeline 每天一个事件，取当天最重要的事实
func timeline(facts []Fact) []TimelineEvent {
	best := make(map[string]*Fact)
	var days []string
	for i := range facts {
		f := &facts[i]
		if f.When == "" {
			continue
		}
		cur, ok := best[f.When]
		if !ok {
			days = append(days, f.When)
			best[f.When] = f
			continue
		}
		if importanceRank[f.Importance] > importanceRank[cur.Importance] {
			best[f.When] = f
		}
	}
	sort.Strings(days)

	events := make([]TimelineEvent, 0, len(days))
	for _, day := range days {
		f := best[day]
		events = append(events, TimelineEvent{Date: day, Event: f.Fact, FactIDs: []string{f.ID}})
	}
	return events
}

// keyFigures 按提及次数排序的人物，最多 10 个
func keyFigures(articles []Article) []KeyFigure {
	counts := make(map[string]int)
	names := make(map[string]string)
	for _, a := range articles {
		for _, e := range a.Entities {
			if e.Type != model.EntityPerson {
				continue
			}
			k := strings.ToLower(e.Value)
			if _, ok := names[k]; !ok {
				names[k] = e.Value
			}
			counts[k]++
		}
	}
	figures := make([]KeyFigure, 0, len(counts))
	for k, n := range counts {
		figures = append(figures, KeyFigure{Name: names[k], Mentions: n})
	}
	sort.Slice(figures, func(i, j int) bool {
		if figures[i].Mentions != figures[j].Mentions {
			return figures[i].Mentions > figures[j].Mentions
		}
		return figures[i].Name < figures[j].Name
	})
	if len(figures) > 10 {
		figures = figures[:10]
	}
	return figures
}
