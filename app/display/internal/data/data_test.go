package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

var (
	testSources = []string{"El Pais", "El Mundo", "Efecto Cocuyo"}
	testBase    = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
)

// seeded 测试数据的期望属性，用于对照查询结果
type seeded struct {
	id        string
	source    string
	bias      model.Bias
	tone      model.Tone
	person    string
	published *time.Time
	analyzed  bool
}

func testData(t *testing.T) (*Data, []seeded) {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var out []seeded
	for i := 0; i < 25; i++ {
		sd := seeded{
			source:   testSources[i%3],
			bias:     model.Biases[i%5],
			tone:     model.Tones[i%4],
			person:   "Maduro",
			analyzed: i%7 != 3,
		}
		if i%2 == 1 {
			sd.person = "Trump"
		}
		if i%6 != 0 {
			// 成对共享发布时间，检查 id 作为次序键
			p := testBase.Add(time.Duration(i/2) * time.Hour)
			sd.published = &p
		}
		art := model.CanonicalArticle{
			ExternalID:  fmt.Sprintf("ext-%d", i),
			Title:       fmt.Sprintf("Noticia %d sobre Venezuela", i),
			Description: fmt.Sprintf("Resumen %d", i),
			URL:         fmt.Sprintf("https://news.example/%d", i),
			SourceName:  sd.source,
			Language:    "es",
			PublishedAt: sd.published,
		}
		a, inserted, err := s.InsertArticle(ctx, art, time.Now())
		if err != nil || !inserted {
			t.Fatalf("InsertArticle(%d) = %v, %v", i, inserted, err)
		}
		sd.id = a.ID
		if sd.analyzed {
			bias, tone := sd.bias, sd.tone
			_, err := s.SaveAnalysis(ctx, &model.Analysis{
				ArticleID:     a.ID,
				PoliticalBias: &bias,
				Tone:          &tone,
				Summary:       fmt.Sprintf("Resumen IA %d", i),
			}, []model.Entity{
				{Type: model.EntityPerson, Value: sd.person, Relevance: 0.9},
				{Type: model.EntityCountry, Value: "Venezuela", Relevance: 0.5},
			})
			if err != nil {
				t.Fatalf("SaveAnalysis(%d) error = %v", i, err)
			}
		}
		out = append(out, sd)
	}
	return &Data{store: s}, out
}

func collectIDs(t *testing.T, r *articleRepo, f domain.ArticleFilter, pageSize int) ([]string, int) {
	t.Helper()
	var ids []string
	total := -1
	for page := 1; ; page++ {
		arts, n, err := r.ListArticles(context.Background(), f, page, pageSize)
		if err != nil {
			t.Fatalf("ListArticles() error = %v", err)
		}
		total = n
		if len(arts) == 0 {
			break
		}
		for _, a := range arts {
			ids = append(ids, a.ID)
		}
	}
	return ids, total
}

func TestArticleRepo_PagesPartitionFilteredSet(t *testing.T) {
	d, seeds := testData(t)
	r := NewArticleRepo(d, log.DefaultLogger).(*articleRepo)

	for _, pageSize := range []int{1, 4, 7, 100} {
		ids, total := collectIDs(t, r, domain.ArticleFilter{}, pageSize)
		if total != len(seeds) || len(ids) != len(seeds) {
			t.Fatalf("pageSize %d: total = %d, collected = %d, want %d", pageSize, total, len(ids), len(seeds))
		}
		seen := make(map[string]bool)
		for _, id := range ids {
			if seen[id] {
				t.Fatalf("pageSize %d: article %s returned twice", pageSize, id)
			}
			seen[id] = true
		}
	}

	// 发布时间为空的文章排在最后
	arts, _, err := r.ListArticles(context.Background(), domain.ArticleFilter{}, 1, 100)
	if err != nil {
		t.Fatalf("ListArticles() error = %v", err)
	}
	nilSeen := false
	for i, a := range arts {
		if a.PublishedAt == nil {
			nilSeen = true
			continue
		}
		if nilSeen {
			t.Fatalf("article %d has published_at after a null one", i)
		}
		if i > 0 && arts[i-1].PublishedAt.Before(*a.PublishedAt) {
			t.Fatalf("articles not ordered by published_at desc at %d", i)
		}
	}
}

func TestArticleRepo_FilterCombination(t *testing.T) {
	d, seeds := testData(t)
	r := NewArticleRepo(d, log.DefaultLogger).(*articleRepo)
	from := testBase.Add(2 * time.Hour)
	to := testBase.Add(9 * time.Hour)

	tests := []struct {
		name   string
		filter domain.ArticleFilter
		match  func(s seeded) bool
	}{
		{
			name:   "bias OR within field",
			filter: domain.ArticleFilter{Biases: []model.Bias{model.BiasLeft, model.BiasRight}},
			match: func(s seeded) bool {
				return s.analyzed && (s.bias == model.BiasLeft || s.bias == model.BiasRight)
			},
		},
		{
			name:   "bias AND tone",
			filter: domain.ArticleFilter{Biases: []model.Bias{model.BiasLeft, model.BiasCenter}, Tones: []model.Tone{model.ToneNegative}},
			match: func(s seeded) bool {
				return s.analyzed && (s.bias == model.BiasLeft || s.bias == model.BiasCenter) && s.tone == model.ToneNegative
			},
		},
		{
			name:   "entity AND source",
			filter: domain.ArticleFilter{Entity: "madu", Source: "el mundo"},
			match: func(s seeded) bool {
				return s.analyzed && s.person == "Maduro" && s.source == "El Mundo"
			},
		},
		{
			name:   "date range inclusive",
			filter: domain.ArticleFilter{DateFrom: &from, DateTo: &to},
			match: func(s seeded) bool {
				return s.published != nil && !s.published.Before(from) && !s.published.After(to)
			},
		},
		{
			name:   "search and tone",
			filter: domain.ArticleFilter{Search: "VENEZUELA", Tones: []model.Tone{model.TonePositive}},
			match: func(s seeded) bool {
				return s.analyzed && s.tone == model.TonePositive
			},
		},
		{
			name:   "like wildcards are literal",
			filter: domain.ArticleFilter{Search: "100%"},
			match:  func(s seeded) bool { return false },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want []string
			for _, s := range seeds {
				if tt.match(s) {
					want = append(want, s.id)
				}
			}
			got, total := collectIDs(t, r, tt.filter, 3)
			if total != len(want) {
				t.Errorf("total = %d, want %d", total, len(want))
			}
			sort.Strings(want)
			sort.Strings(got)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("ids = %v, want %v", got, want)
			}
		})
	}
}

func TestArticleRepo_GetAndSearch(t *testing.T) {
	d, seeds := testData(t)
	r := NewArticleRepo(d, log.DefaultLogger)
	ctx := context.Background()

	a, err := r.GetArticle(ctx, seeds[1].id)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if a.Analysis == nil || a.Analysis.PoliticalBias == nil || *a.Analysis.PoliticalBias != seeds[1].bias {
		t.Errorf("Analysis = %+v", a.Analysis)
	}
	if len(a.Entities) != 2 || a.Entities[0].EntityValue != "Trump" {
		t.Errorf("Entities = %+v, want person first by relevance", a.Entities)
	}

	unanalyzed, err := r.GetArticle(ctx, seeds[3].id)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if unanalyzed.Analysis != nil || len(unanalyzed.Entities) != 0 {
		t.Errorf("unanalyzed article = %+v", unanalyzed)
	}

	if _, err := r.GetArticle(ctx, "missing"); err != storage.ErrNotFound {
		t.Errorf("GetArticle(missing) error = %v, want ErrNotFound", err)
	}

	found, err := r.SearchArticles(ctx, "noticia 1", 100)
	if err != nil {
		t.Fatalf("SearchArticles() error = %v", err)
	}
	// Noticia 1, 10..19
	if len(found) != 11 {
		t.Errorf("SearchArticles() = %d results, want 11", len(found))
	}
	limited, err := r.SearchArticles(ctx, "noticia", 5)
	if err != nil || len(limited) != 5 {
		t.Errorf("SearchArticles(limit 5) = %d, %v", len(limited), err)
	}
}

func TestInsightRepo(t *testing.T) {
	d, seeds := testData(t)
	r := NewInsightRepo(d, log.DefaultLogger)
	ctx := context.Background()

	total, err := r.CountArticles(ctx, nil)
	if err != nil || total != len(seeds) {
		t.Errorf("CountArticles() = %d, %v", total, err)
	}
	future := time.Now().Add(time.Hour)
	if n, err := r.CountArticles(ctx, &future); err != nil || n != 0 {
		t.Errorf("CountArticles(future) = %d, %v", n, err)
	}
	if n, err := r.CountSources(ctx); err != nil || n != 3 {
		t.Errorf("CountSources() = %d, %v", n, err)
	}

	wantBias := make(map[model.Bias]int)
	wantTone := make(map[model.Tone]int)
	perSource := make(map[string]int)
	analyzed := 0
	for _, s := range seeds {
		perSource[s.source]++
		if s.analyzed {
			wantBias[s.bias]++
			wantTone[s.tone]++
			analyzed++
		}
	}
	bias, err := r.BiasDistribution(ctx)
	if err != nil || fmt.Sprint(bias) != fmt.Sprint(wantBias) {
		t.Errorf("BiasDistribution() = %v, %v, want %v", bias, err, wantBias)
	}
	tone, err := r.ToneDistribution(ctx)
	if err != nil || fmt.Sprint(tone) != fmt.Sprint(wantTone) {
		t.Errorf("ToneDistribution() = %v, %v, want %v", tone, err, wantTone)
	}

	top, err := r.TopEntities(ctx, "", 10)
	if err != nil {
		t.Fatalf("TopEntities() error = %v", err)
	}
	if len(top) != 3 || top[0].Value != "Venezuela" || top[0].Count != analyzed {
		t.Errorf("TopEntities() = %+v", top)
	}
	people, err := r.TopEntities(ctx, model.EntityPerson, 1)
	if err != nil || len(people) != 1 || people[0].Type != model.EntityPerson {
		t.Errorf("TopEntities(person, 1) = %+v, %v", people, err)
	}

	sources, err := r.SourceCounts(ctx, 9, 10)
	if err != nil {
		t.Fatalf("SourceCounts() error = %v", err)
	}
	// 25 篇按 i%3 分配: 9, 8, 8
	if len(sources) != 1 || sources[0].Name != "El Pais" || sources[0].Total != perSource["El Pais"] {
		t.Errorf("SourceCounts(min 9) = %+v", sources)
	}
	all, err := r.SourceCounts(ctx, 1, 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("SourceCounts(min 1) = %+v, %v", all, err)
	}
	if all[1].Name != "Efecto Cocuyo" || all[2].Name != "El Mundo" {
		t.Errorf("ties should be ordered by name: %+v", all)
	}
	sum := 0
	for _, n := range all[0].Bias {
		sum += n
	}
	if sum > all[0].Total {
		t.Errorf("bias counts %d exceed total %d", sum, all[0].Total)
	}

	mentions, err := r.EntityMentions(ctx, []model.EntityType{model.EntityPerson})
	if err != nil || len(mentions) != analyzed {
		t.Errorf("EntityMentions(person) = %d, %v, want %d", len(mentions), err, analyzed)
	}
}

func TestFactRepo_AnalyzedArticles(t *testing.T) {
	d, seeds := testData(t)
	r := NewFactRepo(d, log.DefaultLogger)

	from, to := testBase, testBase.Add(6*time.Hour)
	got, err := r.AnalyzedArticles(context.Background(), from, to, 30)
	if err != nil {
		t.Fatalf("AnalyzedArticles() error = %v", err)
	}
	want := 0
	for _, s := range seeds {
		if s.analyzed && s.published != nil && !s.published.Before(from) && s.published.Before(to) {
			want++
		}
	}
	if len(got) != want {
		t.Fatalf("AnalyzedArticles() = %d, want %d", len(got), want)
	}
	for i, a := range got {
		if a.Analysis == nil || len(a.Entities) == 0 {
			t.Errorf("article %d missing analysis or entities", i)
		}
		if i > 0 && got[i-1].PublishedAt.Before(*a.PublishedAt) {
			t.Errorf("not ordered newest first at %d", i)
		}
	}

	limited, err := r.AnalyzedArticles(context.Background(), from, to, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("AnalyzedArticles(limit 2) = %d, %v", len(limited), err)
	}
}
