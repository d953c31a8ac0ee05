package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/unify"
)

// mockArticleRepo 模拟文章仓库
type mockArticleRepo struct {
	total int
}

func (m *mockArticleRepo) ListArticles(ctx context.Context, f domain.ArticleFilter, page, pageSize int) ([]*domain.Article, int, error) {
	if m.total == 0 {
		return nil, 0, nil
	}
	return []*domain.Article{{ID: "a1", Title: "Test Article"}}, m.total, nil
}

func (m *mockArticleRepo) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	return &domain.Article{ID: id}, nil
}

func (m *mockArticleRepo) SearchArticles(ctx context.Context, query string, limit int) ([]*domain.Article, error) {
	return nil, nil
}

func TestArticleUseCase_List(t *testing.T) {
	uc := NewArticleUseCase(&mockArticleRepo{total: 41}, log.DefaultLogger)

	list, err := uc.List(context.Background(), domain.ArticleFilter{}, 2, 20)
	if err != nil {
		t.Errorf("List() error = %v", err)
		return
	}
	if list.Total != 41 || list.TotalPages != 3 || list.Page != 2 || list.PageSize != 20 {
		t.Errorf("List() = %+v", list)
	}

	empty, err := NewArticleUseCase(&mockArticleRepo{}, log.DefaultLogger).List(context.Background(), domain.ArticleFilter{}, 1, 20)
	if err != nil || empty.Articles == nil || empty.TotalPages != 0 {
		t.Errorf("List() on empty set = %+v, %v", empty, err)
	}

	found, err := uc.Search(context.Background(), "x", 5)
	if err != nil || found == nil {
		t.Errorf("Search() = %v, %v, want empty slice", found, err)
	}
}

// mockInsightRepo 模拟统计仓库
type mockInsightRepo struct {
	since    *time.Time
	sources  []domain.SourceCounts
	mentions []domain.Mention
}

func (m *mockInsightRepo) CountArticles(ctx context.Context, since *time.Time) (int, error) {
	if since != nil {
		m.since = since
		return 2, nil
	}
	return 10, nil
}

func (m *mockInsightRepo) CountSources(ctx context.Context) (int, error) { return 3, nil }

func (m *mockInsightRepo) BiasDistribution(ctx context.Context) (map[model.Bias]int, error) {
	return map[model.Bias]int{model.BiasLeft: 4, model.BiasCenter: 1}, nil
}

func (m *mockInsightRepo) ToneDistribution(ctx context.Context) (map[model.Tone]int, error) {
	return map[model.Tone]int{model.ToneNeutral: 5}, nil
}

func (m *mockInsightRepo) TopEntities(ctx context.Context, et model.EntityType, limit int) ([]domain.EntityCount, error) {
	return []domain.EntityCount{{Type: model.EntityPerson, Value: "Maduro", Count: limit}}, nil
}

func (m *mockInsightRepo) SourceCounts(ctx context.Context, minArticles, limit int) ([]domain.SourceCounts, error) {
	return m.sources, nil
}

func (m *mockInsightRepo) EntityMentions(ctx context.Context, types []model.EntityType) ([]domain.Mention, error) {
	return m.mentions, nil
}

func TestInsightUseCase_Stats(t *testing.T) {
	repo := &mockInsightRepo{}
	uc := NewInsightUseCase(repo, log.DefaultLogger)
	uc.now = func() time.Time { return time.Date(2026, 1, 3, 22, 15, 0, 0, time.FixedZone("VET", -4*3600)) }

	st, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	// 22:15 VET 已是 UTC 的 1 月 4 日
	wantSince := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	if repo.since == nil || !repo.since.Equal(wantSince) {
		t.Errorf("articles_today since = %v, want %v", repo.since, wantSince)
	}
	if st.TotalArticles != 10 || st.ArticlesToday != 2 || st.SourcesCount != 3 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.BiasDistribution["left"] != 4 || st.ToneDistribution["neutral"] != 5 {
		t.Errorf("distributions = %v %v", st.BiasDistribution, st.ToneDistribution)
	}
	if len(st.TopEntities) != 1 || st.TopEntities[0].Count != topEntitiesInStats {
		t.Errorf("TopEntities = %+v", st.TopEntities)
	}
}

func TestInsightUseCase_SourceStats(t *testing.T) {
	repo := &mockInsightRepo{sources: []domain.SourceCounts{
		{
			Name:  "Izquierda Diario",
			Total: 5,
			Bias:  map[model.Bias]int{model.BiasLeft: 2, model.BiasCenterLeft: 1},
			Tone:  map[model.Tone]int{model.ToneNegative: 2, model.ToneAlarming: 2},
		},
		{
			Name:  "Sin Analisis",
			Total: 3,
			Bias:  map[model.Bias]int{},
			Tone:  map[model.Tone]int{},
		},
	}}
	uc := NewInsightUseCase(repo, log.DefaultLogger)

	res, err := uc.SourceStats(context.Background(), 20, 3)
	if err != nil {
		t.Fatalf("SourceStats() error = %v", err)
	}
	if res.TotalSources != 2 {
		t.Fatalf("TotalSources = %d", res.TotalSources)
	}
	first := res.Sources[0]
	// (-2*2 + -1*1) / 3 = -1.666.. → -1.67
	if first.BiasScore != -1.67 || first.DominantBias != model.BiasLeft {
		t.Errorf("bias = %v %v", first.BiasScore, first.DominantBias)
	}
	// negative 和 alarming 并列，取枚举顺序中靠前的 negative
	if first.DominantTone != model.ToneNegative {
		t.Errorf("DominantTone = %v", first.DominantTone)
	}
	if len(first.BiasDistribution) != 5 || first.BiasDistribution["right"] != 0 {
		t.Errorf("BiasDistribution = %v", first.BiasDistribution)
	}

	second := res.Sources[1]
	if second.BiasScore != 0 || second.DominantBias != model.BiasCenter || second.DominantTone != model.ToneNeutral {
		t.Errorf("source without analysis = %+v", second)
	}
}

func mention(t model.EntityType, v, article string) domain.Mention {
	return domain.Mention{Type: t, Value: v, ArticleID: article}
}

func TestInsightUseCase_EntityGraph(t *testing.T) {
	repo := &mockInsightRepo{mentions: []domain.Mention{
		mention(model.EntityPerson, "Maduro", "a1"),
		mention(model.EntityPerson, "Maduro", "a2"),
		mention(model.EntityPerson, "Maduro", "a3"),
		mention(model.EntityCountry, "Venezuela", "a1"),
		mention(model.EntityCountry, "Venezuela", "a2"),
		mention(model.EntityCountry, "Venezuela", "a3"),
		mention(model.EntityPerson, "Trump", "a3"),
		mention(model.EntityPerson, "Trump", "a4"),
		mention(model.EntityCity, "Caracas", "a9"),
	}}
	uc := NewInsightUseCase(repo, log.DefaultLogger)

	g, err := uc.EntityGraph(context.Background(), nil, 2, 100)
	if err != nil {
		t.Fatalf("EntityGraph() error = %v", err)
	}
	// Caracas 只出现一次，被排除
	if g.TotalEntities != 3 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	if g.Nodes[0].ID != "country:Venezuela" || g.Nodes[1].ID != "person:Maduro" || g.Nodes[2].ID != "person:Trump" {
		t.Errorf("node order = %s, %s, %s", g.Nodes[0].ID, g.Nodes[1].ID, g.Nodes[2].ID)
	}
	if fmt.Sprint(g.Nodes[1].Articles) != "[a1 a2 a3]" {
		t.Errorf("node articles = %v", g.Nodes[1].Articles)
	}
	// Trump 与其他实体只共现一次 (a3)，min_connections=2 时不连线
	if g.TotalConnections != 1 {
		t.Fatalf("links = %+v", g.Links)
	}
	link := g.Links[0]
	if link.Source != "country:Venezuela" || link.Target != "person:Maduro" || link.Value != 3 {
		t.Errorf("link = %+v", link)
	}

	loose, _ := uc.EntityGraph(context.Background(), nil, 1, 2)
	if loose.TotalEntities != 2 || loose.TotalConnections != 1 {
		t.Errorf("limit 2 graph = %+v", loose)
	}
}

func TestBuildGraph_LinkArticlesCapped(t *testing.T) {
	var mentions []domain.Mention
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("a%02d", i)
		mentions = append(mentions, mention(model.EntityPerson, "A", id), mention(model.EntityPerson, "B", id))
	}
	g := buildGraph(mentions, 2, 100)
	if len(g.Links) != 1 || g.Links[0].Value != 15 || len(g.Links[0].Articles) != maxLinkArticles {
		t.Fatalf("links = %+v", g.Links)
	}
	if g.Links[0].Articles[0] != "a00" {
		t.Errorf("link articles should be sorted: %v", g.Links[0].Articles)
	}
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		from, to string
		want     string
		wantErr  bool
	}{
		{"defaults", "", "", "2026-01-04..2026-01-05", false},
		{"explicit", "2026-01-01", "2026-01-03", "2026-01-01..2026-01-03", false},
		{"single day", "2026-01-02", "2026-01-02", "2026-01-02..2026-01-02", false},
		{"reversed", "2026-01-03", "2026-01-01", "", true},
		{"bad format", "03/01/2026", "", "", true},
		{"bad to", "", "2026-13-01", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.from, tt.to, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("error %v should wrap ErrInvalidArgument", err)
				}
				return
			}
			if got := r.From + ".." + r.To; got != tt.want {
				t.Errorf("range = %s, want %s", got, tt.want)
			}
			if !r.End.Equal(r.Start.AddDate(0, 0, 1)) && r.From == r.To {
				t.Errorf("single day window = %v..%v", r.Start, r.End)
			}
		})
	}
}

// mockFactRepo 模拟事实文章仓库
type mockFactRepo struct {
	calls    int
	from, to time.Time
}

func (m *mockFactRepo) AnalyzedArticles(ctx context.Context, from, to time.Time, limit int) ([]facts.Article, error) {
	m.calls++
	m.from, m.to = from, to
	return []facts.Article{{Article: &model.Article{ID: "a1", Title: "Titular"}}}, nil
}

type stubSynth struct {
	err error
}

func (s *stubSynth) Synthesize(ctx context.Context, articles []facts.Article) (*facts.Digest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &facts.Digest{Facts: []facts.Fact{{ID: "f1", Fact: articles[0].Title}}}, nil
}

func newFactUseCase(repo *mockFactRepo, synth facts.Synthesizer) *FactUseCase {
	c := &config.Config{Facts: config.FactsConfig{MaxArticles: 30, Cache: config.CacheConfig{TTL: time.Hour}}}
	uc := NewFactUseCase(repo, synth, facts.NewMemoryCache(), c, log.DefaultLogger)
	uc.now = func() time.Time { return time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) }
	return uc
}

func TestFactUseCase_Digest(t *testing.T) {
	repo := &mockFactRepo{}
	uc := newFactUseCase(repo, &stubSynth{})
	ctx := context.Background()

	d, err := uc.Digest(ctx, "2026-01-01", "2026-01-02", false)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	if d.Cached || d.ArticleCount != 1 || d.DateFrom != "2026-01-01" || d.DateTo != "2026-01-02" {
		t.Errorf("Digest() = %+v", d)
	}
	if !repo.to.Equal(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window end = %v, want exclusive next day", repo.to)
	}

	cached, err := uc.Digest(ctx, "2026-01-01", "2026-01-02", false)
	if err != nil || !cached.Cached || repo.calls != 1 {
		t.Errorf("second Digest() cached = %v, calls = %d, err = %v", cached.Cached, repo.calls, err)
	}

	refreshed, err := uc.Digest(ctx, "2026-01-01", "2026-01-02", true)
	if err != nil || refreshed.Cached || repo.calls != 2 {
		t.Errorf("refresh Digest() cached = %v, calls = %d, err = %v", refreshed.Cached, repo.calls, err)
	}

	if _, err := uc.Digest(ctx, "2026-01-03", "2026-01-02", false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("reversed range error = %v", err)
	}
}

func TestFactUseCase_Refresh(t *testing.T) {
	repo := &mockFactRepo{}
	uc := newFactUseCase(repo, &stubSynth{})

	res, err := uc.Refresh(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Status != "success" || res.FactCount != 1 || res.ArticleCount != 1 || res.DateFrom != "2026-01-04" {
		t.Errorf("Refresh() = %+v", res)
	}
	if err := uc.Warm(context.Background()); err != nil || repo.calls != 2 {
		t.Errorf("Warm() error = %v, calls = %d", err, repo.calls)
	}

	failing := newFactUseCase(&mockFactRepo{}, &stubSynth{err: errors.New("boom")})
	if _, err := failing.Refresh(context.Background(), "", ""); err == nil {
		t.Error("Refresh() should fail when synthesis fails")
	}
}

// mockIngestor 模拟抓取引擎
type mockIngestor struct {
	busy    bool
	runErr  error
	started int
	runCtx  context.Context
	ctxErr  error // Run 被调用时 ctx 的状态
}

func (m *mockIngestor) Run(ctx context.Context, trigger string) (*engine.RunReport, error) {
	m.runCtx, m.ctxErr = ctx, ctx.Err()
	if m.busy {
		return nil, engine.ErrRunInProgress
	}
	rep := &engine.RunReport{Trigger: trigger, Persisted: 2}
	if m.runErr != nil {
		rep.Error = m.runErr.Error()
	}
	return rep, m.runErr
}

func (m *mockIngestor) Start(trigger string) error {
	if m.busy {
		return engine.ErrRunInProgress
	}
	m.started++
	return nil
}

func (m *mockIngestor) AnalyzePending(ctx context.Context, limit int) (*engine.RunReport, error) {
	return &engine.RunReport{Trigger: engine.TriggerAnalyze, Analyzed: limit}, nil
}

func (m *mockIngestor) Status() engine.Status { return engine.Status{State: engine.StateIdle} }

func TestIngestUseCase_FetchNow(t *testing.T) {
	ctx := context.Background()

	eng := &mockIngestor{}
	uc := NewIngestUseCase(eng, log.DefaultLogger)
	if rep, err := uc.FetchNow(ctx, false); err != nil || rep != nil || eng.started != 1 {
		t.Errorf("FetchNow(async) = %v, %v, started %d", rep, err, eng.started)
	}
	if rep, err := uc.FetchNow(ctx, true); err != nil || rep.Persisted != 2 || rep.Trigger != engine.TriggerManual {
		t.Errorf("FetchNow(wait) = %+v, %v", rep, err)
	}

	eng.busy = true
	if _, err := uc.FetchNow(ctx, false); !errors.Is(err, engine.ErrRunInProgress) {
		t.Errorf("FetchNow(busy) error = %v", err)
	}

	failing := NewIngestUseCase(&mockIngestor{runErr: engine.ErrSourceUnavailable}, log.DefaultLogger)
	rep, err := failing.FetchNow(ctx, true)
	if !errors.Is(err, engine.ErrSourceUnavailable) || rep == nil || rep.Error == "" {
		t.Errorf("FetchNow(all sources down) = %+v, %v", rep, err)
	}

	if rep, err := uc.AnalyzePending(ctx, 7); err != nil || rep.Analyzed != 7 {
		t.Errorf("AnalyzePending() = %+v, %v", rep, err)
	}
}

func TestIngestUseCase_FetchNowOutlivesRequest(t *testing.T) {
	eng := &mockIngestor{}
	uc := NewIngestUseCase(eng, log.DefaultLogger)

	reqCtx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-reqCtx.Done()

	if _, err := uc.FetchNow(reqCtx, true); err != nil {
		t.Fatalf("FetchNow() error = %v", err)
	}
	if eng.runCtx == nil {
		t.Fatal("engine Run was not called")
	}
	if eng.ctxErr != nil {
		t.Errorf("run context already done: %v", eng.ctxErr)
	}
	deadline, ok := eng.runCtx.Deadline()
	if !ok {
		t.Fatal("run context has no deadline")
	}
	if time.Until(deadline) < defaultRunTimeout-time.Minute {
		t.Errorf("run deadline = %v, want about %v from now", deadline, defaultRunTimeout)
	}
}

// mockUnifier 模拟实体合并
type mockUnifier struct {
	dryRuns []bool
}

func (m *mockUnifier) AnalyzeDuplicates(ctx context.Context, et model.EntityType) (*unify.Analysis, error) {
	return &unify.Analysis{Groups: []unify.Group{{Canonical: "Nicolás Maduro", Type: et, Variants: []string{"Maduro"}}}, TotalGroups: 1}, nil
}

func (m *mockUnifier) Unify(ctx context.Context, dryRun bool) (*unify.Result, error) {
	m.dryRuns = append(m.dryRuns, dryRun)
	return &unify.Result{DryRun: dryRun, Updates: []unify.Update{{From: "Maduro", To: "Nicolás Maduro", Count: 3}}, TotalUpdates: 3}, nil
}

func TestEntityUseCase(t *testing.T) {
	u := &mockUnifier{}
	uc := NewEntityUseCase(u, log.DefaultLogger)

	a, err := uc.AnalyzeDuplicates(context.Background(), model.EntityPerson)
	if err != nil || a.TotalGroups != 1 || a.Groups[0].Type != model.EntityPerson {
		t.Errorf("AnalyzeDuplicates() = %+v, %v", a, err)
	}
	if _, err := uc.Unify(context.Background(), true); err != nil {
		t.Fatalf("Unify() error = %v", err)
	}
	if err := uc.ScheduledUnify(context.Background()); err != nil {
		t.Fatalf("ScheduledUnify() error = %v", err)
	}
	if fmt.Sprint(u.dryRuns) != "[true false]" {
		t.Errorf("dry runs = %v, scheduled job must apply changes", u.dryRuns)
	}
}
