package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/annotate"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/archive"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search"
)

var (
	// ErrRunInProgress 已有抓取或标注在运行
	ErrRunInProgress = errors.New("ingestion run in progress")
	// ErrSourceUnavailable 所有新闻源都失败
	ErrSourceUnavailable = search.ErrSourceUnavailable
)

// State 引擎状态
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateDeduping   State = "deduping"
	StatePersisting State = "persisting"
	StateAnalyzing  State = "analyzing"
)

// Store 引擎需要的存储能力
type Store interface {
	ArticleExists(ctx context.Context, art model.CanonicalArticle) (bool, error)
	InsertArticle(ctx context.Context, art model.CanonicalArticle, fetchedAt time.Time) (*model.Article, bool, error)
	PendingAnalysis(ctx context.Context, limit int) ([]*model.Article, error)
	SaveAnalysis(ctx context.Context, an *model.Analysis, entities []model.Entity) (bool, error)
}

// Fetcher 单个新闻源，*search.Connector 实现了该接口
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, queries []string) (*search.Batch, error)
}

// Enricher 入库前补全正文
type Enricher interface {
	Enrich(ctx context.Context, articles []model.CanonicalArticle) int
}

// Options 运行参数
type Options struct {
	Queries         []string
	AnalysisTimeout time.Duration // 单次标注超时
	MaxPerRun       int           // 每轮最多标注数量，0 表示不限
}

// Engine 抓取 → 去重 → 入库 → 标注 的核心处理引擎，同一时间只运行一轮
type Engine struct {
	store     Store
	fetchers  []Fetcher
	annotator annotate.Annotator
	enricher  Enricher
	archiver  archive.Archiver
	opts      Options

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	state State
	last  *RunReport
}

// NewEngine 创建引擎实例。annotator 为 nil 时跳过标注
func NewEngine(store Store, fetchers []Fetcher, annotator annotate.Annotator, opts Options) *Engine {
	if opts.AnalysisTimeout == 0 {
		opts.AnalysisTimeout = 45 * time.Second
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:     store,
		fetchers:  fetchers,
		annotator: annotator,
		opts:      opts,
		bg:        bg,
		cancel:    cancel,
		state:     StateIdle,
	}
}

// WithEnricher 设置正文补全
func (e *Engine) WithEnricher(en Enricher) *Engine {
	e.enricher = en
	return e
}

// WithArchiver 设置归档
func (e *Engine) WithArchiver(a archive.Archiver) *Engine {
	e.archiver = a
	return e
}

// Close 取消后台运行并等待结束
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) begin(s State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return false
	}
	e.state = s
	return true
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) end(rep *RunReport) {
	rep.FinishedAt = time.Now().UTC()
	e.mu.Lock()
	e.state = StateIdle
	e.last = rep
	e.mu.Unlock()
}

// Status 当前状态和最近一次运行报告
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{State: e.state}
	if e.last != nil {
		r := *e.last
		st.LastRun = &r
	}
	return st
}

// Run 阻塞执行一轮完整流程，忙时返回 ErrRunInProgress
func (e *Engine) Run(ctx context.Context, trigger string) (*RunReport, error) {
	if !e.begin(StateFetching) {
		return nil, ErrRunInProgress
	}
	rep := newReport(trigger)
	err := e.cycle(ctx, rep)
	e.end(rep)
	return rep, err
}

// Start 手动触发：同步占用状态后在后台执行，忙时立即返回 ErrRunInProgress
func (e *Engine) Start(trigger string) error {
	if !e.begin(StateFetching) {
		return ErrRunInProgress
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		rep := newReport(trigger)
		_ = e.cycle(e.bg, rep)
		e.end(rep)
	}()
	return nil
}

// AnalyzePending 只执行标注阶段，与完整流程互斥
func (e *Engine) AnalyzePending(ctx context.Context, limit int) (*RunReport, error) {
	if !e.begin(StateAnalyzing) {
		return nil, ErrRunInProgress
	}
	rep := newReport(TriggerAnalyze)
	err := e.analyze(ctx, limit, rep)
	if err != nil {
		rep.Error = err.Error()
	}
	e.end(rep)
	return rep, err
}

func (e *Engine) cycle(ctx context.Context, rep *RunReport) error {
	log := logger.Log.WithField("trigger", rep.Trigger)
	log.Info("开始抓取")

	err := e.runStages(ctx, rep)
	if err != nil {
		rep.Error = err.Error()
		log.Errorf("本轮运行失败: %v", err)
		return err
	}
	log.WithFields(logrus.Fields{
		"provider":   rep.Provider,
		"fetched":    rep.Fetched,
		"duplicates": rep.Duplicates,
		"persisted":  rep.Persisted,
		"analyzed":   rep.Analyzed,
		"failed":     rep.AnalysisFailed,
	}).Info("本轮运行完成")
	return nil
}

func (e *Engine) runStages(ctx context.Context, rep *RunReport) error {
	batch, err := e.fetch(ctx)
	if err != nil {
		return err
	}
	fetchedAt := time.Now()
	rep.Provider = batch.Provider
	rep.Fetched = len(batch.Articles)
	rep.Skipped = batch.Skipped

	e.setState(StateDeduping)
	fresh := e.dedupe(ctx, batch.Articles, rep)

	e.setState(StatePersisting)
	e.persist(ctx, batch.Provider, fresh, fetchedAt, rep)

	e.setState(StateAnalyzing)
	return e.analyze(ctx, e.opts.MaxPerRun, rep)
}

// fetch 按顺序尝试新闻源，第一个返回非空结果的胜出
func (e *Engine) fetch(ctx context.Context) (*search.Batch, error) {
	if len(e.fetchers) == 0 {
		return nil, fmt.Errorf("%w: no provider configured", ErrSourceUnavailable)
	}
	var lastErr error
	failed := 0
	var empty *search.Batch
	for _, f := range e.fetchers {
		batch, err := f.Fetch(ctx, e.opts.Queries)
		if err != nil {
			failed++
			lastErr = err
			logger.Log.WithField("provider", f.Name()).Warnf("新闻源不可用，尝试下一个: %v", err)
			continue
		}
		if len(batch.Articles) > 0 {
			return batch, nil
		}
		if empty == nil {
			empty = batch
		}
		logger.Log.WithField("provider", f.Name()).Info("新闻源无结果，尝试下一个")
	}
	if failed == len(e.fetchers) {
		if !errors.Is(lastErr, ErrSourceUnavailable) {
			lastErr = fmt.Errorf("%w: %v", ErrSourceUnavailable, lastErr)
		}
		return nil, lastErr
	}
	return empty, nil
}

func (e *Engine) dedupe(ctx context.Context, articles []model.CanonicalArticle, rep *RunReport) []model.CanonicalArticle {
	fresh := make([]model.CanonicalArticle, 0, len(articles))
	for _, art := range articles {
		exists, err := e.store.ArticleExists(ctx, art)
		if err != nil {
			// 查询失败时交给唯一约束兜底
			logger.Log.WithField("url", art.URL).Warnf("去重查询失败: %v", err)
		}
		if exists {
			rep.Duplicates++
			continue
		}
		fresh = append(fresh, art)
	}
	return fresh
}

func (e *Engine) persist(ctx context.Context, provider string, fresh []model.CanonicalArticle, fetchedAt time.Time, rep *RunReport) {
	if len(fresh) == 0 {
		return
	}
	if e.enricher != nil {
		if n := e.enricher.Enrich(ctx, fresh); n > 0 {
			logger.Log.Infof("补全正文 %d 篇", n)
		}
	}

	inserted := make([]*model.Article, 0, len(fresh))
	for _, art := range fresh {
		a, ok, err := e.store.InsertArticle(ctx, art, fetchedAt)
		if err != nil {
			logger.Log.WithField("url", art.URL).Errorf("保存文章失败: %v", err)
			continue
		}
		if !ok {
			rep.Duplicates++
			continue
		}
		inserted = append(inserted, a)
	}
	rep.Persisted = len(inserted)

	if e.archiver != nil && len(inserted) > 0 {
		key, err := e.archiver.Archive(ctx, provider, fetchedAt, inserted)
		if err != nil {
			logger.Log.Warnf("归档失败: %v", err)
			return
		}
		rep.Archived = len(inserted)
		logger.Log.WithField("key", key).Infof("已归档 %d 篇", len(inserted))
	}
}

// analyze 按入库时间标注未分析的文章，单篇失败只记录
func (e *Engine) analyze(ctx context.Context, limit int, rep *RunReport) error {
	if e.annotator == nil {
		logger.Log.Debug("未配置 LLM，跳过标注")
		return nil
	}
	pending, err := e.store.PendingAnalysis(ctx, limit)
	if err != nil {
		return fmt.Errorf("load pending articles: %w", err)
	}
	for _, art := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := logger.Log.WithField("article_id", art.ID)

		res, err := e.annotate(ctx, art)
		if err != nil {
			rep.AnalysisFailed++
			log.Warnf("标注失败: %v", err)
			continue
		}
		an, entities := toAnalysis(art.ID, res)
		saved, err := e.store.SaveAnalysis(ctx, an, entities)
		if err != nil {
			rep.AnalysisFailed++
			log.Errorf("保存标注失败: %v", err)
			continue
		}
		if saved {
			rep.Analyzed++
		}
	}
	return nil
}

func (e *Engine) annotate(ctx context.Context, art *model.Article) (*annotate.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.AnalysisTimeout)
	defer cancel()
	res, err := e.annotator.Analyze(ctx, annotate.InputFromArticle(art))
	if err != nil && !errors.Is(err, annotate.ErrAnnotationFailed) {
		err = fmt.Errorf("%w: %v", annotate.ErrAnnotationFailed, err)
	}
	return res, err
}

func toAnalysis(articleID string, res *annotate.Result) (*model.Analysis, []model.Entity) {
	an := &model.Analysis{
		ArticleID:      articleID,
		PoliticalBias:  res.PoliticalBias,
		BiasConfidence: res.BiasConfidence,
		Tone:           res.Tone,
		ToneConfidence: res.ToneConfidence,
		Summary:        res.Summary,
		AnalyzedAt:     time.Now(),
	}
	entities := make([]model.Entity, 0, len(res.Entities))
	for _, er := range res.Entities {
		entities = append(entities, model.Entity{
			ArticleID: articleID,
			Type:      er.Type,
			Value:     er.Value,
			Relevance: er.Relevance,
		})
	}
	return an, entities
}
