package server

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/usecase"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/annotate"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/archive"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/extract"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/search/factory"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/unify"
)

// NewLLMClient 创建 LLM 客户端，未配置时返回 nil，依赖 LLM 的功能随之降级
func NewLLMClient(c *config.Config, logger log.Logger) (llm.Client, error) {
	client, err := llm.New(context.Background(), c.LLM, c.Concurrency)
	if errors.Is(err, llm.ErrNotConfigured) {
		log.NewHelper(logger).Warn("未配置 LLM，跳过标注，事实摘要使用规则生成")
		return nil, nil
	}
	return client, err
}

// NewAnnotator 创建标注器，client 为 nil 时返回 nil
func NewAnnotator(client llm.Client) annotate.Annotator {
	if client == nil {
		return nil
	}
	return annotate.NewLLMAnnotator(client)
}

// NewSynthesizer 有 LLM 时优先使用 LLM 抽取事实
func NewSynthesizer(client llm.Client) facts.Synthesizer {
	if client == nil {
		return facts.Deterministic{}
	}
	return facts.NewLLMSynthesizer(client, facts.Deterministic{})
}

// NewFactsCache 按配置创建事实摘要缓存
func NewFactsCache(c *config.Config, logger log.Logger) (facts.Cache, func(), error) {
	if c.Facts.Cache.Driver != "redis" {
		return facts.NewMemoryCache(), func() {}, nil
	}
	cc := c.Facts.Cache
	rc, err := facts.NewRedisCache(context.Background(), cc.Addr, cc.Password, cc.DB)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		log.NewHelper(logger).Info("closing the redis cache")
		rc.Close()
	}
	return rc, cleanup, nil
}

// NewUnifier 创建实体合并器
func NewUnifier(store *storage.Storage, client llm.Client) *unify.Unifier {
	return unify.NewUnifier(store, client)
}

// NewRadarEngine 初始化抓取引擎：新闻源、正文补全、归档按配置启用
func NewRadarEngine(c *config.Config, store *storage.Storage, annotator annotate.Annotator, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)

	var fetchers []engine.Fetcher
	if len(c.Fetch.Providers) == 0 {
		helper.Warn("未配置任何新闻源，抓取将失败")
	} else {
		connectors, err := factory.NewConnectors(c.Fetch)
		if err != nil {
			return nil, nil, err
		}
		for _, conn := range connectors {
			fetchers = append(fetchers, conn)
		}
	}

	eng := engine.NewEngine(store, fetchers, annotator, engine.Options{
		Queries:         c.Fetch.Queries,
		AnalysisTimeout: c.Analysis.Timeout,
		MaxPerRun:       c.Analysis.MaxPerRun,
	})

	if ec := c.Fetch.Extract; ec.Enabled {
		eng.WithEnricher(extract.NewEnricher(ec.MinLength, ec.Workers, ec.Timeout))
	}
	if c.Archive.Bucket != "" {
		archiver, err := archive.NewS3Archiver(context.Background(), c.Archive)
		if err != nil {
			return nil, nil, err
		}
		eng.WithArchiver(archiver)
		helper.Infof("原始文章将归档到 s3://%s/%s", c.Archive.Bucket, c.Archive.Prefix)
	}

	cleanup := func() {
		helper.Info("closing the radar engine")
		eng.Close()
	}
	return eng, cleanup, nil
}

// NewScheduler 定时抓取，附带事实摘要预热和实体合并任务
func NewScheduler(c *config.Config, eng *engine.Engine, ucFact *usecase.FactUseCase, ucEntity *usecase.EntityUseCase, client llm.Client) *engine.Scheduler {
	s := engine.NewScheduler(eng, c.Fetch.Interval, c.Fetch.RunOnStart)
	s.AddJob("facts", c.Facts.RefreshInterval, ucFact.Warm)
	// 实体合并依赖 LLM
	if client != nil {
		s.AddJob("unify", c.Unify.Interval, ucEntity.ScheduledUnify)
	}
	return s
}
