package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/news_radar/app/display/internal/data"
	"github.com/iWorld-y/news_radar/app/display/internal/service"
	"github.com/iWorld-y/news_radar/app/display/internal/usecase"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/unify"
)

// EngineSet 抓取引擎及其依赖，命令行子命令单独使用
var EngineSet = wire.NewSet(
	data.NewData,
	data.NewStorage,
	NewLLMClient,
	NewAnnotator,
	NewRadarEngine,
)

// ProviderSet 是新闻门户服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	EngineSet,

	// Server providers
	NewHTTPServer,
	NewScheduler,
	NewSynthesizer,
	NewFactsCache,
	NewUnifier,

	// Data providers
	data.NewArticleRepo,
	data.NewInsightRepo,
	data.NewFactRepo,

	// UseCase providers
	usecase.NewArticleUseCase,
	usecase.NewInsightUseCase,
	usecase.NewFactUseCase,
	usecase.NewIngestUseCase,
	usecase.NewEntityUseCase,
	wire.Bind(new(usecase.Ingestor), new(*engine.Engine)),
	wire.Bind(new(usecase.Unifier), new(*unify.Unifier)),

	// Service providers
	service.NewNewsService,
)
