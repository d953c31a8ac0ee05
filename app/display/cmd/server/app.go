package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
)

// newApp HTTP 服务与定时任务共用 kratos 的生命周期管理
func newApp(logger log.Logger, hs *http.Server, sch *engine.Scheduler) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs, sch),
	)
}
