package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
)

// Ingestor 抓取引擎能力，*engine.Engine 实现了该接口
type Ingestor interface {
	Run(ctx context.Context, trigger string) (*engine.RunReport, error)
	Start(trigger string) error
	AnalyzePending(ctx context.Context, limit int) (*engine.RunReport, error)
	Status() engine.Status
}

// 同步执行时一轮抓取或标注的时限，不受 HTTP 请求超时影响
const defaultRunTimeout = 10 * time.Minute

// IngestUseCase 手动抓取和标注
type IngestUseCase struct {
	engine     Ingestor
	log        *log.Helper
	runTimeout time.Duration
}

// NewIngestUseCase 创建抓取业务逻辑实例
func NewIngestUseCase(eng Ingestor, logger log.Logger) *IngestUseCase {
	return &IngestUseCase{engine: eng, log: log.NewHelper(logger), runTimeout: defaultRunTimeout}
}

// runContext 脱离请求的取消信号，保留请求中的值
func (uc *IngestUseCase) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), uc.runTimeout)
}

// FetchNow 手动触发一轮抓取。wait 为 false 时后台执行并返回 nil 报告；
// 所有新闻源失败时返回报告和 engine.ErrSourceUnavailable
func (uc *IngestUseCase) FetchNow(ctx context.Context, wait bool) (*engine.RunReport, error) {
	if !wait {
		if err := uc.engine.Start(engine.TriggerManual); err != nil {
			return nil, err
		}
		uc.log.Info("手动抓取已在后台启动")
		return nil, nil
	}
	runCtx, cancel := uc.runContext(ctx)
	defer cancel()
	rep, err := uc.engine.Run(runCtx, engine.TriggerManual)
	if err != nil && !errors.Is(err, engine.ErrSourceUnavailable) {
		return nil, err
	}
	return rep, err
}

// AnalyzePending 标注最多 limit 篇未标注文章
func (uc *IngestUseCase) AnalyzePending(ctx context.Context, limit int) (*engine.RunReport, error) {
	runCtx, cancel := uc.runContext(ctx)
	defer cancel()
	return uc.engine.AnalyzePending(runCtx, limit)
}

// Status 引擎状态
func (uc *IngestUseCase) Status() engine.Status {
	return uc.engine.Status()
}
