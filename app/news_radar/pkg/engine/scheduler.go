package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/transport"
	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
)

var _ transport.Server = (*Scheduler)(nil)

// JobFunc 定时任务
type JobFunc func(ctx context.Context) error

// Scheduler 基于 cron 的定时调度，随 kratos 应用启动和停止
type Scheduler struct {
	engine     *Engine
	cron       *cron.Cron
	interval   time.Duration
	runOnStart bool
	jobs       []job
}

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// NewScheduler 创建调度器，interval 为抓取间隔
func NewScheduler(eng *Engine, interval time.Duration, runOnStart bool) *Scheduler {
	return &Scheduler{
		engine:     eng,
		cron:       cron.New(),
		interval:   interval,
		runOnStart: runOnStart,
	}
}

// AddJob 追加附属任务，interval <= 0 时忽略
func (s *Scheduler) AddJob(name string, interval time.Duration, fn JobFunc) {
	if interval <= 0 || fn == nil {
		return
	}
	s.jobs = append(s.jobs, job{name: name, interval: interval, fn: fn})
}

// Start implements transport.Server
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid fetch interval: %v", s.interval)
	}
	if _, err := s.cron.AddFunc(every(s.interval), s.runIngestion(TriggerSchedule)); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	for _, j := range s.jobs {
		j := j
		if _, err := s.cron.AddFunc(every(j.interval), func() {
			if err := j.fn(s.engine.bg); err != nil {
				logger.Log.WithField("job", j.name).Errorf("定时任务失败: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to add cron job %s: %w", j.name, err)
		}
	}
	s.cron.Start()
	logger.Log.Infof("调度器已启动，抓取间隔 %v，附属任务 %d 个", s.interval, len(s.jobs))

	if s.runOnStart {
		go s.runIngestion(TriggerStartup)()
	}
	return nil
}

// Stop implements transport.Server
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.engine.Close()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Log.Info("调度器已停止")
	return nil
}

func (s *Scheduler) runIngestion(trigger string) func() {
	return func() {
		_, err := s.engine.Run(s.engine.bg, trigger)
		if errors.Is(err, ErrRunInProgress) {
			logger.Log.WithField("trigger", trigger).Info("已有任务在运行，本次 skipped")
		}
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
