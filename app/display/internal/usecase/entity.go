package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/unify"
)

// Unifier 实体合并能力，*unify.Unifier 实现了该接口
type Unifier interface {
	AnalyzeDuplicates(ctx context.Context, et model.EntityType) (*unify.Analysis, error)
	Unify(ctx context.Context, dryRun bool) (*unify.Result, error)
}

// EntityUseCase 实体维护业务逻辑
type EntityUseCase struct {
	unifier Unifier
	log     *log.Helper
}

// NewEntityUseCase 创建实体维护业务逻辑实例
func NewEntityUseCase(unifier Unifier, logger log.Logger) *EntityUseCase {
	return &EntityUseCase{unifier: unifier, log: log.NewHelper(logger)}
}

// AnalyzeDuplicates 列出疑似重复的实体写法
func (uc *EntityUseCase) AnalyzeDuplicates(ctx context.Context, et model.EntityType) (*unify.Analysis, error) {
	return uc.unifier.AnalyzeDuplicates(ctx, et)
}

// Unify 合并重复实体，dryRun 时只报告
func (uc *EntityUseCase) Unify(ctx context.Context, dryRun bool) (*unify.Result, error) {
	return uc.unifier.Unify(ctx, dryRun)
}

// ScheduledUnify 定时合并任务
func (uc *EntityUseCase) ScheduledUnify(ctx context.Context) error {
	res, err := uc.Unify(ctx, false)
	if err != nil {
		return err
	}
	uc.log.Debugf("定时实体合并: %d 组写法", len(res.Updates))
	return nil
}
