package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/repo"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/facts"
)

// ErrInvalidArgument 参数不合法，由服务层转换为 400
var ErrInvalidArgument = errors.New("invalid argument")

const dateLayout = "2006-01-02"

// DateRange 按天的闭区间，查询窗口为 [From 00:00, To+1d 00:00)
type DateRange struct {
	From  string
	To    string
	Start time.Time
	End   time.Time
}

// ParseDateRange 解析 YYYY-MM-DD，缺省为昨天到今天 (UTC)
func ParseDateRange(from, to string, now time.Time) (DateRange, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := today.AddDate(0, 0, -1)
	end := today
	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return DateRange{}, fmt.Errorf("%w: date_from must be YYYY-MM-DD", ErrInvalidArgument)
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return DateRange{}, fmt.Errorf("%w: date_to must be YYYY-MM-DD", ErrInvalidArgument)
		}
	}
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: date_from is after date_to", ErrInvalidArgument)
	}
	return DateRange{
		From:  start.Format(dateLayout),
		To:    end.Format(dateLayout),
		Start: start,
		End:   end.AddDate(0, 0, 1),
	}, nil
}

// FactUseCase 事实摘要业务逻辑
type FactUseCase struct {
	repo        repo.FactRepo
	synth       facts.Synthesizer
	cache       facts.Cache
	ttl         time.Duration
	maxArticles int
	log         *log.Helper
	now         func() time.Time
}

// NewFactUseCase 创建事实摘要业务逻辑实例
func NewFactUseCase(repo repo.FactRepo, synth facts.Synthesizer, cache facts.Cache, c *config.Config, logger log.Logger) *FactUseCase {
	return &FactUseCase{
		repo:        repo,
		synth:       synth,
		cache:       cache,
		ttl:         c.Facts.Cache.TTL,
		maxArticles: c.Facts.MaxArticles,
		log:         log.NewHelper(logger),
		now:         time.Now,
	}
}

// Digest 返回日期区间的事实摘要，refresh 为 true 时跳过缓存并重新生成
func (uc *FactUseCase) Digest(ctx context.Context, from, to string, refresh bool) (*facts.Digest, error) {
	r, err := ParseDateRange(from, to, uc.now())
	if err != nil {
		return nil, err
	}
	key := facts.CacheKey(r.From, r.To)
	if !refresh {
		d, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			// 缓存不可用时直接重新生成
			uc.log.Warnf("读取事实摘要缓存失败: %v", err)
		} else if ok {
			d.Cached = true
			return d, nil
		}
	}

	d, err := uc.build(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, key, d, uc.ttl); err != nil {
		uc.log.Warnf("写入事实摘要缓存失败: %v", err)
	}
	return d, nil
}

// Refresh 重新生成并写入缓存
func (uc *FactUseCase) Refresh(ctx context.Context, from, to string) (*domain.FactRefresh, error) {
	d, err := uc.Digest(ctx, from, to, true)
	if err != nil {
		return nil, err
	}
	return &domain.FactRefresh{
		Status:       "success",
		DateFrom:     d.DateFrom,
		DateTo:       d.DateTo,
		ArticleCount: d.ArticleCount,
		FactCount:    len(d.Facts),
		GeneratedAt:  d.GeneratedAt,
	}, nil
}

// Warm 定时预热默认区间的缓存
func (uc *FactUseCase) Warm(ctx context.Context) error {
	res, err := uc.Refresh(ctx, "", "")
	if err != nil {
		return err
	}
	uc.log.Infof("事实摘要缓存已刷新: %s ~ %s, 文章 %d 篇, 事实 %d 条", res.DateFrom, res.DateTo, res.ArticleCount, res.FactCount)
	return nil
}

func (uc *FactUseCase) build(ctx context.Context, r DateRange) (*facts.Digest, error) {
	arts, err := uc.repo.AnalyzedArticles(ctx, r.Start, r.End, uc.maxArticles)
	if err != nil {
		return nil, err
	}
	d, err := uc.synth.Synthesize(ctx, arts)
	if err != nil {
		return nil, err
	}
	d.DateFrom = r.From
	d.DateTo = r.To
	d.ArticleCount = len(arts)
	d.GeneratedAt = uc.now().UTC()
	d.Cached = false
	return d, nil
}
