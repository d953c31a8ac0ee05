package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/news_radar/app/display/internal/domain"
	"github.com/iWorld-y/news_radar/app/display/internal/repo"
)

// ArticleUseCase 文章查询业务逻辑
type ArticleUseCase struct {
	repo repo.ArticleRepo
	log  *log.Helper
}

// NewArticleUseCase 创建文章业务逻辑实例
func NewArticleUseCase(repo repo.ArticleRepo, logger log.Logger) *ArticleUseCase {
	return &ArticleUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 分页列出文章，page 从 1 开始
func (uc *ArticleUseCase) List(ctx context.Context, f domain.ArticleFilter, page, pageSize int) (*domain.ArticleList, error) {
	arts, total, err := uc.repo.ListArticles(ctx, f, page, pageSize)
	if err != nil {
		return nil, err
	}
	if arts == nil {
		arts = []*domain.Article{}
	}
	return &domain.ArticleList{
		Articles:   arts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Get 根据ID获取文章详情
func (uc *ArticleUseCase) Get(ctx context.Context, id string) (*domain.Article, error) {
	return uc.repo.GetArticle(ctx, id)
}

// Search 快速搜索
func (uc *ArticleUseCase) Search(ctx context.Context, query string, limit int) ([]*domain.Article, error) {
	arts, err := uc.repo.SearchArticles(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if arts == nil {
		arts = []*domain.Article{}
	}
	return arts, nil
}
