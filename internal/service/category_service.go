package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/cache"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
)

func ptr(s string) *string { return &s }

// DefaultCategories 启动时与每次登录后确保存在
var DefaultCategories = []model.Category{
	{Slug: "career", Name: "キャリア", Description: ptr("仕事や転職に関する学び")},
	{Slug: "relationships", Name: "人間関係", Description: ptr("家族・友人・同僚との関係")},
	{Slug: "finance", Name: "お金", Description: ptr("資産形成・失敗談")},
	{Slug: "health", Name: "健康", Description: ptr("心身のコンディション管理")},
	{Slug: "learning", Name: "学び", Description: ptr("スキル・勉強の気づき")},
}

type CategoryService interface {
	List(ctx context.Context) ([]*model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	EnsureDefaults(ctx context.Context) error
}

type categoryService struct {
	repo  repository.CategoryRepository
	cache *cache.Categories
}

func NewCategoryService(repo repository.CategoryRepository, c *cache.Categories) CategoryService {
	if c == nil {
		c = cache.NewCategories(repo, nil, 0)
	}
	return &categoryService{repo: repo, cache: c}
}

func (s *categoryService) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := s.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if rows == nil {
		rows = []*model.Category{}
	}
	return rows, nil
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := s.cache.BySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", slug, err)
	}
	return c, nil
}

// EnsureDefaults 按 slug 补齐默认分类，已有的不覆盖；随后清缓存
func (s *categoryService) EnsureDefaults(ctx context.Context) error {
	if err := s.repo.EnsureSeeded(ctx, DefaultCategories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	slugs := make([]string, len(DefaultCategories))
	for i, c := range DefaultCategories {
		slugs[i] = c.Slug
	}
	s.cache.Invalidate(ctx, slugs...)
	return nil
}
