package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
)

// CategoryInput 分类（文章分类、出版物分类、标签共用）
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `json:"order"`
	IsActive    *bool  `json:"is_active"`
}

// TaxonomyService 分类与标签的创建；slug 由名称生成
type TaxonomyService interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error)
	CreateTag(ctx context.Context, in CategoryInput) (*model.Tag, error)
	CreatePublicationCategory(ctx context.Context, in CategoryInput) (*model.PublicationCategory, error)
}

type taxonomyService struct {
	taxonomy     repository.TaxonomyRepository
	publications repository.PublicationRepository
	cache        cache.Cache
}

func NewTaxonomyService(taxonomy repository.TaxonomyRepository, publications repository.PublicationRepository, c cache.Cache) TaxonomyService {
	if c == nil {
		c = cache.Nop{}
	}
	return &taxonomyService{taxonomy: taxonomy, publications: publications, cache: c}
}

func validateName(in *CategoryInput, max int) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return required("name")
	}
	if tooLong(in.Name, max) {
		return invalid("name", "name is too long")
	}
	return nil
}

func slugSource(in CategoryInput) string {
	if strings.TrimSpace(in.Slug) != "" {
		return in.Slug
	}
	return in.Name
}

func (s *taxonomyService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if err := validateName(&in, 100); err != nil {
		return nil, err
	}
	c := &model.Category{
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
		Order:       in.Order,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	err := createWithSlug(ctx, slugSource(in), "category", s.taxonomy.CategorySlugExists, func(slug string) error {
		c.ID = ""
		c.Slug = slug
		return s.taxonomy.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyPostCategories)
	return c, nil
}

func (s *taxonomyService) CreateTag(ctx context.Context, in CategoryInput) (*model.Tag, error) {
	if err := validateName(&in, 50); err != nil {
		return nil, err
	}
	t := &model.Tag{Name: in.Name}
	err := createWithSlug(ctx, slugSource(in), "tag", s.taxonomy.TagSlugExists, func(slug string) error {
		t.ID = ""
		t.Slug = slug
		return s.taxonomy.CreateTag(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taxonomyService) CreatePublicationCategory(ctx context.Context, in CategoryInput) (*model.PublicationCategory, error) {
	if err := validateName(&in, 100); err != nil {
		return nil, err
	}
	c := &model.PublicationCategory{Name: in.Name}
	err := createWithSlug(ctx, slugSource(in), "category", s.publications.CategorySlugExists, func(slug string) error {
		c.ID = ""
		c.Slug = slug
		return s.publications.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyPublicationCategories)
	return c, nil
}
