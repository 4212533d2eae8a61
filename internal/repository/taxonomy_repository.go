package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// CategoryCount 分类及其可见文章数
type CategoryCount struct {
	model.Category
	PostCount int64 `json:"post_count"`
}

// TagCount 标签及其可见文章数
type TagCount struct {
	model.Tag
	PostCount int64 `json:"post_count"`
}

// TaxonomyRepository 文章分类与标签
type TaxonomyRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateTag(ctx context.Context, t *model.Tag) error
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	TagSlugExists(ctx context.Context, slug string) (bool, error)
	CategoriesByIDs(ctx context.Context, ids []string) ([]model.Category, error)
	TagsByIDs(ctx context.Context, ids []string) ([]model.Tag, error)
	CategoriesWithCounts(ctx context.Context, now time.Time) ([]*CategoryCount, error)
	TopTags(ctx context.Context, now time.Time, limit int) ([]*TagCount, error)
}

type taxonomyRepository struct {
	db *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository { return &taxonomyRepository{db: db} }

func (r *taxonomyRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *taxonomyRepository) CreateTag(ctx context.Context, t *model.Tag) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *taxonomyRepository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.Category{}, "slug", slug)
}

func (r *taxonomyRepository) TagSlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.Tag{}, "slug", slug)
}

func (r *taxonomyRepository) CategoriesByIDs(ctx context.Context, ids []string) ([]model.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []model.Category
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *taxonomyRepository) TagsByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []model.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

// CategoriesWithCounts 启用的分类，按排序字段与名称排列
func (r *taxonomyRepository) CategoriesWithCounts(ctx context.Context, now time.Time) ([]*CategoryCount, error) {
	var res []*CategoryCount
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Select("categories.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN post_categories ON post_categories.category_id = categories.id").
		Joins("LEFT JOIN posts ON posts.id = post_categories.post_id AND posts.status = ? AND posts.published_at <= ?",
			model.PostStatusPublished, now).
		Where("categories.is_active = ?", true).
		Group("categories.id").
		Order("categories.sort_order, categories.name").
		Scan(&res).Error
	return res, err
}

func (r *taxonomyRepository) TopTags(ctx context.Context, now time.Time, limit int) ([]*TagCount, error) {
	var res []*TagCount
	err := r.db.WithContext(ctx).Model(&model.Tag{}).
		Select("tags.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("LEFT JOIN posts ON posts.id = post_tags.post_id AND posts.status = ? AND posts.published_at <= ?",
			model.PostStatusPublished, now).
		Group("tags.id").
		Order("post_count DESC, tags.name").
		Limit(limit).
		Scan(&res).Error
	return res, err
}
