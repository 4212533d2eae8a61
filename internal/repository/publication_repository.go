package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// PublicationFilter 出版物列表过滤条件
type PublicationFilter struct {
	CategorySlug string
	Query        string
}

type PublicationRepository interface {
	Create(ctx context.Context, p *model.Publication) error
	Update(ctx context.Context, p *model.Publication) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Publication, error)
	GetBySlug(ctx context.Context, slug string) (*model.Publication, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, f PublicationFilter, offset, limit int) ([]*model.Publication, int64, error)
	Related(ctx context.Context, p *model.Publication, limit int) ([]*model.Publication, error)
	Featured(ctx context.Context, limit int) ([]*model.Publication, error)
	Search(ctx context.Context, q string) ([]*model.Publication, error)
	IncrementDownloads(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, c *model.PublicationCategory) error
	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	GetCategory(ctx context.Context, id string) (*model.PublicationCategory, error)
	Categories(ctx context.Context) ([]*model.PublicationCategory, error)
}

type publicationRepository struct {
	db *gorm.DB
}

func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func (r *publicationRepository) Create(ctx context.Context, p *model.Publication) error {
	return translate(r.db.WithContext(ctx).Omit("Category").Create(p).Error)
}

// Update slug 与下载数不随更新变化
func (r *publicationRepository) Update(ctx context.Context, p *model.Publication) error {
	res := r.db.WithContext(ctx).Model(p).Select(
		"title", "description", "category_id", "file", "cover_image", "published_date", "is_featured",
	).Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *publicationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Publication{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *publicationRepository) GetByID(ctx context.Context, id string) (*model.Publication, error) {
	var p model.Publication
	if err := r.db.WithContext(ctx).Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *publicationRepository) GetBySlug(ctx context.Context, slug string) (*model.Publication, error) {
	var p model.Publication
	if err := r.db.WithContext(ctx).Preload("Category").First(&p, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *publicationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.Publication{}, "slug", slug)
}

func (r *publicationRepository) List(ctx context.Context, f PublicationFilter, offset, limit int) ([]*model.Publication, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Publication{})
		if f.CategorySlug != "" {
			q = q.Where("publications.category_id IN (?)", r.db.Model(&model.PublicationCategory{}).
				Select("id").Where("slug = ?", f.CategorySlug))
		}
		if f.Query != "" {
			pat := likePattern(f.Query)
			q = q.Where(ilike("publications.title")+" OR "+ilike("publications.description"), pat, pat)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Publication
	err := query().Preload("Category").
		Order("publications.published_date DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

// Related 同分类的其他出版物
func (r *publicationRepository) Related(ctx context.Context, p *model.Publication, limit int) ([]*model.Publication, error) {
	var res []*model.Publication
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND id <> ?", p.CategoryID, p.ID).
		Order("published_date DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *publicationRepository) Featured(ctx context.Context, limit int) ([]*model.Publication, error) {
	var res []*model.Publication
	err := r.db.WithContext(ctx).Preload("Category").
		Where("is_featured = ?", true).
		Order("published_date DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

// Search 标题/描述/分类名包含 q
func (r *publicationRepository) Search(ctx context.Context, q string) ([]*model.Publication, error) {
	pat := likePattern(q)
	catIDs := r.db.Model(&model.PublicationCategory{}).Select("id").Where(ilike("name"), pat)

	var res []*model.Publication
	err := r.db.WithContext(ctx).Preload("Category").
		Where(r.db.
			Where(ilike("publications.title"), pat).
			Or(ilike("publications.description"), pat).
			Or("publications.category_id IN (?)", catIDs)).
		Find(&res).Error
	return res, err
}

func (r *publicationRepository) IncrementDownloads(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Publication{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *publicationRepository) CreateCategory(ctx context.Context, c *model.PublicationCategory) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *publicationRepository) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.PublicationCategory{}, "slug", slug)
}

func (r *publicationRepository) GetCategory(ctx context.Context, id string) (*model.PublicationCategory, error) {
	var c model.PublicationCategory
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *publicationRepository) Categories(ctx context.Context) ([]*model.PublicationCategory, error) {
	var res []*model.PublicationCategory
	err := r.db.WithContext(ctx).Order("name").Find(&res).Error
	return res, err
}
