package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// SiteRepository 首页与关于页面的静态内容
type SiteRepository interface {
	ActiveSlides(ctx context.Context) ([]*model.SliderImage, error)
	Principles(ctx context.Context, limit int) ([]*model.GuidingPrinciple, error)
	ActivePartners(ctx context.Context) ([]*model.Partner, error)
	BoardMembers(ctx context.Context) ([]*model.BoardMember, error)
	Strategies(ctx context.Context) ([]*model.Strategy, error)
}

type siteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) SiteRepository { return &siteRepository{db: db} }

func (r *siteRepository) ActiveSlides(ctx context.Context) ([]*model.SliderImage, error) {
	var res []*model.SliderImage
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order").Find(&res).Error
	return res, err
}

// Principles limit <= 0 表示不限制
func (r *siteRepository) Principles(ctx context.Context, limit int) ([]*model.GuidingPrinciple, error) {
	q := r.db.WithContext(ctx).Order("sort_order")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var res []*model.GuidingPrinciple
	err := q.Find(&res).Error
	return res, err
}

func (r *siteRepository) ActivePartners(ctx context.Context) ([]*model.Partner, error) {
	var res []*model.Partner
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&res).Error
	return res, err
}

func (r *siteRepository) BoardMembers(ctx context.Context) ([]*model.BoardMember, error) {
	var res []*model.BoardMember
	err := r.db.WithContext(ctx).Order("sort_order").Find(&res).Error
	return res, err
}

func (r *siteRepository) Strategies(ctx context.Context) ([]*model.Strategy, error) {
	var res []*model.Strategy
	err := r.db.WithContext(ctx).Order("sort_order").Find(&res).Error
	return res, err
}
