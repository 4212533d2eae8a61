package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// ApplicationRepository 申请记录；创建后只允许修改审阅状态
type ApplicationRepository interface {
	Create(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	ListByVacancy(ctx context.Context, vacancyID string, offset, limit int) ([]*model.Application, int64, error)
	MarkReviewed(ctx context.Context, id string, reviewed bool) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, a *model.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var a model.Application
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *applicationRepository) ListByVacancy(ctx context.Context, vacancyID string, offset, limit int) ([]*model.Application, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Application{}).
		Where("vacancy_id = ?", vacancyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Application
	err := r.db.WithContext(ctx).
		Where("vacancy_id = ?", vacancyID).
		Order("applied_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

func (r *applicationRepository) MarkReviewed(ctx context.Context, id string, reviewed bool) error {
	res := r.db.WithContext(ctx).Model(&model.Application{}).
		Where("id = ?", id).
		UpdateColumn("is_reviewed", reviewed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
