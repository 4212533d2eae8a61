package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

type VacancyRepository interface {
	Create(ctx context.Context, v *model.Vacancy) error
	Update(ctx context.Context, v *model.Vacancy) error
	// Delete 删除岗位及其全部申请，返回被删除申请的附件 key
	Delete(ctx context.Context, id string) ([]string, error)
	GetByID(ctx context.Context, id string) (*model.Vacancy, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*model.Vacancy, error)
	GetOpenBySlug(ctx context.Context, slug string, now time.Time) (*model.Vacancy, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListOpen(ctx context.Context, now time.Time, offset, limit int) ([]*model.Vacancy, int64, error)
	Search(ctx context.Context, q string, now time.Time) ([]*model.Vacancy, error)
}

type vacancyRepository struct {
	db *gorm.DB
}

func NewVacancyRepository(db *gorm.DB) VacancyRepository { return &vacancyRepository{db: db} }

func openVacancies(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("vacancies.is_published = ? AND vacancies.deadline >= ?", true, model.DateOf(now))
}

func (r *vacancyRepository) Create(ctx context.Context, v *model.Vacancy) error {
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

func (r *vacancyRepository) Update(ctx context.Context, v *model.Vacancy) error {
	res := r.db.WithContext(ctx).Model(v).Select(
		"title", "description", "requirements", "responsibilities",
		"job_type", "location", "deadline", "is_published",
	).Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *vacancyRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apps []*model.Application
		if err := tx.Where("vacancy_id = ?", id).Find(&apps).Error; err != nil {
			return err
		}
		for _, a := range apps {
			files = append(files, a.Resume)
			if a.AdditionalDocuments != "" {
				files = append(files, a.AdditionalDocuments)
			}
		}
		if err := tx.Where("vacancy_id = ?", id).Delete(&model.Application{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Vacancy{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *vacancyRepository) GetByID(ctx context.Context, id string) (*model.Vacancy, error) {
	var v model.Vacancy
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// GetPublishedBySlug 已发布岗位（截止日期由调用方判断）
func (r *vacancyRepository) GetPublishedBySlug(ctx context.Context, slug string) (*model.Vacancy, error) {
	var v model.Vacancy
	err := r.db.WithContext(ctx).First(&v, "slug = ? AND is_published = ?", slug, true).Error
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// GetOpenBySlug 已发布且未过截止日期的岗位
func (r *vacancyRepository) GetOpenBySlug(ctx context.Context, slug string, now time.Time) (*model.Vacancy, error) {
	var v model.Vacancy
	if err := openVacancies(r.db.WithContext(ctx), now).First(&v, "vacancies.slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *vacancyRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.Vacancy{}, "slug", slug)
}

func (r *vacancyRepository) ListOpen(ctx context.Context, now time.Time, offset, limit int) ([]*model.Vacancy, int64, error) {
	var total int64
	if err := openVacancies(r.db.WithContext(ctx).Model(&model.Vacancy{}), now).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Vacancy
	err := openVacancies(r.db.WithContext(ctx), now).
		Order("vacancies.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

// Search 开放岗位中标题/描述/要求/职责/地点包含 q
func (r *vacancyRepository) Search(ctx context.Context, q string, now time.Time) ([]*model.Vacancy, error) {
	pat := likePattern(q)
	var res []*model.Vacancy
	err := openVacancies(r.db.WithContext(ctx), now).
		Where(r.db.
			Where(ilike("vacancies.title"), pat).
			Or(ilike("vacancies.description"), pat).
			Or(ilike("vacancies.requirements"), pat).
			Or(ilike("vacancies.responsibilities"), pat).
			Or(ilike("vacancies.location"), pat)).
		Find(&res).Error
	return res, err
}
