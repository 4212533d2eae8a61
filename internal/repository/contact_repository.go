package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/eip-site/internal/model"
)

type ContactRepository interface {
	Create(ctx context.Context, m *model.ContactMessage) error
	GetByID(ctx context.Context, id string) (*model.ContactMessage, error)
	UpdateStatus(ctx context.Context, id string, status model.ContactStatus) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository { return &contactRepository{db: db} }

func (r *contactRepository) Create(ctx context.Context, m *model.ContactMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *contactRepository) GetByID(ctx context.Context, id string) (*model.ContactMessage, error) {
	var m model.ContactMessage
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *contactRepository) UpdateStatus(ctx context.Context, id string, status model.ContactStatus) error {
	res := r.db.WithContext(ctx).Model(&model.ContactMessage{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type SubscriberRepository interface {
	// Create 插入新订阅者；email 已存在时返回 false 且不写入
	Create(ctx context.Context, s *model.Subscriber) (bool, error)
	GetByEmail(ctx context.Context, email string) (*model.Subscriber, error)
	SetActive(ctx context.Context, id string, active bool) error
	DeactivateByToken(ctx context.Context, token string) error
	Count(ctx context.Context) (int64, error)
}

type subscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) SubscriberRepository { return &subscriberRepository{db: db} }

func (r *subscriberRepository) Create(ctx context.Context, s *model.Subscriber) (bool, error) {
	// 幂等：并发重复订阅不报错
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	var s model.Subscriber
	if err := r.db.WithContext(ctx).First(&s, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *subscriberRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).Model(&model.Subscriber{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active).Error
}

func (r *subscriberRepository) DeactivateByToken(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Model(&model.Subscriber{}).
		Where("token = ?", token).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriberRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Subscriber{}).Count(&n).Error
	return n, err
}
