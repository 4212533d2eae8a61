package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base 公共主键与时间戳
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate 未指定主键时生成 UUID
func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// All 返回需要迁移的全部模型
func All() []any {
	return []any{
		&Category{}, &Tag{}, &Post{}, &PostView{}, &DailyStat{},
		&PublicationCategory{}, &Publication{},
		&Vacancy{}, &Application{},
		&ContactMessage{}, &Subscriber{},
		&SliderImage{}, &GuidingPrinciple{}, &Partner{}, &BoardMember{}, &Strategy{},
	}
}

// DateOf 截断到当天 0 点（UTC）
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResetBase 清空主键与时间戳，让数据库重新生成
func (b *Base) ResetBase() { *b = Base{} }
