package model

import "time"

// PublicationCategory 出版物分类
type PublicationCategory struct {
	Base
	Name string `json:"name" gorm:"type:varchar(100);not null"`
	Slug string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
}

func (PublicationCategory) TableName() string { return "publication_categories" }

// Publication 出版物；无草稿状态，创建即可见
type Publication struct {
	Base
	Title         string               `json:"title" gorm:"type:varchar(200);not null"`
	Slug          string               `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description   string               `json:"description" gorm:"type:text"`
	CategoryID    string               `json:"category_id" gorm:"type:varchar(36);index;not null"`
	Category      *PublicationCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	File          string               `json:"file" gorm:"type:varchar(255);not null"`
	CoverImage    string               `json:"cover_image,omitempty" gorm:"type:varchar(255)"`
	DownloadCount int64                `json:"download_count" gorm:"not null;default:0"`
	PublishedDate time.Time            `json:"published_date" gorm:"index"`
	IsFeatured    bool                 `json:"is_featured" gorm:"not null;default:false"`
}

func (Publication) TableName() string { return "publications" }
