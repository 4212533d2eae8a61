package model

import (
	"strings"
	"time"
)

// PostType 文章类型
type PostType string

const (
	PostTypeNews           PostType = "news"
	PostTypeBlog           PostType = "blog"
	PostTypeImplementation PostType = "implementation"
)

// Valid 是否为已知类型
func (t PostType) Valid() bool {
	switch t {
	case PostTypeNews, PostTypeBlog, PostTypeImplementation:
		return true
	}
	return false
}

// PostStatus 发布状态
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusArchived  PostStatus = "archived"
)

// 允许的状态迁移：draft→published, draft→scheduled, scheduled→published, published→archived
var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:     {PostStatusPublished, PostStatusScheduled},
	PostStatusScheduled: {PostStatusPublished},
	PostStatusPublished: {PostStatusArchived},
}

// Valid 是否为已知状态
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusScheduled, PostStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo 判断状态迁移是否合法；相同状态视为空操作
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	PostTitleMaxLen   = 200
	PostExcerptMaxLen = 300
	SlugMaxLen        = 50
)

// Post 博客/新闻
type Post struct {
	Base
	Title           string     `json:"title" gorm:"type:varchar(200);not null"`
	Slug            string     `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Excerpt         string     `json:"excerpt" gorm:"type:varchar(300)"`
	Body            string     `json:"body" gorm:"type:text"`
	FeaturedImage   string     `json:"featured_image,omitempty" gorm:"type:varchar(255)"`
	Author          string     `json:"author,omitempty" gorm:"type:varchar(150)"`
	PostType        PostType   `json:"post_type" gorm:"type:varchar(16);index;not null"`
	Status          PostStatus `json:"status" gorm:"type:varchar(16);index:idx_post_visible;not null;default:draft"`
	PublishedAt     *time.Time `json:"published_at,omitempty" gorm:"index:idx_post_visible"`
	Views           int64      `json:"views" gorm:"not null;default:0"`
	IsFeatured      bool       `json:"is_featured" gorm:"not null;default:false"`
	MetaDescription string     `json:"meta_description,omitempty" gorm:"type:varchar(160)"`
	MetaKeywords    string     `json:"meta_keywords,omitempty" gorm:"type:varchar(255)"`
	Categories      []Category `json:"categories,omitempty" gorm:"many2many:post_categories;"`
	Tags            []Tag      `json:"tags,omitempty" gorm:"many2many:post_tags;"`
}

func (Post) TableName() string { return "posts" }

// IsVisible 公开可见：已发布且发布时间不晚于 now
func (p *Post) IsVisible(now time.Time) bool {
	return p.Status == PostStatusPublished && p.PublishedAt != nil && !p.PublishedAt.After(now)
}

// ApplyStatus 切换状态；首次进入 published 且未设置发布时间时写入 now
func (p *Post) ApplyStatus(next PostStatus, now time.Time) {
	p.Status = next
	if next == PostStatusPublished && p.PublishedAt == nil {
		t := now
		p.PublishedAt = &t
	}
}

// ReadingTime 预计阅读分钟数（200 词/分钟，至少 1 分钟）
func (p *Post) ReadingTime() int {
	words := len(strings.Fields(p.Body))
	if m := (words + 199) / 200; m > 1 {
		return m
	}
	return 1
}

// Category 文章分类
type Category struct {
	Base
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Icon        string `json:"icon,omitempty" gorm:"type:varchar(100)"`
	Order       int    `json:"order" gorm:"column:sort_order;not null;default:0"`
	IsActive    bool   `json:"is_active" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// Tag 标签
type Tag struct {
	Base
	Name string `json:"name" gorm:"type:varchar(50);not null"`
	Slug string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
}

func (Tag) TableName() string { return "tags" }

// PostView 单次浏览记录（尽力写入）
type PostView struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);index;not null"`
	IPAddress *string   `json:"ip_address,omitempty" gorm:"type:varchar(45)"`
	ViewedAt  time.Time `json:"viewed_at" gorm:"index"`
}

func (PostView) TableName() string { return "post_views" }

// DailyStat 按天聚合的浏览/下载计数，不要求与主计数器严格一致
type DailyStat struct {
	ID         string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(16);uniqueIndex:ux_daily_stat;not null"`
	EntityID   string    `json:"entity_id" gorm:"type:varchar(36);uniqueIndex:ux_daily_stat;not null"`
	Day        string    `json:"day" gorm:"type:varchar(10);uniqueIndex:ux_daily_stat;not null"` // 2006-01-02
	Hits       int64     `json:"hits" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DailyStat) TableName() string { return "content_daily_stats" }
