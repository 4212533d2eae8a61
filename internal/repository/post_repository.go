package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/internal/model"
)

// PostFilter 公开列表过滤条件
type PostFilter struct {
	Type         model.PostType
	CategorySlug string
	TagSlug      string
	Query        string
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	Update(ctx context.Context, p *model.Post) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetVisibleBySlug(ctx context.Context, slug string, now time.Time) (*model.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListVisible(ctx context.Context, f PostFilter, now time.Time, offset, limit int) ([]*model.Post, int64, error)
	ListAll(ctx context.Context, offset, limit int) ([]*model.Post, int64, error)
	Related(ctx context.Context, p *model.Post, now time.Time, limit int) ([]*model.Post, error)
	ByCategoryNameLike(ctx context.Context, fragment string, now time.Time, limit int) ([]*model.Post, error)
	Search(ctx context.Context, q string, now time.Time) ([]*model.Post, error)
	IncrementViews(ctx context.Context, id string) error
	RecordView(ctx context.Context, v *model.PostView) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// Update 更新可编辑字段并替换分类/标签；slug 与浏览数不随更新变化
func (r *postRepository) Update(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(p).Select(
			"title", "excerpt", "body", "featured_image", "author", "post_type",
			"status", "published_at", "is_featured", "meta_description", "meta_keywords",
		).Updates(p)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := replaceAssoc(tx.Model(p).Association("Categories"), p.Categories); err != nil {
			return err
		}
		return replaceAssoc(tx.Model(p).Association("Tags"), p.Tags)
	})
}

func replaceAssoc[T any](a *gorm.Association, values []T) error {
	if len(values) == 0 {
		return a.Clear()
	}
	return a.Replace(values)
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := &model.Post{Base: model.Base{ID: id}}
		if err := tx.Model(p).Association("Categories").Clear(); err != nil {
			return err
		}
		if err := tx.Model(p).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.PostView{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Preload("Categories").Preload("Tags").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *postRepository) GetVisibleBySlug(ctx context.Context, slug string, now time.Time) (*model.Post, error) {
	var p model.Post
	err := visiblePosts(r.db.WithContext(ctx), now).
		Preload("Categories").Preload("Tags").
		Where("posts.slug = ?", slug).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(r.db.WithContext(ctx), &model.Post{}, "slug", slug)
}

func (r *postRepository) ListVisible(ctx context.Context, f PostFilter, now time.Time, offset, limit int) ([]*model.Post, int64, error) {
	query := func() *gorm.DB {
		q := visiblePosts(r.db.WithContext(ctx).Model(&model.Post{}), now)
		if f.Type != "" {
			q = q.Where("posts.post_type = ?", f.Type)
		}
		if f.CategorySlug != "" {
			q = q.Where("posts.id IN (?)", r.db.Table("post_categories").
				Select("post_categories.post_id").
				Joins("JOIN categories ON categories.id = post_categories.category_id").
				Where("categories.slug = ?", f.CategorySlug))
		}
		if f.TagSlug != "" {
			q = q.Where("posts.id IN (?)", r.db.Table("post_tags").
				Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.slug = ?", f.TagSlug))
		}
		if f.Query != "" {
			pat := likePattern(f.Query)
			q = q.Where(ilike("posts.title")+" OR "+ilike("posts.excerpt")+" OR "+ilike("posts.body"), pat, pat, pat)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Post
	err := query().Preload("Categories").Preload("Tags").
		Order("posts.published_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, total, err
}

func (r *postRepository) ListAll(ctx context.Context, offset, limit int) ([]*model.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Post
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}

// Related 与 p 共享分类的其他可见文章
func (r *postRepository) Related(ctx context.Context, p *model.Post, now time.Time, limit int) ([]*model.Post, error) {
	if len(p.Categories) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	var res []*model.Post
	err := visiblePosts(r.db.WithContext(ctx), now).
		Where("posts.id <> ?", p.ID).
		Where("posts.id IN (?)", r.db.Table("post_categories").
			Select("post_categories.post_id").
			Where("post_categories.category_id IN ?", ids)).
		Order("posts.published_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

// ByCategoryNameLike 分类名包含 fragment 的可见文章
func (r *postRepository) ByCategoryNameLike(ctx context.Context, fragment string, now time.Time, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := visiblePosts(r.db.WithContext(ctx), now).
		Where("posts.id IN (?)", r.db.Table("post_categories").
			Select("post_categories.post_id").
			Joins("JOIN categories ON categories.id = post_categories.category_id").
			Where(ilike("categories.name"), likePattern(fragment))).
		Preload("Categories").
		Order("posts.published_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

// Search 可见文章中标题/摘要/正文/分类名/标签名包含 q
func (r *postRepository) Search(ctx context.Context, q string, now time.Time) ([]*model.Post, error) {
	pat := likePattern(q)
	catIDs := r.db.Table("post_categories").
		Select("post_categories.post_id").
		Joins("JOIN categories ON categories.id = post_categories.category_id").
		Where(ilike("categories.name"), pat)
	tagIDs := r.db.Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where(ilike("tags.name"), pat)

	var res []*model.Post
	err := visiblePosts(r.db.WithContext(ctx), now).
		Where(r.db.
			Where(ilike("posts.title"), pat).
			Or(ilike("posts.excerpt"), pat).
			Or(ilike("posts.body"), pat).
			Or("posts.id IN (?)", catIDs).
			Or("posts.id IN (?)", tagIDs)).
		Find(&res).Error
	return res, err
}

// IncrementViews 原子自增，不做读-改-写
func (r *postRepository) IncrementViews(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) RecordView(ctx context.Context, v *model.PostView) error {
	return r.db.WithContext(ctx).Create(v).Error
}
