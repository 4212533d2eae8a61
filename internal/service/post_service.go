package service

import (
	"context"
	"strings"
	"time"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
)

const (
	postPageSize    = 9
	relatedPosts    = 3
	topTagsLimit    = 10
	adminPageSize   = 20
	adminPageMax    = 100
	postSlugDefault = "post"
)

// PostInput 创建/更新文章的可编辑字段；更新时忽略 Slug
type PostInput struct {
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	Excerpt         string           `json:"excerpt"`
	Body            string           `json:"body"`
	FeaturedImage   string           `json:"featured_image"`
	Author          string           `json:"author"`
	PostType        model.PostType   `json:"post_type"`
	Status          model.PostStatus `json:"status"`
	PublishedAt     *time.Time       `json:"published_at"`
	IsFeatured      bool             `json:"is_featured"`
	MetaDescription string           `json:"meta_description"`
	MetaKeywords    string           `json:"meta_keywords"`
	CategoryIDs     []string         `json:"category_ids"`
	TagIDs          []string         `json:"tag_ids"`
}

// PostDetail 详情页数据
type PostDetail struct {
	Post        *model.Post   `json:"post"`
	ReadingTime int           `json:"reading_time"`
	Related     []*model.Post `json:"related"`
}

type PostService interface {
	Create(ctx context.Context, in PostInput) (*model.Post, error)
	Update(ctx context.Context, id string, in PostInput) (*model.Post, error)
	Transition(ctx context.Context, id string, next model.PostStatus) (*model.Post, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, f repository.PostFilter, page int) (Page[*model.Post], error)
	// AdminList 后台列表，包含草稿与归档
	AdminList(ctx context.Context, page, size int) (Page[*model.Post], error)
	Detail(ctx context.Context, slug, clientIP string) (*PostDetail, error)
	Categories(ctx context.Context) ([]*repository.CategoryCount, error)
	TopTags(ctx context.Context) ([]*repository.TagCount, error)
}

type postService struct {
	posts    repository.PostRepository
	taxonomy repository.TaxonomyRepository
	hits     HitRecorder
	cache    cache.Cache
	ttl      config.CacheConfig
	clock    Clock
}

func NewPostService(
	posts repository.PostRepository,
	taxonomy repository.TaxonomyRepository,
	hits HitRecorder,
	c cache.Cache,
	ttl config.CacheConfig,
	clock Clock,
) PostService {
	if c == nil {
		c = cache.Nop{}
	}
	return &postService{posts: posts, taxonomy: taxonomy, hits: hits, cache: c, ttl: ttl, clock: clock}
}

func validatePostInput(in *PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return required("title")
	}
	if tooLong(in.Title, model.PostTitleMaxLen) {
		return invalid("title", "title must be at most 200 characters")
	}
	if tooLong(in.Excerpt, model.PostExcerptMaxLen) {
		return invalid("excerpt", "excerpt must be at most 300 characters")
	}
	if in.PostType == "" {
		in.PostType = model.PostTypeBlog
	}
	if !in.PostType.Valid() {
		return invalid("post_type", "unknown post type")
	}
	if in.Status != "" && !in.Status.Valid() {
		return invalid("status", "unknown status")
	}
	return nil
}

func (s *postService) Create(ctx context.Context, in PostInput) (*model.Post, error) {
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.PostStatusDraft
	}
	if in.Status == model.PostStatusArchived {
		return nil, invalid("status", "a new post cannot be archived")
	}
	cats, tags, err := s.resolveTaxonomy(ctx, in)
	if err != nil {
		return nil, err
	}

	p := &model.Post{}
	applyPostInput(p, in, cats, tags)
	p.ApplyStatus(in.Status, s.clock.Now())

	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = in.Title
	}
	err = createWithSlug(ctx, source, postSlugDefault, s.posts.SlugExists, func(slug string) error {
		p.ID = ""
		p.Slug = slug
		return s.posts.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyHome, cacheKeyPostCategories)
	return p, nil
}

func (s *postService) Update(ctx context.Context, id string, in PostInput) (*model.Post, error) {
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// 未传 status 时保持原状态
	if in.Status == "" {
		in.Status = p.Status
	}
	if !p.Status.CanTransitionTo(in.Status) {
		return nil, invalid("status", "cannot change status from "+string(p.Status)+" to "+string(in.Status))
	}
	cats, tags, err := s.resolveTaxonomy(ctx, in)
	if err != nil {
		return nil, err
	}
	applyPostInput(p, in, cats, tags)
	p.ApplyStatus(in.Status, s.clock.Now())
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyHome, cacheKeyPostCategories)
	return p, nil
}

// Transition 仅修改发布状态
func (s *postService) Transition(ctx context.Context, id string, next model.PostStatus) (*model.Post, error) {
	if !next.Valid() {
		return nil, invalid("status", "unknown status")
	}
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == next {
		return p, nil
	}
	if !p.Status.CanTransitionTo(next) {
		return nil, invalid("status", "cannot change status from "+string(p.Status)+" to "+string(next))
	}
	p.ApplyStatus(next, s.clock.Now())
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyHome, cacheKeyPostCategories)
	return p, nil
}

func (s *postService) Delete(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, s.cache, cacheKeyHome, cacheKeyPostCategories)
	return nil
}

func (s *postService) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *postService) List(ctx context.Context, f repository.PostFilter, page int) (Page[*model.Post], error) {
	if f.Type == "" {
		f.Type = model.PostTypeBlog
	}
	if !f.Type.Valid() {
		return Page[*model.Post]{}, invalid("type", "unknown post type")
	}
	f.Query = strings.TrimSpace(f.Query)
	page, size, offset := paginate(page, postPageSize, postPageSize, postPageSize)
	items, total, err := s.posts.ListVisible(ctx, f, s.clock.Now(), offset, size)
	if err != nil {
		return Page[*model.Post]{}, err
	}
	return newPage(items, total, page, size), nil
}

func (s *postService) AdminList(ctx context.Context, page, size int) (Page[*model.Post], error) {
	page, size, offset := paginate(page, size, adminPageSize, adminPageMax)
	items, total, err := s.posts.ListAll(ctx, offset, size)
	if err != nil {
		return Page[*model.Post]{}, err
	}
	return newPage(items, total, page, size), nil
}

// Detail 返回可见文章并计一次浏览；浏览明细与日统计交给 HitRecorder
func (s *postService) Detail(ctx context.Context, slug, clientIP string) (*PostDetail, error) {
	now := s.clock.Now()
	p, err := s.posts.GetVisibleBySlug(ctx, slug, now)
	if err != nil {
		return nil, err
	}
	if err := s.posts.IncrementViews(ctx, p.ID); err != nil {
		return nil, err
	}
	p.Views++

	s.hits.Record(ctx, Hit{Kind: repository.StatPostView, EntityID: p.ID, IP: ipOrNil(clientIP), At: now})

	related, err := s.posts.Related(ctx, p, now, relatedPosts)
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []*model.Post{}
	}
	return &PostDetail{Post: p, ReadingTime: p.ReadingTime(), Related: related}, nil
}

func (s *postService) Categories(ctx context.Context) ([]*repository.CategoryCount, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKeyPostCategories, s.ttl.CategoriesTTL,
		func(ctx context.Context) ([]*repository.CategoryCount, error) {
			return s.taxonomy.CategoriesWithCounts(ctx, s.clock.Now())
		})
}

func (s *postService) TopTags(ctx context.Context) ([]*repository.TagCount, error) {
	return s.taxonomy.TopTags(ctx, s.clock.Now(), topTagsLimit)
}

func (s *postService) resolveTaxonomy(ctx context.Context, in PostInput) ([]model.Category, []model.Tag, error) {
	cats, err := s.taxonomy.CategoriesByIDs(ctx, in.CategoryIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(cats) != len(dedupe(in.CategoryIDs)) {
		return nil, nil, invalid("category_ids", "unknown category")
	}
	tags, err := s.taxonomy.TagsByIDs(ctx, in.TagIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(dedupe(in.TagIDs)) {
		return nil, nil, invalid("tag_ids", "unknown tag")
	}
	return cats, tags, nil
}

func applyPostInput(p *model.Post, in PostInput, cats []model.Category, tags []model.Tag) {
	p.Title = in.Title
	p.Excerpt = in.Excerpt
	p.Body = in.Body
	p.FeaturedImage = in.FeaturedImage
	p.Author = in.Author
	p.PostType = in.PostType
	p.IsFeatured = in.IsFeatured
	p.MetaDescription = in.MetaDescription
	p.MetaKeywords = in.MetaKeywords
	if in.PublishedAt != nil {
		t := in.PublishedAt.UTC()
		p.PublishedAt = &t
	}
	p.Categories = cats
	p.Tags = tags
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
