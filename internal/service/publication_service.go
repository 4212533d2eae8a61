package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/logger"
	"github.com/d60-Lab/eip-site/pkg/storage"
)

const (
	publicationPageSize = 12
	relatedPublications = 4
	publicationFileDir  = "publications/files"
)

// PublicationInput 出版物可编辑字段；更新时忽略 Slug
type PublicationInput struct {
	Title         string     `json:"title" form:"title"`
	Slug          string     `json:"slug" form:"slug"`
	Description   string     `json:"description" form:"description"`
	CategoryID    string     `json:"category_id" form:"category_id"`
	CoverImage    string     `json:"cover_image" form:"cover_image"`
	PublishedDate *time.Time `json:"published_date" form:"published_date" time_format:"2006-01-02"`
	IsFeatured    bool       `json:"is_featured" form:"is_featured"`
}

// PublicationDetail 详情页数据
type PublicationDetail struct {
	Publication *model.Publication   `json:"publication"`
	Related     []*model.Publication `json:"related"`
}

// Download 下载内容；调用方负责关闭 Body
type Download struct {
	Publication *model.Publication
	Filename    string
	Body        io.ReadCloser
}

type PublicationService interface {
	Create(ctx context.Context, in PublicationInput, file *Upload) (*model.Publication, error)
	Update(ctx context.Context, id string, in PublicationInput, file *Upload) (*model.Publication, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.PublicationFilter, page int) (Page[*model.Publication], error)
	Detail(ctx context.Context, slug string) (*PublicationDetail, error)
	Download(ctx context.Context, slug string) (*Download, error)
	Categories(ctx context.Context) ([]*model.PublicationCategory, error)
}

type publicationService struct {
	repo     repository.PublicationRepository
	hits     HitRecorder
	store    storage.Storage
	cache    cache.Cache
	ttl      config.CacheConfig
	maxBytes int64
	clock    Clock
}

func NewPublicationService(
	repo repository.PublicationRepository,
	hits HitRecorder,
	store storage.Storage,
	c cache.Cache,
	cfg *config.Config,
	clock Clock,
) PublicationService {
	if c == nil {
		c = cache.Nop{}
	}
	return &publicationService{
		repo:     repo,
		hits:     hits,
		store:    store,
		cache:    c,
		ttl:      cfg.Cache,
		maxBytes: cfg.Intake.MaxUploadBytes,
		clock:    clock,
	}
}

func (s *publicationService) validate(ctx context.Context, in *PublicationInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return required("title")
	}
	if tooLong(in.Title, model.PostTitleMaxLen) {
		return invalid("title", "title must be at most 200 characters")
	}
	if in.CategoryID == "" {
		return required("category_id")
	}
	if _, err := s.repo.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("category_id", "unknown category")
		}
		return err
	}
	return nil
}

func (s *publicationService) checkFile(file *Upload) error {
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return invalid("file", "File size must be under "+humanBytes(s.maxBytes)+".")
	}
	return nil
}

func (s *publicationService) Create(ctx context.Context, in PublicationInput, file *Upload) (*model.Publication, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	if file == nil || file.Filename == "" {
		return nil, required("file")
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}

	key := storage.NewKey(publicationFileDir, file.Filename)
	if err := s.store.Save(ctx, key, file.Body, file.ContentType); err != nil {
		return nil, err
	}

	p := &model.Publication{
		Title:         in.Title,
		Description:   in.Description,
		CategoryID:    in.CategoryID,
		File:          key,
		CoverImage:    in.CoverImage,
		PublishedDate: s.clock.Now(),
		IsFeatured:    in.IsFeatured,
	}
	if in.PublishedDate != nil {
		p.PublishedDate = in.PublishedDate.UTC()
	}
	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = in.Title
	}
	err := createWithSlug(ctx, source, "publication", s.repo.SlugExists, func(slug string) error {
		p.ID = ""
		p.Slug = slug
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		s.removeFile(ctx, key)
		return nil, err
	}
	invalidate(ctx, s.cache, cacheKeyHome, cacheKeyPublicationCategories)
	return p, nil
}

// Update 可选替换文件；新文件写入成功后才删除旧文件
func (s *publicationService) Update(ctx context.Context, id string, in PublicationInput, file *Upload) (*model.Publication, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldFile := p.File
	if file != nil && file.Filename != "" {
		if err := s.checkFile(file); err != nil {
			return nil, err
		}
		key := storage.NewKey(publicationFileDir, file.Filename)
		if err := s.store.Save(ctx, key, file.Body, file.ContentType); err != nil {
			return nil, err
		}
		p.File = key
	}

	p.Title = in.Title
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Category = nil
	p.CoverImage = in.CoverImage
	p.IsFeatured = in.IsFeatured
	if in.PublishedDate != nil {
		p.PublishedDate = in.PublishedDate.UTC()
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if p.File != oldFile {
			s.removeFile(ctx, p.File)
		}
		return nil, err
	}
	if p.File != oldFile {
		s.removeFile(ctx, oldFile)
	}
	invalidate(ctx, s.cache, cacheKeyHome)
	return p, nil
}

func (s *publicationService) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, p.File)
	invalidate(ctx, s.cache, cacheKeyHome)
	return nil
}

func (s *publicationService) List(ctx context.Context, f repository.PublicationFilter, page int) (Page[*model.Publication], error) {
	f.Query = strings.TrimSpace(f.Query)
	page, size, offset := paginate(page, publicationPageSize, publicationPageSize, publicationPageSize)
	items, total, err := s.repo.List(ctx, f, offset, size)
	if err != nil {
		return Page[*model.Publication]{}, err
	}
	return newPage(items, total, page, size), nil
}

func (s *publicationService) Detail(ctx context.Context, slug string) (*PublicationDetail, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	related, err := s.repo.Related(ctx, p, relatedPublications)
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []*model.Publication{}
	}
	return &PublicationDetail{Publication: p, Related: related}, nil
}

// Download 计一次下载并打开文件；只有该接口会增加下载数
func (s *publicationService) Download(ctx context.Context, slug string) (*Download, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	body, err := s.store.Open(ctx, p.File)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.repo.IncrementDownloads(ctx, p.ID); err != nil {
		body.Close()
		return nil, err
	}
	p.DownloadCount++
	s.hits.Record(ctx, Hit{Kind: repository.StatPublicationFetch, EntityID: p.ID, At: s.clock.Now()})
	return &Download{Publication: p, Filename: p.Slug + fileExt(p.File), Body: body}, nil
}

func (s *publicationService) Categories(ctx context.Context) ([]*model.PublicationCategory, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKeyPublicationCategories, s.ttl.CategoriesTTL,
		s.repo.Categories)
}

func (s *publicationService) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("delete stored file failed", zap.String("key", key), zap.Error(err))
	}
}
