package service

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/logger"
	"github.com/d60-Lab/eip-site/pkg/slug"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrSlugConflict = errors.New("could not allocate a unique slug")
)

// ValidationError 面向用户的校验错误，Message 原样返回给调用方
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func required(field string) error {
	return invalid(field, field+" is required")
}

// Clock 可注入的时间源；nil 表示 time.Now
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Page 分页结果
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

func newPage[T any](items []T, total int64, page, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(size) - 1) / int64(size))
	return Page[T]{Items: items, Total: total, Page: page, PageSize: size, Pages: pages}
}

// paginate 规范化页码：page<1 视为 1，size 超出范围用默认值或上限
func paginate(page, size, def, max int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if max > 0 && size > max {
		size = max
	}
	return page, size, (page - 1) * size
}

// Upload 待保存的上传文件
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ipOrNil 无法解析的地址记为 NULL
func ipOrNil(s string) *string {
	s = strings.TrimSpace(s)
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	v := ip.String()
	return &v
}

func newID() string { return uuid.New().String() }

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

const slugAttempts = 3

// createWithSlug 生成唯一 slug 后执行创建；唯一索引冲突时重新分配
func createWithSlug(ctx context.Context, source, fallback string, exists slug.ExistsFunc, create func(string) error) error {
	base := slug.Make(source, model.SlugMaxLen)
	if base == "" {
		base = fallback
	}
	for i := 0; i < slugAttempts; i++ {
		s, err := slug.Unique(ctx, base, model.SlugMaxLen, exists)
		if err != nil {
			return err
		}
		err = create(s)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		logger.Warn("slug taken concurrently, retrying", zap.String("slug", s))
	}
	return ErrSlugConflict
}

// PageCachePrefix 公开接口整页缓存的 key 前缀
const PageCachePrefix = "page:"

const (
	cacheKeyHome                  = "home"
	cacheKeyPostCategories        = "posts:categories"
	cacheKeyPublicationCategories = "publications:categories"
)

// invalidate 内容变更后清理公开缓存；失败只记日志
func invalidate(ctx context.Context, c cache.Cache, keys ...string) {
	if c == nil {
		return
	}
	if len(keys) > 0 {
		if err := c.Delete(ctx, keys...); err != nil {
			logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	if err := c.DeleteByPrefix(ctx, PageCachePrefix); err != nil {
		logger.Warn("cache prefix delete failed", zap.String("prefix", PageCachePrefix), zap.Error(err))
	}
}
