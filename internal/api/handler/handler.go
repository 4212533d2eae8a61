package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/api/middleware"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/response"
)

const msgInvalidRequest = "Invalid request format"

// Services 处理器依赖的全部服务
type Services struct {
	Posts         service.PostService
	Taxonomy      service.TaxonomyService
	Publications  service.PublicationService
	Vacancies     service.VacancyService
	Contacts      service.ContactService
	Subscriptions service.SubscriptionService
	Search        service.SearchService
	Site          service.SiteService
}

type Handler struct {
	posts         service.PostService
	taxonomy      service.TaxonomyService
	publications  service.PublicationService
	vacancies     service.VacancyService
	contacts      service.ContactService
	subscriptions service.SubscriptionService
	search        service.SearchService
	site          service.SiteService
	entities      *admin.Lister
	auth          *auth.Manager
}

func New(s Services, entities *admin.Lister, authManager *auth.Manager) *Handler {
	return &Handler{
		posts:         s.Posts,
		taxonomy:      s.Taxonomy,
		publications:  s.Publications,
		vacancies:     s.Vacancies,
		contacts:      s.Contacts,
		subscriptions: s.Subscriptions,
		search:        s.Search,
		site:          s.Site,
		entities:      entities,
		auth:          authManager,
	}
}

// fail 将服务层错误映射为 HTTP 响应
func fail(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Message)
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, admin.ErrNotFound),
		errors.Is(err, admin.ErrUnknownEntity):
		response.NotFound(c, "Not found")
	case errors.Is(err, admin.ErrNotEditable):
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, response.Response{Code: http.StatusMethodNotAllowed, Error: err.Error()})
	default:
		response.InternalError(c, err)
	}
}

// bindJSON 请求体无法解析时统一返回 400
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return false
	}
	return true
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

func pageSizeParam(c *gin.Context) int {
	size, _ := strconv.Atoi(c.Query("page_size"))
	return size
}

// formUpload 读取可选的上传文件；未上传时返回 nil
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	u := &service.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
	return u, func() { _ = f.Close() }, nil
}

func clientIP(c *gin.Context) string { return middleware.ClientIP(c) }
