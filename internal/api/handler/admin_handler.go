package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/response"
)

const entityPageSize = 25

var errBadBody = errors.New("invalid request body")

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login 管理员登录
// @Summary 管理员登录，返回 JWT
// @Tags 管理
// @Accept json
// @Produce json
// @Param request body loginRequest true "账号密码"
// @Success 200 {object} response.Response{data=loginResponse}
// @Failure 401 {object} response.Response
// @Router /admin/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, exp, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		response.Unauthorized(c, "invalid username or password")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, loginResponse{Token: token, ExpiresAt: exp})
}

// CreateCategory 创建文章分类
// @Summary 创建文章分类
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CategoryInput true "分类"
// @Success 201 {object} response.Response{data=model.Category}
// @Failure 400 {object} response.Response
// @Router /admin/categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var in service.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	cat, err := h.taxonomy.CreateCategory(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cat)
}

// CreateTag 创建标签
// @Summary 创建标签
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CategoryInput true "标签"
// @Success 201 {object} response.Response{data=model.Tag}
// @Failure 400 {object} response.Response
// @Router /admin/tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	var in service.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	tag, err := h.taxonomy.CreateTag(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, tag)
}

// CreatePublicationCategory 创建出版物分类
// @Summary 创建出版物分类
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CategoryInput true "分类"
// @Success 201 {object} response.Response{data=model.PublicationCategory}
// @Failure 400 {object} response.Response
// @Router /admin/publication-categories [post]
func (h *Handler) CreatePublicationCategory(c *gin.Context) {
	var in service.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	cat, err := h.taxonomy.CreatePublicationCategory(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cat)
}

// Entities 实体元信息
// @Summary 通用后台实体列表规则
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=[]admin.Meta}
// @Router /admin/entities [get]
func (h *Handler) Entities(c *gin.Context) {
	response.Success(c, admin.Describe())
}

// ListEntity 通用实体列表
// @Summary 通用实体列表（搜索、等值过滤、分页）
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param entity path string true "实体名，如 posts/contacts/subscribers"
// @Param q query string false "关键词"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=admin.Result}
// @Failure 404 {object} response.Response
// @Router /admin/entities/{entity} [get]
func (h *Handler) ListEntity(c *gin.Context) {
	name := c.Param("entity")
	e, ok := admin.Lookup(name)
	if !ok {
		fail(c, admin.ErrUnknownEntity)
		return
	}
	filters := make(map[string]string, len(e.Filters))
	for _, col := range e.Filters {
		if v, ok := c.GetQuery(col); ok {
			filters[col] = v
		}
	}

	size := pageSizeParam(c)
	if size <= 0 || size > 100 {
		size = entityPageSize
	}
	page := pageParam(c)
	if page < 1 {
		page = 1
	}
	result, err := h.entities.List(c.Request.Context(), name, admin.Query{
		Search:  c.Query("q"),
		Filters: filters,
		Offset:  (page - 1) * size,
		Limit:   size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// CreateEntity 通用创建（仅站点内容实体）
// @Summary 创建站点内容（slides/principles/partners/board/strategies）
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param entity path string true "实体名"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 405 {object} response.Response
// @Router /admin/entities/{entity} [post]
func (h *Handler) CreateEntity(c *gin.Context) {
	obj, err := h.entities.Create(c.Request.Context(), c.Param("entity"), func(v any) error {
		if err := c.ShouldBindJSON(v); err != nil {
			return errBadBody
		}
		return nil
	})
	if errors.Is(err, errBadBody) {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.site.InvalidateHome(c.Request.Context())
	response.Created(c, obj)
}

// DeleteEntity 通用删除（仅站点内容实体）
// @Summary 删除站点内容
// @Tags 管理
// @Security BearerAuth
// @Param entity path string true "实体名"
// @Param id path string true "ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 405 {object} response.Response
// @Router /admin/entities/{entity}/{id} [delete]
func (h *Handler) DeleteEntity(c *gin.Context) {
	if err := h.entities.Delete(c.Request.Context(), c.Param("entity"), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.site.InvalidateHome(c.Request.Context())
	response.Success(c, nil)
}
