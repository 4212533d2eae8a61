package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/response"
)

// ListPosts 文章列表
// @Summary 文章列表（仅公开可见）
// @Tags 文章
// @Produce json
// @Param type query string false "文章类型 news/blog/implementation" default(blog)
// @Param category query string false "分类 slug"
// @Param tag query string false "标签 slug"
// @Param q query string false "关键词"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.Page[model.Post]}
// @Failure 400 {object} response.Response
// @Router /posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	f := repository.PostFilter{
		Type:         model.PostType(c.Query("type")),
		CategorySlug: c.Query("category"),
		TagSlug:      c.Query("tag"),
		Query:        c.Query("q"),
	}
	page, err := h.posts.List(c.Request.Context(), f, pageParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetPost 文章详情
// @Summary 文章详情（计一次浏览）
// @Tags 文章
// @Produce json
// @Param slug path string true "文章 slug"
// @Success 200 {object} response.Response{data=service.PostDetail}
// @Failure 404 {object} response.Response
// @Router /posts/{slug} [get]
func (h *Handler) GetPost(c *gin.Context) {
	detail, err := h.posts.Detail(c.Request.Context(), c.Param("slug"), clientIP(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// PostCategories 分类及文章数
// @Summary 文章分类
// @Tags 文章
// @Produce json
// @Success 200 {object} response.Response{data=[]repository.CategoryCount}
// @Router /posts/categories [get]
func (h *Handler) PostCategories(c *gin.Context) {
	cats, err := h.posts.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, cats)
}

// PostTags 热门标签
// @Summary 热门标签（前 10）
// @Tags 文章
// @Produce json
// @Success 200 {object} response.Response{data=[]repository.TagCount}
// @Router /posts/tags [get]
func (h *Handler) PostTags(c *gin.Context) {
	tags, err := h.posts.TopTags(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tags)
}

// AdminListPosts 后台文章列表
// @Summary 后台文章列表（含草稿）
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=service.Page[model.Post]}
// @Router /admin/posts [get]
func (h *Handler) AdminListPosts(c *gin.Context) {
	page, err := h.posts.AdminList(c.Request.Context(), pageParam(c), pageSizeParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// AdminGetPost 后台文章详情
// @Summary 后台文章详情
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /admin/posts/{id} [get]
func (h *Handler) AdminGetPost(c *gin.Context) {
	p, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// CreatePost 创建文章
// @Summary 创建文章
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.PostInput true "文章内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Router /admin/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var in service.PostInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.posts.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, p)
}

// UpdatePost 更新文章（slug 不变）
// @Summary 更新文章
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "文章ID"
// @Param request body service.PostInput true "文章内容"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	var in service.PostInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.posts.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

type transitionRequest struct {
	Status model.PostStatus `json:"status" binding:"required"`
}

// TransitionPost 切换发布状态
// @Summary 切换文章状态
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "文章ID"
// @Param request body transitionRequest true "目标状态"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Router /admin/posts/{id}/status [post]
func (h *Handler) TransitionPost(c *gin.Context) {
	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.posts.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 删除文章
// @Summary 删除文章
// @Tags 管理
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
