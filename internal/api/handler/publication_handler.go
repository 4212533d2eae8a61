package handler

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/response"
)

// ListPublications 出版物列表
// @Summary 出版物列表
// @Tags 出版物
// @Produce json
// @Param category query string false "分类 slug"
// @Param q query string false "关键词"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.Page[model.Publication]}
// @Router /publications [get]
func (h *Handler) ListPublications(c *gin.Context) {
	f := repository.PublicationFilter{CategorySlug: c.Query("category"), Query: c.Query("q")}
	page, err := h.publications.List(c.Request.Context(), f, pageParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetPublication 出版物详情
// @Summary 出版物详情（含同分类推荐）
// @Tags 出版物
// @Produce json
// @Param slug path string true "出版物 slug"
// @Success 200 {object} response.Response{data=service.PublicationDetail}
// @Failure 404 {object} response.Response
// @Router /publications/{slug} [get]
func (h *Handler) GetPublication(c *gin.Context) {
	detail, err := h.publications.Detail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// DownloadPublication 下载出版物文件
// @Summary 下载出版物（下载数 +1）
// @Tags 出版物
// @Produce octet-stream
// @Param slug path string true "出版物 slug"
// @Success 200 {file} file
// @Failure 404 {object} response.Response
// @Router /publications/{slug}/download [get]
func (h *Handler) DownloadPublication(c *gin.Context) {
	dl, err := h.publications.Download(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	defer dl.Body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(dl.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}),
	}
	c.DataFromReader(http.StatusOK, -1, contentType, dl.Body, headers)
}

// PublicationCategories 出版物分类
// @Summary 出版物分类
// @Tags 出版物
// @Produce json
// @Success 200 {object} response.Response{data=[]model.PublicationCategory}
// @Router /publications/categories [get]
func (h *Handler) PublicationCategories(c *gin.Context) {
	cats, err := h.publications.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, cats)
}

// CreatePublication 上传出版物
// @Summary 创建出版物（multipart，file 必填）
// @Tags 管理
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "标题"
// @Param category_id formData string false "分类ID"
// @Param description formData string false "简介"
// @Param published_date formData string false "发布日期 2006-01-02"
// @Param is_featured formData bool false "是否推荐"
// @Param file formData file true "文件"
// @Success 201 {object} response.Response{data=model.Publication}
// @Failure 400 {object} response.Response
// @Router /admin/publications [post]
func (h *Handler) CreatePublication(c *gin.Context) {
	var in service.PublicationInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	file, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	defer closeFile()

	p, err := h.publications.Create(c.Request.Context(), in, file)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, p)
}

// UpdatePublication 更新出版物，可选替换文件
// @Summary 更新出版物
// @Tags 管理
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "出版物ID"
// @Param title formData string true "标题"
// @Param file formData file false "新文件"
// @Success 200 {object} response.Response{data=model.Publication}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/publications/{id} [put]
func (h *Handler) UpdatePublication(c *gin.Context) {
	var in service.PublicationInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	file, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	defer closeFile()

	p, err := h.publications.Update(c.Request.Context(), c.Param("id"), in, file)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePublication 删除出版物及其文件
// @Summary 删除出版物
// @Tags 管理
// @Security BearerAuth
// @Param id path string true "出版物ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/publications/{id} [delete]
func (h *Handler) DeletePublication(c *gin.Context) {
	if err := h.publications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
