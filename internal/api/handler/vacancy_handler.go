package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/response"
)

// ListVacancies 岗位列表
// @Summary 开放中的岗位列表
// @Tags 招聘
// @Produce json
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.VacancyPage}
// @Router /vacancies [get]
func (h *Handler) ListVacancies(c *gin.Context) {
	page, err := h.vacancies.List(c.Request.Context(), pageParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetVacancy 岗位详情
// @Summary 岗位详情
// @Tags 招聘
// @Produce json
// @Param slug path string true "岗位 slug"
// @Success 200 {object} response.Response{data=service.VacancyDetail}
// @Failure 404 {object} response.Response
// @Router /vacancies/{slug} [get]
func (h *Handler) GetVacancy(c *gin.Context) {
	detail, err := h.vacancies.Detail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// Apply 提交岗位申请
// @Summary 提交申请（multipart）
// @Tags 招聘
// @Accept multipart/form-data
// @Produce json
// @Param slug path string true "岗位 slug"
// @Param full_name formData string true "姓名"
// @Param email formData string true "邮箱"
// @Param phone formData string true "电话"
// @Param cover_letter formData string true "求职信"
// @Param resume formData file true "简历 pdf/doc/docx，≤5MB"
// @Param additional_documents formData file false "附加材料"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /vacancies/{slug}/apply [post]
func (h *Handler) Apply(c *gin.Context) {
	resume, closeResume, err := formUpload(c, "resume")
	if err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	defer closeResume()
	additional, closeAdditional, err := formUpload(c, "additional_documents")
	if err != nil {
		response.BadRequest(c, msgInvalidRequest)
		return
	}
	defer closeAdditional()

	in := service.ApplicationInput{
		FullName:    c.PostForm("full_name"),
		Email:       c.PostForm("email"),
		Phone:       c.PostForm("phone"),
		CoverLetter: c.PostForm("cover_letter"),
		ClientIP:    clientIP(c),
		Resume:      resume,
		Additional:  additional,
	}
	a, err := h.vacancies.Apply(c.Request.Context(), c.Param("slug"), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Message(c, service.AppliedMessage(a.Vacancy.Title))
}

// CreateVacancy 创建岗位
// @Summary 创建岗位
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.VacancyInput true "岗位信息"
// @Success 201 {object} response.Response{data=model.Vacancy}
// @Failure 400 {object} response.Response
// @Router /admin/vacancies [post]
func (h *Handler) CreateVacancy(c *gin.Context) {
	var in service.VacancyInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.vacancies.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, v)
}

// UpdateVacancy 更新岗位
// @Summary 更新岗位（slug 不变）
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "岗位ID"
// @Param request body service.VacancyInput true "岗位信息"
// @Success 200 {object} response.Response{data=model.Vacancy}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/vacancies/{id} [put]
func (h *Handler) UpdateVacancy(c *gin.Context) {
	var in service.VacancyInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.vacancies.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v)
}

// DeleteVacancy 删除岗位，级联删除申请及附件
// @Summary 删除岗位
// @Tags 管理
// @Security BearerAuth
// @Param id path string true "岗位ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/vacancies/{id} [delete]
func (h *Handler) DeleteVacancy(c *gin.Context) {
	if err := h.vacancies.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListApplications 岗位下的申请
// @Summary 申请列表
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param id path string true "岗位ID"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.Page[model.Application]}
// @Failure 404 {object} response.Response
// @Router /admin/vacancies/{id}/applications [get]
func (h *Handler) ListApplications(c *gin.Context) {
	page, err := h.vacancies.ListApplications(c.Request.Context(), c.Param("id"), pageParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

type reviewedRequest struct {
	Reviewed *bool `json:"reviewed" binding:"required"`
}

// MarkReviewed 标记申请已审阅
// @Summary 标记申请审阅状态
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "申请ID"
// @Param request body reviewedRequest true "审阅状态"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/applications/{id}/reviewed [post]
func (h *Handler) MarkReviewed(c *gin.Context) {
	var req reviewedRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.vacancies.MarkReviewed(c.Request.Context(), c.Param("id"), *req.Reviewed); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
