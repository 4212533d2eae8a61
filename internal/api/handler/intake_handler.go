package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/response"
)

// Contact 提交联系留言
// @Summary 提交联系留言
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body service.ContactInput true "留言内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /contact [post]
func (h *Handler) Contact(c *gin.Context) {
	var in service.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	in.ClientIP = clientIP(c)
	if _, err := h.contacts.Submit(c.Request.Context(), in); err != nil {
		fail(c, err)
		return
	}
	response.Message(c, service.MsgContactReceived)
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe 订阅邮件通讯
// @Summary 订阅邮件通讯（重复订阅幂等）
// @Tags 互动
// @Accept json
// @Produce json
// @Param request body subscribeRequest true "邮箱"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.subscriptions.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Message(c, msg)
}

// Unsubscribe 退订
// @Summary 通过退订令牌退订
// @Tags 互动
// @Produce json
// @Param token path string true "退订令牌"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /unsubscribe/{token} [get]
func (h *Handler) Unsubscribe(c *gin.Context) {
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), c.Param("token")); err != nil {
		fail(c, err)
		return
	}
	response.Message(c, service.MsgUnsubscribed)
}

type contactStatusRequest struct {
	Status model.ContactStatus `json:"status" binding:"required"`
}

// UpdateContactStatus 修改留言处理状态
// @Summary 修改留言状态（new/read/replied/archived）
// @Tags 管理
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "留言ID"
// @Param request body contactStatusRequest true "状态"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/contacts/{id}/status [post]
func (h *Handler) UpdateContactStatus(c *gin.Context) {
	var req contactStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.contacts.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
