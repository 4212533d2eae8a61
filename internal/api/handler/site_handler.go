package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eip-site/pkg/response"
)

// Home 首页聚合数据
// @Summary 首页（轮播、新闻、原则、伙伴、推荐出版物）
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=service.HomePage}
// @Router /home [get]
func (h *Handler) Home(c *gin.Context) {
	home, err := h.site.Home(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, home)
}

// Principles 指导原则
// @Summary 指导原则
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=[]model.GuidingPrinciple}
// @Router /about/principles [get]
func (h *Handler) Principles(c *gin.Context) {
	items, err := h.site.Principles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, items)
}

// Strategies 战略方向
// @Summary 战略方向
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Strategy}
// @Router /about/strategies [get]
func (h *Handler) Strategies(c *gin.Context) {
	items, err := h.site.Strategies(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, items)
}

// Board 理事会成员
// @Summary 理事会成员
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=[]model.BoardMember}
// @Router /about/board [get]
func (h *Handler) Board(c *gin.Context) {
	items, err := h.site.Board(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, items)
}

// WhatWeDo 项目类文章
// @Summary 项目类文章（最多 6 篇）
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Post}
// @Router /what-we-do [get]
func (h *Handler) WhatWeDo(c *gin.Context) {
	posts, err := h.site.WhatWeDo(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, posts)
}

// SiteInfo 站点元信息
// @Summary 站点元信息
// @Tags 站点
// @Produce json
// @Success 200 {object} response.Response{data=service.SiteInfo}
// @Router /site [get]
func (h *Handler) SiteInfo(c *gin.Context) {
	response.Success(c, h.site.Info())
}

// Search 跨实体搜索
// @Summary 搜索文章、出版物和岗位
// @Tags 搜索
// @Produce json
// @Param q query string true "关键词"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.SearchPage}
// @Router /search [get]
func (h *Handler) Search(c *gin.Context) {
	result, err := h.search.Search(c.Request.Context(), c.Query("q"), pageParam(c), pageSizeParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}
