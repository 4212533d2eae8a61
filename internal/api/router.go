// Package api wires the gin engine: global middleware, the public /api/v1
// routes and the JWT-protected admin routes.
package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/eip-site/config"
	_ "github.com/d60-Lab/eip-site/docs"
	"github.com/d60-Lab/eip-site/internal/api/handler"
	"github.com/d60-Lab/eip-site/internal/api/middleware"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/cache"
)

// 上传大小由服务层按配置校验，这里只防止异常大的请求体
const maxMultipartMemory = 8 << 20

type RouterDependencies struct {
	Config  *config.Config
	Handler *handler.Handler
	Auth    *auth.Manager
	Cache   cache.Cache
	Limiter *middleware.RateLimiter
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.MaxMultipartMemory = maxMultipartMemory
	r.Use(middleware.Recovery(), middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	// 下载接口直接输出文件流，不压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/download$`})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Server.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := deps.Handler
	cached := middleware.PageCache(deps.Cache, cfg.Cache.PageTTL)
	limited := middleware.RateLimit(deps.Limiter)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/home", cached, h.Home)
		v1.GET("/site", h.SiteInfo)
		v1.GET("/about/principles", cached, h.Principles)
		v1.GET("/about/strategies", cached, h.Strategies)
		v1.GET("/about/board", cached, h.Board)
		v1.GET("/what-we-do", cached, h.WhatWeDo)
		v1.GET("/search", cached, h.Search)

		// 详情接口会计数，不走页面缓存
		v1.GET("/posts", cached, h.ListPosts)
		v1.GET("/posts/categories", cached, h.PostCategories)
		v1.GET("/posts/tags", cached, h.PostTags)
		v1.GET("/posts/:slug", h.GetPost)

		v1.GET("/publications", cached, h.ListPublications)
		v1.GET("/publications/categories", cached, h.PublicationCategories)
		v1.GET("/publications/:slug", cached, h.GetPublication)
		v1.GET("/publications/:slug/download", h.DownloadPublication)

		v1.GET("/vacancies", cached, h.ListVacancies)
		v1.GET("/vacancies/:slug", cached, h.GetVacancy)
		v1.POST("/vacancies/:slug/apply", limited, h.Apply)

		v1.POST("/contact", limited, h.Contact)
		v1.POST("/subscribe", limited, h.Subscribe)
		v1.GET("/unsubscribe/:token", h.Unsubscribe)
	}

	v1.POST("/admin/login", limited, h.Login)
	adm := v1.Group("/admin", middleware.JWTAuth(deps.Auth))
	{
		adm.GET("/posts", h.AdminListPosts)
		adm.POST("/posts", h.CreatePost)
		adm.GET("/posts/:id", h.AdminGetPost)
		adm.PUT("/posts/:id", h.UpdatePost)
		adm.POST("/posts/:id/status", h.TransitionPost)
		adm.DELETE("/posts/:id", h.DeletePost)

		adm.POST("/publications", h.CreatePublication)
		adm.PUT("/publications/:id", h.UpdatePublication)
		adm.DELETE("/publications/:id", h.DeletePublication)

		adm.POST("/vacancies", h.CreateVacancy)
		adm.PUT("/vacancies/:id", h.UpdateVacancy)
		adm.DELETE("/vacancies/:id", h.DeleteVacancy)
		adm.GET("/vacancies/:id/applications", h.ListApplications)
		adm.POST("/applications/:id/reviewed", h.MarkReviewed)

		adm.POST("/contacts/:id/status", h.UpdateContactStatus)

		adm.POST("/categories", h.CreateCategory)
		adm.POST("/tags", h.CreateTag)
		adm.POST("/publication-categories", h.CreatePublicationCategory)

		adm.GET("/entities", h.Entities)
		adm.GET("/entities/:entity", h.ListEntity)
		adm.POST("/entities/:entity", h.CreateEntity)
		adm.DELETE("/entities/:entity/:id", h.DeleteEntity)
	}
	return r
}
