// @title EIP Site API
// @version 1.0
// @description 组织官网内容管理接口：文章、出版物、招聘、留言与订阅。
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/internal/admin"
	"github.com/d60-Lab/eip-site/internal/api"
	"github.com/d60-Lab/eip-site/internal/api/handler"
	"github.com/d60-Lab/eip-site/internal/api/middleware"
	"github.com/d60-Lab/eip-site/internal/notify"
	"github.com/d60-Lab/eip-site/internal/repository"
	"github.com/d60-Lab/eip-site/internal/service"
	"github.com/d60-Lab/eip-site/pkg/auth"
	"github.com/d60-Lab/eip-site/pkg/cache"
	"github.com/d60-Lab/eip-site/pkg/database"
	"github.com/d60-Lab/eip-site/pkg/logger"
	"github.com/d60-Lab/eip-site/pkg/mailer"
	"github.com/d60-Lab/eip-site/pkg/storage"
	"github.com/d60-Lab/eip-site/pkg/storage/fs"
	"github.com/d60-Lab/eip-site/pkg/storage/s3"
	"github.com/d60-Lab/eip-site/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	// Redis 不可用时降级为无缓存，站点仍可服务
	var c cache.Cache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rc.Close()
			c = rc
		}
	}

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return err
	}
	notifier := notify.New(sender, cfg.Mail, cfg.Site)
	clock := service.Clock(nil)

	postRepo := repository.NewPostRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	statRepo := repository.NewStatRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	vacancyRepo := repository.NewVacancyRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	contactRepo := repository.NewContactRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)
	siteRepo := repository.NewSiteRepository(db)

	hits := service.NewHitWriter(postRepo, statRepo)
	authManager := auth.NewManager(cfg.Admin, cfg.JWT)
	h := handler.New(handler.Services{
		Posts:         service.NewPostService(postRepo, taxonomyRepo, hits, c, cfg.Cache, clock),
		Taxonomy:      service.NewTaxonomyService(taxonomyRepo, publicationRepo, c),
		Publications:  service.NewPublicationService(publicationRepo, hits, store, c, cfg, clock),
		Vacancies:     service.NewVacancyService(vacancyRepo, applicationRepo, store, notifier, c, cfg.Intake, clock),
		Contacts:      service.NewContactService(contactRepo, notifier, cfg.Intake),
		Subscriptions: service.NewSubscriptionService(subscriberRepo, notifier, cfg.Intake, clock),
		Search:        service.NewSearchService(postRepo, publicationRepo, vacancyRepo, clock),
		Site:          service.NewSiteService(siteRepo, postRepo, publicationRepo, c, cfg, clock),
	}, admin.NewLister(db), authManager)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}
	router := api.NewRouter(api.RouterDependencies{
		Config:  cfg,
		Handler: h,
		Auth:    authManager,
		Cache:   c,
		Limiter: limiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", server.Addr), zap.String("mode", cfg.Server.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "s3":
		return s3.New(ctx, cfg.S3)
	case "", "fs":
		return fs.New(cfg.FS.BaseDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
