package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/hstu-emis/admin-gateway/api/swagger"
	"github.com/hstu-emis/admin-gateway/internal/handler"
	"github.com/hstu-emis/admin-gateway/internal/middleware"
	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/repository"
	"github.com/hstu-emis/admin-gateway/internal/service"
	"github.com/hstu-emis/admin-gateway/internal/store"
	"github.com/hstu-emis/admin-gateway/internal/upstream"
	"github.com/hstu-emis/admin-gateway/pkg/cache"
	"github.com/hstu-emis/admin-gateway/pkg/config"
	"github.com/hstu-emis/admin-gateway/pkg/database"
	"github.com/hstu-emis/admin-gateway/pkg/jobs"
	"github.com/hstu-emis/admin-gateway/pkg/logger"
	corsmiddleware "github.com/hstu-emis/admin-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/hstu-emis/admin-gateway/pkg/middleware/requestid"
	"github.com/hstu-emis/admin-gateway/pkg/storage"
)

// @title EMIS Admin Gateway
// @version 0.1.0
// @description Session and academic-record gateway for the EMIS admin dashboards
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var sessionStore store.SessionStore
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, sessions will not survive restarts", zap.Error(err))
		sessionStore = store.NewMemoryStore()
	} else {
		sessionStore = store.NewRedisStore(redisClient, cfg.Session.TTL)
	}

	var auditRepo *repository.AuditRepository
	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(cfg.Audit.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect audit database", "error", err)
		}
		auditRepo = repository.NewAuditRepository(db)
	}

	metricsSvc := service.NewMetricsService()
	backend := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logr)

	var auditSink service.AuditRecorder
	if auditRepo != nil {
		auditSink = auditRepo
	}

	sessions := service.NewSessionService(sessionStore, backend, auditSink, metricsSvc, nil, logr, service.SessionConfig{
		TokenLeeway: cfg.Session.TokenLeeway,
	})
	records := service.NewRecordService(sessions, backend, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(sessions, records, exportStorage, signer, auditSink, metricsSvc, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	exportQueue := jobs.NewQueue("transcript_exports", exports.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportQueue.Start(context.Background())
	defer exportQueue.Stop()
	exports.AttachQueue(exportQueue)

	go runExportCleanup(context.Background(), exports, cfg, logr)

	authHandler := handler.NewAuthHandler(sessions)
	recordHandler := handler.NewRecordHandler(records)
	exportHandler := handler.NewExportHandler(exports)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// Signed download tokens carry their own authorization.
	api.GET("/exports/download/:token", exportHandler.DownloadArtifact)

	authed := api.Group("")
	authed.Use(middleware.Session(sessions))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	staffRoles := middleware.RequireRoles(models.RoleAdministrator, models.RoleStaff, models.RoleTeacher)
	authed.GET("/students/:username", staffRoles, recordHandler.GetStudent)
	authed.GET("/students/:username/academic-records", staffRoles, recordHandler.ListRecords)
	authed.GET("/students/:username/academic-records/export", staffRoles, exportHandler.Download)
	authed.POST("/students/:username/academic-records/export-jobs", staffRoles, exportHandler.CreateJob)
	authed.GET("/export-jobs/:id", exportHandler.JobStatus)

	if auditRepo != nil {
		auditHandler := handler.NewAuditHandler(auditRepo)
		authed.GET("/audit",
			middleware.RequireRoles(models.RoleAdministrator, models.RoleStaff),
			middleware.RequirePermission(sessions, "view_audit_log"),
			auditHandler.List,
		)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("gateway starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("gateway failed", "error", err)
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, cfg *config.Config, logr *zap.Logger) {
	ticker := time.NewTicker(cfg.Exports.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logr.Sugar().Infow("export artifacts cleaned", "count", len(deleted))
			}
		}
	}
}
