package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nbaparkdev/assettrack-ti/api/swagger"
	"github.com/nbaparkdev/assettrack-ti/internal/handler"
	"github.com/nbaparkdev/assettrack-ti/internal/middleware"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/repository"
	"github.com/nbaparkdev/assettrack-ti/internal/service"
	"github.com/nbaparkdev/assettrack-ti/pkg/cache"
	"github.com/nbaparkdev/assettrack-ti/pkg/config"
	"github.com/nbaparkdev/assettrack-ti/pkg/database"
	"github.com/nbaparkdev/assettrack-ti/pkg/jobs"
	"github.com/nbaparkdev/assettrack-ti/pkg/logger"
	"github.com/nbaparkdev/assettrack-ti/pkg/mailer"
	corsmiddleware "github.com/nbaparkdev/assettrack-ti/pkg/middleware/cors"
	reqidmiddleware "github.com/nbaparkdev/assettrack-ti/pkg/middleware/requestid"
)

// @title AssetTrack TI API
// @version 1.0.0
// @description IT asset lifecycle tracking with verified handovers
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if err := database.MigrateUp(db, cfg.Database.MigrationsDir); err != nil {
		logr.Sugar().Fatalw("migrations failed", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, rate limits and dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	maintRepo := repository.NewMaintenanceRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	qrLogRepo := repository.NewQRLogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)

	notifier := service.NewNotificationService(userRepo, mailer.New(cfg.SMTP, logr), jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notifier.Start(ctx)
	defer notifier.Stop()

	authSvc := service.NewAuthService(userRepo, auditRepo, qrLogRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		QRTokenTTL:         cfg.QR.TokenTTL,
		Issuer:             "assettrack-ti",
	})
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)
	assetSvc := service.NewAssetService(assetRepo, movementRepo, workflowRepo, loanRepo, orgRepo, auditRepo, validate, logr)
	loanSvc := service.NewLoanService(loanRepo, workflowRepo, assetRepo, userRepo, qrLogRepo, auditRepo, notifier, validate, logr, cfg.QR.TokenTTL)
	maintSvc := service.NewMaintenanceService(maintRepo, workflowRepo, assetRepo, orgRepo, userRepo, qrLogRepo, auditRepo, notifier, validate, logr, cfg.QR.TokenTTL)
	qrSvc := service.NewQRService(userRepo, qrLogRepo, orgRepo, loanRepo, maintRepo, auditRepo, validate, logr, cfg.QR)
	orgSvc := service.NewOrgService(orgRepo, validate, logr)
	reportSvc := service.NewReportService(assetRepo, loanRepo, maintRepo, movementRepo, redisClient, validate, logr, cfg.Reports)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	assetHandler := handler.NewAssetHandler(assetSvc)
	loanHandler := handler.NewLoanHandler(loanSvc, metricsSvc)
	maintHandler := handler.NewMaintenanceHandler(maintSvc, metricsSvc)
	qrHandler := handler.NewQRHandler(qrSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	orgHandler := handler.NewOrgHandler(orgSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	limiter := middleware.NewRateLimiter(redisClient, logr)
	limit := func(name string, perWindow int, window time.Duration) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return limiter.Limit(name, perWindow, window)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", limit("register", cfg.RateLimit.LoginPerMinute, time.Minute), userHandler.Register)
		auth.POST("/login", limit("login", cfg.RateLimit.LoginPerMinute, time.Minute), authHandler.Login)
		auth.POST("/qr-login", limit("qr_login", cfg.RateLimit.QRLoginPerMinute, time.Minute), authHandler.QRLogin)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Badge profile is public on purpose: anyone scanning a badge may look
	// up who it belongs to, and every lookup is logged.
	api.GET("/qr/:token/profile", qrHandler.Profile)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/qr/badge", qrHandler.Badge)
		authed.GET("/qr/:token/deliveries", middleware.RequireStaff(), qrHandler.PendingDeliveries)
		authed.POST("/qr/pin", limit("pin_setup", cfg.RateLimit.PINSetupPerHour, time.Hour), qrHandler.SetupPIN)
		authed.PUT("/qr/pin", qrHandler.ChangePIN)

		users := authed.Group("/users")
		{
			users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.List)
			users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
			users.GET("/:id", middleware.RBAC("ADMIN", "MANAGER", "SELF"), userHandler.Get)
			users.PUT("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
			users.POST("/:id/qr/regenerate", limit("qr_regenerate", cfg.RateLimit.QRRegeneratePerHour, time.Hour), qrHandler.Regenerate)
			users.GET("/:id/qr/usage", qrHandler.UsageLog)
		}

		assets := authed.Group("/assets")
		{
			assets.GET("", assetHandler.List)
			assets.POST("", middleware.RequireStaff(), assetHandler.Create)
			assets.GET("/:id", assetHandler.Get)
			assets.PUT("/:id", middleware.RequireStaff(), assetHandler.Update)
			assets.DELETE("/:id", middleware.RequireStaff(), assetHandler.Delete)
			assets.POST("/:id/write-off", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assetHandler.WriteOff)
			assets.POST("/:id/store", middleware.RequireStaff(), assetHandler.Store)
			assets.POST("/:id/return", middleware.RequireStaff(), assetHandler.Return)
			assets.POST("/:id/transfer", assetHandler.Transfer)
			assets.GET("/:id/history", assetHandler.History)
			assets.GET("/:id/maintenance-records", middleware.RequireStaff(), maintHandler.AssetRecords)
		}

		loans := authed.Group("/loans")
		{
			loans.POST("", loanHandler.Create)
			loans.GET("", loanHandler.List)
			loans.GET("/:id", loanHandler.Get)
			loans.POST("/:id/assign", middleware.RequireStaff(), loanHandler.AssignAsset)
			loans.POST("/:id/decision", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), loanHandler.Decide)
			loans.DELETE("/:id", loanHandler.Cancel)
			loans.POST("/:id/delivery", middleware.RequireStaff(), limit("delivery", cfg.RateLimit.DeliveryPerMinute, time.Minute), loanHandler.ConfirmDelivery)
		}

		maintenance := authed.Group("/maintenance")
		{
			maintenance.POST("", maintHandler.Create)
			maintenance.GET("", maintHandler.List)
			maintenance.POST("/records", middleware.RequireStaff(), maintHandler.OpenRecord)
			maintenance.GET("/records/:id", middleware.RequireStaff(), maintHandler.Record)
			maintenance.GET("/:id", maintHandler.Get)
			maintenance.POST("/:id/accept", middleware.RequireStaff(), maintHandler.Accept)
			maintenance.POST("/:id/reject", middleware.RequireStaff(), maintHandler.Reject)
			maintenance.POST("/:id/complete", middleware.RequireStaff(), maintHandler.Complete)
			maintenance.POST("/:id/delivery", middleware.RequireStaff(), limit("delivery", cfg.RateLimit.DeliveryPerMinute, time.Minute), maintHandler.ConfirmDelivery)
			maintenance.POST("/:id/receipt", maintHandler.ConfirmReceipt)
		}

		reports := authed.Group("/reports")
		reports.Use(middleware.RequireStaff())
		{
			reports.GET("/dashboard", reportHandler.Dashboard)
			reports.GET("/movements", reportHandler.Movements)
			reports.GET("/maintenance", reportHandler.Maintenance)
		}

		authed.GET("/departments", orgHandler.Departments)
		authed.POST("/departments", middleware.RequireRoles(models.RoleAdmin), orgHandler.CreateDepartment)
		authed.GET("/locations", orgHandler.Locations)
		authed.POST("/locations", middleware.RequireRoles(models.RoleAdmin), orgHandler.CreateLocation)
		authed.GET("/locations/:id/bins", orgHandler.StorageBins)
		authed.POST("/storage-bins", middleware.RequireRoles(models.RoleAdmin), orgHandler.CreateStorageBin)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
