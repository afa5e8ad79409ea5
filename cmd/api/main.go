package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bsorms/bsorms-api/api/swagger"
	"github.com/bsorms/bsorms-api/internal/handler"
	"github.com/bsorms/bsorms-api/internal/middleware"
	"github.com/bsorms/bsorms-api/internal/models"
	"github.com/bsorms/bsorms-api/internal/repository"
	"github.com/bsorms/bsorms-api/internal/service"
	"github.com/bsorms/bsorms-api/pkg/cache"
	"github.com/bsorms/bsorms-api/pkg/config"
	"github.com/bsorms/bsorms-api/pkg/database"
	"github.com/bsorms/bsorms-api/pkg/logger"
	"github.com/bsorms/bsorms-api/pkg/mailer"
	"github.com/bsorms/bsorms-api/pkg/media"
	corsmiddleware "github.com/bsorms/bsorms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bsorms/bsorms-api/pkg/middleware/requestid"
)

// @title Barangay Records API
// @version 1.0.0
// @description Online record management backend for barangay compliance reports
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	mail := mailer.New(cfg.Mailer)
	mediaClient := media.New(cfg.Media)

	userRepo := repository.NewUserRepository(db)
	barangayRepo := repository.NewBarangayRepository(db)
	reportRepo := repository.NewReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	logRepo := repository.NewLogRepository(db)
	otpStore := repository.NewOTPStore(redisClient, cfg.OTP.TTL, cfg.OTP.VerifiedTTL)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, otpStore, barangayRepo, mail, logRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
		OTPDigits:  cfg.OTP.Digits,
	})
	taxonomyService := service.NewTaxonomyService(barangayRepo)
	reportService := service.NewReportService(reportRepo, barangayRepo, notificationRepo, logRepo, mediaClient, validate, logr).WithMetrics(metricsService)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, logRepo, validate, logr).WithMetrics(metricsService)
	logService := service.NewLogService(logRepo, logr)
	userService := service.NewUserService(userRepo, reportRepo, mediaClient, notificationRepo, logRepo, mail, validate, logr)
	exportService := service.NewExportService(reportRepo, logRepo, cfg.Exports.MaxRows, logr)

	authHandler := handler.NewAuthHandler(authService)
	barangayHandler := handler.NewBarangayHandler(taxonomyService)
	reportHandler := handler.NewReportHandler(reportService, exportService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	logHandler := handler.NewLogHandler(logService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/otp/request", authHandler.RequestOTP)
		auth.POST("/otp/verify", authHandler.VerifyOTP)
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/password/forgot", authHandler.ForgotPassword)
		auth.POST("/password/reset", authHandler.ResetPassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	api.GET("/barangays", barangayHandler.List)
	api.GET("/report-types", barangayHandler.ReportTypes)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	reports := protected.Group("/reports")
	{
		reports.GET("", reportHandler.List)
		reports.POST("", middleware.RequireRoles(models.RoleSecretary), reportHandler.Create)
		if cfg.Exports.Enabled {
			reports.GET("/export", middleware.RequireRoles(models.RoleStaff), reportHandler.Export)
		}
		reports.GET("/:id", reportHandler.Get)
		reports.PUT("/:id", middleware.RequireRoles(models.RoleSecretary), reportHandler.Update)
		reports.PATCH("/:id/status", middleware.RequireRoles(models.RoleStaff), reportHandler.UpdateStatus)
		reports.DELETE("/:id", reportHandler.Delete)
	}
	protected.GET("/reports/barangay/:barangayId", reportHandler.ListByBarangay)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("", middleware.RequireRoles(models.RoleStaff), notificationHandler.Create)
		notifications.GET("/recipients", middleware.RequireRoles(models.RoleStaff), notificationHandler.Recipients)
		notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", middleware.RequireRoles(models.RoleStaff), notificationHandler.Delete)
	}

	logs := protected.Group("/logs")
	{
		logs.GET("", logHandler.List)
		logs.DELETE("", middleware.RequireRoles(models.RoleStaff), logHandler.BulkRemove)
	}

	users := protected.Group("/users", middleware.RequireRoles(models.RoleStaff))
	{
		users.GET("", userHandler.List)
		users.PATCH("/:id/status", userHandler.UpdateStatus)
		users.DELETE("/:id", userHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
