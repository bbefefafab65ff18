package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/admissions-api/api/swagger"
	"github.com/campushq/admissions-api/internal/handler"
	"github.com/campushq/admissions-api/internal/middleware"
	"github.com/campushq/admissions-api/internal/models"
	"github.com/campushq/admissions-api/internal/repository"
	"github.com/campushq/admissions-api/internal/service"
	"github.com/campushq/admissions-api/pkg/cache"
	"github.com/campushq/admissions-api/pkg/config"
	"github.com/campushq/admissions-api/pkg/database"
	"github.com/campushq/admissions-api/pkg/logger"
	corsmiddleware "github.com/campushq/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/admissions-api/pkg/middleware/requestid"
)

// @title CampusHQ Admissions API
// @version 1.0.0
// @description University admissions, merit-list settlement and enrollment service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Admissions.MeritCacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	hostelRepo := repository.NewHostelRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, validate, logr)
	applicationService := service.NewApplicationService(applicationRepo, courseRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, validate, logr)
	hostelService := service.NewHostelService(hostelRepo, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, logr)
	meritService := service.NewMeritService(
		applicationRepo, courseRepo, enrollmentRepo, userRepo, hostelRepo, notificationRepo,
		cacheService, metricsService, validate, logr, cfg.Admissions.HostelsEnabled,
	)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportService = service.NewExportService(meritService, logr)
	}

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	hostelHandler := handler.NewHostelHandler(hostelService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	meritHandler := handler.NewMeritHandler(meritService, exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
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
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	courses := authed.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
	}

	applications := authed.Group("/applications")
	{
		applications.POST("", middleware.RequireRoles(models.RoleApplicant), applicationHandler.Submit)
		applications.GET("/me", applicationHandler.ListMine)
		applications.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), applicationHandler.List)
	}

	merit := authed.Group("/merit")
	{
		merit.POST("/generate", middleware.RequireRoles(models.RoleAdmin), meritHandler.Generate)
		merit.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), meritHandler.List)
		merit.GET("/export", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), meritHandler.Export)
	}

	enrollments := authed.Group("/enrollments")
	{
		enrollments.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), enrollmentHandler.List)
		enrollments.GET("/me", enrollmentHandler.ListMine)
		enrollments.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), enrollmentHandler.Get)
		enrollments.PUT("/:id/advance", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.AdvanceSemester)
		enrollments.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.UpdateStatus)
	}

	hostels := authed.Group("/hostels")
	{
		hostels.GET("", hostelHandler.List)
		hostels.POST("", middleware.RequireRoles(models.RoleAdmin), hostelHandler.Create)
		hostels.GET("/allocation", middleware.RequireRoles(models.RoleStudent), hostelHandler.MyAllocation)
		hostels.DELETE("/allocation", middleware.RequireRoles(models.RoleStudent), hostelHandler.Vacate)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	}

	users := authed.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole), userHandler.Get)
		users.PUT("/:id/role", middleware.RequireRoles(models.RoleAdmin), userHandler.UpdateRole)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
