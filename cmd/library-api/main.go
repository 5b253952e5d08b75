package main

import (
	"context"
	"errors"
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
	"go.uber.org/zap"

	_ "github.com/noah-isme/libris-api/api/swagger"
	"github.com/noah-isme/libris-api/internal/handler"
	"github.com/noah-isme/libris-api/internal/middleware"
	"github.com/noah-isme/libris-api/internal/repository"
	"github.com/noah-isme/libris-api/internal/service"
	"github.com/noah-isme/libris-api/pkg/cache"
	"github.com/noah-isme/libris-api/pkg/config"
	"github.com/noah-isme/libris-api/pkg/database"
	"github.com/noah-isme/libris-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/libris-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/libris-api/pkg/middleware/requestid"
)

// @title Libris API
// @version 1.0.0
// @description Library circulation service
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, response cache disabled", zap.Error(err))
		redisClient = nil
	}

	// Repositories
	bookRepo := repository.NewBookRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	lendingRepo := repository.NewLendingRepository(db)
	borrowingRepo := repository.NewBorrowingRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()

	// Services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(cfg.JWT)
	notificationSvc := service.NewNotificationService(notificationRepo, service.NotificationQueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
	}, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	policySvc := service.NewPolicyService(lendingRepo, logr)
	reservationSvc := service.NewReservationService(reservationRepo, bookRepo, studentRepo, borrowingRepo,
		policySvc, notificationSvc, cacheSvc, metricsSvc, validate, logr, cfg.Circulation.DefaultPickupExpiryDays)
	borrowingSvc := service.NewBorrowingService(borrowingRepo, bookRepo, studentRepo,
		policySvc, reservationSvc, notificationSvc, cacheSvc, metricsSvc, validate, logr)
	bookSvc := service.NewBookService(bookRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, lendingRepo, validate, logr)
	lendingSvc := service.NewLendingService(lendingRepo, bookRepo, validate, logr)

	// Handlers
	bookHandler := handler.NewBookHandler(bookSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	borrowingHandler := handler.NewBorrowingHandler(borrowingSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	lendingHandler := handler.NewLendingHandler(lendingSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	listCache := func(prefix string) gin.HandlerFunc {
		return middleware.CacheResponse(cacheSvc, prefix, cfg.Cache.TTL)
	}

	api.GET("/books", listCache("books:"), bookHandler.List)
	api.GET("/books/:id", bookHandler.Get)
	api.POST("/books", bookHandler.Create)
	api.PUT("/books/:id", bookHandler.Update)
	api.DELETE("/books/:id", bookHandler.Delete)

	api.GET("/books/:id/lending-rights", lendingHandler.GetRights)
	api.PUT("/books/:id/lending-rights", lendingHandler.UpsertRights)
	api.DELETE("/books/:id/lending-rights", lendingHandler.DeleteRights)

	api.GET("/students", studentHandler.List)
	api.GET("/students/:id", studentHandler.Get)
	api.POST("/students", studentHandler.Create)
	api.PUT("/students/:id", studentHandler.Update)
	api.POST("/students/:id/ban", studentHandler.Ban)
	api.POST("/students/:id/unban", studentHandler.Unban)

	api.GET("/student-categories", lendingHandler.ListCategories)
	api.GET("/student-categories/:id", lendingHandler.GetCategory)
	api.POST("/student-categories", lendingHandler.CreateCategory)
	api.PUT("/student-categories/:id", lendingHandler.UpdateCategory)

	api.GET("/borrowings", listCache("borrowings:"), borrowingHandler.List)
	api.GET("/borrowings/:id", borrowingHandler.Get)
	api.POST("/borrowings", borrowingHandler.Borrow)
	api.POST("/borrowings/:id/return", borrowingHandler.Return)
	api.PUT("/borrowings/:id", borrowingHandler.Update)
	api.DELETE("/borrowings/:id", borrowingHandler.Delete)
	api.POST("/borrowings/sweep-overdue", borrowingHandler.SweepOverdue)

	api.GET("/reservations", listCache("reservations:"), reservationHandler.List)
	api.GET("/reservations/:id", reservationHandler.Get)
	api.POST("/reservations", reservationHandler.Create)
	api.PATCH("/reservations/:id/status", reservationHandler.UpdateStatus)
	api.POST("/reservations/:id/cancel", reservationHandler.Cancel)
	api.POST("/reservations/:id/checkout", reservationHandler.Checkout)
	api.POST("/reservations/:id/extend", reservationHandler.Extend)
	api.DELETE("/reservations/:id", reservationHandler.Delete)

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
