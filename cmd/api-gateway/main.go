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

	_ "github.com/noah-isme/studio-pos-api/api/swagger"
	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/handler"
	"github.com/noah-isme/studio-pos-api/internal/middleware"
	"github.com/noah-isme/studio-pos-api/internal/models"
	"github.com/noah-isme/studio-pos-api/internal/repository"
	"github.com/noah-isme/studio-pos-api/internal/service"
	"github.com/noah-isme/studio-pos-api/pkg/cache"
	"github.com/noah-isme/studio-pos-api/pkg/config"
	"github.com/noah-isme/studio-pos-api/pkg/database"
	"github.com/noah-isme/studio-pos-api/pkg/export"
	"github.com/noah-isme/studio-pos-api/pkg/jobs"
	"github.com/noah-isme/studio-pos-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studio-pos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studio-pos-api/pkg/middleware/requestid"
	"github.com/noah-isme/studio-pos-api/pkg/storage"
)

// @title Studio POS API
// @version 1.0.0
// @description Point of sale and student management for a dance studio
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The board falls back to rebuilding on every request.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	clock, err := billing.NewStudioClock(cfg.Billing.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("failed to load billing timezone", "timezone", cfg.Billing.Timezone, "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studio-pos-api",
		Audience:           []string{"studio-pos"},
	})
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, courseRepo, registerRepo, userRepo, cacheRepo, metricsSvc, clock, cfg.Billing.VoidPIN, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, clock, cfg.Billing.AutoInactiveDays, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, courseRepo, cacheRepo, metricsSvc, clock, service.DashboardServiceConfig{
		CacheTTL:         cfg.Dashboard.CacheTTL,
		AutoInactiveDays: cfg.Billing.AutoInactiveDays,
	}, logr)
	registerSvc := service.NewRegisterService(registerRepo, paymentRepo, userRepo, validate, logr)
	expenseSvc := service.NewExpenseService(expenseRepo, registerRepo, clock, validate, logr)

	var receiptSvc *service.ReceiptService
	var receiptQueue *jobs.Queue
	if cfg.Receipts.Enabled {
		receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init receipt storage", "dir", cfg.Receipts.StorageDir, "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
		receiptSvc = service.NewReceiptService(receiptRepo, paymentRepo, studentRepo, userRepo, receiptStore, signer, export.NewReceiptRenderer(), metricsSvc, service.ReceiptServiceConfig{
			StudioName:    cfg.Receipts.StudioName,
			StudioAddress: cfg.Receipts.StudioAddress,
		}, logr)
		receiptQueue = jobs.NewQueue("receipts", receiptSvc.Render, jobs.QueueConfig{
			Workers:    cfg.Receipts.WorkerConcurrency,
			MaxRetries: cfg.Receipts.WorkerRetries,
			Logger:     logr,
		})
		receiptSvc.AttachQueue(receiptQueue)
	}

	r := buildRouter(cfg, logr, routerDeps{
		metrics:   metricsSvc,
		auth:      handler.NewAuthHandler(authSvc),
		authSvc:   authSvc,
		students:  handler.NewStudentHandler(studentSvc),
		courses:   handler.NewCourseHandler(courseSvc),
		payments:  handler.NewPaymentHandler(paymentSvc, receiptSvc),
		dashboard: handler.NewDashboardHandler(dashboardSvc),
		registers: handler.NewRegisterHandler(registerSvc),
		expenses:  handler.NewExpenseHandler(expenseSvc),
		receipts:  receiptHandlerOrNil(receiptSvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if receiptQueue != nil {
		receiptQueue.Start(ctx)
		defer receiptQueue.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

type routerDeps struct {
	metrics   *service.MetricsService
	auth      *handler.AuthHandler
	authSvc   *service.AuthService
	students  *handler.StudentHandler
	courses   *handler.CourseHandler
	payments  *handler.PaymentHandler
	dashboard *handler.DashboardHandler
	registers *handler.RegisterHandler
	expenses  *handler.ExpenseHandler
	receipts  *handler.ReceiptHandler
}

func receiptHandlerOrNil(svc *service.ReceiptService) *handler.ReceiptHandler {
	if svc == nil {
		return nil
	}
	return handler.NewReceiptHandler(svc)
}

func buildRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", deps.auth.Login)
	api.POST("/auth/refresh", deps.auth.Refresh)

	// Receipt downloads authenticate through the signed token instead of a
	// session, so a link can be shared with the student.
	if deps.receipts != nil {
		api.GET("/receipts/download", deps.receipts.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.authSvc))

	authed.POST("/auth/logout", deps.auth.Logout)
	authed.GET("/auth/me", deps.auth.Me)

	authed.GET("/students", deps.students.List)
	authed.POST("/students", deps.students.Create)
	authed.GET("/students/:id", deps.students.Get)
	authed.PUT("/students/:id", deps.students.Update)
	authed.DELETE("/students/:id", middleware.RequireRoles(models.RoleAdmin), deps.students.Deactivate)
	authed.GET("/students/:id/payments", deps.payments.History)
	authed.POST("/students/:id/pause", deps.payments.Pause)
	authed.POST("/students/:id/unpause", deps.payments.Unpause)

	authed.GET("/courses", deps.courses.List)
	authed.GET("/courses/:id", deps.courses.Get)
	authed.POST("/courses", middleware.RequireRoles(models.RoleAdmin), deps.courses.Create)
	authed.PUT("/courses/:id", middleware.RequireRoles(models.RoleAdmin), deps.courses.Update)
	authed.DELETE("/courses/:id", middleware.RequireRoles(models.RoleAdmin), deps.courses.Deactivate)

	authed.POST("/payments", deps.payments.Register)
	authed.POST("/payments/:id/void", middleware.RequireRoles(models.RoleAdmin), deps.payments.Void)

	if cfg.Dashboard.Enabled {
		authed.GET("/dashboard/board", deps.dashboard.Board)
	}

	if cfg.Register.Enabled {
		authed.POST("/register/open", deps.registers.Open)
		authed.GET("/register/current", deps.registers.Current)
		authed.POST("/register/close", middleware.RequireRoles(models.RoleAdmin), deps.registers.Close)
		authed.GET("/register/history", deps.registers.History)
	}

	authed.GET("/expenses", deps.expenses.List)
	authed.POST("/expenses", deps.expenses.Create)
	authed.DELETE("/expenses/:id", middleware.RequireRoles(models.RoleAdmin), deps.expenses.Delete)

	if deps.receipts != nil {
		authed.GET("/receipts/:id/link", deps.receipts.Link)
	}

	return r
}
