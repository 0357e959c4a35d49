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

	_ "github.com/sparkaj/sparkaj-api/api/swagger"
	"github.com/sparkaj/sparkaj-api/internal/handler"
	"github.com/sparkaj/sparkaj-api/internal/middleware"
	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/repository"
	"github.com/sparkaj/sparkaj-api/internal/service"
	"github.com/sparkaj/sparkaj-api/pkg/cache"
	"github.com/sparkaj/sparkaj-api/pkg/config"
	"github.com/sparkaj/sparkaj-api/pkg/database"
	"github.com/sparkaj/sparkaj-api/pkg/export"
	"github.com/sparkaj/sparkaj-api/pkg/jobs"
	"github.com/sparkaj/sparkaj-api/pkg/logger"
	corsmiddleware "github.com/sparkaj/sparkaj-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sparkaj/sparkaj-api/pkg/middleware/requestid"
	"github.com/sparkaj/sparkaj-api/pkg/storage"
)

// @title Sparkaj API
// @version 1.0.0
// @description Parking spot marketplace with hourly calendar reservations
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	sessionRepo := repository.NewSessionRepository(redisClient, cfg.Checkout.SessionTTL)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sparkaj-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	listingSvc := service.NewListingService(listingRepo, userRepo, validate, logr, cfg.Stripe.Currency)
	availabilitySvc := service.NewAvailabilityService(listingRepo, reservationRepo, cacheRepo, logr, cfg.Calendar.CacheTTL)
	reservationSvc := service.NewReservationService(reservationRepo, logr)
	reviewSvc := service.NewReviewService(reviewRepo, reservationRepo, listingRepo, validate, logr)
	transactionSvc := service.NewTransactionService(transactionRepo, export.NewCSVExporter(), logr)
	reportSvc := service.NewReportService(reportRepo, listingRepo, userRepo, validate, logr)

	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init receipt storage", "error", err)
	}
	receiptSigner := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)

	var receiptSvc *service.ReceiptService
	receiptQueue := jobs.NewQueue("receipts", func(ctx context.Context, job jobs.Job) error {
		return receiptSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Receipts.WorkerConcurrency,
		BufferSize: 64,
		MaxRetries: cfg.Receipts.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	receiptSvc = service.NewReceiptService(receiptRepo, receiptQueue, export.NewReceiptRenderer(), receiptStore, receiptSigner, logr, service.ReceiptServiceConfig{
		ResultTTL: cfg.Receipts.SignedURLTTL,
	})

	metricsSvc.RegisterQueueDepth("receipts", receiptQueue.Pending)

	if cfg.Receipts.Enabled {
		receiptQueue.Start(ctx)
		defer receiptQueue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Receipts.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					receiptSvc.CleanupStale(ctx, 100)
				}
			}
		}()
	}

	gateway := service.NewStripeGateway(cfg.Stripe.SecretKey, logr)
	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Sessions:     sessionRepo,
		Listings:     listingRepo,
		Reservations: reservationRepo,
		Transactions: transactionRepo,
		Users:        userRepo,
		Gateway:      gateway,
		Invalidator:  availabilitySvc,
		Receipts:     receiptSvc,
		Metrics:      metricsSvc,
	}, validate, logr, cfg.Checkout.SubmitTimeout)

	imageStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	listingHandler := handler.NewListingHandler(listingSvc, imageStore)
	calendarHandler := handler.NewCalendarHandler(availabilitySvc)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	transactionHandler := handler.NewTransactionHandler(transactionSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerMinute)/60, cfg.RateLimit.Burst)
		r.Use(limiter.Handler())
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "postgres"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
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
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	listings := api.Group("/listings")
	{
		listings.GET("", listingHandler.Search)
		listings.GET("/cities", listingHandler.Cities)
		listings.GET("/mine", middleware.JWT(authSvc), listingHandler.ListOwned)
		listings.GET("/:id", middleware.OptionalJWT(authSvc), listingHandler.Get)
		listings.GET("/:id/image", listingHandler.Image)
		listings.GET("/:id/calendar", calendarHandler.Week)
		listings.GET("/:id/reviews", reviewHandler.ListByListing)
		listings.GET("/:id/reservations", reservationHandler.Intervals)

		listings.POST("", middleware.JWT(authSvc), listingHandler.Create)
		listings.PUT("/:id", middleware.JWT(authSvc), listingHandler.Update)
		listings.DELETE("/:id", middleware.JWT(authSvc), listingHandler.Delete)
		listings.POST("/:id/image", middleware.JWT(authSvc), listingHandler.UploadImage)
	}

	api.GET("/receipts/download", receiptHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	{
		protected.GET("/users/me", userHandler.Me)
		protected.PUT("/users/me", userHandler.UpdateMe)

		protected.POST("/checkout", checkoutHandler.Start)
		protected.GET("/checkout/:id", checkoutHandler.Get)
		protected.POST("/checkout/:id/confirm", checkoutHandler.Confirm)
		protected.DELETE("/checkout/:id", checkoutHandler.Cancel)

		protected.GET("/reservations", reservationHandler.ListOwn)

		protected.GET("/transactions", transactionHandler.History)
		protected.GET("/transactions/export", transactionHandler.ExportCSV)
		protected.GET("/transactions/:id", transactionHandler.Get)
		protected.GET("/transactions/:id/receipt", receiptHandler.Status)

		protected.POST("/reviews", reviewHandler.Create)
		protected.GET("/reviews/mine", reviewHandler.ListOwn)
		protected.DELETE("/reviews/:id", reviewHandler.Delete)

		protected.POST("/reports", reportHandler.Create)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RBAC("ADMIN"), middleware.Audit(userRepo, models.AuditActionAdminAccess, "admin"))
	{
		admin.GET("/users", userHandler.List)
		admin.PUT("/users/:id/blocked", userHandler.SetBlocked)
		admin.GET("/reports", reportHandler.List)
		admin.POST("/reports/:id/resolve", reportHandler.Resolve)
		admin.DELETE("/reports/:id", reportHandler.Delete)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
