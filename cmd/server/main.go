package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/handlers"
	"github.com/smarttransit/seat-reservation-backend/internal/metrics"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/smarttransit/seat-reservation-backend/pkg/sms"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit Seat Reservation Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB.DB, logger); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	tripRepo := database.NewScheduledTripRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	permitRepo := database.NewBusPermitRepository(db)

	// Redis is optional; without it search is uncached, events stay in-process
	// and rate limiting is off
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.New(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		logger.Info("Redis connection established")
	} else {
		logger.Warn("REDIS_ADDR not set, running without search cache, idempotency locks or rate limiting")
	}

	appMetrics := metrics.New()
	hub := services.NewInventoryHub()

	var (
		searchCache services.SearchCache
		publisher   services.InventoryPublisher = hub
		pubsub      *cache.InventoryPubSub
		limiter     middleware.Limiter
	)
	if rdb != nil {
		redisCache := cache.NewCache(rdb)
		searchCache = redisCache
		pubsub = cache.NewInventoryPubSub(rdb, redisCache)
		publisher = pubsub
		limiter = cache.NewSlidingWindowLimiter(rdb, "booking", cfg.RateLimit.Requests,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
	}

	// Notifications
	notifier := buildNotifier(cfg, logger)
	dispatcher := services.NewNotificationDispatcher(
		notifier,
		cfg.Booking.NotificationWorkers,
		cfg.Booking.NotificationQueue,
		cfg.Booking.NotificationTimeout,
		logger,
		appMetrics,
	)

	// Services
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	gateway := services.NewPaymentGateway(cfg.Payment, logger)

	paymentAudits := database.NewPaymentAuditRepository(db)

	orchestrator := services.NewBookingOrchestratorService(
		tripRepo,
		bookingRepo,
		gateway,
		services.BookingOrchestratorConfig{
			MaxCommitAttempts: cfg.Booking.MaxCommitAttempts,
			PaymentTimeout:    cfg.Booking.PaymentTimeout,
			Currency:          cfg.Payment.Currency,
		},
		logger,
	).WithNotifier(dispatcher).
		WithPublisher(publisher).
		WithMetrics(appMetrics).
		WithPaymentAudit(paymentAudits)
	if rdb != nil {
		orchestrator.WithIdempotencyGuard(cache.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL))
	}

	searchService := services.NewSearchService(tripRepo, searchCache, cfg.Search.CacheTTL, logger, appMetrics)
	tripService := services.NewTripService(permitRepo, tripRepo, bookingRepo, publisher, cfg.Booking.MaxCommitAttempts, logger, appMetrics)
	ticketService := services.NewTicketService(orchestrator, tripRepo, logger)

	cronService := services.NewCronService(tripService, cfg.Cron, logger)
	if err := cronService.Start(ctx); err != nil {
		logger.Fatalf("Failed to start cron jobs: %v", err)
	}

	// Router
	if engine, ok := binding.Validator.Engine().(*playground.Validate); ok {
		if err := validator.RegisterBindings(engine); err != nil {
			logger.Fatalf("Failed to register validators: %v", err)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics(appMetrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Disposition", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, rdb))
	router.GET("/metrics", middleware.MetricsBasicAuth(cfg.Metrics), gin.WrapH(promhttp.Handler()))

	searchHandler := handlers.NewSearchHandler(searchService, logger)
	tripHandler := handlers.NewScheduledTripHandler(tripService, hub, logger)
	bookingHandler := handlers.NewBookingOrchestratorHandler(orchestrator, ticketService, logger)
	permitHandler := handlers.NewPermitHandler(tripService, logger)
	paymentAuditHandler := handlers.NewPaymentAuditHandler(paymentAudits, logger)

	auth := middleware.AuthMiddleware(jwtService, logger)

	v1 := router.Group("/api/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.GET("/search", searchHandler.SearchTrips)
			trips.GET("/:id", tripHandler.GetTrip)
			trips.GET("/:id/seats/stream", tripHandler.StreamSeats)
			trips.POST("/:id/bookings",
				auth,
				middleware.RequireRole(jwt.RoleCommuter),
				middleware.RateLimit(limiter, cfg.RateLimit.Requests, logger),
				bookingHandler.BookSeats,
			)
		}

		bookings := v1.Group("/bookings", auth, middleware.RequireRole(jwt.RoleCommuter, jwt.RoleAdmin))
		{
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/:id/ticket", bookingHandler.DownloadTicket)
			bookings.POST("/:id/cancel", middleware.RateLimit(limiter, cfg.RateLimit.Requests, logger), bookingHandler.CancelBooking)
		}

		operator := v1.Group("/operator", auth, middleware.RequireRole(jwt.RoleOperator, jwt.RoleAdmin))
		{
			operator.GET("/trips", tripHandler.ListOperatorTrips)
			operator.POST("/trips/:id/cancellations", bookingHandler.CancelSeats)
		}

		admin := v1.Group("/admin", auth, middleware.RequireRole(jwt.RoleAdmin))
		{
			admin.POST("/permits", permitHandler.CreatePermit)
			admin.GET("/permits", permitHandler.ListPermits)
			admin.POST("/trips", tripHandler.CreateTrip)
			admin.PUT("/trips/:id", tripHandler.UpdateTrip)
			admin.GET("/bookings/:id/payments", paymentAuditHandler.ListByBooking)
			admin.GET("/payments/:transaction_id", paymentAuditHandler.ListByTransaction)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if pubsub != nil {
		// Events from every instance, this one included, reach local SSE clients
		g.Go(func() error {
			err := pubsub.Subscribe(gctx, func(ctx context.Context, ev models.InventoryEvent) {
				hub.Broadcast(ctx, ev)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cronService.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Notification queue not drained before shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
	logger.Info("Server exited")
}

// buildNotifier always logs and adds SMS and email when configured
func buildNotifier(cfg *config.Config, logger *logrus.Logger) services.Notifier {
	notifiers := services.MultiNotifier{services.NewLogNotifier(logger)}

	if cfg.SMS.Enabled {
		gateway := sms.NewDialogGateway(sms.DialogConfig{
			APIURL:   cfg.SMS.APIURL,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			Mask:     cfg.SMS.Mask,
			Logger:   logger,
		})
		notifiers = append(notifiers, services.NewSMSNotifier(gateway))
		logger.Info("SMS booking notifications enabled")
	}

	if cfg.Email.Enabled {
		notifiers = append(notifiers, services.NewEmailNotifier(cfg.Email))
		logger.Info("Email booking notifications enabled")
	}

	return notifiers
}

// healthCheckHandler reports database and redis reachability
func healthCheckHandler(db database.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		}

		if err := db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "unhealthy"
			body["error"] = err.Error()
		}

		if rdb == nil {
			body["redis"] = "disabled"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["redis"] = "unhealthy"
		} else {
			body["redis"] = "healthy"
		}

		c.JSON(status, body)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
