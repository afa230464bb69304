package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusmarket/service-booking/internal/application"
	"github.com/campusmarket/service-booking/internal/config"
	bookingEvents "github.com/campusmarket/service-booking/internal/events"
	"github.com/campusmarket/service-booking/internal/handler"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/internal/repository"
	"github.com/campusmarket/service-booking/internal/scheduler"
	"github.com/campusmarket/service-booking/pkg/auth"
	"github.com/campusmarket/service-booking/pkg/database"
	"github.com/campusmarket/service-booking/pkg/health"
	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/campusmarket/service-booking/pkg/logger"
	"github.com/campusmarket/service-booking/pkg/middleware"
	"github.com/campusmarket/service-booking/pkg/response"
	"github.com/campusmarket/service-booking/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName, logger.Options{File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.ListingModel{}, &repository.BookingModel{}, &repository.ReviewModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize notifications; without Redis they go to the log and reminder
	// dedupe stays in process.
	var (
		dispatcher  notification.Dispatcher = notification.NewLogDispatcher(log)
		deduper     scheduler.Deduper       = scheduler.NewLocalDeduper()
		redisClient *redis.Client
	)
	if cfg.RedisConfig.URL != "" {
		redisClient, err = notification.NewRedisClient(ctx, cfg.RedisConfig.URL)
		if err != nil {
			log.Warn("redis unavailable, notifications will only be logged", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			dispatcher = notification.NewRedisDispatcher(redisClient, log)
			deduper = scheduler.NewRedisDeduper(redisClient)
		}
	}

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	listingRepo := repository.NewGormListingRepository(db)
	reviewRepo := repository.NewGormReviewRepository(db)

	// Initialize application services
	bookingService := application.NewBookingService(bookingRepo, listingRepo, dispatcher, kafkaProducer, log)
	listingService := application.NewListingService(listingRepo, log)
	reviewService := application.NewReviewService(reviewRepo, bookingRepo, dispatcher, kafkaProducer, log)

	// Start user event consumer
	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	userConsumer := bookingEvents.NewUserEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = userConsumer.Close() }()

	go func() {
		log.Info("starting user event consumer")
		if err := userConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("user event consumer error", zap.Error(err))
		}
	}()

	// Start reminder job
	reminders, err := scheduler.NewReminderJob(bookingRepo, dispatcher, deduper, log).Start(cfg.ReminderCron)
	if err != nil {
		log.Fatal("failed to start reminder job", zap.Error(err))
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	response.UseJSONFieldNames()
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	if redisClient != nil {
		healthHandler.WithChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(bookingService, reviewService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewListingHandler(listingService, reviewService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stop background work
	cancel()
	<-reminders.Stop().Done()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	// Let in-flight notifications and events finish before the producer closes
	bookingService.Wait()
	reviewService.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
