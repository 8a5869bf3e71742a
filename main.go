package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"topup-service/auth"
	"topup-service/controllers"
	"topup-service/database"
	"topup-service/jobs"
	"topup-service/logger"
	"topup-service/messages"
	"topup-service/metrics"
	"topup-service/middleware"
	"topup-service/models"
	awspkg "topup-service/pkg/aws"
	"topup-service/repository"
	"topup-service/routes"
	"topup-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "topup-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	awsCfg, awsErr := awspkg.LoadAWSConfig(context.Background())

	var cwLogs io.Writer
	if cfg.CloudWatchEnabled && awsErr == nil {
		if client, err := awspkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.CloudWatchLogGroup, serviceName); err == nil {
			cwLogs = client
		} else {
			log.Printf("CloudWatch logs disabled: %v", err)
		}
	}

	zapLogger, err := logger.New(cfg.AppEnv, cwLogs)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, S3/SNS/CloudWatch disabled", zap.Error(awsErr))
	}

	m := metrics.New()

	db, err := database.ConnectPostgres(database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
		TimeZone: cfg.PostgresTimeZone,
	}, zapLogger, cfg.AutoMigrate)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		zapLogger.Warn("Redis unavailable, using in-process session store", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if redisClient != nil {
		sessions = auth.NewRedisSessionStore(redisClient)
	}

	var identity auth.ChainIdentity
	if cfg.SupabaseJWTSecret != "" {
		identity = append(identity, auth.NewJWTIdentity(cfg.SupabaseJWTSecret))
	}
	if cfg.SupabaseURL != "" {
		identity = append(identity, auth.NewSupabaseIdentity(cfg.SupabaseURL, cfg.SupabaseAnonKey))
	}

	// Repositories
	orderRepo := repository.NewGormOrderRepository(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	settingsRepo := repository.NewGormSettingsRepository(db)

	admins := auth.NewAdminResolver(settingsRepo, cfg.AdminCacheTTL, zapLogger)
	authenticator := auth.NewAuthenticator(sessions, identity, admins, zapLogger)

	msgs, err := messages.NewCatalog(cfg.NotificationLocale)
	if err != nil {
		zapLogger.Fatal("Failed to load notification messages", zap.Error(err))
	}

	aws := newAWSClients(cfg, awsCfg, awsErr == nil)

	// Services
	dispatcher := services.NewDispatcher(notificationRepo, userRepo, catalogRepo, orderRepo, msgs, aws.publisher, m,
		services.DispatcherConfig{SupportContact: cfg.SupportContact, EventsTopicArn: cfg.OrderEventsTopicArn}, zapLogger)
	verificationService := services.NewVerificationService(orderRepo, dispatcher, m, zapLogger)
	orderService := services.NewOrderService(orderRepo, catalogRepo, dispatcher, verificationService, aws.store, m,
		services.OrderServiceConfig{UploadURLExpiry: cfg.UploadURLExpiry}, zapLogger)
	notificationService := services.NewNotificationService(notificationRepo, zapLogger)
	authService := services.NewAuthService(settingsRepo, userRepo, sessions, cfg.AdminSessionTTL, zapLogger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, 10*time.Minute)
	go limiter.Run(ctx)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(zapLogger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORSOrigins),
		limiter.Middleware(),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Prometheus(m),
		middleware.CloudWatchMetrics(aws.metrics, serviceName),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		Orders:             controllers.NewOrderController(orderService, verificationService),
		UserNotifications:  controllers.NewNotificationController(notificationService, models.RecipientUser),
		AdminNotifications: controllers.NewNotificationController(notificationService, models.RecipientAdmin),
		Auth:               controllers.NewAuthController(authService),
	}, authenticator, m.Handler())

	scheduler := jobs.NewScheduler(5*time.Minute, zapLogger)
	if cfg.ReplayEnabled {
		var locker jobs.Locker
		if redisClient != nil {
			locker = jobs.NewRedsyncLocker(redisClient, zapLogger)
		}
		replayer := services.NewReplayer(orderRepo, dispatcher, cfg.ReplayGrace, zapLogger)
		if err := scheduler.Add(cfg.ReplaySchedule, jobs.NewReplayJob(replayer, locker, 2*time.Minute, m, zapLogger)); err != nil {
			zapLogger.Fatal("Invalid REPLAY_SCHEDULE", zap.String("spec", cfg.ReplaySchedule), zap.Error(err))
		}
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Topup service started",
		zap.String("port", cfg.Port),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("object_store", aws.store != nil),
		zap.Bool("replay", cfg.ReplayEnabled),
	)
	<-quit
	zapLogger.Info("Shutting down topup service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	zapLogger.Info("Server exited cleanly")
}

type awsClients struct {
	store     awspkg.ObjectStore
	publisher awspkg.EventPublisher
	metrics   *awspkg.MetricsClient
}

// newAWSClients leaves every client nil when AWS is unavailable or the
// feature is not configured. Interface fields stay untyped nil.
func newAWSClients(cfg *Config, awsCfg sdkaws.Config, available bool) awsClients {
	var c awsClients
	if !available {
		return c
	}
	if cfg.PaymentProofBucket != "" {
		c.store = awspkg.NewS3Store(awsCfg, cfg.PaymentProofBucket, cfg.S3PublicBaseURL)
	}
	if cfg.OrderEventsTopicArn != "" {
		c.publisher = awspkg.NewSNSEventPublisher(awsCfg)
	}
	c.metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	return c
}
