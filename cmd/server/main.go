// Package main runs the survey ledger HTTP server with WebSocket updates and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/surveychain/backend/config"
	"github.com/surveychain/backend/internal/auth"
	"github.com/surveychain/backend/internal/exports"
	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/notifications"
	"github.com/surveychain/backend/internal/realtime"
	"github.com/surveychain/backend/internal/surveys"
	"github.com/surveychain/backend/internal/worker"
	"github.com/surveychain/backend/pkg/database"
	"github.com/surveychain/backend/pkg/queue"
	"github.com/surveychain/backend/pkg/redis"
	"github.com/surveychain/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	// Survey store
	var store ledger.Store = ledger.NewMemoryStore()
	if cfg.NeedsPostgres() {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		store = surveys.NewRepository(pool)
	}
	logger.Info("survey store", zap.String("backend", cfg.Ledger.SurveyStore))

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Notifications
	var notificationStore notifications.Store = notifications.NewMemoryStore()
	if cfg.Ledger.NotificationStore == config.StoreRedis {
		notificationStore = notifications.NewRedisStore(rdb.Client, logger)
	}
	notificationService := notifications.NewService(notificationStore, logger)

	var (
		dispatcher ledger.Dispatcher = notifications.NewDirectDispatcher(notificationService)
		processor  *worker.NotificationProcessor
	)
	if cfg.Ledger.Delivery == config.DeliveryQueue {
		jobQueue := queue.NewQueue(rdb.Client, logger)
		dispatcher = notifications.NewQueueDispatcher(jobQueue)
		processor = worker.NewNotificationProcessor(notificationService, jobQueue, logger)
	}

	l := ledger.NewLedger(store, dispatcher, logger)

	// Realtime
	var (
		pub realtime.RedisPublisher
		sub realtime.RedisSubscriber
	)
	if cfg.Realtime.RedisFanout {
		ps := realtime.NewRedisPubSub(rdb.Client, logger)
		pub, sub = ps, ps
	}
	hub := realtime.NewHub(logger, pub, sub)
	hub.SetAudienceChangeHandler(func(surveyID string, count int) {
		logger.Debug("survey viewers", zap.String("survey_id", surveyID), zap.Int("count", count))
	})
	l.SetPublisher(hub)

	// Exports
	var objectStore exports.ObjectStore
	if cfg.AWS.ExportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, exports are returned inline", zap.Error(err))
		} else {
			objectStore = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	router := newRouter(routerDeps{
		ledger:        l,
		jwt:           jwtService,
		hub:           hub,
		notifications: notificationService,
		objectStore:   objectStore,
		corsOrigins:   config.SplitTrim(cfg.Server.CORSAllowedOrigins, ","),
		logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process notification worker when delivery goes through the queue
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if processor != nil {
		go processor.Run(workerCtx)
		logger.Info("notification worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
