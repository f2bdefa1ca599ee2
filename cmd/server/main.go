package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice-service/config"
	"backoffice-service/internal/api"
	"backoffice-service/internal/broker"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/service"
	"backoffice-service/internal/store"
	"backoffice-service/internal/store/memstore"
	"backoffice-service/internal/util"
	"backoffice-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting backoffice service")

	tp, err := util.InitTracer("backoffice-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	var transactor store.Transactor
	switch cfg.Database.Driver {
	case config.DriverMemory:
		transactor = memstore.New()
		logger.Warn("Using in-memory store; data is lost on restart")
	default:
		if cfg.Database.AutoMigrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				log.Fatalf("Failed to migrate database: %v", err)
			}
			logger.Info("Database migrated")
		}
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		transactor = db
		logger.Info("Database connected")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var notifier service.Notifier
	var relay *worker.ChangeRelay
	switch {
	case cfg.Kafka.Enabled():
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges)
		defer producer.Close()
		notifier = broker.NewChangePublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		if redisClient != nil {
			consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges, cfg.Kafka.ConsumerGroup)
			relay = worker.NewChangeRelay(consumer, redisClient)
			go func() {
				if err := relay.Start(workerCtx); err != nil && workerCtx.Err() == nil {
					logger.Error("Change relay error", zap.Error(err))
				}
			}()
		}
	case redisClient != nil:
		notifier = service.NotifierFunc(func(ctx context.Context, tenantID string, tables ...string) error {
			for _, table := range tables {
				if err := redisClient.PublishChange(ctx, broker.NewChangeEvent(tenantID, table, time.Now().UTC())); err != nil {
					return err
				}
			}
			return nil
		})
	}

	orchestrator := service.NewOrchestrator(transactor, service.NewTenantLocks(), notifier, service.Defaults{
		Currency:       cfg.Business.DefaultCurrency,
		DefaultDueDays: cfg.Business.DefaultDueDays,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []api.Option
	if redisClient != nil {
		opts = append(opts,
			api.WithIdempotency(redisClient, cfg.Business.IdempotencyTTL),
			api.WithChangeStream(redisClient))
	}

	router := gin.Default()
	handler := api.NewHandler(orchestrator, opts...)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if relay != nil {
		if err := relay.Stop(); err != nil {
			logger.Error("Error stopping change relay", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
