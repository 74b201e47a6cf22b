package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"prsummarizer/internal/classifier"
	"prsummarizer/internal/gmail"
	"prsummarizer/internal/httpserver"
	"prsummarizer/internal/llm"
	"prsummarizer/internal/mime"
	"prsummarizer/internal/mqhandler"
	"prsummarizer/internal/normalize"
	"prsummarizer/internal/pipeline"
	"prsummarizer/internal/scraper"
	"prsummarizer/internal/storage"
	"prsummarizer/internal/summarizer"
	"prsummarizer/pkg/config"
	"prsummarizer/pkg/db"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/mq"
	"prsummarizer/pkg/otel"
	"prsummarizer/pkg/redis"
	"prsummarizer/pkg/util"
)

func main() {
	cfg, err := config.Load(config.GetConfigEnv(), "config")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting prsummarizer worker...", zap.String("env", config.GetConfigEnv()))
	ctx := context.Background()

	shutdownTracing, err := otel.Init(cfg.Tracing, log)
	if err != nil {
		log.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	if err := redis.Ping(ctx, rdb); err != nil {
		log.Warn("Redis unavailable, dedup and retry counting degraded", zap.Error(err))
	}

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Worker.DedupTTL)

	// Sinks
	gcsSink, err := storage.NewGCSSink(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Storage initialization failed", zap.Error(err))
	}
	sinks := []storage.Sink{gcsSink}

	var dbClose func()
	if cfg.DB.Enabled {
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		dbClose = pool.Close

		repo := storage.NewResultRepository(pool, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to ensure results schema", zap.Error(err))
		}
		sinks = append(sinks, repo)
		log.Info("Database connection established")
	}
	sink := storage.NewMultiSink(log, sinks...)

	// Gmail
	fetcher, err := gmail.NewFetcher(ctx, cfg.Gmail, log)
	if err != nil {
		log.Fatal("Gmail client initialization failed", zap.Error(err))
	}

	// Pipeline
	gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Fatal("Gemini client initialization failed", zap.Error(err))
	}
	orchestrator := pipeline.NewOrchestrator(
		mime.NewParser(log),
		normalize.NewNormalizer(normalize.NewHTTPResolver(cfg.Resolver.Timeout, log), log),
		classifier.NewClassifier(gemini, log),
		summarizer.NewSummarizer(gemini, log),
		scraper.NewHTTPScraper(cfg.Scraper, log),
		sink,
		log,
	)

	// MQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.RoutingKey)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}

	handler := mqhandler.NewNotificationHandler(
		fetcher,
		orchestrator,
		publisher,
		deduper,
		retryCounter,
		mqhandler.Options{
			RoutingKey:          cfg.MQ.RoutingKey,
			ProcessedRoutingKey: cfg.MQ.ProcessedRoutingKey,
			MaxRetries:          cfg.Worker.MaxRetries,
		},
		log,
	)

	log.Info("Init consumer", zap.String("queue", cfg.MQ.Queue), zap.Int("concurrency", cfg.Worker.Concurrency))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Queue, cfg.MQ.RoutingKey, cfg.Worker.Concurrency, log)
	if err != nil {
		log.Fatal("Consumer init failed", zap.Error(err))
	}
	consumer.SetHandler(handler.Handle)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.StartConsuming(cfg.Worker.Concurrency); err != nil {
			log.Fatal("Consumer crashed", zap.Error(err))
		}
	}()

	// HTTP: health + metrics
	router := httpserver.NewRouter(log, map[string]httpserver.ReadinessCheck{
		"amqp": func(ctx context.Context) error {
			if !consumer.IsConnected() || !publisher.IsConnected() {
				return errors.New("amqp connection closed")
			}
			return nil
		},
	})
	router.Start(cfg.Server.Port)

	log.Info("Worker running")

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")

	// 先停止消费，等正在处理的邮件完成
	log.Info("Stopping MQ consumer...")
	consumer.Stop()
	select {
	case <-consumerDone:
	case <-time.After(2 * time.Minute):
		log.Warn("Timed out waiting for in-flight messages")
	}
	consumer.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("Closing publisher...")
	publisher.Close()

	if dbClose != nil {
		log.Info("Closing database connection...")
		dbClose()
	}

	log.Info("Closing Redis connection...")
	rdb.Close()

	shutdownTracing()

	log.Info("Worker shutdown complete")
}
