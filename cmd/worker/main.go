package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/config"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/metrics"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/queue"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/storage"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/transcoder"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/usecase"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/videofiles/repository"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/worker"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	log := logger.NewApiLogger(&logger.Config{
		Development: cfg.Server.LogLevel == "debug",
		Level:       cfg.Server.LogLevel,
		Encoding:    "json",
	}, cfg.Server.AppName)

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Postgres.DSN)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warnf("failed to close postgres connection: %v", err)
		}
	}()

	m := metrics.New(cfg.Server.AppName)
	metricsSrv := metrics.NewServer(m, log)
	metricsSrv.Start(cfg.Worker.MetricsAddr)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownGrace)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("metrics server shutdown error: %v", err)
		}
	}()

	storageBackend, err := buildStorage(ctx, cfg, log)
	if err != nil {
		return errors.Wrap(err, "init storage backend")
	}

	repo := repository.NewVideoRepo(db)
	engine := transcoder.NewFFmpegProcessor(cfg.Transcode.FFmpegPath, cfg.Transcode.FFprobePath, cfg.Transcode.TempDir, log)

	transcodeOpts := models.TranscodeOptions{
		TargetWidth:  cfg.Transcode.TargetWidth,
		TargetHeight: cfg.Transcode.TargetHeight,
		TargetFormat: "mp4",
	}

	var redisClient *redis.Client
	if cfg.Queue.Backend == config.QueueBackendStream {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.Stream.Addr,
			Username: cfg.Queue.Stream.Username,
			Password: cfg.Queue.Stream.Password,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warnf("failed to close redis client: %v", err)
			}
		}()
	}

	factory := func(workerID string) (worker.Task, error) {
		q, err := buildQueue(ctx, cfg, redisClient, m, log, workerID)
		if err != nil {
			return nil, err
		}
		return usecase.New(q, storageBackend, repo, engine, m, log, cfg.Worker.ProcessingTimeout, transcodeOpts, workerID), nil
	}

	log.Infof("video worker starting: pool_size=%d queue=%s storage=%s", cfg.Worker.PoolSize, cfg.Queue.Backend, cfg.Storage.Backend)

	pool := worker.NewPool(cfg.Worker.PoolSize, factory, log)
	return pool.Run(ctx, cfg.Worker.ShutdownGrace)
}

func buildStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendWebDAV:
		return storage.NewWebDAVStorage(cfg.Storage.WebDAV.BaseURL, cfg.Storage.WebDAV.Root, cfg.Storage.WebDAV.Username, cfg.Storage.WebDAV.Password, log), nil
	case config.StorageBackendS3:
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Region, cfg.Storage.S3.Bucket, cfg.Storage.S3.KeyPrefix, cfg.Storage.S3.AccessKey, cfg.Storage.S3.SecretKey, cfg.Storage.S3.Endpoint, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildQueue(ctx context.Context, cfg *config.Config, redisClient *redis.Client, m *metrics.Metrics, log logger.Logger, workerID string) (queue.MessageQueue, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendStream:
		consumer := cfg.Queue.Stream.ConsumerBase + "-" + workerID
		return queue.NewStreamQueue(ctx, redisClient, cfg.Queue.Stream.Stream, cfg.Queue.Stream.Group, consumer, cfg.Queue.Stream.BlockTimeout, cfg.Queue.Stream.MaxDeliveries, log, m)
	case config.QueueBackendSQS:
		return queue.NewSQSQueue(ctx, cfg.Queue.SQS.QueueURL, cfg.Queue.SQS.Region, cfg.Queue.SQS.MaxDeliveries, cfg.Queue.SQS.WaitSeconds, log, m, workerID)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}
