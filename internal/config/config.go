package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// QueueBackend selects which message-queue adapter the bootstrap wires up.
type QueueBackend string

const (
	QueueBackendStream QueueBackend = "stream"
	QueueBackendSQS    QueueBackend = "visibility-timeout"
)

// StorageBackend selects which object-storage adapter the bootstrap wires up.
type StorageBackend string

const (
	StorageBackendWebDAV StorageBackend = "webdav"
	StorageBackendS3     StorageBackend = "s3"
)

type ServerConfig struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	LogLevel string `mapstructure:"log_level"`
}

type WorkerConfig struct {
	PoolSize          int           `mapstructure:"pool_size"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
	ShutdownGrace     time.Duration `mapstructure:"shutdown_grace"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

type StreamQueueConfig struct {
	Addr          string        `mapstructure:"addr"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Stream        string        `mapstructure:"stream"`
	Group         string        `mapstructure:"group"`
	ConsumerBase  string        `mapstructure:"consumer_base"`
	BlockTimeout  time.Duration `mapstructure:"block_timeout"`
	MaxDeliveries int           `mapstructure:"max_deliveries"`
}

type SQSQueueConfig struct {
	QueueURL      string `mapstructure:"queue_url"`
	Region        string `mapstructure:"region"`
	WaitSeconds   int32  `mapstructure:"wait_seconds"`
	MaxDeliveries int    `mapstructure:"max_deliveries"`
}

type QueueConfig struct {
	Backend QueueBackend      `mapstructure:"backend" validate:"required"`
	Stream  StreamQueueConfig `mapstructure:"stream"`
	SQS     SQSQueueConfig    `mapstructure:"sqs"`
}

type WebDAVConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Root     string `mapstructure:"root"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend" validate:"required"`
	WebDAV  WebDAVConfig   `mapstructure:"webdav"`
	S3      S3Config       `mapstructure:"s3"`
}

type TranscodeConfig struct {
	FFmpegPath   string `mapstructure:"ffmpeg_path"`
	FFprobePath  string `mapstructure:"ffprobe_path"`
	TempDir      string `mapstructure:"temp_dir"`
	TargetWidth  int    `mapstructure:"target_width"`
	TargetHeight int    `mapstructure:"target_height"`
}

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Postgres  DBConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Transcode TranscodeConfig
}

// Load reads environment variables (optionally seeded from an env file),
// applies defaults, and validates the result. It never returns a partially
// initialized config: on any error the returned *Config is nil.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !isFileNotExist(err) {
			return nil, errors.Wrapf(err, "load env file %s", envFile)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			AppName:  v.GetString("app_name"),
			LogLevel: v.GetString("log_level"),
		},
		Worker: WorkerConfig{
			PoolSize:          v.GetInt("worker_pool_size"),
			ProcessingTimeout: v.GetDuration("processing_timeout"),
			MetricsAddr:       v.GetString("metrics_addr"),
			ShutdownGrace:     v.GetDuration("shutdown_grace"),
		},
		Postgres: DBConfig{
			DSN: v.GetString("postgres_dsn"),
		},
		Queue: QueueConfig{
			Backend: QueueBackend(v.GetString("queue_backend")),
			Stream: StreamQueueConfig{
				Addr:          v.GetString("redis_addr"),
				Username:      v.GetString("redis_username"),
				Password:      v.GetString("redis_password"),
				Stream:        v.GetString("redis_stream"),
				Group:         v.GetString("redis_group"),
				ConsumerBase:  v.GetString("redis_consumer_base"),
				BlockTimeout:  v.GetDuration("redis_block_timeout"),
				MaxDeliveries: v.GetInt("redis_max_deliveries"),
			},
			SQS: SQSQueueConfig{
				QueueURL:      v.GetString("sqs_queue_url"),
				Region:        v.GetString("sqs_region"),
				WaitSeconds:   int32(v.GetInt("sqs_wait_seconds")),
				MaxDeliveries: v.GetInt("sqs_max_deliveries"),
			},
		},
		Storage: StorageConfig{
			Backend: StorageBackend(v.GetString("storage_backend")),
			WebDAV: WebDAVConfig{
				BaseURL:  v.GetString("webdav_base_url"),
				Root:     v.GetString("webdav_root"),
				Username: v.GetString("webdav_username"),
				Password: v.GetString("webdav_password"),
			},
			S3: S3Config{
				Bucket:    v.GetString("s3_bucket"),
				Region:    v.GetString("s3_region"),
				AccessKey: v.GetString("s3_access_key"),
				SecretKey: v.GetString("s3_secret_key"),
				Endpoint:  v.GetString("s3_endpoint"),
				KeyPrefix: v.GetString("s3_key_prefix"),
			},
		},
		Transcode: TranscodeConfig{
			FFmpegPath:   v.GetString("ffmpeg_path"),
			FFprobePath:  v.GetString("ffprobe_path"),
			TempDir:      v.GetString("video_temp_dir"),
			TargetWidth:  v.GetInt("transcode_target_width"),
			TargetHeight: v.GetInt("transcode_target_height"),
		},
	}

	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 1
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "video-worker")
	v.SetDefault("log_level", "info")
	v.SetDefault("worker_pool_size", 4)
	v.SetDefault("processing_timeout", 5*time.Minute)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("shutdown_grace", 30*time.Second)

	v.SetDefault("queue_backend", string(QueueBackendStream))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_stream", "video_tasks")
	v.SetDefault("redis_group", "video_worker")
	v.SetDefault("redis_consumer_base", "video_worker")
	v.SetDefault("redis_block_timeout", 5*time.Second)
	v.SetDefault("redis_max_deliveries", 5)
	v.SetDefault("sqs_wait_seconds", 20)
	v.SetDefault("sqs_max_deliveries", 5)

	v.SetDefault("storage_backend", string(StorageBackendS3))
	v.SetDefault("webdav_root", "/remote.php/dav/files")

	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("video_temp_dir", "")
	v.SetDefault("transcode_target_width", 1280)
	v.SetDefault("transcode_target_height", 720)
}

var validatorInstance = validator.New()

func validate(cfg *Config) error {
	if err := validatorInstance.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	switch cfg.Queue.Backend {
	case QueueBackendStream:
		if cfg.Queue.Stream.Addr == "" {
			return errors.New("queue backend=stream requires REDIS_ADDR")
		}
	case QueueBackendSQS:
		if cfg.Queue.SQS.QueueURL == "" {
			return errors.New("queue backend=visibility-timeout requires SQS_QUEUE_URL")
		}
	default:
		return errors.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}

	switch cfg.Storage.Backend {
	case StorageBackendWebDAV:
		w := cfg.Storage.WebDAV
		if w.BaseURL == "" || w.Username == "" || w.Password == "" {
			return errors.New("storage backend=webdav requires WEBDAV_BASE_URL, WEBDAV_USERNAME and WEBDAV_PASSWORD")
		}
	case StorageBackendS3:
		if cfg.Storage.S3.Bucket == "" {
			return errors.New("storage backend=s3 requires S3_BUCKET")
		}
	default:
		return errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return nil
}

func isFileNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") || strings.Contains(err.Error(), "cannot find the file")
}
