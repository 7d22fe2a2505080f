package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Upload   UploadConfig
	Queue    QueueConfig
	Tiers    map[string]TierConfig `validate:"required,min=1,dive"`
	Logger   Logger
	Worker   WorkerConfig
}

type ServerConfig struct {
	AppVersion   string
	Port         string `validate:"required"`
	Mode         string
	JwtSecretKey string `validate:"required"`
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	// UploadRateLimit is requests per second per caller on upload routes; 0 disables it.
	UploadRateLimit float64
	UploadRateBurst int
	AllowedOrigins  []string
}

type DBConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"required"`
	User        string
	Password    string
	Name        string `validate:"required"`
	PgDriver    string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
}

type S3Config struct {
	Endpoint      string
	Region        string `validate:"required"`
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	InputBucket   string `validate:"required"`
	// OutputBucket holds derived artifacts (clips, crop coordinates, exports).
	OutputBucket string `validate:"required"`
}

type UploadConfig struct {
	// S3 rejects non-final multipart parts under 5 MiB, so chunks never go below it.
	ChunkSize         int64         `validate:"required,gte=5242880"`
	MaxParts          int           `validate:"required,gte=1,lte=10000"`
	MaxBatchPartURLs  int           `validate:"required,gte=1"`
	PresignTTL        time.Duration `validate:"required"`
	SessionTTL        time.Duration `validate:"required"`
	DownloadURLTTL    time.Duration
	AllowedMimeTypes  []string `validate:"required,min=1"`
	AllowedExtensions []string `validate:"required,min=1"`
}

type QueueConfig struct {
	KeyPrefix    string        `validate:"required"`
	AgingStep    time.Duration `validate:"required"`
	Lease        time.Duration `validate:"required"`
	Retention    time.Duration `validate:"required"`
	PollInterval time.Duration `validate:"required"`
}

// TierConfig carries the numeric limits a plan grants. The core treats them as opaque input.
type TierConfig struct {
	Rank            int   `validate:"required,gte=1"`
	Priority        int   `validate:"required,gte=1,lte=10"`
	// Zero limits are unlimited.
	MaxUploadBytes  int64 `validate:"gte=0"`
	MaxDurationSecs int64 `validate:"gte=0"`
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

type WorkerConfig struct {
	WorkerCount int     `validate:"gte=0"`
	MaxCPUUsage float64 `validate:"gte=0,lte=100"`
	TempDir     string
	// Commands maps an operation type to the sidecar command line that performs it.
	Commands map[string][]string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.uploadratelimit", 10.0)
	v.SetDefault("server.uploadrateburst", 20)
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("upload.chunksize", 5*1024*1024)
	v.SetDefault("upload.maxparts", 10000)
	v.SetDefault("upload.maxbatchparturls", 100)
	v.SetDefault("upload.presignttl", time.Hour)
	v.SetDefault("upload.sessionttl", 24*time.Hour)
	v.SetDefault("upload.downloadurlttl", time.Hour)
	v.SetDefault("upload.allowedmimetypes", []string{"video/mp4", "video/quicktime", "video/webm", "video/x-matroska", "video/x-m4v"})
	v.SetDefault("upload.allowedextensions", []string{".mp4", ".mov", ".webm", ".mkv", ".m4v"})
	v.SetDefault("queue.keyprefix", "clipflow:jobs")
	v.SetDefault("queue.agingstep", time.Minute)
	v.SetDefault("queue.lease", 10*time.Minute)
	v.SetDefault("queue.retention", 24*time.Hour)
	v.SetDefault("queue.pollinterval", time.Second)
	v.SetDefault("worker.workercount", 2)
	v.SetDefault("worker.maxcpuusage", 80.0)
	v.SetDefault("worker.tempdir", "tmp_jobs")
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
