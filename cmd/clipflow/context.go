package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/pkg/db/aws"
	"github.com/amankumarsingh77/clipflow/pkg/db/postgres"
	"github.com/amankumarsingh77/clipflow/pkg/db/redis"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	once   sync.Once
	config *config.Config
	logger logger.Logger
	err    error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, envFlag: envFlag}
}

// ensureConfig loads the .env file, then the config file, once per process.
// Environment variables override file values through viper.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		if err := godotenv.Load(strings.TrimSpace(*c.envFlag)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.err = fmt.Errorf("load env file: %w", err)
			return
		}
		v, err := config.LoadConfig(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = fmt.Errorf("loadConfig: %w", err)
			return
		}
		cfg, err := config.ParseConfig(v)
		if err != nil {
			c.err = fmt.Errorf("parseConfig: %w", err)
			return
		}
		appLogger := logger.NewApiLogger(cfg)
		appLogger.InitLogger()
		appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)
		c.config, c.logger = cfg, appLogger
	})
	return c.config, c.err
}

// deps holds the backing connections a command opened. Close releases them.
type deps struct {
	db            *sqlx.DB
	redis         goredis.UniversalClient
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

func (d *deps) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

func (c *commandContext) connect(ctx context.Context, withS3 bool) (*deps, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	d := &deps{}
	if d.db, err = postgres.NewPsqlDB(cfg); err != nil {
		return nil, fmt.Errorf("could not connect to db: %w", err)
	}
	c.logger.Infof("db connected, status: %#v", d.db.Stats())

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, d.db, c.logger); err != nil {
			d.Close()
			return nil, err
		}
	}

	if d.redis, err = redis.NewRedisClient(ctx, cfg); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	c.logger.Infof("redis connected")

	if withS3 {
		if d.s3Client, d.presignClient, err = aws.NewAWSClient(ctx, &cfg.S3); err != nil {
			d.Close()
			return nil, fmt.Errorf("could not connect to s3: %w", err)
		}
	}
	return d, nil
}
