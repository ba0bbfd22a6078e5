package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-crud-service/cmd/api/infrastructure"
	"user-crud-service/internal/adapter/cache"
	"user-crud-service/internal/adapter/db/postgres"
	ginhandler "user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/middleware"
	ginrouter "user-crud-service/internal/adapter/gin/router"
	"user-crud-service/internal/adapter/repository/cached"
	"user-crud-service/internal/config"
	"user-crud-service/internal/metrics"
	"user-crud-service/internal/usecase/user"
	redisclient "user-crud-service/pkg/redis"
)

// Container holds all application dependencies. Optional components are nil
// when their feature is disabled.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *gorm.DB
	RedisClient   *redisclient.Client
	Registry      *prometheus.Registry
	Metrics       *metrics.Collector
	UserUC        *user.Usecase
	RateLimiter   *middleware.RateLimiter
	UserHandler   *ginhandler.UserHandler
	HealthHandler *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				l.Warn("failed to release resources after init error", zap.Error(cerr))
			}
		}
	}()

	c.DB, err = infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Redis.Enabled {
		c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	var ucOpts []user.Option
	if cfg.App.MetricsEnabled {
		c.Registry = metrics.NewRegistry()
		c.Metrics = metrics.NewCollector(c.Registry)
		ucOpts = append(ucOpts, user.WithMetrics(c.Metrics))
	}

	var repo user.Repository = postgres.NewUserRepoPG(c.DB, l)
	if c.RedisClient != nil {
		userCache := cache.NewRedisUserCache(
			c.RedisClient.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewUserRepository(repo, userCache, l)
		l.Info("user cache enabled", zap.Int("ttl_seconds", cfg.Redis.CacheTTL))
	}

	c.UserUC = user.New(repo, l, ucOpts...)

	if cfg.RateLimit.Enabled {
		c.RateLimiter = middleware.NewRateLimiter(
			c.RedisClient.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
			},
			l,
		)
		l.Info("rate limiting enabled",
			zap.Float64("requests_per_second", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.BurstCapacity),
		)
	}

	c.UserHandler = ginhandler.NewUserHandler(c.UserUC, l)
	c.HealthHandler = ginhandler.NewHealthHandler(sqlDB, cfg.Logger.ServiceName, l)

	return c, nil
}

// RouterOptions returns the router configuration for the wired dependencies.
func (c *Container) RouterOptions() ginrouter.Options {
	opts := ginrouter.Options{
		Users:          c.UserHandler,
		Health:         c.HealthHandler,
		RateLimiter:    c.RateLimiter,
		Metrics:        c.Metrics,
		SwaggerEnabled: c.Config.App.SwaggerEnabled,
		Log:            c.Logger,
	}
	if c.Registry != nil {
		opts.Gatherer = c.Registry
	}
	return opts
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c == nil {
		return nil
	}

	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if c.Logger != nil {
			c.Logger.Info("closing database connection")
		}
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
