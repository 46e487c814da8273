package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpdto "github.com/vibast-solutions/ms-go-hr-auth/app/dto/http"
	"github.com/vibast-solutions/ms-go-hr-auth/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const redisCallTimeout = 500 * time.Millisecond

type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiterStore is a fixed-window counter shared by every replica.
// When Redis is unreachable requests are let through.
type RedisRateLimiterStore struct {
	client windowCounter
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiterStore(client windowCounter, prefix string, limit int, window time.Duration) *RedisRateLimiterStore {
	if window < time.Second {
		window = time.Second
	}
	return &RedisRateLimiterStore{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	bucket := s.now().Unix() / int64(s.window/time.Second)
	key := fmt.Sprintf("%s:%s:%d", s.prefix, identifier, bucket)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		logrus.WithError(err).Warn("Rate limiter store unavailable, allowing request")
		return true, nil
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to set rate limit window expiry")
		}
	}

	return count <= s.limit, nil
}

// NewRateLimiterStore picks the store named by cfg.RateLimit.Store. The redis
// client is only used for the "redis" store.
func NewRateLimiterStore(cfg *config.Config, client windowCounter) echomiddleware.RateLimiterStore {
	if cfg.RateLimit.Store == "redis" && client != nil {
		return NewRedisRateLimiterStore(client, cfg.App.Name+":ratelimit", cfg.RateLimit.Burst, cfg.RateLimit.Window)
	}

	return echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RateLimit.RPS),
		Burst:     cfg.RateLimit.Burst,
		ExpiresIn: 3 * time.Minute,
	})
}

// RateLimit limits requests per client IP.
func RateLimit(store echomiddleware.RateLimiterStore) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logrus.WithError(err).Warn("Rate limiter could not identify client")
			return c.JSON(http.StatusForbidden, httpdto.ErrorResponse{Message: "forbidden"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logrus.WithField("client", identifier).Warn("Rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, httpdto.ErrorResponse{Message: "too many requests"})
		},
	})
}
