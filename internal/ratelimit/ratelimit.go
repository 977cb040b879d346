package ratelimit

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/docsuite/server/internal/errors"
	"codeberg.org/docsuite/server/internal/logger"
	"codeberg.org/docsuite/server/internal/metrics"
)

// key prefix for limiter counters in redis
const storePrefix = "docsuite:ratelimit"

// returns a per-IP HTTP rate limit middleware
// counters live in redis when a client is given so limits hold across instances
func Middleware(formatted string, client *redis.Client) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	var store limiter.Store

	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   storePrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix: storePrefix,
		})
	}

	middleware := mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithLimitReachedHandler(limitReached),
		mgin.WithErrorHandler(storeError),
	)

	return middleware, nil
}

func limitReached(c *gin.Context) {
	metrics.RateLimitHits.WithLabelValues("http").Inc()

	logger.Warn("http rate limit reached",
		"ip", c.ClientIP(),
		"path", c.FullPath(),
	)

	errors.TooManyRequests(c, "rate limit exceeded, please slow down")
}

// a failing store lets the request through
func storeError(c *gin.Context, err error) {
	logger.ErrorErr(err, "rate limit store error", "path", c.FullPath())
	c.Next()
}
