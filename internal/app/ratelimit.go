package app

import (
	"strconv"
	"time"

	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/ratelimit"
)

// InitializeRateLimiter builds the request limiter from configuration. With
// Redis connected the window is shared across instances; without it each
// instance counts on its own. Returns nil when rate limiting is disabled.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if !app.Config.RateLimitEnabled {
		return nil
	}

	limit, _ := strconv.Atoi(app.Config.RateLimitDefault)
	if limit <= 0 {
		limit = 100
	}

	window, _ := time.ParseDuration(app.Config.RateLimitWindow)
	if window <= 0 {
		window = time.Minute
	}

	backend := "memory"
	var limiter ratelimit.Limiter
	if app.RedisClient != nil {
		limiter = ratelimit.NewRedisLimiter(app.RedisClient, limit, window)
		backend = "redis"
	} else {
		limiter = ratelimit.NewWindowLimiter(limit, window)
	}

	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{"limit", limit},
		logging.Field{"window", window.String()},
		logging.Field{"backend", backend})

	return limiter
}
