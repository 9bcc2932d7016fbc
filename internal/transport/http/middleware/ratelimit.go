package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
	appCtx "github.com/baechuer/real-time-ressys/services/identity-bridge/internal/pkg/context"
)

type RateLimiter interface {
	Enabled() bool
	Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (redis.Decision, error)
}

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

// RateLimitFixedWindow limits by client IP using the shared Redis counter.
// Without Redis it falls back to an in-process httprate limiter, which is
// per replica but better than nothing.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "unknown"
	}
	if cfg.Limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	if limiter == nil || !limiter.Enabled() {
		return httprate.Limit(
			cfg.Limit,
			cfg.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				RateLimitedTotal.WithLabelValues(cfg.RouteKey).Inc()
				writeErr(w, r, domain.ErrRateLimited(cfg.RouteKey))
			}),
		)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := appCtx.GetClientIP(r.Context())
			if identity == "" {
				identity = remoteHost(r.RemoteAddr)
			}

			dec, err := limiter.Allow(r.Context(), cfg.RouteKey, "ip:"+identity, cfg.Limit, cfg.Window)
			if err != nil {
				// fail open
				logger.WithCtx(r.Context()).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				RateLimitedTotal.WithLabelValues(cfg.RouteKey).Inc()
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds()+0.5)))
				}
				writeErr(w, r, domain.ErrRateLimited(cfg.RouteKey))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
