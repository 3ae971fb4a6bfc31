package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

// RateLimitPolicy is a fixed-window throttle keyed by the authenticated
// user, falling back to the client IP for anonymous traffic.
type RateLimitPolicy struct {
	name      string
	window    time.Duration
	userLimit int
	ipLimit   int
}

// NewRateLimitPolicy builds a policy with the supplied window and limits.
// A zero userLimit disables the per-user counter, likewise for ipLimit.
func NewRateLimitPolicy(name string, window time.Duration, userLimit, ipLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:      strings.ToLower(strings.TrimSpace(name)),
		window:    window,
		userLimit: userLimit,
		ipLimit:   ipLimit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.userLimit > 0 || p.ipLimit > 0)
}

// RateLimit enforces the policy before the handler runs, so a throttled
// request never reaches the service layer.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID != "" && policy.userLimit > 0 {
				key := fmt.Sprintf("rl:user:%s:%s", policy.name, userID)
				allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.userLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					blockRateLimited(ctx, logg, w, policy.name, "user", count, policy.userLimit)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if policy.ipLimit > 0 {
				ip := clientIP(r)
				key := fmt.Sprintf("rl:ip:%s:%s", policy.name, ip)
				allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					blockRateLimited(ctx, logg, w, policy.name, "ip", count, policy.ipLimit)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func blockRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy, scope string, count int64, limit int) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"policy":   policy,
			"scope":    scope,
			"attempts": count,
			"limit":    limit,
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}
