package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/httputil"
	redispkg "github.com/voxlane/call-bridge-go/internal/redis"
)

// RateCounter is the slice of the redis client the limiter needs.
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// DialRateLimiter bounds outbound dial requests per user with a fixed
// one-minute redis window. The user id is read from the given header; requests
// without one share an "anonymous" bucket.
func DialRateLimiter(client RateCounter, limit int, userHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userHeader)
			if userID == "" {
				userID = "anonymous"
			}

			window := time.Now().Unix() / 60
			key := redispkg.DialRateKey(userID, window)

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				// Fail open: a redis outage must not block dialing.
				log.Warn().Err(err).Msg("dial rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(r.Context(), key, time.Minute)
			}

			if count > int64(limit) {
				log.Warn().
					Str("user_id", userID).
					Int64("count", count).
					Msg("dial rate limit exceeded")
				httputil.WriteError(w, apperrors.RateLimitExceeded())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
