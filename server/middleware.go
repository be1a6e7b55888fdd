package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"echofm/config"
	"echofm/core/auth"
	"echofm/db"
	"echofm/logger"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromContext extracts the authenticated user id set by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("no user in context")
	}
	return userID, nil
}

// AuthMiddleware validates the bearer token and injects the user id into the
// request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

// corsMiddleware sets permissive CORS headers and answers preflights.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies a fixed-window per-IP limit backed by Redis.
// When Redis is unavailable the limiter fails open; browsing must not depend
// on the accounting store.
func rateLimitMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	window := time.Duration(cfg.RateLimitWindow) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if db.RedisClient == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			key := fmt.Sprintf("ratelimit:%s:%d", ip, time.Now().Unix()/int64(cfg.RateLimitWindow))

			count, err := db.RedisClient.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warn("Rate limiter unavailable", logger.ErrorField(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				db.RedisClient.Expire(r.Context(), key, window)
			}

			if count > int64(cfg.RateLimitRequests) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
