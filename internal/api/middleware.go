/**
 * @description
 * Middleware for the kiosk router: session token verification, role checks, the
 * internal API key guard used by the machine controller, audit request metadata and
 * per-IP rate limiting for the recovery endpoints.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5 (through app.TokenIssuer): session token parsing.
 * - internal/app: RateLimiter and request metadata for the auditor.
 */

package api

import (
	"context"
	"crypto/subtle"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/app"
)

// ClaimsContextKey is a custom type for the context key to avoid collisions.
type ClaimsContextKey string

const sessionClaimsKey ClaimsContextKey = "sessionClaims"

// AuthMiddleware validates a session token from the Authorization header. The SSE
// stream cannot set headers from EventSource, so a token query parameter is accepted too.
func AuthMiddleware(tokens *app.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Authorization token required"})
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Invalid or expired token"})
				return
			}

			ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireRole rejects sessions whose role differs from role. It must run after AuthMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetSessionClaims(r.Context())
			if !ok || claims.Role != role {
				writeJSON(w, http.StatusForbidden, errorBody{Message: "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionClaims retrieves the verified session claims from the request context.
func GetSessionClaims(ctx context.Context) (*app.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*app.SessionClaims)
	return claims, ok
}

// InternalAuthMiddleware validates the internal API key for server-to-server calls.
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Internal-API-Key")
			if requiredKey == "" || provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(requiredKey)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestMetaMiddleware records the caller address and user agent for audit entries.
// It expects middleware.RealIP to have run first.
func RequestMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := app.WithRequestMeta(r.Context(), app.RequestMeta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware allows limit requests per client IP per minute for scope.
// Limiter failures are logged and the request is let through.
func RateLimitMiddleware(limiter app.RateLimiter, scope string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), scope, ip, limit, time.Minute)
			if err != nil {
				log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				log.Printf("level=warn component=api msg=\"rate limit exceeded\" scope=%s ip=%s count=%d", scope, ip, count)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, errorBody{Message: "Too many attempts. Please wait and try again."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
