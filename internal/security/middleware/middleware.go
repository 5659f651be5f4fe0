package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/ratelimit"
)

type ClaimsContextKey struct{}
type UserIDContextKey struct{}

// rateLimitMessage matches the fixed body returned on excess requests.
const rateLimitMessage = `{"success":false,"message":"Too many requests from this IP, please try again later."}`

// publicPath reports whether the path is reachable without a session token.
func publicPath(path string) bool {
	switch path {
	case "/", "/api/health", "/healthz", "/readyz", "/metrics",
		"/api/auth/register", "/api/auth/login":
		return true
	}
	return false
}

// JWTMiddleware verifies the bearer token on protected routes and attaches
// the decoded claims to the request context for ownership checks. Rejected
// requests are recorded in the audit log.
func JWTMiddleware(tm *auth.TokenManager, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				auditLog.LogDenied(r.Context(), 0, "missing token")
				unauthorized(w, "Access token required")
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				auditLog.LogDenied(r.Context(), 0, "malformed authorization header")
				unauthorized(w, "Access token required")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				auditLog.LogDenied(r.Context(), 0, "invalid token")
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, UserIDContextKey{}, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware enforces the fixed-window cap per client address across
// the whole /api surface. Health probes and the metrics endpoint are exempt.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			addr := ClientAddr(r)
			if !limiter.Allow(addr) {
				log.Warn("rate limit exceeded",
					slog.String("client", addr),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(rateLimitMessage))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware honors the configured origins and answers preflights.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr resolves the client address used as the rate-limit key,
// preferring the first X-Forwarded-For hop when present.
func ClientAddr(r *http.Request) string {
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

// GetClaimsFromContext returns the verified token claims, or nil when the
// request was not authenticated.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

// GetUserIDFromContext returns the authenticated user's id, or 0.
func GetUserIDFromContext(ctx context.Context) int64 {
	if v := ctx.Value(UserIDContextKey{}); v != nil {
		return v.(int64)
	}
	return 0
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
