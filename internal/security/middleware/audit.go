package middleware

import (
	"net/http"
	"strings"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
)

// AuditMiddleware records mutating pump and metric operations with the acting
// user before they reach the handlers.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserIDFromContext(r.Context())

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/api/pumps":
				auditLog.LogPumpMutation(r.Context(), userID, "create", "", "initiated")
			case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/pumps/"):
				auditLog.LogPumpMutation(r.Context(), userID, "update", pathID(r.URL.Path, "/api/pumps/"), "initiated")
			case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/pumps/"):
				auditLog.LogPumpMutation(r.Context(), userID, "delete", pathID(r.URL.Path, "/api/pumps/"), "initiated")
			case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/metrics/"):
				auditLog.LogMetricRecorded(r.Context(), userID, pathID(r.URL.Path, "/api/metrics/"), "initiated")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// pathID extracts the resource id segment following the prefix. The audit
// middleware runs before routing, so mux path values are not available yet.
func pathID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}
