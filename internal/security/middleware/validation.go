package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// maxBodyBytes caps request bodies at 10MB.
const maxBodyBytes = 10 << 20

// ValidateJSONContentType ensures mutating requests carry a JSON body and
// caps the body size before handlers decode it.
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

			// Bodyless mutating requests (logout, simulate) pass through.
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				w.Write([]byte(`{"success":false,"message":"Content-Type must be application/json"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
