package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
)

func TestJWTDenialsAreAudited(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	tm := auth.NewTokenManager("mw-secret", "pump-monitoring-api", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := JWTMiddleware(tm, audit.NewLogger(log), log)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/pumps", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "access_denied") {
		t.Errorf("denied request left no audit record: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "missing token") {
		t.Errorf("audit record missing the denial reason: %s", buf.String())
	}

	buf.Reset()
	req = httptest.NewRequest(http.MethodGet, "/api/pumps", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "invalid token") {
		t.Errorf("rejected token left no audit record: %s", buf.String())
	}
}

func TestJWTPublicPathsSkipAudit(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	tm := auth.NewTokenManager("mw-secret", "pump-monitoring-api", time.Hour)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := JWTMiddleware(tm, audit.NewLogger(log), log)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(buf.String(), "access_denied") {
		t.Errorf("public path produced a denial record: %s", buf.String())
	}
}
