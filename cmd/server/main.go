package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/handler"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/infrastructure/logger"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/infrastructure/redis"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/observability/metrics"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/observability/tracing"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/repository"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/ratelimit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
	"github.com/urielfelipevz0z/proyecto-progra-web/migrations"
	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/config"
	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	log.Info("starting pump monitoring server", slog.String("environment", cfg.Environment))

	// Development mode surfaces internal error causes in API responses.
	handler.IncludeErrorDetail(cfg.Development())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional tracing, enabled by OTEL_EXPORTER_OTLP_ENDPOINT
	shutdownTracing, err := tracing.Init(ctx, log, "pump-monitoring-api", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
	}

	// 4. Connect to Postgres and apply migrations
	db, err := database.NewConnectionPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(migrations.FS); err != nil {
		log.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Optional Redis reading cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info("reading cache enabled")
	}

	// 6. Repositories
	userRepo := repository.NewPostgresUserRepository(db.GetDB(), log)
	pumpRepo := repository.NewPostgresPumpRepository(db.GetDB(), log)
	metricRepo := repository.NewPostgresMetricRepository(db.GetDB(), log)

	// 7. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := service.NewAuthService(userRepo, tokenManager, cfg.BcryptCost, log)
	pumpService := service.NewPumpService(pumpRepo, log)

	var readingCache service.ReadingCache
	if redisClient != nil {
		readingCache = redisClient
	}
	metricsService := service.NewMetricsService(pumpRepo, metricRepo, service.NewRandomSampleSource(), readingCache, log)

	// 8. Handlers and routes
	mux := handler.NewRouter(
		handler.NewAuthHandler(authService, log),
		handler.NewPumpHandler(pumpService, log),
		handler.NewMetricsHandler(metricsService, log),
		handler.NewHealthHandler(db, redisClient, log),
	)

	// 9. Middleware chain: request ID -> CORS -> body checks -> rate
	// limit -> JWT -> audit -> prometheus -> otel -> mux. The limiter
	// sits in front of token validation so unauthenticated traffic
	// counts against the window too.
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	auditLogger := audit.NewLogger(log)

	rootHandler := withRequestID(
		middleware.CORSMiddleware(cfg.CORSAllowedOrigins)(
			middleware.ValidateJSONContentType(log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.JWTMiddleware(tokenManager, auditLogger, log)(
						middleware.AuditMiddleware(auditLogger)(
							metrics.HTTPMetricsMiddleware(
								otelhttp.NewHandler(mux, "http.server"),
							),
						),
					),
				),
			),
		),
		log,
	)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitMax),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}

	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
