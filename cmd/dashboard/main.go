package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/dashboard"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/infrastructure/logger"
)

func main() {
	v := viper.New()
	v.SetDefault("DASHBOARD_PORT", 8080)
	v.SetDefault("API_URL", "http://localhost:3000")
	v.SetDefault("API_USERNAME", "")
	v.SetDefault("API_PASSWORD", "")
	v.SetDefault("POLL_INTERVAL_SECONDS", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	v.AutomaticEnv()

	log := logger.NewLogger(v.GetString("LOG_LEVEL"), v.GetString("ENVIRONMENT"))

	username := v.GetString("API_USERNAME")
	password := v.GetString("API_PASSWORD")
	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "API_USERNAME and API_PASSWORD are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := dashboard.NewClient(v.GetString("API_URL"))
	if err := api.Login(ctx, username, password); err != nil {
		log.Error("login failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	interval := time.Duration(v.GetInt("POLL_INTERVAL_SECONDS")) * time.Second
	srv := dashboard.NewServer(api, interval, log)
	go srv.Run(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", v.GetInt("DASHBOARD_PORT")),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info("dashboard starting",
		slog.Int("port", v.GetInt("DASHBOARD_PORT")),
		slog.String("api", v.GetString("API_URL")),
		slog.Duration("poll_interval", interval),
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

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer logoutCancel()
	if err := api.Logout(logoutCtx); err != nil {
		log.Warn("logout failed", slog.String("error", err.Error()))
	}

	log.Info("dashboard stopped")
}
