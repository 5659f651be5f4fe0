// Package dashboard serves a small live-monitoring page. It polls the API
// on a ticker, asking it to simulate a reading for every pump, and pushes
// the results to connected browsers over a websocket.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

//go:embed templates/*.html
var templates embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PumpUpdate is one pump's state pushed to the browser
type PumpUpdate struct {
	PumpID  int64              `json:"pump_id"`
	Name    string             `json:"name"`
	Status  domain.PumpStatus  `json:"status"`
	Reading *domain.PumpMetric `json:"reading"`
}

// Server is the dashboard web server
type Server struct {
	mux       *http.ServeMux
	tmpl      *template.Template
	api       *Client
	logger    *slog.Logger
	interval  time.Duration
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan any
}

// NewServer creates a dashboard server polling through the given API
// client. Call Run to start the poll loop.
func NewServer(api *Client, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s := &Server{
		mux:       http.NewServeMux(),
		tmpl:      template.Must(template.ParseFS(templates, "templates/*.html")),
		api:       api,
		logger:    logger,
		interval:  interval,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
	}

	s.mux.HandleFunc("GET /", s.handleIndex)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run drives the broadcast and poll loops until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	go s.handleBroadcast()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.broadcast)
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll simulates a fresh reading for every pump and broadcasts the batch.
func (s *Server) poll(ctx context.Context) {
	pumps, err := s.api.Pumps(ctx)
	if err != nil {
		s.logger.Warn("pump list fetch failed", slog.String("error", err.Error()))
		return
	}

	updates := make([]PumpUpdate, 0, len(pumps))
	for _, pump := range pumps {
		reading, err := s.api.Simulate(ctx, pump.ID)
		if err != nil {
			s.logger.Warn("simulate failed",
				slog.Int64("pump_id", pump.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		status := domain.DeriveStatus(domain.MetricSample{
			FlowRate:          reading.FlowRate,
			Pressure:          reading.Pressure,
			Temperature:       reading.Temperature,
			PowerConsumption:  reading.PowerConsumption,
			CurrentEfficiency: reading.CurrentEfficiency,
			IsOperating:       reading.IsOperating,
		}, &pump.Pump)
		updates = append(updates, PumpUpdate{
			PumpID:  pump.ID,
			Name:    pump.Name,
			Status:  status,
			Reading: reading,
		})
	}

	if len(updates) > 0 {
		s.broadcast <- map[string]any{
			"type":      "update",
			"pumps":     updates,
			"timestamp": time.Now().Unix(),
		}
	}
}

func (s *Server) handleBroadcast() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for conn := range s.clients {
			if err := conn.WriteJSON(msg); err != nil {
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.clientsMu.Unlock()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	// Seed the new browser with the current pump list before registering
	// the connection. Once registered, the broadcast goroutine is the
	// only writer; a concurrent seed write here would corrupt the conn.
	if pumps, err := s.api.Pumps(r.Context()); err == nil {
		if err := conn.WriteJSON(map[string]any{"type": "init", "pumps": pumps}); err != nil {
			conn.Close()
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pumps, err := s.api.Pumps(ctx)
	if err != nil {
		s.logger.Warn("pump list fetch failed", slog.String("error", err.Error()))
	}

	apiStatus := "offline"
	if s.api.Healthy(ctx) {
		apiStatus = "online"
	}

	data := map[string]any{
		"Title":     "Pump Monitoring Dashboard",
		"Pumps":     pumps,
		"APIStatus": apiStatus,
		"Interval":  s.interval.Seconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("template render failed", slog.String("error", err.Error()))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "offline"
	if s.api.Healthy(ctx) {
		status = "online"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
