package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/metrics"
)

// HTTPServer serves the display hub websocket, the status and reset
// endpoints and, when enabled, Prometheus metrics.
type HTTPServer struct {
	config *config.Config
	daemon *Daemon
	server *http.Server
	addr   net.Addr
}

func NewHTTPServer(cfg *config.Config, daemon *Daemon) *HTTPServer {
	return &HTTPServer{config: cfg, daemon: daemon}
}

// Handler returns the server's routes.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.daemon.hub)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/reset-position", s.handleResetPosition)
	if s.config.Metrics.Enabled && s.daemon.registry != nil {
		mux.Handle(s.config.Metrics.Path, metrics.HTTPHandler(s.daemon.registry))
	}
	return mux
}

// Start binds the listen address and serves in the background.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.config.Display.Listen)
	if err != nil {
		return errors.NetworkError("failed to bind display server").
			WithCause(err).WithContext("listen", s.config.Display.Listen).Build()
	}
	s.addr = ln.Addr()
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Display server error", logfields.Error(err))
		}
	}()
	slog.Info("Display server started", slog.String("addr", s.addr.String()))
	return nil
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() net.Addr { return s.addr }

func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("display server shutdown: %w", err)
	}
	slog.Info("Display server stopped")
	return nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status     string `json:"status"`
	ClientID   string `json:"client_id"`
	Role       string `json:"role"`
	State      string `json:"state"`
	GatePassed bool   `json:"gate_passed"`
	Viewers    int    `json:"viewers"`
	Date       string `json:"date,omitempty"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d := s.daemon
	resp := StatusResponse{
		Status:     string(d.GetStatus()),
		ClientID:   d.clientID,
		Role:       d.session.Role().String(),
		State:      d.syncer.State().String(),
		GatePassed: d.Gate().Passed,
		Viewers:    d.hub.Viewers(),
	}
	if date := d.syncer.LastDate(); date != nil {
		resp.Date = date.String()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write status", logfields.Error(err))
	}
}

func (s *HTTPServer) handleResetPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.daemon.bus.Publish(r.Context(), events.ResetPosition{}); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
