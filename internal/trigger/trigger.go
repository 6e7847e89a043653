// Package trigger exposes the small HTTP surface around the bot: a health
// probe and the secret-protected endpoint external cron services hit to run
// a reminder sweep.
package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"alphabot/internal/registry"
	"alphabot/pkg/logx"
)

// secretHeader carries the shared secret set on the external cron service.
const secretHeader = "X-Cron-Secret"

type Config struct {
	Enabled bool
	Addr    string // default "127.0.0.1:8390"
	Secret  string // required for the sweep endpoint
}

// SweepFunc runs one reminder pass and reports how many reminders went out.
type SweepFunc func(ctx context.Context) (int, error)

type Server struct {
	cfg   Config
	log   logx.Logger
	store registry.Store
	sweep SweepFunc

	srv *http.Server
}

func New(cfg Config, store registry.Store, sweep SweepFunc, log logx.Logger) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8390"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, log: log, store: store, sweep: sweep}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/sweep", s.handleSweep)
	return r
}

func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // a sweep does two upstream fetches plus deliveries
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		s.log.Info("trigger server listening", logx.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("trigger server failed", logx.Err(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "registry": "disabled"}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			status["registry"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["registry"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(s.cfg.Secret) == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server not configured"})
		return
	}
	got := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Secret)) != 1 {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
		return
	}

	sent, err := s.sweep(r.Context())
	if err != nil {
		// Zero reminders this cycle; the next trigger retries.
		s.log.Warn("triggered sweep failed", logx.Err(err))
		writeJSON(w, http.StatusOK, map[string]any{"notifications_sent": 0})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications_sent": sent})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
