// Package httpserv serves operational endpoints: health, metrics, event
// history, and producer status.
package httpserv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stagegate/stagegate/internal/metrics"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

// Server exposes read-only operational endpoints over HTTP.
type Server struct {
	bus       events.Bus
	verifier  *verify.Verifier
	mux       *http.ServeMux
	logger    *zap.Logger
	startTime time.Time
	httpSrv   *http.Server
}

// New creates a Server over the given bus and verifier. The metric set
// is mounted at /metrics.
func New(bus events.Bus, verifier *verify.Verifier, m *metrics.Set, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		bus:       bus,
		verifier:  verifier,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/status", s.handleStatus)
	if m != nil {
		s.mux.Handle("/metrics", m.Handler())
	}

	return s
}

// Handler returns the server's routing mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins serving on addr in a background goroutine.
func (s *Server) Start(addr string) {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleEvents returns the bus history, optionally filtered with
// ?since=<RFC3339>.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since: "+err.Error(), http.StatusBadRequest)
			return
		}
		since = parsed
	}

	history := s.bus.History(since)
	if history == nil {
		history = []events.Event{}
	}
	writeJSON(w, history)
}

// handleStatus reports uptime, event counts, and the live verification
// state of every registered producer.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	history := s.bus.History(time.Time{})
	retries := 0
	halts := 0
	for _, ev := range history {
		switch ev.Type {
		case events.EventStageRetry:
			retries++
		case events.EventStageHalted:
			halts++
		}
	}

	producers := make(map[string]any)
	for _, name := range s.verifier.Registry().Producers() {
		result, err := s.verifier.Verify(name)
		if err != nil {
			producers[name] = map[string]any{"error": err.Error()}
			continue
		}
		producers[name] = map[string]any{
			"passed":  result.Passed,
			"missing": result.MissingPaths(),
		}
	}

	writeJSON(w, map[string]any{
		"uptime":    time.Since(s.startTime).String(),
		"events":    len(history),
		"retries":   retries,
		"halts":     halts,
		"producers": producers,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
