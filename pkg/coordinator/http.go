package coordinator

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/metrics"
)

// Server wraps a Coordinator's HTTP surface (spec §4.8): GET /status, GET
// /nodes, PUT /shutdown. Logging and error-rendering contract is identical
// to pkg/agent's (spec §4.8: "error and logging contract identical to
// §4.6").
type Server struct {
	coord  *Coordinator
	logger zerolog.Logger
	srv    *http.Server
}

// NewServer builds the HTTP server for addr.
func NewServer(c *Coordinator, addr string, logger zerolog.Logger) *Server {
	s := &Server{coord: c, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.wrap(s.handleStatus))
	mux.HandleFunc("/nodes", s.wrap(s.handleNodes))
	mux.HandleFunc("/shutdown", s.wrap(s.handleShutdown))
	mux.HandleFunc("/", s.wrap(s.handleNotFound))
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe starts serving. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the HTTP server immediately.
func (s *Server) Close() error {
	return s.srv.Close()
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		err := h(rec, r)
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, "coordinator", r.Method, r.URL.Path)
		if err != nil {
			rec.status = http.StatusBadRequest
			rec.Header().Set("Content-Type", "application/json")
			rec.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(rec).Encode(map[string]string{"error": err.Error()})
			metrics.HTTPRequestsTotal.WithLabelValues("coordinator", r.Method, r.URL.Path, fmt.Sprint(rec.status)).Inc()
			s.logger.Warn().Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", rec.status).Err(err).Msg("request failed")
			return
		}
		metrics.HTTPRequestsTotal.WithLabelValues("coordinator", r.Method, r.URL.Path, fmt.Sprint(rec.status)).Inc()
		s.logger.Trace().Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", rec.status).Msg("request handled")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "Unknown path %s\n", r.URL.Path)
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return fmt.Errorf("method %s not allowed on /status", r.Method)
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(s.coord.Status())
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return fmt.Errorf("method %s not allowed on /nodes", r.Method)
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{"nodes": s.coord.Nodes()})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPut {
		return fmt.Errorf("method %s not allowed on /shutdown", r.Method)
	}
	s.coord.Shutdown()
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{})
}
