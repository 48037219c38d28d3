package agent

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/trogdor/trogdor/pkg/metrics"
)

// Server wraps an Agent's HTTP surface (spec §4.6): GET/PUT /status is not
// actually a thing (status is GET-only), GET /faults, PUT /faults, PUT
// /shutdown. Every request is logged TRACE on success or WARN on error, with
// method, path and status (spec §4.6); unknown paths get a 404 with the
// literal body "Unknown path <p>\n".
type Server struct {
	agent  *Agent
	logger zerolog.Logger
	srv    *http.Server
}

// NewServer builds the HTTP server for addr ("host:port" or ":port"). Call
// ListenAndServe to run it; call Close to stop it.
func NewServer(a *Agent, addr string, logger zerolog.Logger) *Server {
	s := &Server{agent: a, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.wrap(s.handleStatus))
	mux.HandleFunc("/faults", s.wrap(s.handleFaults))
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

// wrap logs every request per spec §4.6 and renders a returned error as a
// 400 {"error": msg} body.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		err := h(rec, r)
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, "agent", r.Method, r.URL.Path)
		if err != nil {
			rec.status = http.StatusBadRequest
			rec.Header().Set("Content-Type", "application/json")
			rec.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(rec).Encode(map[string]string{"error": err.Error()})
			metrics.HTTPRequestsTotal.WithLabelValues("agent", r.Method, r.URL.Path, fmt.Sprint(rec.status)).Inc()
			s.logger.Warn().Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", rec.status).Err(err).Msg("request failed")
			return
		}
		metrics.HTTPRequestsTotal.WithLabelValues("agent", r.Method, r.URL.Path, fmt.Sprint(rec.status)).Inc()
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
	return json.NewEncoder(w).Encode(s.agent.Status())
}

type ingestRequest struct {
	Name string          `json:"name"`
	Spec json.RawMessage `json:"spec"`
}

type specKind struct {
	Kind string `json:"kind"`
}

func (s *Server) handleFaults(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(s.agent.Faults())
	case http.MethodPut:
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return err
		}
		var k specKind
		if len(req.Spec) > 0 {
			if err := json.Unmarshal(req.Spec, &k); err != nil {
				return err
			}
		}
		if err := s.agent.Ingest(req.Name, k.Kind, req.Spec); err != nil {
			return err
		}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(map[string]any{})
	default:
		return fmt.Errorf("method %s not allowed on /faults", r.Method)
	}
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPut {
		return fmt.Errorf("method %s not allowed on /shutdown", r.Method)
	}
	s.agent.Shutdown()
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{})
}
