package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reportfetch/internal/observability/types"
)

const maxRequestSize = 10 * 1024 * 1024

// Server serves /metrics and /healthz, plus POST /batch when a Handler is
// set.
type Server struct {
	server  *http.Server
	handler *Handler
	logger  types.Logger
}

// NewServer builds a Server listening on addr. gatherer defaults to
// prometheus.DefaultGatherer.
func NewServer(addr string, h *Handler, gatherer prometheus.Gatherer, logger types.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{handler: h, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	if h != nil {
		mux.HandleFunc("/batch", s.handleBatch)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", types.Fields{"addr": s.server.Addr})
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info(shutdownCtx, "Shutting down HTTP server", nil)
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed. Only POST is supported.", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		s.writeResponse(w, NewErrorResponse(uuid.NewString(), CodeValidation, "Failed to read request body", err.Error()), nil)
		return
	}

	req := NewRequest("http", body)
	if id := r.Header.Get("X-Request-ID"); id != "" {
		req.ID = id
	}
	req.Metadata["http_remote_addr"] = r.RemoteAddr

	resp, err := s.handler.Handle(r.Context(), req)
	s.writeResponse(w, resp, err)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp Response, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", resp.ID)

	if err != nil {
		resp = NewErrorResponse(resp.ID, CodeInternal, "Request processing failed", err.Error())
	}
	w.WriteHeader(statusCode(resp))
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error(context.Background(), "Failed to encode response", err, nil)
	}
}

func statusCode(resp Response) int {
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error == nil {
		return http.StatusInternalServerError
	}
	switch resp.Error.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeBatch:
		return http.StatusServiceUnavailable
	case CodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
