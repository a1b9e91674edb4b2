package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vjranagit/latency/internal/logging"
	"github.com/vjranagit/latency/pkg/stats"
)

// Envelope selects how the latency report is wrapped in the response body
type Envelope string

const (
	// EnvelopeFlat returns the region map as the whole body
	EnvelopeFlat Envelope = "flat"
	// EnvelopeRegions nests the region map under "regions"
	EnvelopeRegions Envelope = "regions"
	// EnvelopeVersioned nests the map under "regions" next to "api_version"
	EnvelopeVersioned Envelope = "versioned"
)

// ParseEnvelope validates an envelope name
func ParseEnvelope(name string) (Envelope, error) {
	switch env := Envelope(strings.ToLower(name)); env {
	case EnvelopeFlat, EnvelopeRegions, EnvelopeVersioned:
		return env, nil
	}
	return "", fmt.Errorf("unknown response envelope %q", name)
}

// Config holds the HTTP server configuration
type Config struct {
	ListenAddr   string
	Endpoint     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
	Envelope     Envelope
	APIVersion   string
	Version      string
	CORS         CORSConfig
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8000",
		Endpoint:     "/api/latency",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxBodyBytes: 1 << 20,
		Envelope:     EnvelopeFlat,
		APIVersion:   "1.0",
		CORS:         DefaultCORSConfig(),
	}
}

// Snapshot is the read-only view of the loaded telemetry the server reports on
type Snapshot interface {
	Len() int
	Regions() []string
}

// Server implements the HTTP API server
type Server struct {
	cfg        Config
	aggregator *stats.Aggregator
	snapshot   Snapshot
	logger     *zap.Logger
	metrics    *metrics
	handler    http.Handler
	server     *http.Server
}

// NewServer creates a new API server
func NewServer(cfg Config, aggregator *stats.Aggregator, snapshot Snapshot, logger *zap.Logger) *Server {
	defaults := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.Envelope == "" {
		cfg.Envelope = defaults.Envelope
	}

	s := &Server{
		cfg:        cfg,
		aggregator: aggregator,
		snapshot:   snapshot,
		logger:     logging.OrNop(logger),
		metrics:    newMetrics(snapshot, aggregator.Cache()),
	}
	s.handler = s.routes()

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Register handlers
	mux.HandleFunc("POST "+s.cfg.Endpoint, s.handleLatency)
	mux.HandleFunc("GET "+s.cfg.Endpoint, s.handleVersion)
	mux.HandleFunc("OPTIONS "+s.cfg.Endpoint, s.handleOptions)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	var h http.Handler = mux
	h = corsMiddleware(s.cfg.CORS, h)
	h = s.observeMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleLatency computes the per-region report for a request
func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLatencyRequest(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	report := s.aggregator.ComputeStats(req.Regions, req.ThresholdMs)
	s.metrics.observeReport(report)

	switch s.cfg.Envelope {
	case EnvelopeRegions:
		writeJSON(w, http.StatusOK, regionsEnvelope{Regions: report})
	case EnvelopeVersioned:
		writeJSON(w, http.StatusOK, versionedEnvelope{APIVersion: s.cfg.APIVersion, Regions: report})
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

// handleVersion returns the static version payload for the endpoint
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Service:    serviceName,
		Version:    s.cfg.Version,
		APIVersion: s.cfg.APIVersion,
		Status:     "ok",
		Records:    s.snapshot.Len(),
		Regions:    s.snapshot.Regions(),
	})
}

// handleOptions answers OPTIONS requests that are not CORS preflights
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD, POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}

	var malformed *MalformedRequestError
	if errors.As(err, &malformed) {
		s.logger.Debug("rejected malformed request",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("field", malformed.Field),
			zap.String("reason", malformed.Reason))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: malformed.Error(),
			Field: malformed.Field,
		})
		return
	}

	s.logger.Error("failed to read request", zap.Error(err))
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
}
