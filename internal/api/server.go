package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/smarthome-hub/internal/audit"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// shutdownGrace is how long Close waits for in-flight requests.
const shutdownGrace = 10 * time.Second

// ConnectionReporter reports whether a backing connection is up.
// *mqtt.Client satisfies it.
type ConnectionReporter interface {
	IsConnected() bool
}

// Deps holds what the API server needs. Logger and Shared are required.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Shared   *registry.Shared
	Recorder *audit.Recorder    // nil disables auditing and /audit
	DB       *database.DB       // nil hides schema and pool details
	MQTT     ConnectionReporter // nil reports MQTT as disabled

	// DeviceTimeout bounds each device call made by a request.
	// Zero leaves the endpoint default in place.
	DeviceTimeout time.Duration

	Version string
}

// Server serves the REST API and the reading stream.
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	shared        *registry.Shared
	recorder      *audit.Recorder
	db            *database.DB
	mqtt          ConnectionReporter
	deviceTimeout time.Duration
	version       string
	started       time.Time

	stream *Stream

	mu       sync.RWMutex
	http     *http.Server
	listener net.Listener
	stop     context.CancelFunc
}

// New validates deps and builds an unstarted server.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("api: logger is required")
	case deps.Shared == nil:
		return nil, errors.New("api: shared hub is required")
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		shared:        deps.Shared,
		recorder:      deps.Recorder,
		db:            deps.DB,
		mqtt:          deps.MQTT,
		deviceTimeout: deps.DeviceTimeout,
		version:       deps.Version,
		started:       time.Now(),
		stream:        NewStream(deps.WS, deps.Logger),
	}, nil
}

// Stream returns the reading stream, which the telemetry sampler feeds.
func (s *Server) Stream() *Stream {
	return s.stream
}

// Start binds the listener and serves in the background. A bind failure
// (port in use, bad host) is returned here rather than logged later.
//
// Parameters:
//   - ctx: Parent context; cancelling it disconnects stream clients
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	streamCtx, stop := context.WithCancel(ctx)
	go s.stream.Run(streamCtx)

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.Read,
		ReadHeaderTimeout: s.cfg.Timeouts.Read,
		WriteTimeout:      s.cfg.Timeouts.Write,
		IdleTimeout:       s.cfg.Timeouts.Idle,
	}

	s.mu.Lock()
	s.http, s.listener, s.stop = srv, lis, stop
	s.mu.Unlock()

	go func() {
		s.logger.Info("API server listening", "address", lis.Addr().String(), "tls", s.cfg.TLS.Enabled)
		var err error
		if s.cfg.TLS.Enabled {
			err = srv.ServeTLS(lis, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.Serve(lis)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close disconnects stream clients and shuts the listener down, waiting
// up to shutdownGrace for in-flight requests. Closing an unstarted server
// is a no-op.
func (s *Server) Close() error {
	s.mu.RLock()
	srv, stop := s.http, s.stop
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports an error until Start has bound the listener.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.Addr() == "" {
		return errors.New("api server not started")
	}
	return nil
}

// deviceContext bounds a device call made on behalf of r.
func (s *Server) deviceContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.deviceTimeout > 0 {
		return context.WithTimeout(r.Context(), s.deviceTimeout)
	}
	return context.WithCancel(r.Context())
}
