package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/breezehub/breeze-core/internal/bridge"
	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/infrastructure/config"
	"github.com/breezehub/breeze-core/internal/infrastructure/database"
	"github.com/breezehub/breeze-core/internal/infrastructure/influxdb"
	"github.com/breezehub/breeze-core/internal/infrastructure/logging"
	"github.com/breezehub/breeze-core/internal/infrastructure/mqtt"
)

// shutdownGrace bounds how long Close waits for in-flight requests
// before the remaining connections are cut.
const shutdownGrace = 10 * time.Second

// StateHistory reads recorded fan state transitions. Satisfied by
// fan.SQLiteStateHistoryRepository; narrow so tests can fake it.
type StateHistory interface {
	GetHistory(ctx context.Context, fanID string, limit int) ([]fan.StateHistoryEntry, error)
}

// BridgeMetricsProvider reports MQTT bridge statistics for the metrics endpoint.
type BridgeMetricsProvider interface {
	GetMetrics() bridge.Metrics
}

// Deps collects everything the server needs; optional fields may be nil.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *fan.Registry

	// Optional collaborators. The server degrades feature by feature when
	// these are nil: no MQTT means no WebSocket relay, no History means 503
	// on history reads, no Influx means no telemetry.
	History StateHistory
	MQTT    *mqtt.Client
	Influx  *influxdb.Client
	Bridge  BridgeMetricsProvider
	DB      *database.DB

	Version   string
	Commit    string
	BuildDate string
}

// Server carries the HTTP listener, the router, and the WebSocket hub.
// Build one with New, bring it up with Start, stop it with Close.
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	registry      *fan.Registry
	history       StateHistory
	mqtt          *mqtt.Client
	influx        *influxdb.Client
	bridgeMetrics BridgeMetricsProvider
	db            *database.DB
	version       string
	commit        string
	buildDate     string
	startTime     time.Time
	server        *http.Server
	hub           *Hub
	cancel        context.CancelFunc // stops background goroutines on Close
}

// New checks the required dependencies and returns an unstarted server.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("fan registry is required")
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		registry:      deps.Registry,
		history:       deps.History,
		mqtt:          deps.MQTT,
		influx:        deps.Influx,
		bridgeMetrics: deps.Bridge,
		db:            deps.DB,
		version:       deps.Version,
		commit:        deps.Commit,
		buildDate:     deps.BuildDate,
		startTime:     time.Now().UTC(),
	}, nil
}

// Start brings up the WebSocket hub, wires the bus relay, and launches
// the HTTP listener in the background. It returns once the listener
// goroutine is running; bind failures surface through the error log.
func (s *Server) Start(ctx context.Context) error {
	// The hub gets its own context so Close can stop it without
	// waiting on the parent.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	if err := s.subscribeStateUpdates(); err != nil {
		s.logger.Warn("failed to subscribe to state updates for WebSocket", "error", err)
	}

	t := s.cfg.Timeouts
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(t.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(t.Read) * time.Second,
		WriteTimeout:      time.Duration(t.Write) * time.Second,
		IdleTimeout:       time.Duration(t.Idle) * time.Second,
	}

	go s.listen()
	return nil
}

// listen blocks on the HTTP listener until it closes.
func (s *Server) listen() {
	var err error
	if s.cfg.TLS.Enabled {
		s.logger.Info("API server starting with TLS",
			"address", s.server.Addr,
			"cert", s.cfg.TLS.CertFile,
		)
		err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("API server error", "error", err)
	}
}

// Close drains in-flight requests, then shuts the listener down. The
// hub and the relay goroutines stop through the cancelled context.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
