// Package api provides the HTTP and WebSocket server for Ember UI.
//
// It serves the embedded panel UI at the root, exposes control CRUD and
// value operations under /api/v1, and runs the WebSocket hub that keeps
// connected panels in sync in real time.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/ember-ui/internal/assets"
	"github.com/nerrad567/ember-ui/internal/control"
	"github.com/nerrad567/ember-ui/internal/infrastructure/config"
	"github.com/nerrad567/ember-ui/internal/infrastructure/influxdb"
	"github.com/nerrad567/ember-ui/internal/infrastructure/logging"
	"github.com/nerrad567/ember-ui/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Server    config.ServerConfig
	Assets    config.AssetsConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Registry  *control.Registry
	Bundle    *assets.Bundle
	MQTT      *mqtt.Client      // optional: state publishing and command intake
	Telemetry *influxdb.Client  // optional: value change history
	Version   string
}

// Server is the HTTP API server for Ember UI.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.ServerConfig
	assetsCfg config.AssetsConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	registry  *control.Registry
	bundle    *assets.Bundle
	mqtt      *mqtt.Client
	telemetry *influxdb.Client
	version   string
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, asset bundle)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("control registry is required")
	}
	if deps.Bundle == nil {
		return nil, fmt.Errorf("asset bundle is required")
	}
	// MQTT and telemetry are optional - panels work without either.

	return &Server{
		cfg:       deps.Server,
		assetsCfg: deps.Assets,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		registry:  deps.Registry,
		bundle:    deps.Bundle,
		mqtt:      deps.MQTT,
		telemetry: deps.Telemetry,
		version:   deps.Version,
		tickets:   newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to MQTT
// command topics, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup to prevent memory leaks.
	go s.tickets.cleanLoop(srvCtx)

	// External automation moves controls via MQTT commands.
	if err := s.subscribeCommands(); err != nil {
		s.logger.Warn("failed to subscribe to MQTT commands", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Stop background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// subscribeCommands subscribes to the MQTT command topics so external
// automation can move controls.
func (s *Server) subscribeCommands() error {
	if s.mqtt == nil {
		return nil // MQTT not configured
	}

	topic := mqtt.Topics{}.AllControlCommands()
	s.logger.Info("subscribing to control commands", "topic", topic)

	return s.mqtt.Subscribe(topic, 1, func(t string, payload []byte) error {
		id, err := mqtt.ControlIDFromTopic(t)
		if err != nil {
			return err
		}

		value, err := parseCommandPayload(payload)
		if err != nil {
			return fmt.Errorf("command on %s: %w", t, err)
		}

		_, err = s.applyValue(context.Background(), id, value, sourceMQTT, nil)
		return err
	})
}
