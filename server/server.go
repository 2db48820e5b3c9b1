package server

import (
	"context"
	"time"

	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gear6io/icecat/server/catalog"
	"github.com/gear6io/icecat/server/catalog/sqlite"
	"github.com/gear6io/icecat/server/config"
	"github.com/gear6io/icecat/server/metadata"
	"github.com/gear6io/icecat/server/protocols/http"
	"github.com/gear6io/icecat/server/storage"
	"github.com/gear6io/icecat/server/tables"
	"github.com/rs/zerolog"
)

// Server wires the catalog store, storage accessor, metadata manager and
// table manager behind the REST transport and manages their lifecycle.
type Server struct {
	config     *config.Config
	logger     zerolog.Logger
	store      catalog.Store
	httpServer *http.Server
	serveErr   chan error
	startTime  time.Time
}

// New creates a server instance from configuration
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	store, err := sqlite.NewStore(cfg.GetDatabaseURL(), logger)
	if err != nil {
		return nil, err
	}

	accessor := storage.NewAccessor(cfg.GetWarehousePath(), logger)
	metaManager := metadata.NewManager(logger)
	tableManager := tables.NewManager(store, accessor, metaManager, logger)
	httpServer := http.NewServer(cfg, store, tableManager, logger)

	return &Server{
		config:     cfg,
		logger:     logger.With().Str("component", "server").Logger(),
		store:      store,
		httpServer: httpServer,
		serveErr:   make(chan error, 1),
		startTime:  time.Now(),
	}, nil
}

// Start begins serving requests. It returns once the listener is running;
// listener failures surface on Err.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().
		Str("address", s.config.GetHTTPAddress()).
		Int("port", s.config.GetHTTPPort()).
		Str("warehouse", s.config.GetWarehousePath()).
		Msg("Starting icecat server")

	go func() {
		s.serveErr <- s.httpServer.Start(ctx)
	}()
	return nil
}

// Err exposes the listener's terminal error
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// Shutdown drains the HTTP server and closes the catalog store
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down icecat server")

	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = errors.New(errors.CommonInternal, "failed to shut down HTTP server", err)
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.logger.Info().Dur("uptime", time.Since(s.startTime)).Msg("Server stopped")
	return firstErr
}

// GetUptime returns how long the server has been running
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}
