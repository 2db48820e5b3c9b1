package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gear6io/icecat/server/catalog"
	"github.com/gear6io/icecat/server/config"
	"github.com/gear6io/icecat/server/tables"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// ComponentType defines the HTTP server component type identifier
const ComponentType = "http"

// Server is the fiber REST transport in front of the catalog core
type Server struct {
	app    *fiber.App
	config *config.Config
	store  catalog.Store
	tables *tables.Manager
	logger zerolog.Logger
}

// NewServer creates the REST server and registers all routes
func NewServer(cfg *config.Config, store catalog.Store, tableManager *tables.Manager, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		store:  store,
		tables: tableManager,
		logger: logger.With().Str("component", "http").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "icecat",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          newErrorHandler(s.logger),
	})

	s.app.Use(requestid.New())
	s.app.Use(recover.New())
	if cfg.HTTP.CORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,PUT,DELETE,HEAD,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		}))
	}
	s.app.Use(s.requestLogger)

	s.setupRoutes()
	return s
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Str("request_id", requestID(c)).
		Msg("Handled request")
	return err
}

func (s *Server) setupRoutes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/health", s.handleHealth)

	v1 := s.app.Group("/v1")
	v1.Get("/config", s.handleConfig)

	v1.Get("/namespaces", s.handleListNamespaces)
	v1.Post("/namespaces", s.handleCreateNamespace)
	v1.Get("/namespaces/:namespace", s.handleGetNamespace)
	v1.Head("/namespaces/:namespace", s.handleNamespaceExists)
	v1.Delete("/namespaces/:namespace", s.handleDropNamespace)
	v1.Post("/namespaces/:namespace/properties", s.handleUpdateNamespaceProperties)

	v1.Get("/namespaces/:namespace/tables", s.handleListTables)
	v1.Post("/namespaces/:namespace/tables", s.handleCreateTable)
	// Registered before the :table routes so "register" is not taken as a name
	v1.Post("/namespaces/:namespace/tables/register", s.handleRegisterTable)
	v1.Get("/namespaces/:namespace/tables/:table", s.handleLoadTable)
	v1.Head("/namespaces/:namespace/tables/:table", s.handleTableExists)
	v1.Post("/namespaces/:namespace/tables/:table", s.handleCommitTable)
	v1.Delete("/namespaces/:namespace/tables/:table", s.handleDropTable)

	v1.Post("/tables/rename", s.handleRenameTable)
}

// App exposes the fiber app for in-process tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins serving. It returns once the listener fails or Shutdown is
// called.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.GetHTTPAddress(), s.config.GetHTTPPort())
	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// GetType returns the component type identifier
func (s *Server) GetType() string {
	return ComponentType
}
