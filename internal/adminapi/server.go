// Package adminapi exposes the DSAL Registry and connection store over
// HTTP, grounded on the teacher's internal/server package and built on the
// same rakunlabs/ada router and middleware stack.
package adminapi

import (
	"context"
	"log/slog"
	"net"

	"github.com/rakunlabs/ada"
	"github.com/rakunlabs/at/internal/connstore"
	"github.com/rakunlabs/at/internal/dsal/factory"
	"github.com/rakunlabs/at/internal/dsal/registry"

	mcors "github.com/rakunlabs/ada/middleware/cors"
	mforwardauth "github.com/rakunlabs/ada/middleware/forwardauth"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"
)

// Service is the ada mserver.Middleware service name, mirroring the
// teacher's config.Service variable.
var Service = ""

// Config configures the admin HTTP surface.
type Config struct {
	BasePath string
	Host     string
	Port     string

	ForwardAuth *mforwardauth.ForwardAuth
}

// Server wires the Registry and connstore.Store behind an HTTP API for
// connection CRUD and resource operations (spec §6 "External Interfaces").
type Server struct {
	cfg      Config
	server   *ada.Server
	registry *registry.Registry
	store    connstore.Store
	factory  *factory.Factory
}

// New constructs the admin HTTP server and registers every route.
func New(ctx context.Context, cfg Config, reg *registry.Registry, store connstore.Store, fac *factory.Factory) (*Server, error) {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		cfg:      cfg,
		server:   mux,
		registry: reg,
		store:    store,
		factory:  fac,
	}

	if err := reg.Init(ctx); err != nil {
		slog.Error("registry init failed", "error", err)
		return nil, err
	}

	baseGroup := mux.Group(cfg.BasePath)
	if cfg.ForwardAuth != nil {
		baseGroup.Use(mforwardauth.Middleware(mforwardauth.WithConfig(*cfg.ForwardAuth)))
	}

	apiGroup := baseGroup.Group("/api/v1/dsal")

	apiGroup.GET("/providers", s.ListProvidersAPI)

	apiGroup.GET("/connections", s.ListConnectionsAPI)
	apiGroup.POST("/connections", s.CreateConnectionAPI)
	apiGroup.GET("/connections/*", s.GetConnectionAPI)
	apiGroup.PUT("/connections/*", s.UpdateConnectionAPI)
	apiGroup.DELETE("/connections/*", s.DeleteConnectionAPI)

	apiGroup.GET("/resources/load", s.LoadResourceAPI)
	apiGroup.GET("/resources/list", s.ListResourcesAPI)
	apiGroup.GET("/resources/search", s.SearchResourcesAPI)
	apiGroup.POST("/resources/write", s.WriteResourceAPI)
	apiGroup.POST("/resources/edit", s.EditResourceAPI)
	apiGroup.POST("/resources/move", s.MoveResourceAPI)
	apiGroup.DELETE("/resources", s.DeleteResourceAPI)

	return s, nil
}

// Handler exposes the underlying ada server for embedding into a larger
// mux, mirroring the teacher's own server.Server.Handler pattern.
func (s *Server) Handler() *ada.Server { return s.server }

// Start runs the admin HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.cfg.Host, s.cfg.Port))
}
