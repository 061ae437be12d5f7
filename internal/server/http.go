// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"context"
	"net/http"

	"github.com/Qchains/gtelegram/internal/auth"
	"github.com/Qchains/gtelegram/internal/config"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/metrics"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"github.com/Qchains/gtelegram/internal/tools"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Runtime is the engine surface the HTTP routes use
type Runtime interface {
	tools.Runtime
	Start() error
	Stop(ctx context.Context) (snapshot.Meta, error)
	Portal() engine.Portal
	ConfigInfo() engine.ConfigInfo
	Ingest(ctx context.Context, item memory.RawItem, mode memory.Mode) (memory.MemoryLine, error)
	AddNote(id uint64, note string) (memory.MemoryLine, error)
	CollectorItems(depth int) []map[string]interface{}
}

// HTTPServer handles HTTP routes
type HTTPServer struct {
	runtime        Runtime
	mcpServer      *MCPServer
	authMiddleware *auth.Middleware
	metrics        *metrics.Metrics
	corsOrigins    []string
	logger         *zap.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(rt Runtime, mcpServer *MCPServer, cfg config.ServerConfig, m *metrics.Metrics, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &HTTPServer{
		runtime:        rt,
		mcpServer:      mcpServer,
		authMiddleware: auth.NewMiddleware(cfg.APIToken),
		metrics:        m,
		corsOrigins:    origins,
		logger:         logger,
	}
}

// Handler builds the router with every route and middleware
func (h *HTTPServer) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(h.logger, h.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler())
	}

	if h.mcpServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(h.mcpServer.GetMCPServer(), mcpserver.WithStateLess(true))
		router.Handle("/mcp", h.authMiddleware.RequireAuth(mcpHTTP))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/", h.handleBanner)

		r.Route("/pandora", func(r chi.Router) {
			r.Get("/runtime/5o", h.handlePortal)
			r.Get("/status", h.handleStatus)
			r.Get("/memory", h.handleMemory)
			r.Get("/memory/{id}", h.handleMemoryLine)
			r.Get("/snapshots", h.handleSnapshots)
			r.Get("/collector", h.handleCollector)
			r.Get("/collector/items", h.handleCollectorItems)
			r.Get("/config", h.handleConfig)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireAuth)

				r.Post("/start", h.handleStart)
				r.Post("/stop", h.handleStop)
				r.Post("/query", h.handleQuery)
				r.Post("/promise", h.handlePromise)
				r.Post("/ingest", h.handleIngest)
				r.Post("/memory/{id}/notes", h.handleAddNote)
				r.Post("/snapshot", h.handleSnapshot)
				r.Put("/collector", h.handleReconfigure)
			})
		})
	})

	return router
}
