// Package server provides the HTTP server and routing for Portfoy.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/portfoyapp/portfoy/internal/config"
	"github.com/portfoyapp/portfoy/internal/database"
	"github.com/portfoyapp/portfoy/internal/domain"
	portfoliohandlers "github.com/portfoyapp/portfoy/internal/modules/portfolio/handlers"
	priceshandlers "github.com/portfoyapp/portfoy/internal/modules/prices/handlers"
	snapshotshandlers "github.com/portfoyapp/portfoy/internal/modules/snapshots/handlers"
)

// TableSource exposes the current price table for health reporting.
type TableSource interface {
	Current() *domain.PriceTable
}

// Config holds server configuration
type Config struct {
	Log               zerolog.Logger
	DB                *database.DB
	Config            *config.Config
	Port              int
	DevMode           bool
	PriceCache        TableSource
	PriceHandlers     *priceshandlers.Handler
	PortfolioHandlers *portfoliohandlers.Handler
	SnapshotHandlers  *snapshotshandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	db         *database.DB
	cfg        *config.Config
	priceCache TableSource
	port       int
	startedAt  time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		db:         cfg.DB,
		cfg:        cfg.Config,
		priceCache: cfg.PriceCache,
		port:       cfg.Port,
		startedAt:  time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		cfg.PriceHandlers.RegisterRoutes(r)
		cfg.PortfolioHandlers.RegisterRoutes(r)
		cfg.SnapshotHandlers.RegisterRoutes(r)
	})
}

// handleHealth returns process and database health
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := s.db.Conn().PingContext(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Database ping failed")
		status = "degraded"
		dbStatus = "unreachable"
	}

	cpuAvg, memPercent := s.systemStats()

	// Age of the current price table, -1 when nothing has been cached yet.
	priceTableAge := int64(-1)
	if s.priceCache != nil {
		if table := s.priceCache.Current(); table != nil {
			priceTableAge = int64(time.Since(table.LastUpdated).Seconds())
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"status":                  status,
		"database":                dbStatus,
		"uptime_seconds":          int64(time.Since(s.startedAt).Seconds()),
		"price_table_age_seconds": priceTableAge,
		"cpu_percent":             cpuAvg,
		"memory_percent":          memPercent,
	})
}

// systemStats returns CPU and RAM usage percentages. The CPU sample uses a
// 100ms window so the health endpoint stays fast.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
