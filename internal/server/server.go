// Package server assembles the HTTP API: routing, middleware, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server/handler"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server/middleware"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server/ws"
)

// writeRateLimit caps the POST endpoints per client IP; reads are unlimited.
const (
	writeRateLimit  = 30
	writeRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	AdminAPIKey string // if empty, the admin endpoints reject everything
}

// Handlers aggregates the endpoint handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Rewards    *handler.RewardsHandler
	Pending    *handler.PendingHandler
	Settlement *handler.SettlementHandler
	Listings   *handler.ListingsHandler
	Admin      *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. limiter may
// be nil to disable write throttling.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	throttle := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return middleware.RateLimit(limiter, writeRateLimit, writeRateWindow)(h)
	}

	// Public reads.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/rewards/prepare-claim", handlers.Rewards.PrepareClaim)
	mux.HandleFunc("GET /api/rewards/cycle", handlers.Rewards.GetCycle)
	mux.HandleFunc("GET /api/pending-actions", handlers.Pending.ListPending)
	mux.HandleFunc("GET /api/marketplace/listings", handlers.Listings.ListForToken)

	// Writes, throttled per client IP.
	mux.Handle("POST /api/pending-actions", throttle(handlers.Pending.AdmitBid))
	mux.Handle("POST /api/marketplace/auctions/attach-tx", throttle(handlers.Settlement.AttachTx))

	// Operator endpoints behind the API key. An unset key fails closed.
	adminKey := cfg.AdminAPIKey
	if adminKey == "" {
		adminKey = "\x00disabled"
	}
	mux.Handle("POST /api/admin/archive",
		middleware.Auth(adminKey)(http.HandlerFunc(handlers.Admin.TriggerArchive)))

	// Live bid stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
