// Package app owns the top-level lifecycle: it wires the dependency graph,
// starts the HTTP server and the WebSocket hub, and tears everything down in
// reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/auction"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/config"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server/handler"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/server/ws"
)

// shutdownGrace bounds how long in-flight requests may drain on shutdown.
const shutdownGrace = 15 * time.Second

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires the dependencies and serves until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	admission := auction.NewAdmission(deps.Auctions, deps.Pending, deps.BidFeed, a.cfg.Chain.ChainID, a.logger)
	recorder := auction.NewRecorder(deps.Auctions, deps.Activity, deps.NFTs, deps.Notifier, a.logger)

	// Interface-typed nils: only assign concrete values when present, so the
	// handlers' nil checks behave.
	var cycles handler.CycleReader
	var scanner handler.ListingScanner
	if deps.ChainClient != nil {
		cycles = deps.ChainClient
		scanner = deps.Reader
	}
	var archiver handler.ArchiveRunner
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Rewards:    handler.NewRewardsHandler(deps.Engine, cycles, deps.Currencies, a.logger),
		Pending:    handler.NewPendingHandler(admission, a.logger),
		Settlement: handler.NewSettlementHandler(recorder, a.logger),
		Listings:   handler.NewListingsHandler(deps.Listings, scanner, a.cfg.Chain.MaxListingScan, a.logger),
		Admin:      handler.NewAdminHandler(archiver, a.cfg.Archive.RetentionDays, a.logger),
	}

	hub := ws.NewHub(deps.BidFeed, a.logger)
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		AdminAPIKey: a.cfg.Server.AdminAPIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go func() {
		if err := hub.Run(hubCtx); err != nil && err != context.Canceled {
			a.logger.Error("ws hub stopped", slog.String("error", err.Error()))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-serveErr:
		return err
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// more than once.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
