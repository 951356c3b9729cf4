package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/rewards"
)

// CycleReader reads the on-chain reward cycle for a token address.
type CycleReader interface {
	GetCycle(ctx context.Context, token string) (domain.RewardCycle, error)
}

// RewardsHandler serves claim preparation and cycle inspection.
type RewardsHandler struct {
	engine     *rewards.Engine
	cycles     CycleReader
	currencies domain.CurrencyStore
	logger     *slog.Logger
}

// NewRewardsHandler creates a RewardsHandler. cycles may be nil when no chain
// RPC is configured; the cycle endpoint then reports 503.
func NewRewardsHandler(engine *rewards.Engine, cycles CycleReader, currencies domain.CurrencyStore, logger *slog.Logger) *RewardsHandler {
	return &RewardsHandler{
		engine:     engine,
		cycles:     cycles,
		currencies: currencies,
		logger:     logger.With(slog.String("handler", "rewards")),
	}
}

// PrepareClaim computes the caller's entitlement and returns a signed voucher.
// GET /api/rewards/prepare-claim?account=<addr>&currency=<selector>
func (h *RewardsHandler) PrepareClaim(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	voucher, err := h.engine.PrepareClaim(r.Context(), q.Get("account"), q.Get("currency"))
	if err != nil {
		if statusForError(err) >= 500 {
			h.logger.ErrorContext(r.Context(), "prepare claim failed",
				slog.String("account", q.Get("account")),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voucher)
}

// GetCycle resolves the currency selector and reads its on-chain reward cycle.
// GET /api/rewards/cycle?currency=<selector>
func (h *RewardsHandler) GetCycle(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "chain rpc not configured")
		return
	}

	currency, err := h.resolveCurrency(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cycle, err := h.cycles.GetCycle(r.Context(), currency.AddressOrZero())
	if err != nil {
		if errors.Is(err, domain.ErrChainUnavailable) {
			h.logger.ErrorContext(r.Context(), "cycle read failed",
				slog.String("currency", currency.Symbol),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"currency": domain.ClaimCurrency{
			Symbol:       currency.Symbol,
			Decimals:     currency.Decimals,
			TokenAddress: currency.TokenAddress,
		},
		"cycle": cycle,
	})
}

// resolveCurrency mirrors the claim engine's selector rules: address, empty or
// native symbol, otherwise symbol lookup.
func (h *RewardsHandler) resolveCurrency(ctx context.Context, selector string) (domain.Currency, error) {
	selector = strings.TrimSpace(selector)
	switch {
	case domain.IsHexAddress(selector):
		return h.currencies.ActiveByTokenAddress(ctx, selector)
	case selector == "" || strings.EqualFold(selector, "ETN"):
		return h.currencies.ActiveNative(ctx)
	default:
		return h.currencies.ActiveBySymbol(ctx, selector)
	}
}
