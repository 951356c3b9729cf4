package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// ListingScanner reconstructs active listings from chain state; the
// reconciliation reader implements it.
type ListingScanner interface {
	ScanRecentListings(ctx context.Context, tokenContract, tokenID string, maxToScan int) ([]domain.Listing, error)
}

// ListingsHandler serves active listings for a token, preferring the indexer
// mirror and falling back to an on-chain scan when the mirror has nothing.
type ListingsHandler struct {
	mirror      domain.ListingMirrorStore
	scanner     ListingScanner
	defaultScan int
	logger      *slog.Logger
}

// NewListingsHandler creates a ListingsHandler. scanner may be nil when no
// chain RPC is configured; the mirror is then the only source.
func NewListingsHandler(mirror domain.ListingMirrorStore, scanner ListingScanner, defaultScan int, logger *slog.Logger) *ListingsHandler {
	return &ListingsHandler{
		mirror:      mirror,
		scanner:     scanner,
		defaultScan: defaultScan,
		logger:      logger.With(slog.String("handler", "listings")),
	}
}

// ListForToken returns the active listings for one token.
// GET /api/marketplace/listings?contract=<addr>&tokenId=<id>&max=<n>
func (h *ListingsHandler) ListForToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contract := q.Get("contract")
	tokenID := q.Get("tokenId")
	if !domain.IsHexAddress(contract) || tokenID == "" {
		writeError(w, http.StatusBadRequest, "contract and tokenId are required")
		return
	}

	listings, err := h.mirror.ListActiveForToken(r.Context(), contract, tokenID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "mirror query failed",
			slog.String("contract", contract),
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	source := "mirror"

	if len(listings) == 0 && h.scanner != nil {
		maxScan := h.defaultScan
		if v := q.Get("max"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n < maxScan {
				maxScan = n
			}
		}

		listings, err = h.scanner.ScanRecentListings(r.Context(), contract, tokenID, maxScan)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "chain scan failed",
				slog.String("contract", contract),
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
			writeDomainError(w, err)
			return
		}
		source = "chain"
	}

	if listings == nil {
		listings = []domain.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  listings,
		"source": source,
	})
}
