package chain

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/money"
)

// readBatchSize bounds concurrent RPC load while scanning listing ids.
const readBatchSize = 25

// placeholderSymbol is used when an ERC-20 metadata read fails; a missing
// symbol must not abort the whole scan.
const placeholderSymbol = "TOKEN"

// MarketReader is the contract-read surface the reconciliation reader needs;
// *Client implements it.
type MarketReader interface {
	NextListingID(ctx context.Context) (uint64, error)
	Listing(ctx context.Context, id uint64) (domain.OnChainListing, error)
	TokenSymbol(ctx context.Context, token string) (string, error)
	TokenDecimals(ctx context.Context, token string) (int, error)
}

// Reader reconstructs currently-active listings for a token directly from
// chain state. It is the fallback path when the off-chain mirror is stale or
// absent: bounded, best-effort, and read-only.
type Reader struct {
	market         MarketReader
	nativeSymbol   string
	nativeDecimals int
	logger         *slog.Logger
	now            func() time.Time
}

// NewReader creates a Reader. nativeSymbol/nativeDecimals describe the
// chain-native asset used when a listing's currency is the zero address.
func NewReader(market MarketReader, nativeSymbol string, nativeDecimals int, logger *slog.Logger) *Reader {
	return &Reader{
		market:         market,
		nativeSymbol:   nativeSymbol,
		nativeDecimals: nativeDecimals,
		logger:         logger.With(slog.String("component", "chain_reader")),
		now:            time.Now,
	}
}

// ScanRecentListings scans backward from the marketplace's nextListingId for
// at most maxToScan ids and returns the active listings for the given token,
// deduplicated by seller (first occurrence wins) and filtered to listings
// whose [start, end) window contains now. Individual read failures are
// treated as "not found"; partial results beat total failure.
func (r *Reader) ScanRecentListings(ctx context.Context, tokenContract, tokenID string, maxToScan int) ([]domain.Listing, error) {
	next, err := r.market.NextListingID(ctx)
	if err != nil {
		return nil, err
	}
	if next == 0 || maxToScan <= 0 {
		return []domain.Listing{}, nil
	}

	total := maxToScan
	if uint64(total) > next {
		total = int(next)
	}

	wantToken := new(big.Int)
	if _, ok := wantToken.SetString(tokenID, 10); !ok {
		return []domain.Listing{}, nil
	}
	wantContract := strings.ToLower(tokenContract)

	// Scan newest-first in bounded batches. Slots keep scan order stable
	// across the concurrent reads inside a batch.
	rows := make([]*domain.OnChainListing, total)
	for offset := 0; offset < total; offset += readBatchSize {
		end := offset + readBatchSize
		if end > total {
			end = total
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := offset; i < end; i++ {
			slot := i
			id := next - 1 - uint64(i)
			g.Go(func() error {
				row, err := r.market.Listing(gctx, id)
				if err != nil {
					// Single-id failures are swallowed; the scan goes on.
					r.logger.DebugContext(gctx, "listing read failed",
						slog.Uint64("listing_id", id),
						slog.String("error", err.Error()),
					)
					return nil
				}
				rows[slot] = &row
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	now := r.now()
	seen := make(map[string]bool)
	out := []domain.Listing{}
	for _, row := range rows {
		if row == nil || !row.Active {
			continue
		}
		if row.TokenContract != wantContract || row.TokenID.Cmp(wantToken) != 0 {
			continue
		}
		if seen[row.Seller] {
			// A seller cannot surface two listings for the same token in
			// this reconstruction.
			continue
		}

		listing, ok := r.project(ctx, *row, now)
		if !ok {
			continue
		}
		seen[row.Seller] = true
		out = append(out, listing)
	}
	return out, nil
}

// project turns a raw contract row into the listing read-model, resolving
// currency metadata and display prices. It reports false when the listing's
// time window does not contain now.
func (r *Reader) project(ctx context.Context, row domain.OnChainListing, now time.Time) (domain.Listing, bool) {
	l := domain.Listing{
		SellerAddress: row.Seller,
		Quantity:      row.Quantity,
		StartTime:     time.Unix(row.StartTime, 0).UTC(),
		NFT: domain.ListingNFT{
			Contract: row.TokenContract,
			TokenID:  row.TokenID.String(),
			Standard: row.Standard,
		},
	}
	if row.EndTime > 0 {
		end := time.Unix(row.EndTime, 0).UTC()
		l.EndTime = &end
	}
	if !l.ActiveAt(now) {
		return domain.Listing{}, false
	}

	l.Currency = r.resolveCurrency(ctx, row.Currency)

	unit := row.UnitPrice
	totalAmt := new(big.Int).Mul(unit, big.NewInt(row.Quantity))
	l.Price.UnitBaseUnits = unit.String()
	l.Price.TotalBaseUnits = totalAmt.String()

	var err error
	if l.Price.Unit, err = money.BaseUnitsToDisplay(unit.String(), l.Currency.Decimals); err != nil {
		return domain.Listing{}, false
	}
	if l.Price.Total, err = money.BaseUnitsToDisplay(totalAmt.String(), l.Currency.Decimals); err != nil {
		return domain.Listing{}, false
	}
	return l, true
}

// resolveCurrency fetches ERC-20 metadata best-effort, defaulting to a
// placeholder symbol and 18 decimals on failure rather than aborting.
func (r *Reader) resolveCurrency(ctx context.Context, currency string) domain.ListingCurrency {
	if currency == "" {
		return domain.ListingCurrency{Symbol: r.nativeSymbol, Decimals: r.nativeDecimals}
	}

	resolved := domain.ListingCurrency{Address: currency, Symbol: placeholderSymbol, Decimals: 18}
	if sym, err := r.market.TokenSymbol(ctx, currency); err == nil && sym != "" {
		resolved.Symbol = sym
	} else if err != nil {
		r.logger.DebugContext(ctx, "erc20 symbol read failed",
			slog.String("token", currency),
			slog.String("error", err.Error()),
		)
	}
	if dec, err := r.market.TokenDecimals(ctx, currency); err == nil {
		resolved.Decimals = dec
	}
	return resolved
}
