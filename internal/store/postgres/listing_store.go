package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/money"
)

// ListingStore implements domain.ListingMirrorStore over the listing mirror
// maintained by the external indexer. It is read-only here: when it returns
// nothing for a token, callers fall back to the on-chain reconciliation scan.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// ListActiveForToken returns the mirror's active listings for a token whose
// [start, end) window contains now.
func (s *ListingStore) ListActiveForToken(ctx context.Context, contract, tokenID string) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seller_address, quantity, standard, symbol, decimals, currency_id,
		        unit_price::text, start_time, end_time
		 FROM listings
		 WHERE active
		   AND LOWER(token_contract) = LOWER($1) AND token_id = $2
		   AND start_time <= NOW() AND (end_time IS NULL OR end_time > NOW())
		 ORDER BY id DESC`,
		contract, tokenID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings for %s/%s: %w", contract, tokenID, err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var (
			l          domain.Listing
			standard   string
			currencyID *string
			unitPrice  string
			endTime    *time.Time
		)
		err := rows.Scan(&l.SellerAddress, &l.Quantity, &standard,
			&l.Currency.Symbol, &l.Currency.Decimals, &currencyID,
			&unitPrice, &l.StartTime, &endTime)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}

		l.NFT = domain.ListingNFT{
			Contract: contract,
			TokenID:  tokenID,
			Standard: domain.TokenStandard(standard),
		}
		l.EndTime = endTime
		if currencyID != nil {
			l.Currency.Address = *currencyID
		}

		unit, ok := new(big.Int).SetString(unitPrice, 10)
		if !ok {
			return nil, fmt.Errorf("postgres: listing unit price %q is not an integer", unitPrice)
		}
		total := new(big.Int).Mul(unit, big.NewInt(l.Quantity))
		l.Price = domain.ListingPrice{
			UnitBaseUnits:  unit.String(),
			TotalBaseUnits: total.String(),
		}
		if l.Price.Unit, err = money.BaseUnitsToDisplay(unit.String(), l.Currency.Decimals); err != nil {
			return nil, fmt.Errorf("postgres: format listing price: %w", err)
		}
		if l.Price.Total, err = money.BaseUnitsToDisplay(total.String(), l.Currency.Decimals); err != nil {
			return nil, fmt.Errorf("postgres: format listing price: %w", err)
		}

		out = append(out, l)
	}
	return out, rows.Err()
}

var _ domain.ListingMirrorStore = (*ListingStore)(nil)
