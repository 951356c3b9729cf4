package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// CurrencyStore implements domain.CurrencyStore using PostgreSQL.
type CurrencyStore struct {
	pool *pgxpool.Pool
}

// NewCurrencyStore creates a CurrencyStore backed by the given pool.
func NewCurrencyStore(pool *pgxpool.Pool) *CurrencyStore {
	return &CurrencyStore{pool: pool}
}

const currencyCols = `id, kind, symbol, decimals, token_address, active`

func scanCurrency(row pgx.Row) (domain.Currency, error) {
	var c domain.Currency
	var kind string
	if err := row.Scan(&c.ID, &kind, &c.Symbol, &c.Decimals, &c.TokenAddress, &c.Active); err != nil {
		return domain.Currency{}, err
	}
	c.Kind = domain.CurrencyKind(kind)
	return c, nil
}

func (s *CurrencyStore) one(ctx context.Context, what, query string, args ...any) (domain.Currency, error) {
	c, err := scanCurrency(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Currency{}, domain.ErrCurrencyNotFound
		}
		return domain.Currency{}, fmt.Errorf("postgres: %s: %w", what, err)
	}
	return c, nil
}

// ActiveNative returns the unique active NATIVE currency.
func (s *CurrencyStore) ActiveNative(ctx context.Context) (domain.Currency, error) {
	return s.one(ctx, "active native currency",
		`SELECT `+currencyCols+` FROM currencies WHERE kind = 'NATIVE' AND active`)
}

// ActiveByTokenAddress resolves an active ERC-20 currency by token address,
// case-insensitively.
func (s *CurrencyStore) ActiveByTokenAddress(ctx context.Context, addr string) (domain.Currency, error) {
	return s.one(ctx, "currency by token address",
		`SELECT `+currencyCols+` FROM currencies
		 WHERE active AND token_address IS NOT NULL AND LOWER(token_address) = LOWER($1)`,
		addr)
}

// ActiveBySymbol resolves an active currency by symbol, case-insensitively.
func (s *CurrencyStore) ActiveBySymbol(ctx context.Context, symbol string) (domain.Currency, error) {
	return s.one(ctx, "currency by symbol",
		`SELECT `+currencyCols+` FROM currencies
		 WHERE active AND LOWER(symbol) = LOWER($1)
		 ORDER BY created_at ASC LIMIT 1`,
		symbol)
}

// GetByID retrieves a currency by id, active or not.
func (s *CurrencyStore) GetByID(ctx context.Context, id string) (domain.Currency, error) {
	return s.one(ctx, "currency by id",
		`SELECT `+currencyCols+` FROM currencies WHERE id = $1`, id)
}

var _ domain.CurrencyStore = (*CurrencyStore)(nil)
