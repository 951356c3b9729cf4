package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// AccumulatorStore implements domain.RewardAccumulatorStore. The accumulator
// is written only by the external distribution process, so this store is
// read-only by construction.
type AccumulatorStore struct {
	pool *pgxpool.Pool
}

// NewAccumulatorStore creates an AccumulatorStore backed by the given pool.
func NewAccumulatorStore(pool *pgxpool.Pool) *AccumulatorStore {
	return &AccumulatorStore{pool: pool}
}

// AccPerToken returns the 1e27-scaled accumulator for the currency as a
// base-10 integer string, or domain.ErrNotFound when no row exists yet.
func (s *AccumulatorStore) AccPerToken(ctx context.Context, currencyID string) (string, error) {
	var acc string
	err := s.pool.QueryRow(ctx,
		`SELECT acc_per_token::text FROM reward_accumulators WHERE currency_id = $1`,
		currencyID,
	).Scan(&acc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("postgres: accumulator for %s: %w", currencyID, err)
	}
	return acc, nil
}

var _ domain.RewardAccumulatorStore = (*AccumulatorStore)(nil)
