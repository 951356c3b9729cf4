package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// CollectionStore implements domain.CollectionStore using PostgreSQL.
type CollectionStore struct {
	pool *pgxpool.Pool
}

// NewCollectionStore creates a CollectionStore backed by the given pool.
func NewCollectionStore(pool *pgxpool.Pool) *CollectionStore {
	return &CollectionStore{pool: pool}
}

// ContractByName resolves a collection contract address by collection name,
// case-insensitively.
func (s *CollectionStore) ContractByName(ctx context.Context, name string) (string, error) {
	var contract string
	err := s.pool.QueryRow(ctx,
		`SELECT contract FROM collections WHERE LOWER(name) = LOWER($1) LIMIT 1`,
		name,
	).Scan(&contract)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrCollectionNotFound
		}
		return "", fmt.Errorf("postgres: collection by name %q: %w", name, err)
	}
	return contract, nil
}

var _ domain.CollectionStore = (*CollectionStore)(nil)
