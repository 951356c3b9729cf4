package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// NFTStore implements domain.HoldingsStore and domain.NFTStore over the NFT
// ownership mirror.
type NFTStore struct {
	pool *pgxpool.Pool
}

// NewNFTStore creates an NFTStore backed by the given pool.
func NewNFTStore(pool *pgxpool.Pool) *NFTStore {
	return &NFTStore{pool: pool}
}

// CountOwned counts successfully-indexed NFTs of the collection owned by the
// account. The count is live: entitlements must reflect holdings at request
// time, so it is never cached.
func (s *NFTStore) CountOwned(ctx context.Context, collectionContract, owner string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM nfts
		 WHERE LOWER(collection_contract) = LOWER($1)
		   AND LOWER(owner) = LOWER($2)
		   AND index_status = 'INDEXED'`,
		collectionContract, owner,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count holdings for %s: %w", owner, err)
	}
	return count, nil
}

// TransferOwner moves an NFT to a new owner in the mirror.
func (s *NFTStore) TransferOwner(ctx context.Context, nftID, newOwner string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nfts SET owner = $2, updated_at = NOW() WHERE id = $1`,
		nftID, newOwner)
	if err != nil {
		return fmt.Errorf("postgres: transfer nft %s: %w", nftID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var (
	_ domain.HoldingsStore = (*NFTStore)(nil)
	_ domain.NFTStore      = (*NFTStore)(nil)
)
