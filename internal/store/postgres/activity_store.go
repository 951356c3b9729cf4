package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates an ActivityStore backed by the given pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// InsertActivity appends an activity row. The (auction_id, tx_hash, kind)
// unique key absorbs replayed settlement calls: ON CONFLICT DO NOTHING makes
// the replay a reported no-op instead of a duplicate row.
func (s *ActivityStore) InsertActivity(ctx context.Context, a domain.NFTActivity) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO nft_activities
			(id, kind, nft_id, auction_id, tx_hash, from_address, to_address, amount, currency_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10)
		 ON CONFLICT (auction_id, tx_hash, kind) DO NOTHING`,
		a.ID, string(a.Kind), a.NFTID, a.AuctionID, a.TxHash,
		a.From, a.To, a.Amount, a.CurrencyID, a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: insert activity %s/%s: %w", a.AuctionID, a.TxHash, err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertSale records a settled sale.
func (s *ActivityStore) InsertSale(ctx context.Context, sale domain.MarketplaceSale) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO marketplace_sales
			(id, auction_id, nft_id, seller, buyer, quantity, amount, currency_id, tx_hash, sold_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)`,
		sale.ID, sale.AuctionID, sale.NFTID, sale.Seller, sale.Buyer,
		sale.Quantity, sale.Amount, sale.CurrencyID, sale.TxHash, sale.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert sale for auction %s: %w", sale.AuctionID, err)
	}
	return nil
}

const activityCols = `id, kind, nft_id, auction_id, tx_hash, from_address, to_address, amount::text, currency_id, created_at`

// ListBefore returns activity rows created before the cutoff, oldest first.
func (s *ActivityStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.NFTActivity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityCols+` FROM nft_activities
		 WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activities: %w", err)
	}
	defer rows.Close()

	var out []domain.NFTActivity
	for rows.Next() {
		var a domain.NFTActivity
		var kind string
		if err := rows.Scan(&a.ID, &kind, &a.NFTID, &a.AuctionID, &a.TxHash,
			&a.From, &a.To, &a.Amount, &a.CurrencyID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		a.Kind = domain.ActivityKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteByIDs removes exactly the given archived rows.
func (s *ActivityStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM nft_activities WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete activities: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.ActivityStore = (*ActivityStore)(nil)
