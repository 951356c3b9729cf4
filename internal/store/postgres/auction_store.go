package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL. Amounts are
// NUMERIC(78,0) columns moved across the wire as base-10 strings so they
// never pass through a float or a machine word.
type AuctionStore struct {
	pool *pgxpool.Pool
}

// NewAuctionStore creates an AuctionStore backed by the given pool.
func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

const auctionCols = `a.id, a.nft_id, a.status, a.start_time, a.end_time,
	a.currency_id, a.seller_address, a.quantity,
	a.start_price::text, a.min_increment::text, a.highest_bid::text, a.highest_bidder`

func scanAuction(row pgx.Row) (domain.Auction, error) {
	var a domain.Auction
	var status string
	var startPrice, minIncrement string
	var highestBid *string

	err := row.Scan(
		&a.ID, &a.NFTID, &status, &a.StartTime, &a.EndTime,
		&a.CurrencyID, &a.SellerAddress, &a.Quantity,
		&startPrice, &minIncrement, &highestBid, &a.HighestBidder,
	)
	if err != nil {
		return domain.Auction{}, err
	}

	a.Status = domain.AuctionStatus(status)
	a.StartPrice, _ = new(big.Int).SetString(startPrice, 10)
	a.MinIncrement, _ = new(big.Int).SetString(minIncrement, 10)
	if highestBid != nil {
		a.HighestBid, _ = new(big.Int).SetString(*highestBid, 10)
	}
	return a, nil
}

// GetByID retrieves a single auction.
func (s *AuctionStore) GetByID(ctx context.Context, id string) (domain.Auction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auctionCols+` FROM auctions a WHERE a.id = $1`, id)
	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Auction{}, domain.ErrAuctionNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: get auction %s: %w", id, err)
	}
	return a, nil
}

// FindActiveByToken resolves the newest ACTIVE auction for the given token,
// optionally restricted to a seller.
func (s *AuctionStore) FindActiveByToken(ctx context.Context, contract, tokenID string, seller *string) (domain.Auction, error) {
	query := `SELECT ` + auctionCols + `
		FROM auctions a
		JOIN nfts n ON n.id = a.nft_id
		WHERE a.status = 'ACTIVE'
		  AND LOWER(n.collection_contract) = LOWER($1)
		  AND n.token_id = $2`
	args := []any{contract, tokenID}
	if seller != nil {
		query += ` AND LOWER(a.seller_address) = LOWER($3)`
		args = append(args, *seller)
	}
	query += ` ORDER BY a.created_at DESC LIMIT 1`

	a, err := scanAuction(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Auction{}, domain.ErrAuctionNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: find auction for %s/%s: %w", contract, tokenID, err)
	}
	return a, nil
}

// RecordHighestBid updates the highest bid and bidder. The end time is only
// pushed forward: GREATEST keeps the later of the stored and supplied values.
func (s *AuctionStore) RecordHighestBid(ctx context.Context, id, bidder string, amount *big.Int, newEndTime *time.Time) error {
	query := `UPDATE auctions SET
		highest_bid = $2::numeric, highest_bidder = $3, updated_at = NOW()
	 WHERE id = $1`
	args := []any{id, amount.String(), bidder}
	if newEndTime != nil {
		query = `UPDATE auctions SET
			highest_bid = $2::numeric, highest_bidder = $3,
			end_time = GREATEST(end_time, $4), updated_at = NOW()
		 WHERE id = $1`
		args = append(args, *newEndTime)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: record bid on auction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

// MarkCancelled transitions an ACTIVE auction to CANCELLED and clamps the end
// time so time-based consumers immediately see closure.
func (s *AuctionStore) MarkCancelled(ctx context.Context, id string, endedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET status = 'CANCELLED', end_time = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id, endedAt)
	if err != nil {
		return fmt.Errorf("postgres: cancel auction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

// MarkEnded transitions an ACTIVE auction to ENDED.
func (s *AuctionStore) MarkEnded(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET status = 'ENDED', updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id)
	if err != nil {
		return fmt.Errorf("postgres: end auction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

var _ domain.AuctionStore = (*AuctionStore)(nil)
