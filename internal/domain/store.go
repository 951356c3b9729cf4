package domain

import (
	"context"
	"math/big"
	"time"
)

// CurrencyStore resolves payable assets. Only active rows are considered;
// resolution ambiguity is prevented by the single-active-NATIVE invariant and
// symbol/address uniqueness among active rows.
type CurrencyStore interface {
	ActiveNative(ctx context.Context) (Currency, error)
	ActiveByTokenAddress(ctx context.Context, addr string) (Currency, error)
	ActiveBySymbol(ctx context.Context, symbol string) (Currency, error)
	GetByID(ctx context.Context, id string) (Currency, error)
}

// RewardAccumulatorStore reads the per-currency accumulator. The accumulator
// is written only by the external distribution process; there is deliberately
// no write method here.
type RewardAccumulatorStore interface {
	// AccPerToken returns the 1e27-scaled accumulator as a base-10 integer
	// string, or ErrNotFound when no row exists for the currency yet.
	AccPerToken(ctx context.Context, currencyID string) (string, error)
}

// HoldingsStore counts qualifying holdings. The count must reflect current
// state at call time; callers never cache it.
type HoldingsStore interface {
	// CountOwned counts successfully-indexed NFTs of the collection owned by
	// the account.
	CountOwned(ctx context.Context, collectionContract, owner string) (int64, error)
}

// CollectionStore provides the name → contract fallback lookup used when the
// qualifying collection is not pinned by configuration.
type CollectionStore interface {
	ContractByName(ctx context.Context, name string) (string, error)
}

// NFTStore mutates the NFT ownership mirror.
type NFTStore interface {
	TransferOwner(ctx context.Context, nftID, newOwner string) error
}

// AuctionStore reads and settles mirrored auctions.
type AuctionStore interface {
	GetByID(ctx context.Context, id string) (Auction, error)
	// FindActiveByToken resolves the newest ACTIVE auction for a token,
	// optionally restricted to a seller.
	FindActiveByToken(ctx context.Context, contract, tokenID string, seller *string) (Auction, error)
	// RecordHighestBid updates the highest bid and bidder, and extends the end
	// time when newEndTime is non-nil. The end time is only ever pushed
	// forward, never backward.
	RecordHighestBid(ctx context.Context, id, bidder string, amount *big.Int, newEndTime *time.Time) error
	// MarkCancelled transitions to CANCELLED and clamps the end time to
	// endedAt so time-based consumers immediately see closure.
	MarkCancelled(ctx context.Context, id string, endedAt time.Time) error
	MarkEnded(ctx context.Context, id string) error
}

// PendingActionStore persists declared chain intents. Create returns
// ErrAlreadyExists on a tx-hash collision; the caller then re-reads the
// surviving row (idempotency by constraint, not by locking).
type PendingActionStore interface {
	Create(ctx context.Context, action PendingChainAction) error
	GetByTxHash(ctx context.Context, txHash string) (PendingChainAction, error)
	ListByWallet(ctx context.Context, wallet string, status PendingActionStatus, limit int) ([]PendingChainAction, error)
	// ListTerminalBefore returns CONFIRMED/FAILED actions created before the
	// cutoff, oldest first, for archival.
	ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]PendingChainAction, error)
	// DeleteByIDs removes exactly the given rows. The archiver deletes only
	// what it has uploaded, never a time range.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ActivityStore appends to the activity log and sale records.
type ActivityStore interface {
	// InsertActivity appends an activity row. It reports false without error
	// when the (auction, txHash, kind) key already exists.
	InsertActivity(ctx context.Context, a NFTActivity) (bool, error)
	InsertSale(ctx context.Context, s MarketplaceSale) error
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]NFTActivity, error)
	// DeleteByIDs removes exactly the given rows. The archiver deletes only
	// what it has uploaded, never a time range.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ListingMirrorStore reads the indexer-maintained listing mirror. An empty
// result is the trigger for the on-chain reconciliation fallback.
type ListingMirrorStore interface {
	ListActiveForToken(ctx context.Context, contract, tokenID string) ([]Listing, error)
}
