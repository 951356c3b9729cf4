package domain

import "time"

// ActivityKind tags a row in the NFT activity log.
type ActivityKind string

const (
	ActivityBid  ActivityKind = "BID"
	ActivitySale ActivityKind = "SALE"
)

// NFTActivity is one entry in the per-NFT activity log. The
// (AuctionID, TxHash, Kind) triple is unique at the storage layer, so a
// replayed settlement call is a no-op instead of a duplicate row.
type NFTActivity struct {
	ID         string
	Kind       ActivityKind
	NFTID      string
	AuctionID  string
	TxHash     string
	From       string
	To         string
	Amount     string  // base-unit integer string
	CurrencyID *string // nil = native
	CreatedAt  time.Time
}

// MarketplaceSale records a settled sale.
type MarketplaceSale struct {
	ID         string
	AuctionID  string
	NFTID      string
	Seller     string
	Buyer      string
	Quantity   int64
	Amount     string
	CurrencyID *string
	TxHash     string
	SoldAt     time.Time
}
