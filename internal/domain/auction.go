package domain

import (
	"math/big"
	"time"
)

// AuctionStatus tracks the auction lifecycle. ENDED and CANCELLED are
// terminal; no further bids or cancellations are accepted once reached.
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "ACTIVE"
	AuctionEnded     AuctionStatus = "ENDED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

// Auction mirrors an on-chain auction. EndTime may be pushed forward by late
// bids (anti-snipe extension) but never backward. Amounts are exact base-unit
// integers denominated in CurrencyID (nil = native).
type Auction struct {
	ID            string
	NFTID         string
	Status        AuctionStatus
	StartTime     time.Time
	EndTime       time.Time
	CurrencyID    *string // nil = native
	SellerAddress string
	Quantity      int64

	StartPrice   *big.Int
	MinIncrement *big.Int
	HighestBid   *big.Int // nil until the first confirmed bid
	HighestBidder *string
}

// MinimumBid returns the smallest admissible bid: highest+increment once a
// confirmed bid exists, otherwise the start price.
func (a Auction) MinimumBid() *big.Int {
	if a.HighestBid != nil && a.HighestBid.Sign() > 0 {
		return new(big.Int).Add(a.HighestBid, a.MinIncrement)
	}
	return new(big.Int).Set(a.StartPrice)
}
