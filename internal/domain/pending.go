package domain

import "time"

// PendingActionType tags the kind of declared on-chain intent.
type PendingActionType string

const (
	ActionAuctionBid PendingActionType = "NFT_AUCTION_BID"
)

// PendingActionStatus tracks confirmation of the declared transaction. The
// PENDING → CONFIRMED/FAILED transition is performed by the external indexer,
// not by this service.
type PendingActionStatus string

const (
	PendingStatusPending   PendingActionStatus = "PENDING"
	PendingStatusConfirmed PendingActionStatus = "CONFIRMED"
	PendingStatusFailed    PendingActionStatus = "FAILED"
)

// BidPayload is the type-specific payload for ActionAuctionBid.
// BidAmountBaseUnits is a base-10 integer string; token amounts routinely
// exceed 64-bit range so it is never parsed into a machine word.
type BidPayload struct {
	AuctionID          string  `json:"auctionId"`
	BidAmountBaseUnits string  `json:"bidAmountBaseUnits"`
	CurrencyID         *string `json:"currencyId"` // nil = native
}

// PendingChainAction records a client's declared intent to have submitted an
// on-chain transaction, before confirmation is observed. TxHash is the
// idempotency boundary: a second submission with the same hash returns the
// existing record unchanged.
type PendingChainAction struct {
	ID        string
	Type      PendingActionType
	TxHash    string
	From      string
	ChainID   int64
	Payload   BidPayload
	RelatedID string
	Status    PendingActionStatus
	CreatedAt time.Time
}

// BidEvent is the fan-out message published when a bid is admitted.
type BidEvent struct {
	TxHash     string    `json:"txHash"`
	From       string    `json:"from"`
	AuctionID  string    `json:"auctionId"`
	Amount     string    `json:"amount"`
	CurrencyID *string   `json:"currencyId"`
	At         time.Time `json:"at"`
}
