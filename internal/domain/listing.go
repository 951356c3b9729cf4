package domain

import (
	"math/big"
	"time"
)

// TokenStandard identifies the NFT contract interface.
type TokenStandard string

const (
	StandardERC721  TokenStandard = "ERC721"
	StandardERC1155 TokenStandard = "ERC1155"
)

// ListingNFT identifies the token a listing offers.
type ListingNFT struct {
	Contract string        `json:"contract"`
	TokenID  string        `json:"tokenId"`
	Standard TokenStandard `json:"standard"`
}

// ListingCurrency is the resolved payment asset of a listing. Address is
// empty for the native asset. Symbol falls back to a placeholder when the
// best-effort metadata read fails.
type ListingCurrency struct {
	Address  string `json:"address,omitempty"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ListingPrice carries both the exact base-unit amounts and their
// human-readable projections at the resolved decimals.
type ListingPrice struct {
	UnitBaseUnits  string `json:"unitBaseUnits"`
	TotalBaseUnits string `json:"totalBaseUnits"`
	Unit           string `json:"unit"`
	Total          string `json:"total"`
}

// Listing is the transient read-model reconstructed from on-chain state when
// the off-chain mirror is stale or absent. It is never persisted.
type Listing struct {
	SellerAddress string          `json:"sellerAddress"`
	Quantity      int64           `json:"quantity"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       *time.Time      `json:"endTime"` // nil = open-ended
	NFT           ListingNFT      `json:"nft"`
	Currency      ListingCurrency `json:"currency"`
	Price         ListingPrice    `json:"price"`
}

// ActiveAt reports whether now falls inside the listing's [start, end) window.
func (l Listing) ActiveAt(now time.Time) bool {
	if now.Before(l.StartTime) {
		return false
	}
	return l.EndTime == nil || now.Before(*l.EndTime)
}

// OnChainListing is the raw tuple read from the marketplace contract before
// projection into a Listing.
type OnChainListing struct {
	ID            uint64
	Seller        string
	TokenContract string
	TokenID       *big.Int
	Standard      TokenStandard
	Quantity      int64
	Currency      string // zero address = native
	UnitPrice     *big.Int
	StartTime     int64
	EndTime       int64 // 0 = open-ended
	Active        bool
}
