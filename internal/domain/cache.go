package domain

import (
	"context"
	"time"
)

// BidFeed fans out admitted bids to interested subscribers. Publishing is
// best-effort: a feed failure never rolls back the persisted pending action.
type BidFeed interface {
	// PublishBid delivers the event to the per-auction and per-bidder
	// channels and appends it to the durable bid stream.
	PublishBid(ctx context.Context, ev BidEvent) error
	// SubscribeAuction streams raw bid-event payloads for one auction until
	// the context is cancelled; the returned channel closes at that point.
	SubscribeAuction(ctx context.Context, auctionID string) (<-chan []byte, error)
}

// RateLimiter provides distributed request throttling.
type RateLimiter interface {
	// Allow reports whether one more request for key fits inside the window,
	// counting it when it does.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
