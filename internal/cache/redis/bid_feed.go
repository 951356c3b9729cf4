package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// Channel and stream naming. Subscribers key on either the auction or the
// bidder; the stream keeps a bounded replayable history per auction.
const (
	auctionChannelPrefix = "auction:bids:"
	bidderChannelPrefix  = "wallet:bids:"
	bidStreamPrefix      = "stream:auction:bids:"
)

// defaultStreamMaxLen is the approximate cap for bid streams, enforced via
// XADD MAXLEN ~.
const defaultStreamMaxLen int64 = 10000

// BidFeed implements domain.BidFeed using Redis Pub/Sub for the two ephemeral
// fan-out channels and a Redis Stream for bounded, ordered history.
type BidFeed struct {
	rdb          *redis.Client
	streamMaxLen int64
}

// NewBidFeed creates a BidFeed backed by the given Client.
func NewBidFeed(c *Client, streamMaxLen int64) *BidFeed {
	if streamMaxLen <= 0 {
		streamMaxLen = defaultStreamMaxLen
	}
	return &BidFeed{rdb: c.Underlying(), streamMaxLen: streamMaxLen}
}

// PublishBid delivers the event to the per-auction and per-bidder channels
// and appends it to the auction's bid stream. The first failure is returned,
// but every target is still attempted: partial fan-out beats none.
func (f *BidFeed) PublishBid(ctx context.Context, ev domain.BidEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: encode bid event: %w", err)
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(f.rdb.Publish(ctx, auctionChannelPrefix+ev.AuctionID, payload).Err())
	record(f.rdb.Publish(ctx, bidderChannelPrefix+strings.ToLower(ev.From), payload).Err())
	record(f.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: bidStreamPrefix + ev.AuctionID,
		MaxLen: f.streamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err())

	if firstErr != nil {
		return fmt.Errorf("redis: publish bid %s: %w", ev.TxHash, firstErr)
	}
	return nil
}

// SubscribeAuction creates a Pub/Sub subscription for one auction's bid
// channel and returns a read-only payload channel. The subscription closes
// when the context is cancelled; the returned channel closes then too.
func (f *BidFeed) SubscribeAuction(ctx context.Context, auctionID string) (<-chan []byte, error) {
	pubsub := f.rdb.Subscribe(ctx, auctionChannelPrefix+auctionID)

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe auction %s: %w", auctionID, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var _ domain.BidFeed = (*BidFeed)(nil)
