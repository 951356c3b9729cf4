package auction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

const (
	testChainID = int64(52014)
	bidderAddr  = "0x4444444444444444444444444444444444444444"
	sellerAddr  = "0x5555555555555555555555555555555555555555"
	bidTxHash   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

type fakeAuctionStore struct {
	auctions map[string]domain.Auction

	recordedBidder string
	recordedAmount *big.Int
	recordedEnd    *time.Time
	cancelled      []string
	ended          []string
}

func (f *fakeAuctionStore) GetByID(ctx context.Context, id string) (domain.Auction, error) {
	a, ok := f.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrAuctionNotFound
	}
	return a, nil
}

func (f *fakeAuctionStore) FindActiveByToken(ctx context.Context, contract, tokenID string, seller *string) (domain.Auction, error) {
	for _, a := range f.auctions {
		if a.Status != domain.AuctionActive {
			continue
		}
		if seller != nil && !strings.EqualFold(a.SellerAddress, *seller) {
			continue
		}
		return a, nil
	}
	return domain.Auction{}, domain.ErrNotFound
}

func (f *fakeAuctionStore) RecordHighestBid(ctx context.Context, id, bidder string, amount *big.Int, newEndTime *time.Time) error {
	f.recordedBidder = bidder
	f.recordedAmount = amount
	f.recordedEnd = newEndTime
	return nil
}

func (f *fakeAuctionStore) MarkCancelled(ctx context.Context, id string, endedAt time.Time) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeAuctionStore) MarkEnded(ctx context.Context, id string) error {
	f.ended = append(f.ended, id)
	return nil
}

type fakePendingStore struct {
	byHash map[string]domain.PendingChainAction

	failCreateWith error
	getOverride    func() (domain.PendingChainAction, error)
}

// Create compares hashes exactly, like the unique constraint it stands in
// for; GetByTxHash folds only the caller's input, like the real lookup.
func (f *fakePendingStore) Create(ctx context.Context, action domain.PendingChainAction) error {
	if f.failCreateWith != nil {
		return f.failCreateWith
	}
	if _, exists := f.byHash[action.TxHash]; exists {
		return domain.ErrAlreadyExists
	}
	f.byHash[action.TxHash] = action
	return nil
}

func (f *fakePendingStore) GetByTxHash(ctx context.Context, txHash string) (domain.PendingChainAction, error) {
	if f.getOverride != nil {
		return f.getOverride()
	}
	a, ok := f.byHash[strings.ToLower(txHash)]
	if !ok {
		return domain.PendingChainAction{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakePendingStore) ListByWallet(ctx context.Context, wallet string, status domain.PendingActionStatus, limit int) ([]domain.PendingChainAction, error) {
	var out []domain.PendingChainAction
	for _, a := range f.byHash {
		if strings.EqualFold(a.From, wallet) && a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakePendingStore) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingChainAction, error) {
	return nil, nil
}

func (f *fakePendingStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	return 0, nil
}

type fakeBidFeed struct {
	published []domain.BidEvent
	err       error
}

func (f *fakeBidFeed) PublishBid(ctx context.Context, ev domain.BidEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

func (f *fakeBidFeed) SubscribeAuction(ctx context.Context, auctionID string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// etn converts a whole-token count at 18 decimals.
func etn(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func activeAuction() domain.Auction {
	return domain.Auction{
		ID:            "auction-etn-0001",
		NFTID:         "nft-1",
		Status:        domain.AuctionActive,
		StartTime:     time.Now().Add(-time.Hour),
		EndTime:       time.Now().Add(time.Hour),
		SellerAddress: sellerAddr,
		Quantity:      1,
		StartPrice:    etn(1),
		MinIncrement:  new(big.Int).Div(etn(1), big.NewInt(10)), // 0.1
		HighestBid:    etn(1),
		HighestBidder: &[]string{bidderAddr}[0],
	}
}

func bidRequest(amount string) AdmitBidRequest {
	return AdmitBidRequest{
		Type:    string(domain.ActionAuctionBid),
		TxHash:  bidTxHash,
		From:    bidderAddr,
		ChainID: testChainID,
		Payload: &domain.BidPayload{
			AuctionID:          "auction-etn-0001",
			BidAmountBaseUnits: amount,
		},
	}
}

func newTestAdmission(auc domain.Auction) (*Admission, *fakePendingStore, *fakeBidFeed) {
	auctions := &fakeAuctionStore{auctions: map[string]domain.Auction{auc.ID: auc}}
	pending := &fakePendingStore{byHash: map[string]domain.PendingChainAction{}}
	feed := &fakeBidFeed{}
	return NewAdmission(auctions, pending, feed, testChainID, discardLogger()), pending, feed
}

func TestAdmitBid(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects below highest plus increment", func(t *testing.T) {
		adm, _, _ := newTestAdmission(activeAuction())

		// Highest 1, increment 0.1: 1.05 is short of the 1.1 minimum.
		bid := "1050000000000000000"
		_, _, err := adm.AdmitBid(ctx, bidRequest(bid))
		assert.ErrorIs(t, err, domain.ErrBidBelowMinimum)
	})

	t.Run("admits exactly highest plus increment", func(t *testing.T) {
		adm, pending, feed := newTestAdmission(activeAuction())

		bid := "1100000000000000000"
		action, created, err := adm.AdmitBid(ctx, bidRequest(bid))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, domain.PendingStatusPending, action.Status)
		assert.Equal(t, bidderAddr, action.From)
		assert.NotEmpty(t, action.ID)

		// Persisted and fanned out.
		_, err = pending.GetByTxHash(ctx, bidTxHash)
		require.NoError(t, err)
		require.Len(t, feed.published, 1)
		assert.Equal(t, bid, feed.published[0].Amount)
		assert.Equal(t, "auction-etn-0001", feed.published[0].AuctionID)
	})

	t.Run("first bid compares against start price", func(t *testing.T) {
		auc := activeAuction()
		auc.HighestBid = nil
		auc.HighestBidder = nil
		adm, _, _ := newTestAdmission(auc)

		_, _, err := adm.AdmitBid(ctx, bidRequest("999999999999999999"))
		assert.ErrorIs(t, err, domain.ErrBidBelowMinimum)

		_, created, err := adm.AdmitBid(ctx, bidRequest(etn(1).String()))
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("idempotent replay returns stored row", func(t *testing.T) {
		adm, _, feed := newTestAdmission(activeAuction())

		first, created, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		require.NoError(t, err)
		require.True(t, created)

		replay, created, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, replay.ID)

		// No second fan-out for the replay.
		assert.Len(t, feed.published, 1)
	})

	t.Run("hash casing is canonicalized", func(t *testing.T) {
		adm, pending, feed := newTestAdmission(activeAuction())

		req := bidRequest("1100000000000000000")
		req.TxHash = strings.ToUpper(bidTxHash[2:]) // drop 0x before folding
		req.TxHash = "0x" + req.TxHash

		first, created, err := adm.AdmitBid(ctx, req)
		require.NoError(t, err)
		require.True(t, created)
		assert.Equal(t, bidTxHash, first.TxHash)

		// A resubmission in the original casing is the same transaction, not
		// a second row.
		replay, created, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, replay.ID)
		assert.Len(t, pending.byHash, 1)
		assert.Len(t, feed.published, 1)
	})

	t.Run("create collision re-reads surviving row", func(t *testing.T) {
		adm, pending, _ := newTestAdmission(activeAuction())

		// Pre-check misses, the insert collides, the re-read finds the
		// surviving row.
		survivor := domain.PendingChainAction{ID: "winner", TxHash: bidTxHash, Status: domain.PendingStatusPending}
		lookups := 0
		pending.failCreateWith = domain.ErrAlreadyExists
		pending.getOverride = func() (domain.PendingChainAction, error) {
			lookups++
			if lookups == 1 {
				return domain.PendingChainAction{}, domain.ErrNotFound
			}
			return survivor, nil
		}

		got, created, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "winner", got.ID)
	})

	t.Run("ended auction status", func(t *testing.T) {
		auc := activeAuction()
		auc.Status = domain.AuctionEnded
		adm, _, _ := newTestAdmission(auc)

		_, _, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		assert.ErrorIs(t, err, domain.ErrAuctionNotActive)
	})

	t.Run("unknown auction reads as not active", func(t *testing.T) {
		adm, _, _ := newTestAdmission(activeAuction())
		req := bidRequest("1100000000000000000")
		req.Payload.AuctionID = "missing-auction-1"

		_, _, err := adm.AdmitBid(ctx, req)
		assert.ErrorIs(t, err, domain.ErrAuctionNotActive)
	})

	t.Run("past end time", func(t *testing.T) {
		auc := activeAuction()
		auc.EndTime = time.Now().Add(-time.Minute)
		adm, _, _ := newTestAdmission(auc)

		_, _, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		assert.ErrorIs(t, err, domain.ErrAuctionEnded)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		usdt := "cur-usdt"
		adm, _, _ := newTestAdmission(activeAuction())

		req := bidRequest("1100000000000000000")
		req.Payload.CurrencyID = &usdt
		_, _, err := adm.AdmitBid(ctx, req)
		assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	})

	t.Run("structural rejections", func(t *testing.T) {
		adm, _, _ := newTestAdmission(activeAuction())

		mutations := map[string]func(*AdmitBidRequest){
			"wrong type":     func(r *AdmitBidRequest) { r.Type = "NFT_DIRECT_BUY" },
			"bad tx hash":    func(r *AdmitBidRequest) { r.TxHash = "0x123" },
			"bad from":       func(r *AdmitBidRequest) { r.From = "not-an-address" },
			"wrong chain":    func(r *AdmitBidRequest) { r.ChainID = 1 },
			"nil payload":    func(r *AdmitBidRequest) { r.Payload = nil },
			"bad auction id": func(r *AdmitBidRequest) { r.Payload.AuctionID = "x!" },
			"decimal amount": func(r *AdmitBidRequest) { r.Payload.BidAmountBaseUnits = "1.1" },
			"zero amount":    func(r *AdmitBidRequest) { r.Payload.BidAmountBaseUnits = "0" },
			"negative":       func(r *AdmitBidRequest) { r.Payload.BidAmountBaseUnits = "-5" },
		}
		for name, mutate := range mutations {
			req := bidRequest("1100000000000000000")
			mutate(&req)
			_, _, err := adm.AdmitBid(ctx, req)
			assert.ErrorIs(t, err, domain.ErrInvalidPayload, name)
		}
	})

	t.Run("fan-out failure does not roll back", func(t *testing.T) {
		adm, pending, feed := newTestAdmission(activeAuction())
		feed.err = errors.New("redis down")

		_, created, err := adm.AdmitBid(ctx, bidRequest("1100000000000000000"))
		require.NoError(t, err)
		assert.True(t, created)

		_, err = pending.GetByTxHash(ctx, bidTxHash)
		assert.NoError(t, err)
	})
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	adm, pending, _ := newTestAdmission(activeAuction())

	pending.byHash["0xbb"] = domain.PendingChainAction{
		ID: "a1", TxHash: "0xbb", From: bidderAddr, Status: domain.PendingStatusPending,
	}

	t.Run("defaults to PENDING", func(t *testing.T) {
		items, err := adm.ListPending(ctx, bidderAddr, "")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "a1", items[0].ID)
	})

	t.Run("invalid wallet yields empty list", func(t *testing.T) {
		items, err := adm.ListPending(ctx, "nope", domain.PendingStatusPending)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	})

	t.Run("filter by status", func(t *testing.T) {
		items, err := adm.ListPending(ctx, bidderAddr, domain.PendingStatusConfirmed)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMinimumBid(t *testing.T) {
	auc := activeAuction()
	assert.Equal(t, "1100000000000000000", auc.MinimumBid().String())

	auc.HighestBid = nil
	assert.Equal(t, etn(1).String(), auc.MinimumBid().String())

	auc.HighestBid = big.NewInt(0)
	assert.Equal(t, etn(1).String(), auc.MinimumBid().String())
}
