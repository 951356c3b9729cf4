package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

const (
	wantContract = "0x9999999999999999999999999999999999999999"
	otherToken   = "0x8888888888888888888888888888888888888888"
	usdtToken    = "0x3333333333333333333333333333333333333333"
)

type fakeMarket struct {
	next     uint64
	listings map[uint64]domain.OnChainListing
	failIDs  map[uint64]bool

	symbols      map[string]string
	decimals     map[string]int
	metadataErr  error
	listingCalls atomic.Int64
}

func (f *fakeMarket) NextListingID(ctx context.Context) (uint64, error) {
	return f.next, nil
}

func (f *fakeMarket) Listing(ctx context.Context, id uint64) (domain.OnChainListing, error) {
	f.listingCalls.Add(1)
	if f.failIDs[id] {
		return domain.OnChainListing{}, domain.ErrChainUnavailable
	}
	l, ok := f.listings[id]
	if !ok {
		return domain.OnChainListing{}, domain.ErrChainUnavailable
	}
	return l, nil
}

func (f *fakeMarket) TokenSymbol(ctx context.Context, token string) (string, error) {
	if f.metadataErr != nil {
		return "", f.metadataErr
	}
	return f.symbols[token], nil
}

func (f *fakeMarket) TokenDecimals(ctx context.Context, token string) (int, error) {
	if f.metadataErr != nil {
		return 0, f.metadataErr
	}
	return f.decimals[token], nil
}

func listingFixture(id uint64, seller string, active bool) domain.OnChainListing {
	return domain.OnChainListing{
		ID:            id,
		Seller:        seller,
		TokenContract: wantContract,
		TokenID:       big.NewInt(7),
		Standard:      domain.StandardERC721,
		Quantity:      1,
		Currency:      "", // native
		UnitPrice:     big.NewInt(2_000_000_000_000_000_000), // 2 ETN
		StartTime:     time.Now().Add(-time.Hour).Unix(),
		EndTime:       0,
		Active:        active,
	}
}

func newTestReader(market *fakeMarket) *Reader {
	return NewReader(market, "ETN", 18, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScanRecentListings(t *testing.T) {
	ctx := context.Background()

	t.Run("returns only active matching listings", func(t *testing.T) {
		market := &fakeMarket{
			next: 6,
			listings: map[uint64]domain.OnChainListing{
				0: listingFixture(0, "0xaaa0000000000000000000000000000000000000", true),
				1: listingFixture(1, "0xbbb0000000000000000000000000000000000000", false), // inactive
				2: listingFixture(2, "0xccc0000000000000000000000000000000000000", true),
				3: listingFixture(3, "0xddd0000000000000000000000000000000000000", true),
				4: func() domain.OnChainListing { // wrong token
					l := listingFixture(4, "0xeee0000000000000000000000000000000000000", true)
					l.TokenContract = otherToken
					return l
				}(),
				5: listingFixture(5, "0xfff0000000000000000000000000000000000000", false), // inactive
			},
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		require.Len(t, out, 3)

		for _, l := range out {
			assert.Equal(t, wantContract, l.NFT.Contract)
			assert.Equal(t, "7", l.NFT.TokenID)
			assert.Equal(t, "ETN", l.Currency.Symbol)
			assert.Equal(t, 18, l.Currency.Decimals)
			assert.Equal(t, "2000000000000000000", l.Price.UnitBaseUnits)
			assert.Equal(t, "2", l.Price.Unit)
			assert.Equal(t, "2", l.Price.Total)
			assert.Nil(t, l.EndTime)
		}
	})

	t.Run("newest first and seller dedup", func(t *testing.T) {
		seller := "0xaaa0000000000000000000000000000000000000"
		older := listingFixture(1, seller, true)
		older.UnitPrice = big.NewInt(1)
		newer := listingFixture(2, seller, true)
		newer.UnitPrice = big.NewInt(5)

		market := &fakeMarket{
			next:     3,
			listings: map[uint64]domain.OnChainListing{1: older, 2: newer},
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
		// Backward scan sees id 2 first; the duplicate seller's older listing
		// is dropped.
		assert.Equal(t, "5", out[0].Price.UnitBaseUnits)
	})

	t.Run("individual read failures are swallowed", func(t *testing.T) {
		market := &fakeMarket{
			next: 4,
			listings: map[uint64]domain.OnChainListing{
				1: listingFixture(1, "0xaaa0000000000000000000000000000000000000", true),
			},
			failIDs: map[uint64]bool{2: true, 3: true},
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("filters listings outside their time window", func(t *testing.T) {
		future := listingFixture(0, "0xaaa0000000000000000000000000000000000000", true)
		future.StartTime = time.Now().Add(time.Hour).Unix()

		expired := listingFixture(1, "0xbbb0000000000000000000000000000000000000", true)
		expired.EndTime = time.Now().Add(-time.Minute).Unix()

		market := &fakeMarket{
			next:     2,
			listings: map[uint64]domain.OnChainListing{0: future, 1: expired},
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("scan is bounded by maxToScan", func(t *testing.T) {
		market := &fakeMarket{next: 1000, listings: map[uint64]domain.OnChainListing{}}
		r := newTestReader(market)

		_, err := r.ScanRecentListings(ctx, wantContract, "7", 30)
		require.NoError(t, err)
		assert.Equal(t, int64(30), market.listingCalls.Load())
	})

	t.Run("erc20 currency metadata", func(t *testing.T) {
		l := listingFixture(0, "0xaaa0000000000000000000000000000000000000", true)
		l.Currency = usdtToken
		l.UnitPrice = big.NewInt(2_500_000)
		l.Quantity = 2

		market := &fakeMarket{
			next:     1,
			listings: map[uint64]domain.OnChainListing{0: l},
			symbols:  map[string]string{usdtToken: "USDT"},
			decimals: map[string]int{usdtToken: 6},
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "USDT", out[0].Currency.Symbol)
		assert.Equal(t, usdtToken, out[0].Currency.Address)
		assert.Equal(t, "2.5", out[0].Price.Unit)
		assert.Equal(t, "5", out[0].Price.Total)
		assert.Equal(t, "5000000", out[0].Price.TotalBaseUnits)
	})

	t.Run("metadata failure falls back to placeholder", func(t *testing.T) {
		l := listingFixture(0, "0xaaa0000000000000000000000000000000000000", true)
		l.Currency = usdtToken

		market := &fakeMarket{
			next:        1,
			listings:    map[uint64]domain.OnChainListing{0: l},
			metadataErr: errors.New("contract reverted"),
		}
		r := newTestReader(market)

		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "TOKEN", out[0].Currency.Symbol)
		assert.Equal(t, 18, out[0].Currency.Decimals)
	})

	t.Run("empty market", func(t *testing.T) {
		r := newTestReader(&fakeMarket{next: 0})
		out, err := r.ScanRecentListings(ctx, wantContract, "7", 10)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("non-numeric token id", func(t *testing.T) {
		r := newTestReader(&fakeMarket{next: 5, listings: map[uint64]domain.OnChainListing{}})
		out, err := r.ScanRecentListings(ctx, wantContract, "abc", 10)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
