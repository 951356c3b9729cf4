package rewards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/signer"
)

const (
	testAccount  = "0x1111111111111111111111111111111111111111"
	testContract = "0x2222222222222222222222222222222222222222"
	usdtAddress  = "0x3333333333333333333333333333333333333333"
)

type fakeCurrencyStore struct {
	byID map[string]domain.Currency
}

func (f *fakeCurrencyStore) ActiveNative(ctx context.Context) (domain.Currency, error) {
	for _, c := range f.byID {
		if c.Kind == domain.CurrencyNative && c.Active {
			return c, nil
		}
	}
	return domain.Currency{}, domain.ErrCurrencyNotFound
}

func (f *fakeCurrencyStore) ActiveByTokenAddress(ctx context.Context, addr string) (domain.Currency, error) {
	for _, c := range f.byID {
		if c.Active && c.TokenAddress != nil && *c.TokenAddress == addr {
			return c, nil
		}
	}
	return domain.Currency{}, domain.ErrCurrencyNotFound
}

func (f *fakeCurrencyStore) ActiveBySymbol(ctx context.Context, symbol string) (domain.Currency, error) {
	for _, c := range f.byID {
		if c.Active && c.Symbol == symbol {
			return c, nil
		}
	}
	return domain.Currency{}, domain.ErrCurrencyNotFound
}

func (f *fakeCurrencyStore) GetByID(ctx context.Context, id string) (domain.Currency, error) {
	c, ok := f.byID[id]
	if !ok {
		return domain.Currency{}, domain.ErrCurrencyNotFound
	}
	return c, nil
}

type fakeAccStore struct {
	accs map[string]string
}

func (f *fakeAccStore) AccPerToken(ctx context.Context, currencyID string) (string, error) {
	acc, ok := f.accs[currencyID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return acc, nil
}

type fakeHoldings struct {
	counts map[string]int64
}

func (f *fakeHoldings) CountOwned(ctx context.Context, collectionContract, owner string) (int64, error) {
	return f.counts[owner], nil
}

type fakeCollections struct{ contract string }

func (f *fakeCollections) ContractByName(ctx context.Context, name string) (string, error) {
	if f.contract == "" {
		return "", domain.ErrCollectionNotFound
	}
	return f.contract, nil
}

type fakeSigner struct {
	lastReq signer.Request
	sig     string
	err     error
}

func (f *fakeSigner) Sign(ctx context.Context, req signer.Request) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.sig, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(t *testing.T) (*Engine, *fakeSigner, *fakeAccStore, *fakeHoldings) {
	t.Helper()
	usdt := usdtAddress
	currencies := &fakeCurrencyStore{byID: map[string]domain.Currency{
		"cur-native": {ID: "cur-native", Kind: domain.CurrencyNative, Symbol: "ETN", Decimals: 18, Active: true},
		"cur-usdt":   {ID: "cur-usdt", Kind: domain.CurrencyERC20, Symbol: "USDT", Decimals: 6, TokenAddress: &usdt, Active: true},
	}}
	accs := &fakeAccStore{accs: map[string]string{
		// 3e27: 3 whole tokens per qualifying unit at 1e18 scale.
		"cur-native": "3000000000000000000000000000",
	}}
	holdings := &fakeHoldings{counts: map[string]int64{testAccount: 7}}
	sc := &fakeSigner{sig: "0xsigned"}

	eng := NewEngine(currencies, accs, holdings, &fakeCollections{}, sc,
		Config{CollectionAddress: testContract, DeadlineTTL: time.Hour}, testLogger())
	return eng, sc, accs, holdings
}

func TestPrepareClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("computes entitlement from live holdings", func(t *testing.T) {
		eng, sc, _, _ := testEngine(t)

		voucher, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		require.NoError(t, err)

		// floor(7 * 3e27 / 1e9) = 21e18.
		assert.Equal(t, "21000000000000000000", voucher.Total)
		assert.Equal(t, "ETN", voucher.Currency.Symbol)
		assert.Equal(t, testAccount, voucher.Account)
		assert.Equal(t, "0xsigned", voucher.Signature)

		// Native claims are signed against the zero address.
		assert.Equal(t, "0x0000000000000000000000000000000000000000", sc.lastReq.Token)
		assert.Equal(t, voucher.Total, sc.lastReq.Total)
		assert.Greater(t, voucher.Deadline, time.Now().Unix())
	})

	t.Run("empty selector resolves native", func(t *testing.T) {
		eng, _, _, _ := testEngine(t)
		voucher, err := eng.PrepareClaim(ctx, testAccount, "")
		require.NoError(t, err)
		assert.Equal(t, "ETN", voucher.Currency.Symbol)
	})

	t.Run("address selector resolves token currency", func(t *testing.T) {
		eng, sc, accs, _ := testEngine(t)
		accs.accs["cur-usdt"] = "2000000000000000000000000000"

		voucher, err := eng.PrepareClaim(ctx, testAccount, usdtAddress)
		require.NoError(t, err)
		assert.Equal(t, "USDT", voucher.Currency.Symbol)
		assert.Equal(t, usdtAddress, sc.lastReq.Token)
		assert.Equal(t, "14000000000000000000", voucher.Total)
	})

	t.Run("zero holdings still signs a zero voucher", func(t *testing.T) {
		eng, _, _, holdings := testEngine(t)
		holdings.counts = map[string]int64{}

		voucher, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		require.NoError(t, err)
		assert.Equal(t, "0", voucher.Total)
		assert.Equal(t, "0xsigned", voucher.Signature)
	})

	t.Run("missing accumulator means zero entitlement", func(t *testing.T) {
		eng, _, accs, _ := testEngine(t)
		accs.accs = map[string]string{}

		voucher, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		require.NoError(t, err)
		assert.Equal(t, "0", voucher.Total)
	})

	t.Run("rejects invalid accounts", func(t *testing.T) {
		eng, _, _, _ := testEngine(t)
		for _, account := range []string{
			"",
			"0x123",
			"0X1111111111111111111111111111111111111111",
			"0x1111111111111111111111111111111111111111; DROP TABLE nfts",
			"0xABCDEF1111111111111111111111111111111111", // uppercase hex rejected
		} {
			_, err := eng.PrepareClaim(ctx, account, "ETN")
			assert.ErrorIs(t, err, domain.ErrInvalidAccount, "account %q", account)
		}
	})

	t.Run("unknown currency selector", func(t *testing.T) {
		eng, _, _, _ := testEngine(t)
		_, err := eng.PrepareClaim(ctx, testAccount, "DOGE")
		assert.ErrorIs(t, err, domain.ErrCurrencyNotFound)
	})

	t.Run("signer failure is surfaced", func(t *testing.T) {
		eng, sc, _, _ := testEngine(t)
		sc.err = domain.ErrSignerUnavailable

		_, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		assert.ErrorIs(t, err, domain.ErrSignerUnavailable)
	})

	t.Run("no collection configured", func(t *testing.T) {
		currencies := &fakeCurrencyStore{byID: map[string]domain.Currency{
			"cur-native": {ID: "cur-native", Kind: domain.CurrencyNative, Symbol: "ETN", Decimals: 18, Active: true},
		}}
		eng := NewEngine(currencies, &fakeAccStore{}, &fakeHoldings{}, &fakeCollections{}, &fakeSigner{sig: "0xs"},
			Config{}, testLogger())

		_, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
	})

	t.Run("collection resolved by name when address unset", func(t *testing.T) {
		currencies := &fakeCurrencyStore{byID: map[string]domain.Currency{
			"cur-native": {ID: "cur-native", Kind: domain.CurrencyNative, Symbol: "ETN", Decimals: 18, Active: true},
		}}
		accs := &fakeAccStore{accs: map[string]string{"cur-native": "1000000000"}}
		holdings := &fakeHoldings{counts: map[string]int64{testAccount: 2}}
		eng := NewEngine(currencies, accs, holdings, &fakeCollections{contract: testContract}, &fakeSigner{sig: "0xs"},
			Config{CollectionName: "Panthart Genesis"}, testLogger())

		voucher, err := eng.PrepareClaim(ctx, testAccount, "ETN")
		require.NoError(t, err)
		assert.Equal(t, "2", voucher.Total) // floor(2 * 1e9 / 1e9)
	})
}

func TestPrepareClaimCorruptAccumulator(t *testing.T) {
	eng, _, accs, _ := testEngine(t)
	accs.accs["cur-native"] = "not-a-number"

	_, err := eng.PrepareClaim(context.Background(), testAccount, "ETN")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidAccount))
}
