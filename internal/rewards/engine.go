// Package rewards computes reward entitlements from the per-currency global
// accumulator and prepares signed claim vouchers.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/money"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/signer"
)

// The accumulator is fixed-point at 1e27 while token amounts are 1e18;
// entitlements divide by the 1e9 difference.
var accRescale = new(big.Int).SetUint64(1_000_000_000)

// nativeSelector is the selector value that resolves to the active native
// currency, alongside the empty string.
const nativeSelector = "ETN"

// SignerClient is the remote signing surface the engine requires.
type SignerClient interface {
	Sign(ctx context.Context, req signer.Request) (string, error)
}

// Config pins the qualifying collection. When Address is empty the engine
// falls back to resolving Name through the collection store.
type Config struct {
	CollectionAddress string
	CollectionName    string
	DeadlineTTL       time.Duration
}

// Engine prepares claim vouchers. Entitlement is a pure function of current
// holdings and the current accumulator: nothing is cached, nothing here
// tracks "already claimed" (the claim contract does, atomically).
type Engine struct {
	currencies  domain.CurrencyStore
	accs        domain.RewardAccumulatorStore
	holdings    domain.HoldingsStore
	collections domain.CollectionStore
	signer      SignerClient
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(
	currencies domain.CurrencyStore,
	accs domain.RewardAccumulatorStore,
	holdings domain.HoldingsStore,
	collections domain.CollectionStore,
	sc SignerClient,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.DeadlineTTL <= 0 {
		cfg.DeadlineTTL = time.Hour
	}
	return &Engine{
		currencies:  currencies,
		accs:        accs,
		holdings:    holdings,
		collections: collections,
		signer:      sc,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "rewards")),
		now:         time.Now,
	}
}

// PrepareClaim resolves the account and currency, computes the entitlement
// from a live holdings count, and obtains a signed claim voucher from the
// remote signer. Zero-entitlement claims are valid and still signed.
func (e *Engine) PrepareClaim(ctx context.Context, account, currencySelector string) (domain.ClaimVoucher, error) {
	account = strings.TrimSpace(account)
	if !domain.IsRewardAccount(account) {
		return domain.ClaimVoucher{}, domain.ErrInvalidAccount
	}

	currency, err := e.resolveCurrency(ctx, currencySelector)
	if err != nil {
		return domain.ClaimVoucher{}, err
	}

	collection, err := e.resolveCollection(ctx)
	if err != nil {
		return domain.ClaimVoucher{}, err
	}

	// Live count: re-signing a stale count would let an account claim on
	// holdings it no longer has.
	count, err := e.holdings.CountOwned(ctx, collection, account)
	if err != nil {
		return domain.ClaimVoucher{}, fmt.Errorf("rewards: count holdings: %w", err)
	}

	accPerToken, err := e.accs.AccPerToken(ctx, currency.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.ClaimVoucher{}, fmt.Errorf("rewards: read accumulator: %w", err)
		}
		accPerToken = "0" // no distribution for this currency yet
	}

	total, err := e.entitlement(count, accPerToken)
	if err != nil {
		return domain.ClaimVoucher{}, err
	}

	deadline := e.now().Add(e.cfg.DeadlineTTL).Unix()

	signature, err := e.signer.Sign(ctx, signer.Request{
		Account:  account,
		Token:    currency.AddressOrZero(),
		Total:    total,
		Deadline: deadline,
	})
	if err != nil {
		return domain.ClaimVoucher{}, err
	}

	e.logger.InfoContext(ctx, "claim prepared",
		slog.String("account", account),
		slog.String("currency", currency.Symbol),
		slog.Int64("holdings", count),
		slog.String("total", total),
	)

	return domain.ClaimVoucher{
		Currency: domain.ClaimCurrency{
			Symbol:       currency.Symbol,
			Decimals:     currency.Decimals,
			TokenAddress: currency.TokenAddress,
		},
		Account:   account,
		Total:     total,
		Deadline:  deadline,
		Signature: signature,
	}, nil
}

// resolveCurrency maps a selector to exactly one active currency: address
// input matches the token address case-insensitively, empty or the native
// symbol selector matches the unique active native row, anything else matches
// by symbol.
func (e *Engine) resolveCurrency(ctx context.Context, selector string) (domain.Currency, error) {
	selector = strings.TrimSpace(selector)
	switch {
	case domain.IsHexAddress(selector):
		return e.currencies.ActiveByTokenAddress(ctx, selector)
	case selector == "" || strings.EqualFold(selector, nativeSelector):
		return e.currencies.ActiveNative(ctx)
	default:
		return e.currencies.ActiveBySymbol(ctx, selector)
	}
}

// resolveCollection returns the qualifying collection contract, preferring
// the configured address and falling back to a lookup by name.
func (e *Engine) resolveCollection(ctx context.Context) (string, error) {
	if e.cfg.CollectionAddress != "" {
		return e.cfg.CollectionAddress, nil
	}
	if e.cfg.CollectionName == "" {
		return "", domain.ErrCollectionNotFound
	}
	contract, err := e.collections.ContractByName(ctx, e.cfg.CollectionName)
	if err != nil {
		return "", err
	}
	return contract, nil
}

// entitlement computes floor(count * accPerToken / 1e9) exactly.
func (e *Engine) entitlement(count int64, accPerToken string) (string, error) {
	acc, err := money.ParseBaseUnits(accPerToken)
	if err != nil {
		return "", fmt.Errorf("rewards: accumulator %q: %w", accPerToken, err)
	}
	total := money.MulDivFloor(big.NewInt(count), acc, accRescale)
	return total.String(), nil
}
