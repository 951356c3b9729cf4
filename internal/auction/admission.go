// Package auction implements the bid admission controller and the
// post-settlement recorder for mirrored auctions.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/money"
)

// maxPendingList caps the pending-action listing.
const maxPendingList = 50

// AdmitBidRequest is a client's declared intent to have submitted a bid
// transaction.
type AdmitBidRequest struct {
	Type      string             `json:"type"`
	TxHash    string             `json:"txHash"`
	From      string             `json:"from"`
	ChainID   int64              `json:"chainId"`
	Payload   *domain.BidPayload `json:"payload"`
	RelatedID string             `json:"relatedId"`
}

// Admission validates declared bids against the mirrored auction state before
// the transaction confirms.
//
// The whole check is optimistic and advisory: it gates whether a transaction
// is worth submitting, not who wins. The minimum-increment comparison is
// read-then-decide without locks, so two concurrent bids can both be admitted
// as PENDING; the auction contract arbitrates on-chain. The only hard
// concurrency guarantee is txHash idempotency, enforced by the storage-layer
// unique constraint.
type Admission struct {
	auctions domain.AuctionStore
	pending  domain.PendingActionStore
	feed     domain.BidFeed
	chainID  int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdmission creates an Admission controller for the given expected chain.
func NewAdmission(
	auctions domain.AuctionStore,
	pending domain.PendingActionStore,
	feed domain.BidFeed,
	chainID int64,
	logger *slog.Logger,
) *Admission {
	return &Admission{
		auctions: auctions,
		pending:  pending,
		feed:     feed,
		chainID:  chainID,
		logger:   logger.With(slog.String("component", "bid_admission")),
		now:      time.Now,
	}
}

// AdmitBid runs the validation ladder and persists the pending action.
// It reports created=false when the txHash was already recorded, in which
// case the stored row is returned unchanged (idempotent replay).
func (a *Admission) AdmitBid(ctx context.Context, req AdmitBidRequest) (domain.PendingChainAction, bool, error) {
	// 1. Structural validation, before touching any store.
	if domain.PendingActionType(req.Type) != domain.ActionAuctionBid ||
		!domain.IsTxHash(req.TxHash) ||
		!domain.IsHexAddress(req.From) ||
		req.ChainID != a.chainID ||
		req.Payload == nil ||
		!domain.IsAuctionID(req.Payload.AuctionID) {
		return domain.PendingChainAction{}, false, domain.ErrInvalidPayload
	}
	bid, err := money.ParseBaseUnits(req.Payload.BidAmountBaseUnits)
	if err != nil || bid.Sign() <= 0 {
		return domain.PendingChainAction{}, false, domain.ErrInvalidPayload
	}

	// The hash is stored lowercase so the storage-layer unique constraint
	// cannot be sidestepped by resubmitting in a different hex casing.
	txHash := strings.ToLower(req.TxHash)

	// 2. Idempotent replay: same hash, same answer, no second row.
	if existing, err := a.pending.GetByTxHash(ctx, txHash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.PendingChainAction{}, false, fmt.Errorf("auction: lookup pending action: %w", err)
	}

	// 3. Auction must exist and be ACTIVE.
	auc, err := a.auctions.GetByID(ctx, req.Payload.AuctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return domain.PendingChainAction{}, false, domain.ErrAuctionNotActive
		}
		return domain.PendingChainAction{}, false, fmt.Errorf("auction: lookup auction: %w", err)
	}
	if auc.Status != domain.AuctionActive {
		return domain.PendingChainAction{}, false, domain.ErrAuctionNotActive
	}

	// 4. Temporal window.
	if !a.now().Before(auc.EndTime) {
		return domain.PendingChainAction{}, false, domain.ErrAuctionEnded
	}

	// 5. The bid must be denominated in the auction's currency.
	if !domain.SameCurrency(req.Payload.CurrencyID, auc.CurrencyID) {
		return domain.PendingChainAction{}, false, domain.ErrCurrencyMismatch
	}

	// 6. Minimum increment, compared exactly over big integers.
	if bid.Cmp(auc.MinimumBid()) < 0 {
		return domain.PendingChainAction{}, false, domain.ErrBidBelowMinimum
	}

	// 7. Persist as PENDING. A concurrent create with the same hash loses to
	// the unique constraint and observes the surviving row.
	action := domain.PendingChainAction{
		ID:        uuid.NewString(),
		Type:      domain.ActionAuctionBid,
		TxHash:    txHash,
		From:      strings.ToLower(req.From),
		ChainID:   req.ChainID,
		Payload:   *req.Payload,
		RelatedID: auc.ID,
		Status:    domain.PendingStatusPending,
		CreatedAt: a.now().UTC(),
	}
	if err := a.pending.Create(ctx, action); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			existing, err := a.pending.GetByTxHash(ctx, txHash)
			if err != nil {
				return domain.PendingChainAction{}, false, fmt.Errorf("auction: reread pending action: %w", err)
			}
			return existing, false, nil
		}
		return domain.PendingChainAction{}, false, fmt.Errorf("auction: persist pending action: %w", err)
	}

	// Fan-out is best-effort: a feed failure never rolls back the record.
	ev := domain.BidEvent{
		TxHash:     action.TxHash,
		From:       action.From,
		AuctionID:  auc.ID,
		Amount:     bid.String(),
		CurrencyID: req.Payload.CurrencyID,
		At:         action.CreatedAt,
	}
	if err := a.feed.PublishBid(ctx, ev); err != nil {
		a.logger.WarnContext(ctx, "bid fan-out failed",
			slog.String("tx_hash", action.TxHash),
			slog.String("auction_id", auc.ID),
			slog.String("error", err.Error()),
		)
	}

	return action, true, nil
}

// ListPending returns a wallet's actions of the given status, newest first,
// capped at 50. An invalid wallet yields an empty list rather than an error.
func (a *Admission) ListPending(ctx context.Context, wallet string, status domain.PendingActionStatus) ([]domain.PendingChainAction, error) {
	if !domain.IsHexAddress(wallet) {
		return []domain.PendingChainAction{}, nil
	}
	if status == "" {
		status = domain.PendingStatusPending
	}
	actions, err := a.pending.ListByWallet(ctx, wallet, status, maxPendingList)
	if err != nil {
		return nil, fmt.Errorf("auction: list pending actions: %w", err)
	}
	if actions == nil {
		actions = []domain.PendingChainAction{}
	}
	return actions, nil
}
