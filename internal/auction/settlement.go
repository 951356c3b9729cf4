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

// Alerter is the operational notification surface the recorder uses for
// settled sales; notify.Service implements it.
type Alerter interface {
	Notify(ctx context.Context, title, message string) error
}

// AttachTxRequest records the effect of a confirmed on-chain transaction.
// Action selects which fields apply:
//
//	BID:       AuctionID, TxHash, Bidder, AmountBaseUnits, optional NewEndTime
//	CANCELLED: AuctionID, or (Contract, TokenID[, Seller]); TxHash
//	ENDED:     AuctionID, TxHash, Winner, optional AmountBaseUnits
type AttachTxRequest struct {
	Action          string     `json:"action"`
	AuctionID       string     `json:"auctionId"`
	TxHash          string     `json:"txHash"`
	Bidder          string     `json:"bidder"`
	AmountBaseUnits string     `json:"amountBaseUnits"`
	NewEndTime      *time.Time `json:"newEndTime"`
	Contract        string     `json:"contract"`
	TokenID         string     `json:"tokenId"`
	Seller          string     `json:"seller"`
	Winner          string     `json:"winner"`
}

// Recorder applies confirmed settlement outcomes to the off-chain mirror.
// It runs after chain confirmation, so it updates the highest-bid fields the
// admission controller deliberately leaves alone. Every write is idempotent:
// auction transitions are status-guarded and activity rows dedupe on the
// (auction, txHash, kind) key, so a replayed call is a no-op.
type Recorder struct {
	auctions domain.AuctionStore
	activity domain.ActivityStore
	nfts     domain.NFTStore
	alerter  Alerter
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecorder creates a Recorder. alerter may be nil when operational
// notifications are not configured.
func NewRecorder(
	auctions domain.AuctionStore,
	activity domain.ActivityStore,
	nfts domain.NFTStore,
	alerter Alerter,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		auctions: auctions,
		activity: activity,
		nfts:     nfts,
		alerter:  alerter,
		logger:   logger.With(slog.String("component", "settlement")),
		now:      time.Now,
	}
}

// AttachTx dispatches on the action tag.
func (r *Recorder) AttachTx(ctx context.Context, req AttachTxRequest) error {
	if !domain.IsTxHash(req.TxHash) {
		return domain.ErrInvalidPayload
	}
	// Lowercase so the (auction, txHash, kind) activity dedupe key sees one
	// canonical form regardless of submitted hex casing.
	req.TxHash = strings.ToLower(req.TxHash)
	switch req.Action {
	case "BID":
		return r.attachBid(ctx, req)
	case "CANCELLED":
		return r.attachCancelled(ctx, req)
	case "ENDED":
		return r.attachEnded(ctx, req)
	default:
		return domain.ErrInvalidPayload
	}
}

// attachBid records a confirmed bid: highest-bid fields, an optional forward
// end-time extension, and a BID activity row.
func (r *Recorder) attachBid(ctx context.Context, req AttachTxRequest) error {
	if !domain.IsHexAddress(req.Bidder) || !domain.IsAuctionID(req.AuctionID) {
		return domain.ErrInvalidPayload
	}
	amount, err := money.ParseBaseUnits(req.AmountBaseUnits)
	if err != nil || amount.Sign() <= 0 {
		return domain.ErrInvalidPayload
	}

	auc, err := r.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return err
	}

	if err := r.auctions.RecordHighestBid(ctx, auc.ID, req.Bidder, amount, req.NewEndTime); err != nil {
		return fmt.Errorf("auction: record highest bid: %w", err)
	}

	inserted, err := r.activity.InsertActivity(ctx, domain.NFTActivity{
		ID:         uuid.NewString(),
		Kind:       domain.ActivityBid,
		NFTID:      auc.NFTID,
		AuctionID:  auc.ID,
		TxHash:     req.TxHash,
		From:       req.Bidder,
		To:         auc.SellerAddress,
		Amount:     amount.String(),
		CurrencyID: auc.CurrencyID,
		CreatedAt:  r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("auction: insert bid activity: %w", err)
	}
	if !inserted {
		r.logger.DebugContext(ctx, "bid activity already recorded",
			slog.String("tx_hash", req.TxHash),
			slog.String("auction_id", auc.ID),
		)
	}
	return nil
}

// attachCancelled transitions the auction to CANCELLED. The target is resolved
// by id when given, otherwise by the newest ACTIVE auction for the token,
// optionally restricted to a seller.
func (r *Recorder) attachCancelled(ctx context.Context, req AttachTxRequest) error {
	auc, err := r.resolveTarget(ctx, req)
	if err != nil {
		return err
	}
	switch auc.Status {
	case domain.AuctionCancelled:
		// Replay of an applied cancellation.
		r.logger.DebugContext(ctx, "auction already cancelled",
			slog.String("auction_id", auc.ID),
			slog.String("tx_hash", req.TxHash),
		)
		return nil
	case domain.AuctionEnded:
		return domain.ErrAuctionNotActive
	}
	// Clamping endTime to now makes time-based consumers see closure
	// immediately instead of waiting out the original window.
	if err := r.auctions.MarkCancelled(ctx, auc.ID, r.now().UTC()); err != nil {
		return fmt.Errorf("auction: mark cancelled: %w", err)
	}
	r.logger.InfoContext(ctx, "auction cancelled",
		slog.String("auction_id", auc.ID),
		slog.String("tx_hash", req.TxHash),
	)
	return nil
}

// attachEnded settles a finished auction: status transition, best-effort
// ownership transfer to the winner, then the sale record and SALE activity.
func (r *Recorder) attachEnded(ctx context.Context, req AttachTxRequest) error {
	if !domain.IsHexAddress(req.Winner) || !domain.IsAuctionID(req.AuctionID) {
		return domain.ErrInvalidPayload
	}
	auc, err := r.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return err
	}
	switch auc.Status {
	case domain.AuctionEnded:
		// Replay of an applied settlement: the sale and activity rows already
		// exist, so re-running the write sequence would duplicate the sale.
		r.logger.DebugContext(ctx, "auction already settled",
			slog.String("auction_id", auc.ID),
			slog.String("tx_hash", req.TxHash),
		)
		return nil
	case domain.AuctionCancelled:
		return domain.ErrAuctionNotActive
	}

	amount := auc.HighestBid
	if req.AmountBaseUnits != "" {
		if amount, err = money.ParseBaseUnits(req.AmountBaseUnits); err != nil {
			return domain.ErrInvalidPayload
		}
	}
	if amount == nil {
		return domain.ErrInvalidPayload
	}

	if err := r.auctions.MarkEnded(ctx, auc.ID); err != nil {
		return fmt.Errorf("auction: mark ended: %w", err)
	}

	// Ownership transfer is best-effort. A failure here is repairable by the
	// indexer, so it must not fail the settlement.
	if err := r.nfts.TransferOwner(ctx, auc.NFTID, req.Winner); err != nil {
		r.logger.WarnContext(ctx, "ownership transfer failed",
			slog.String("nft_id", auc.NFTID),
			slog.String("winner", req.Winner),
			slog.String("error", err.Error()),
		)
	}

	now := r.now().UTC()
	if err := r.activity.InsertSale(ctx, domain.MarketplaceSale{
		ID:         uuid.NewString(),
		AuctionID:  auc.ID,
		NFTID:      auc.NFTID,
		Seller:     auc.SellerAddress,
		Buyer:      req.Winner,
		Quantity:   auc.Quantity,
		Amount:     amount.String(),
		CurrencyID: auc.CurrencyID,
		TxHash:     req.TxHash,
		SoldAt:     now,
	}); err != nil {
		return fmt.Errorf("auction: insert sale: %w", err)
	}

	if _, err := r.activity.InsertActivity(ctx, domain.NFTActivity{
		ID:         uuid.NewString(),
		Kind:       domain.ActivitySale,
		NFTID:      auc.NFTID,
		AuctionID:  auc.ID,
		TxHash:     req.TxHash,
		From:       auc.SellerAddress,
		To:         req.Winner,
		Amount:     amount.String(),
		CurrencyID: auc.CurrencyID,
		CreatedAt:  now,
	}); err != nil {
		return fmt.Errorf("auction: insert sale activity: %w", err)
	}

	if r.alerter != nil {
		msg := fmt.Sprintf("auction %s settled: %s -> %s for %s base units (tx %s)",
			auc.ID, auc.SellerAddress, req.Winner, amount.String(), req.TxHash)
		if err := r.alerter.Notify(ctx, "Auction settled", msg); err != nil {
			r.logger.WarnContext(ctx, "settlement notification failed",
				slog.String("auction_id", auc.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// resolveTarget finds the auction a CANCELLED request refers to.
func (r *Recorder) resolveTarget(ctx context.Context, req AttachTxRequest) (domain.Auction, error) {
	if req.AuctionID != "" {
		if !domain.IsAuctionID(req.AuctionID) {
			return domain.Auction{}, domain.ErrInvalidPayload
		}
		return r.auctions.GetByID(ctx, req.AuctionID)
	}
	if !domain.IsHexAddress(req.Contract) || req.TokenID == "" {
		return domain.Auction{}, domain.ErrInvalidPayload
	}
	var seller *string
	if req.Seller != "" {
		if !domain.IsHexAddress(req.Seller) {
			return domain.Auction{}, domain.ErrInvalidPayload
		}
		seller = &req.Seller
	}
	auc, err := r.auctions.FindActiveByToken(ctx, req.Contract, req.TokenID, seller)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Auction{}, domain.ErrAuctionNotFound
		}
		return domain.Auction{}, err
	}
	return auc, nil
}
