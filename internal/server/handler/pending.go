package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/auction"
	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// maxBodyBytes caps request bodies on the write endpoints.
const maxBodyBytes = 64 * 1024

// pendingActionResponse is the wire shape of a PendingChainAction.
type pendingActionResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	TxHash    string            `json:"txHash"`
	From      string            `json:"from"`
	ChainID   int64             `json:"chainId"`
	Payload   domain.BidPayload `json:"payload"`
	RelatedID string            `json:"relatedId"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toPendingActionResponse(a domain.PendingChainAction) pendingActionResponse {
	return pendingActionResponse{
		ID:        a.ID,
		Type:      string(a.Type),
		TxHash:    a.TxHash,
		From:      a.From,
		ChainID:   a.ChainID,
		Payload:   a.Payload,
		RelatedID: a.RelatedID,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

// PendingHandler serves bid admission and pending-action listing.
type PendingHandler struct {
	admission *auction.Admission
	logger    *slog.Logger
}

// NewPendingHandler creates a PendingHandler.
func NewPendingHandler(admission *auction.Admission, logger *slog.Logger) *PendingHandler {
	return &PendingHandler{
		admission: admission,
		logger:    logger.With(slog.String("handler", "pending")),
	}
}

// AdmitBid validates a declared bid and records it as PENDING. A replayed
// txHash returns the stored row with 200 instead of 201.
// POST /api/pending-actions
func (h *PendingHandler) AdmitBid(w http.ResponseWriter, r *http.Request) {
	var req auction.AdmitBidRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, created, err := h.admission.AdmitBid(r.Context(), req)
	if err != nil {
		if statusForError(err) >= 500 {
			h.logger.ErrorContext(r.Context(), "bid admission failed",
				slog.String("tx_hash", req.TxHash),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPendingActionResponse(action))
}

// ListPending returns a wallet's pending actions, newest first.
// GET /api/pending-actions?wallet=<addr>&status=<PENDING|CONFIRMED|FAILED>
func (h *PendingHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	actions, err := h.admission.ListPending(r.Context(), q.Get("wallet"), domain.PendingActionStatus(q.Get("status")))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "pending list failed",
			slog.String("wallet", q.Get("wallet")),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	items := make([]pendingActionResponse, 0, len(actions))
	for _, a := range actions {
		items = append(items, toPendingActionResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
