package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/auction"
)

// SettlementHandler serves the post-confirmation attach-tx endpoint.
type SettlementHandler struct {
	recorder *auction.Recorder
	logger   *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(recorder *auction.Recorder, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		recorder: recorder,
		logger:   logger.With(slog.String("handler", "settlement")),
	}
}

// AttachTx records the effect of a confirmed on-chain transaction.
// POST /api/marketplace/auctions/attach-tx
func (h *SettlementHandler) AttachTx(w http.ResponseWriter, r *http.Request) {
	var req auction.AttachTxRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid request body"})
		return
	}

	if err := h.recorder.AttachTx(r.Context(), req); err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.logger.ErrorContext(r.Context(), "attach tx failed",
				slog.String("action", req.Action),
				slog.String("tx_hash", req.TxHash),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
