// Package handler implements the HTTP endpoints of the marketplace API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// writeJSON marshals v and writes it with the given status. A marshal failure
// falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

// statusForError maps domain sentinels to HTTP statuses. Validation and
// admission-rule failures are client errors; missing entities are 404;
// upstream collaborator failures are gateway errors.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAccount),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrBidBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCurrencyNotFound),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSignerNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSignerUnavailable),
		errors.Is(err, domain.ErrChainUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
