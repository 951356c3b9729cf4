package domain

import "errors"

// Sentinel errors grouped by class. Handlers map these onto HTTP statuses:
// invalid-input and state-conflict errors are 4xx and safe to surface,
// upstream failures are 502 and retryable, misconfiguration is fatal.
var (
	// Invalid input: the client must fix the request.
	ErrInvalidAccount = errors.New("invalid account address")
	ErrInvalidPayload = errors.New("invalid payload")

	// Not found / uniqueness.
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrCurrencyNotFound   = errors.New("currency not found")
	ErrCollectionNotFound = errors.New("collection not configured")
	ErrAuctionNotFound    = errors.New("auction not found")

	// State conflicts: the client must refresh state and retry differently.
	ErrAuctionNotActive = errors.New("auction not active")
	ErrAuctionEnded     = errors.New("auction ended")
	ErrCurrencyMismatch = errors.New("bid currency does not match auction currency")
	ErrBidBelowMinimum  = errors.New("bid below minimum")

	// Upstream failures: transient, safe to retry.
	ErrSignerUnavailable = errors.New("signer service unavailable")
	ErrChainUnavailable  = errors.New("chain rpc unavailable")

	// Misconfiguration: deployment defect, never retried.
	ErrSignerNotConfigured = errors.New("signer service not configured")
)
