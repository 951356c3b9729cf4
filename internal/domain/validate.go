package domain

import "regexp"

var (
	// Accounts must be strict lowercase hex-40; reward vouchers are keyed by
	// this exact form, so checksummed or uppercase input is rejected rather
	// than normalized.
	accountPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

	// Bid senders may arrive in any casing.
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

	txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	// Auction ids are either opaque id tokens (cuid/uuid-like) or pure
	// numeric on-chain ids.
	auctionIDPattern = regexp.MustCompile(`^(?:[A-Za-z0-9_-]{10,64}|[0-9]+)$`)
)

// IsRewardAccount reports whether s is a strict lowercase 20-byte hex address.
func IsRewardAccount(s string) bool { return accountPattern.MatchString(s) }

// IsHexAddress reports whether s is a 20-byte hex address in any casing.
func IsHexAddress(s string) bool { return addressPattern.MatchString(s) }

// IsTxHash reports whether s is a 32-byte hex transaction hash.
func IsTxHash(s string) bool { return txHashPattern.MatchString(s) }

// IsAuctionID reports whether s is an acceptable auction identifier.
func IsAuctionID(s string) bool { return auctionIDPattern.MatchString(s) }
