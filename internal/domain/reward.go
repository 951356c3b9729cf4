package domain

// RewardAccumulator is the per-currency global accumulator. AccPerToken is the
// cumulative reward distributed per qualifying unit since genesis, fixed-point
// at 1e27, stored as a base-10 integer string. It is monotonically
// non-decreasing and mutated only by the external distribution process; this
// service reads it and nothing else.
type RewardAccumulator struct {
	CurrencyID  string
	AccPerToken string
}

// ClaimCurrency is the currency summary embedded in a claim voucher.
type ClaimCurrency struct {
	Symbol       string  `json:"symbol"`
	Decimals     int     `json:"decimals"`
	TokenAddress *string `json:"tokenAddress"`
}

// ClaimVoucher is the signed claim returned by PrepareClaim. The caller
// submits it to the on-chain claim contract, which is the final authority on
// double-claim prevention; nothing here tracks "already claimed".
type ClaimVoucher struct {
	Currency  ClaimCurrency `json:"currency"`
	Account   string        `json:"account"`
	Total     string        `json:"total"`
	Deadline  int64         `json:"deadline"`
	Signature string        `json:"signature"`
}

// RewardCycle is the on-chain reward cycle snapshot exposed for inspection.
type RewardCycle struct {
	Index       uint64 `json:"index"`
	AccPerToken string `json:"accPerToken"`
	UpdatedAt   int64  `json:"updatedAt"`
}
