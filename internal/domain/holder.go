package domain

import "time"

// TokenHolder is an owner wallet with its aggregated balance of the tracked
// token. A single owner may hold the token across several token accounts;
// Address keeps one representative token account for reference.
type TokenHolder struct {
	Owner      string   `json:"owner"`
	Address    string   `json:"address"`
	Balance    float64  `json:"balance"`
	UIAmount   float64  `json:"ui_amount"`
	Decimals   uint8    `json:"decimals"`
	Percentage *float64 `json:"percentage,omitempty"` // share of supply, when supply is known
}

// TokenHolderSnapshot is the latest ranked holder list for a mint.
// Holders are sorted by balance descending; each discovery run replaces
// the previous snapshot for the same token address.
type TokenHolderSnapshot struct {
	TokenAddress string        `json:"token_address"`
	Holders      []TokenHolder `json:"holders"`
	TotalSupply  float64       `json:"total_supply"`
	HolderCount  int           `json:"holder_count"`
	LastUpdated  time.Time     `json:"last_updated"`
}
