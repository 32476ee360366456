package domain

import "time"

// WalletTracker is a wallet persisted for ongoing monitoring, sourced from
// the holder snapshot. Upserted by address on every discovery run; trackers
// are never hard-deleted, the Active flag governs visibility.
type WalletTracker struct {
	Address         string     `json:"address"`
	TrackedSince    time.Time  `json:"tracked_since"`
	Active          bool       `json:"active"`
	Balance         float64    `json:"balance"`
	TokenAmount     float64    `json:"token_amount"` // mirrors Balance, kept as a separate column
	LastTransaction *time.Time `json:"last_transaction,omitempty"`
	TotalBuys       int64      `json:"total_buys"`
	TotalSells      int64      `json:"total_sells"`
	ProfitLoss      *float64   `json:"profit_loss,omitempty"`
}
