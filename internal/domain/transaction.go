package domain

import "time"

// Transaction represents a single token transfer observed for a tracked
// wallet. Corresponds to the transactions table; records are append-only.
type Transaction struct {
	Signature    string    `json:"signature"`
	Timestamp    time.Time `json:"timestamp"`
	Wallet       string    `json:"wallet"`
	TokenAddress string    `json:"token_address"`
	Amount       float64   `json:"amount"`
	ActionType   string    `json:"action_type"` // "buy" | "sell"
	Protocol     string    `json:"protocol"`
	BlockTime    int64     `json:"block_time"` // Unix timestamp (seconds)
	Slot         int64     `json:"slot"`
	FromAddress  *string   `json:"from_address,omitempty"`
	ToAddress    *string   `json:"to_address,omitempty"`
	PreBalance   *float64  `json:"pre_balance,omitempty"`
	PostBalance  *float64  `json:"post_balance,omitempty"`
}

// Action constants
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// ProtocolCount is a protocol label with its transaction count.
type ProtocolCount struct {
	Protocol string `json:"protocol"`
	Count    int64  `json:"count"`
}

// WalletActivity is a wallet ranked by its transaction count.
type WalletActivity struct {
	WalletAddress string `json:"wallet_address"`
	TxCount       int64  `json:"tx_count"`
}
