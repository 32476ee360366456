package solana

import "context"

// RPCClient defines the ledger node query interface consumed by the rest of
// the service.
type RPCClient interface {
	// GetTokenAccountsByMint retrieves all token accounts holding the mint.
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error)

	// GetTokenSupply retrieves supply and decimals for a mint.
	// Returns nil if the mint account does not exist.
	GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error)

	// GetSignaturesForAddress retrieves recent transaction signatures for an address.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBalance retrieves the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// TokenAccount is a parsed SPL token account.
type TokenAccount struct {
	Pubkey string // token account address
	Mint   string
	Owner  string
	Amount uint64 // raw amount, not decimal-adjusted
}

// TokenSupply is the parsed supply of a mint.
type TokenSupply struct {
	Amount   uint64 // raw supply
	Decimals uint8
	UIAmount float64 // supply adjusted by decimals
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// Transaction represents a confirmed transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
