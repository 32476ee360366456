package storage

import (
	"context"
	"time"

	"tokenwise/internal/domain"
)

// TransactionStore provides access to the append-only transactions log.
type TransactionStore interface {
	// Insert appends a new transaction.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// Recent retrieves the most recent transactions, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.Transaction, error)

	// ByWallet retrieves the most recent transactions for a wallet, newest first.
	ByWallet(ctx context.Context, wallet string, limit int) ([]*domain.Transaction, error)

	// ProtocolCounts aggregates transaction counts per protocol, highest first.
	ProtocolCounts(ctx context.Context) ([]domain.ProtocolCount, error)

	// ProtocolCountsByWallet aggregates per-protocol counts for one wallet, highest first.
	ProtocolCountsByWallet(ctx context.Context, wallet string) ([]domain.ProtocolCount, error)

	// MostActiveWallets ranks wallets by transaction count, highest first.
	MostActiveWallets(ctx context.Context, limit int) ([]domain.WalletActivity, error)

	// CountTotal returns the total number of stored transactions.
	CountTotal(ctx context.Context) (int64, error)

	// CountByAction returns the number of transactions with the given action type.
	CountByAction(ctx context.Context, action string) (int64, error)

	// CountSince returns the number of transactions at or after the given time.
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// SnapshotStore provides access to the latest holder snapshot per token.
type SnapshotStore interface {
	// Get retrieves the snapshot for a token address. Returns ErrNotFound if absent.
	Get(ctx context.Context, tokenAddress string) (*domain.TokenHolderSnapshot, error)

	// Upsert replaces the snapshot for the snapshot's token address.
	Upsert(ctx context.Context, snapshot *domain.TokenHolderSnapshot) error
}

// WalletTrackerStore provides access to wallet_trackers storage.
type WalletTrackerStore interface {
	// Upsert inserts or updates a tracker keyed by wallet address.
	Upsert(ctx context.Context, tracker *domain.WalletTracker) error

	// Active retrieves active trackers ordered by balance descending.
	// A non-positive limit returns all active trackers.
	Active(ctx context.Context, limit int) ([]*domain.WalletTracker, error)

	// CountActive returns the number of active trackers.
	CountActive(ctx context.Context) (int64, error)
}
