package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tokenwise/internal/domain"
	"tokenwise/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data []*domain.Transaction // insertion order
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert appends a new transaction.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	txCopy := *tx
	s.data = append(s.data, &txCopy)
	return nil
}

// Recent retrieves the most recent transactions, newest first.
func (s *TransactionStore) Recent(_ context.Context, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.newestFirst(func(*domain.Transaction) bool { return true }, limit), nil
}

// ByWallet retrieves the most recent transactions for a wallet, newest first.
func (s *TransactionStore) ByWallet(_ context.Context, wallet string, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.newestFirst(func(tx *domain.Transaction) bool { return tx.Wallet == wallet }, limit), nil
}

// ProtocolCounts aggregates transaction counts per protocol, highest first.
func (s *TransactionStore) ProtocolCounts(_ context.Context) ([]domain.ProtocolCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.protocolCounts(func(*domain.Transaction) bool { return true }), nil
}

// ProtocolCountsByWallet aggregates per-protocol counts for one wallet, highest first.
func (s *TransactionStore) ProtocolCountsByWallet(_ context.Context, wallet string) ([]domain.ProtocolCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.protocolCounts(func(tx *domain.Transaction) bool { return tx.Wallet == wallet }), nil
}

// MostActiveWallets ranks wallets by transaction count, highest first.
func (s *TransactionStore) MostActiveWallets(_ context.Context, limit int) ([]domain.WalletActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, tx := range s.data {
		counts[tx.Wallet]++
	}

	result := make([]domain.WalletActivity, 0, len(counts))
	for wallet, count := range counts {
		result = append(result, domain.WalletActivity{WalletAddress: wallet, TxCount: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TxCount != result[j].TxCount {
			return result[i].TxCount > result[j].TxCount
		}
		return result[i].WalletAddress < result[j].WalletAddress
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountTotal returns the total number of stored transactions.
func (s *TransactionStore) CountTotal(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.data)), nil
}

// CountByAction returns the number of transactions with the given action type.
func (s *TransactionStore) CountByAction(_ context.Context, action string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, tx := range s.data {
		if tx.ActionType == action {
			count++
		}
	}
	return count, nil
}

// CountSince returns the number of transactions at or after the given time.
func (s *TransactionStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, tx := range s.data {
		if !tx.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// newestFirst collects matching transactions sorted by timestamp descending.
// Callers must hold at least a read lock.
func (s *TransactionStore) newestFirst(match func(*domain.Transaction) bool, limit int) []*domain.Transaction {
	var result []*domain.Transaction
	for _, tx := range s.data {
		if match(tx) {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// protocolCounts aggregates counts for matching transactions.
// Callers must hold at least a read lock.
func (s *TransactionStore) protocolCounts(match func(*domain.Transaction) bool) []domain.ProtocolCount {
	counts := make(map[string]int64)
	for _, tx := range s.data {
		if match(tx) {
			counts[tx.Protocol]++
		}
	}

	result := make([]domain.ProtocolCount, 0, len(counts))
	for protocol, count := range counts {
		result = append(result, domain.ProtocolCount{Protocol: protocol, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Protocol < result[j].Protocol
	})

	return result
}
