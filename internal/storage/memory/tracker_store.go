package memory

import (
	"context"
	"sort"
	"sync"

	"tokenwise/internal/domain"
	"tokenwise/internal/storage"
)

// WalletTrackerStore is an in-memory implementation of storage.WalletTrackerStore.
type WalletTrackerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletTracker // keyed by wallet address
}

// NewWalletTrackerStore creates a new in-memory wallet tracker store.
func NewWalletTrackerStore() *WalletTrackerStore {
	return &WalletTrackerStore{
		data: make(map[string]*domain.WalletTracker),
	}
}

// Compile-time interface check.
var _ storage.WalletTrackerStore = (*WalletTrackerStore)(nil)

// Upsert inserts or updates a tracker keyed by wallet address.
// TrackedSince of an existing tracker is preserved.
func (s *WalletTrackerStore) Upsert(_ context.Context, tracker *domain.WalletTracker) error {
	if tracker == nil || tracker.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trackerCopy := *tracker
	if existing, exists := s.data[tracker.Address]; exists {
		trackerCopy.TrackedSince = existing.TrackedSince
	}
	s.data[tracker.Address] = &trackerCopy
	return nil
}

// Active retrieves active trackers ordered by balance descending.
func (s *WalletTrackerStore) Active(_ context.Context, limit int) ([]*domain.WalletTracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WalletTracker
	for _, t := range s.data {
		if t.Active {
			trackerCopy := *t
			result = append(result, &trackerCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Balance != result[j].Balance {
			return result[i].Balance > result[j].Balance
		}
		return result[i].Address < result[j].Address
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountActive returns the number of active trackers.
func (s *WalletTrackerStore) CountActive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, t := range s.data {
		if t.Active {
			count++
		}
	}
	return count, nil
}
