package memory

import (
	"context"
	"sync"

	"tokenwise/internal/domain"
	"tokenwise/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenHolderSnapshot // keyed by token address
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.TokenHolderSnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Get retrieves the snapshot for a token address. Returns ErrNotFound if absent.
func (s *SnapshotStore) Get(_ context.Context, tokenAddress string) (*domain.TokenHolderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[tokenAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copySnapshot(snap), nil
}

// Upsert replaces the snapshot for the snapshot's token address.
func (s *SnapshotStore) Upsert(_ context.Context, snapshot *domain.TokenHolderSnapshot) error {
	if snapshot == nil || snapshot.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[snapshot.TokenAddress] = copySnapshot(snapshot)
	return nil
}

// copySnapshot deep-copies a snapshot including its holders slice.
func copySnapshot(snap *domain.TokenHolderSnapshot) *domain.TokenHolderSnapshot {
	snapCopy := *snap
	snapCopy.Holders = make([]domain.TokenHolder, len(snap.Holders))
	copy(snapCopy.Holders, snap.Holders)
	return &snapCopy
}
