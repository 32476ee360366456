package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tokenwise/internal/domain"
	"tokenwise/internal/observability"
	"tokenwise/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Holders are stored as a JSONB document alongside the snapshot metadata.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Get retrieves the snapshot for a token address. Returns ErrNotFound if absent.
func (s *SnapshotStore) Get(ctx context.Context, tokenAddress string) (*domain.TokenHolderSnapshot, error) {
	query := `
		SELECT token_address, holders, total_supply, holder_count, last_updated
		FROM holder_snapshots
		WHERE token_address = $1
	`

	var snap domain.TokenHolderSnapshot
	var holdersJSON []byte

	err := s.pool.QueryRow(ctx, query, tokenAddress).Scan(
		&snap.TokenAddress,
		&holdersJSON,
		&snap.TotalSupply,
		&snap.HolderCount,
		&snap.LastUpdated,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal(holdersJSON, &snap.Holders); err != nil {
		return nil, fmt.Errorf("unmarshal holders: %w", err)
	}

	return &snap, nil
}

// Upsert replaces the snapshot for the snapshot's token address.
func (s *SnapshotStore) Upsert(ctx context.Context, snapshot *domain.TokenHolderSnapshot) (err error) {
	if snapshot == nil || snapshot.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	started := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "upsert_snapshot", time.Since(started).Seconds(), err)
	}()

	holdersJSON, err := json.Marshal(snapshot.Holders)
	if err != nil {
		return fmt.Errorf("marshal holders: %w", err)
	}

	query := `
		INSERT INTO holder_snapshots (token_address, holders, total_supply, holder_count, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_address) DO UPDATE SET
			holders = EXCLUDED.holders,
			total_supply = EXCLUDED.total_supply,
			holder_count = EXCLUDED.holder_count,
			last_updated = EXCLUDED.last_updated
	`

	_, err = s.pool.Exec(ctx, query,
		snapshot.TokenAddress,
		holdersJSON,
		snapshot.TotalSupply,
		snapshot.HolderCount,
		snapshot.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
