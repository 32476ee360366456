package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tokenwise/internal/domain"
	"tokenwise/internal/observability"
	"tokenwise/internal/storage"
)

// WalletTrackerStore implements storage.WalletTrackerStore using PostgreSQL.
type WalletTrackerStore struct {
	pool *Pool
}

// NewWalletTrackerStore creates a new WalletTrackerStore.
func NewWalletTrackerStore(pool *Pool) *WalletTrackerStore {
	return &WalletTrackerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletTrackerStore = (*WalletTrackerStore)(nil)

// Upsert inserts or updates a tracker keyed by wallet address.
// The original tracked_since of an existing row is preserved.
func (s *WalletTrackerStore) Upsert(ctx context.Context, tracker *domain.WalletTracker) (err error) {
	if tracker == nil || tracker.Address == "" {
		return storage.ErrInvalidInput
	}

	started := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "upsert_tracker", time.Since(started).Seconds(), err)
	}()

	query := `
		INSERT INTO wallet_trackers (
			address, tracked_since, active, balance, token_amount,
			last_transaction, total_buys, total_sells, profit_loss
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			active = EXCLUDED.active,
			balance = EXCLUDED.balance,
			token_amount = EXCLUDED.token_amount,
			last_transaction = EXCLUDED.last_transaction,
			total_buys = EXCLUDED.total_buys,
			total_sells = EXCLUDED.total_sells,
			profit_loss = EXCLUDED.profit_loss
	`

	_, err = s.pool.Exec(ctx, query,
		tracker.Address,
		tracker.TrackedSince,
		tracker.Active,
		tracker.Balance,
		tracker.TokenAmount,
		tracker.LastTransaction,
		tracker.TotalBuys,
		tracker.TotalSells,
		tracker.ProfitLoss,
	)
	if err != nil {
		return fmt.Errorf("upsert tracker: %w", err)
	}
	return nil
}

// Active retrieves active trackers ordered by balance descending.
func (s *WalletTrackerStore) Active(ctx context.Context, limit int) ([]*domain.WalletTracker, error) {
	query := `
		SELECT address, tracked_since, active, balance, token_amount,
		       last_transaction, total_buys, total_sells, profit_loss
		FROM wallet_trackers
		WHERE active = TRUE
		ORDER BY balance DESC, address ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active trackers: %w", err)
	}
	defer rows.Close()

	return scanTrackers(rows)
}

// CountActive returns the number of active trackers.
func (s *WalletTrackerStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM wallet_trackers WHERE active = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active trackers: %w", err)
	}
	return count, nil
}

// scanTrackers scans multiple rows into a slice of WalletTracker.
func scanTrackers(rows pgx.Rows) ([]*domain.WalletTracker, error) {
	var trackers []*domain.WalletTracker

	for rows.Next() {
		var t domain.WalletTracker

		err := rows.Scan(
			&t.Address,
			&t.TrackedSince,
			&t.Active,
			&t.Balance,
			&t.TokenAmount,
			&t.LastTransaction,
			&t.TotalBuys,
			&t.TotalSells,
			&t.ProfitLoss,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracker row: %w", err)
		}

		trackers = append(trackers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracker rows: %w", err)
	}

	return trackers, nil
}
