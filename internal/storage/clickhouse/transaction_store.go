package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tokenwise/internal/domain"
	"tokenwise/internal/observability"
	"tokenwise/internal/storage"
)

// TransactionStore implements storage.TransactionStore using ClickHouse.
// The transactions table is an append-only MergeTree; aggregations run
// server-side.
type TransactionStore struct {
	conn *Conn
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(conn *Conn) *TransactionStore {
	return &TransactionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const txColumns = `signature, timestamp, wallet, token_address, amount, action_type,
	protocol, block_time, slot, from_address, to_address, pre_balance, post_balance`

// Insert appends a new transaction.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) (err error) {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	started := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_transaction", time.Since(started).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO transactions (`+txColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		tx.Signature, tx.Timestamp, tx.Wallet, tx.TokenAddress, tx.Amount, tx.ActionType,
		tx.Protocol, tx.BlockTime, tx.Slot, tx.FromAddress, tx.ToAddress, tx.PreBalance, tx.PostBalance,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Recent retrieves the most recent transactions, newest first.
func (s *TransactionStore) Recent(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ByWallet retrieves the most recent transactions for a wallet, newest first.
func (s *TransactionStore) ByWallet(ctx context.Context, wallet string, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE wallet = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, wallet, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query transactions by wallet: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ProtocolCounts aggregates transaction counts per protocol, highest first.
func (s *TransactionStore) ProtocolCounts(ctx context.Context) ([]domain.ProtocolCount, error) {
	query := `
		SELECT protocol, count(*) AS cnt
		FROM transactions
		GROUP BY protocol
		ORDER BY cnt DESC, protocol ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query protocol counts: %w", err)
	}
	defer rows.Close()

	return scanProtocolCounts(rows)
}

// ProtocolCountsByWallet aggregates per-protocol counts for one wallet, highest first.
func (s *TransactionStore) ProtocolCountsByWallet(ctx context.Context, wallet string) ([]domain.ProtocolCount, error) {
	query := `
		SELECT protocol, count(*) AS cnt
		FROM transactions
		WHERE wallet = ?
		GROUP BY protocol
		ORDER BY cnt DESC, protocol ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("query protocol counts by wallet: %w", err)
	}
	defer rows.Close()

	return scanProtocolCounts(rows)
}

// MostActiveWallets ranks wallets by transaction count, highest first.
func (s *TransactionStore) MostActiveWallets(ctx context.Context, limit int) ([]domain.WalletActivity, error) {
	query := `
		SELECT wallet, count(*) AS cnt
		FROM transactions
		GROUP BY wallet
		ORDER BY cnt DESC, wallet ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query most active wallets: %w", err)
	}
	defer rows.Close()

	var result []domain.WalletActivity
	for rows.Next() {
		var a domain.WalletActivity
		var count uint64
		if err := rows.Scan(&a.WalletAddress, &count); err != nil {
			return nil, fmt.Errorf("scan wallet activity row: %w", err)
		}
		a.TxCount = int64(count)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet activity rows: %w", err)
	}

	return result, nil
}

// CountTotal returns the total number of stored transactions.
func (s *TransactionStore) CountTotal(ctx context.Context) (int64, error) {
	return s.countWhere(ctx, `SELECT count(*) FROM transactions`)
}

// CountByAction returns the number of transactions with the given action type.
func (s *TransactionStore) CountByAction(ctx context.Context, action string) (int64, error) {
	return s.countWhere(ctx, `SELECT count(*) FROM transactions WHERE action_type = ?`, action)
}

// CountSince returns the number of transactions at or after the given time.
func (s *TransactionStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.countWhere(ctx, `SELECT count(*) FROM transactions WHERE timestamp >= ?`, since)
}

// countWhere runs a count query and returns the single result.
func (s *TransactionStore) countWhere(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int64(count), nil
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows driver.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction

	for rows.Next() {
		var tx domain.Transaction

		err := rows.Scan(
			&tx.Signature, &tx.Timestamp, &tx.Wallet, &tx.TokenAddress, &tx.Amount, &tx.ActionType,
			&tx.Protocol, &tx.BlockTime, &tx.Slot, &tx.FromAddress, &tx.ToAddress, &tx.PreBalance, &tx.PostBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txs, nil
}

// scanProtocolCounts scans protocol aggregation rows.
func scanProtocolCounts(rows driver.Rows) ([]domain.ProtocolCount, error) {
	var result []domain.ProtocolCount

	for rows.Next() {
		var p domain.ProtocolCount
		var count uint64
		if err := rows.Scan(&p.Protocol, &count); err != nil {
			return nil, fmt.Errorf("scan protocol count row: %w", err)
		}
		p.Count = int64(count)
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protocol count rows: %w", err)
	}

	return result, nil
}
