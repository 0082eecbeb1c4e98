package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrcore/attendance-engine/internal/modules/attendance"
)

// TxRunner opens one bounded-timeout transaction for a batch of writes. The
// holiday scan uses it so a cohort either lands completely or not at all.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, repos attendance.TxRepos) error) error {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := r.db.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txCtx, &txRepos{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txRepos binds the write-side stores to one transaction handle.
type txRepos struct {
	tx *sql.Tx
}

func (t *txRepos) Logs() attendance.LogWriter {
	return &LogStore{db: t.tx}
}

func (t *txRepos) Summaries() attendance.SummaryWriter {
	return &SummaryStore{db: t.tx}
}
