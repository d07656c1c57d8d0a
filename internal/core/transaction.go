package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
)

// TransactionStats holds transaction statistics
type TransactionStats struct {
	TotalCommitted    uint64        `json:"total_committed"`
	TotalRolledBack   uint64        `json:"total_rolled_back"`
	CommitTimeouts    uint64        `json:"commit_timeouts"`
	AverageCommitTime time.Duration `json:"average_commit_time"`
}

// TransactionManager runs document writes inside a store transaction with a
// deadline.
type TransactionManager struct {
	store   store.DocumentStore
	timeout time.Duration

	mu    sync.Mutex
	stats TransactionStats
}

func NewTransactionManager(st store.DocumentStore, timeout time.Duration) *TransactionManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &TransactionManager{
		store:   st,
		timeout: timeout,
	}
}

// WithTransaction commits when fn succeeds and rolls back otherwise.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(context.Context, store.Transaction) error) error {
	tx, err := tm.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rollbackErr)
		}
		return err
	}

	return tx.Commit()
}

// ExecuteWithTimeout executes a transaction function with a timeout
func (tm *TransactionManager) ExecuteWithTimeout(ctx context.Context, fn func(context.Context, store.Transaction) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, tm.timeout)
	defer cancel()

	startTime := time.Now()
	err := tm.WithTransaction(timeoutCtx, fn)
	duration := time.Since(startTime)

	tm.mu.Lock()
	defer tm.mu.Unlock()
	switch {
	case err == nil:
		tm.stats.TotalCommitted++
		if tm.stats.TotalCommitted == 1 {
			tm.stats.AverageCommitTime = duration
		} else {
			tm.stats.AverageCommitTime = (tm.stats.AverageCommitTime + duration) / 2
		}
	case errors.Is(timeoutCtx.Err(), context.DeadlineExceeded):
		tm.stats.CommitTimeouts++
	default:
		tm.stats.TotalRolledBack++
	}

	return err
}

func (tm *TransactionManager) GetStats() TransactionStats {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.stats
}

type BatchOperationType string

const (
	BatchCreate BatchOperationType = "create"
	BatchUpdate BatchOperationType = "update"
	BatchDelete BatchOperationType = "delete"
)

// BatchOperation represents a single operation in a batch
type BatchOperation struct {
	Type       BatchOperationType
	Document   *models.Document
	Collection string
	ID         string
}

// BatchProcessor applies a list of operations atomically: all of them
// commit in one transaction or none do. The context is rechecked every
// batchSize operations so a cancelled import stops early.
type BatchProcessor struct {
	txManager *TransactionManager
	batchSize int
}

func NewBatchProcessor(txManager *TransactionManager, batchSize int) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &BatchProcessor{
		txManager: txManager,
		batchSize: batchSize,
	}
}

// ProcessBatch returns how many operations were committed: all of them, or
// zero when any operation or the commit fails.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, operations []BatchOperation) (int, error) {
	err := bp.txManager.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
		for i, op := range operations {
			if i%bp.batchSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := processOperation(ctx, tx, op); err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("batch of %d operations rolled back: %w", len(operations), err)
	}
	return len(operations), nil
}

func processOperation(ctx context.Context, tx store.Transaction, op BatchOperation) error {
	switch op.Type {
	case BatchCreate:
		return tx.CreateDocument(ctx, op.Document)
	case BatchUpdate:
		return tx.UpdateDocument(ctx, op.Document)
	case BatchDelete:
		return tx.DeleteDocument(ctx, op.Collection, op.ID)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}
