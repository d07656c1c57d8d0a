package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
)

type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := createDocument(ctx, t.tx, doc); err != nil {
		return fmt.Errorf("in transaction: %w", err)
	}
	return nil
}

func (t *PostgresTx) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if err := updateDocument(ctx, t.tx, doc); err != nil {
		return fmt.Errorf("in transaction: %w", err)
	}
	return nil
}

func (t *PostgresTx) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := deleteDocument(ctx, t.tx, collection, id); err != nil {
		return fmt.Errorf("in transaction: %w", err)
	}
	return nil
}

func (t *PostgresTx) Commit() error {
	err := t.tx.Commit(context.Background())
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *PostgresTx) Rollback() error {
	err := t.tx.Rollback(context.Background())
	if err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

var _ store.Transaction = (*PostgresTx)(nil)
