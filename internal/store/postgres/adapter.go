package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// PostgresStore implements store.DocumentStore on a single documents table
// with JSONB fields.
type PostgresStore struct {
	pool *pgxpool.Pool
}

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(ctx context.Context, connectionString string, poolCfg PoolConfig) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = poolCfg.MaxConns
	config.MinConns = poolCfg.MinConns
	config.MaxConnLifetime = poolCfg.MaxConnLifetime
	config.MaxConnIdleTime = poolCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return createDocument(ctx, tx, doc)
	})
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `
		SELECT id, collection, fields, created_at, updated_at, version
		FROM documents
		WHERE collection = $1 AND id = $2 AND deleted_at IS NULL
	`

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.NewAppError(utils.CodeNotFound, "document not found", err).
				WithDetail("collection", collection).
				WithDetail("id", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return updateDocument(ctx, tx, doc)
	})
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return deleteDocument(ctx, tx, collection, id)
	})
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	query := `
		SELECT id, collection, fields, created_at, updated_at, version
		FROM documents
		WHERE collection = $1 AND deleted_at IS NULL
		ORDER BY seq
	`

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func (s *PostgresStore) CollectionVersion(ctx context.Context, collection string) (int64, error) {
	query := `SELECT version FROM collection_versions WHERE collection = $1`

	var version int64
	err := s.pool.QueryRow(ctx, query, collection).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read collection version: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) BeginTx(ctx context.Context) (store.Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel: pgx.Serializable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &PostgresTx{tx: tx}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetPool returns the connection pool for migrations
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func createDocument(ctx context.Context, q querier, doc *models.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO documents (id, collection, fields, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = q.Exec(ctx, query,
		doc.ID,
		doc.Collection,
		fieldsJSON,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return utils.NewAppError(utils.CodeAlreadyExists, "document already exists", err).
				WithDetail("collection", doc.Collection).
				WithDetail("id", doc.ID)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	return bumpVersion(ctx, q, doc.Collection)
}

func updateDocument(ctx context.Context, q querier, doc *models.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		UPDATE documents
		SET fields = $1, updated_at = $2, version = version + 1
		WHERE collection = $3 AND id = $4 AND version = $5 AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := q.Exec(ctx, query, fieldsJSON, now, doc.Collection, doc.ID, doc.Version)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return utils.NewAppError(utils.CodeConcurrentModification,
			"document was modified by another process or does not exist", nil).
			WithDetail("collection", doc.Collection).
			WithDetail("id", doc.ID)
	}

	doc.UpdatedAt = now
	doc.Version++
	return bumpVersion(ctx, q, doc.Collection)
}

func deleteDocument(ctx context.Context, q querier, collection, id string) error {
	query := `
		UPDATE documents
		SET deleted_at = $1
		WHERE collection = $2 AND id = $3 AND deleted_at IS NULL
	`

	result, err := q.Exec(ctx, query, time.Now().UTC(), collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return utils.NewAppError(utils.CodeNotFound, "document not found", nil).
			WithDetail("collection", collection).
			WithDetail("id", id)
	}

	return bumpVersion(ctx, q, collection)
}

func bumpVersion(ctx context.Context, q querier, collection string) error {
	query := `
		INSERT INTO collection_versions (collection, version, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (collection)
		DO UPDATE SET version = collection_versions.version + 1, updated_at = NOW()
	`
	if _, err := q.Exec(ctx, query, collection); err != nil {
		return fmt.Errorf("failed to bump collection version: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var fieldsJSON []byte

	err := row.Scan(
		&doc.ID,
		&doc.Collection,
		&fieldsJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ store.DocumentStore = (*PostgresStore)(nil)
