package store

import (
	"context"

	"github.com/sumandas0/farmstore/internal/models"
)

// DocumentStore persists catalog documents grouped by collection. Every write
// bumps the collection's version so readers can tell a cached snapshot is
// stale without reloading it.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, collection, id string) (*models.Document, error)
	// UpdateDocument succeeds only when doc.Version matches the stored
	// version; the stored version is then incremented.
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, collection, id string) error
	// ListDocuments returns every live document of the collection in
	// insertion order.
	ListDocuments(ctx context.Context, collection string) ([]*models.Document, error)
	CollectionVersion(ctx context.Context, collection string) (int64, error)

	BeginTx(ctx context.Context) (Transaction, error)

	Ping(ctx context.Context) error
	Close() error
}

type Transaction interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, collection, id string) error

	Commit() error
	Rollback() error
}
