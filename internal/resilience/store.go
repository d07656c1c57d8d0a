package resilience

import (
	"context"
	"time"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
)

const storeBreaker = "document-store"

// Store wraps a DocumentStore with a circuit breaker. Reads are also
// retried; writes are not, since a lost acknowledgement would make a retried
// create fail as a duplicate.
type Store struct {
	inner    store.DocumentStore
	breaker  *CircuitBreakerManager
	retry    *RetryManager
	observer StoreObserver
}

// StoreObserver is told the outcome of every guarded store call, retries
// included in the duration.
type StoreObserver func(operation, collection, status string, duration time.Duration)

func NewStore(inner store.DocumentStore, breaker *CircuitBreakerManager, retry *RetryManager) *Store {
	return &Store{inner: inner, breaker: breaker, retry: retry}
}

// WithObserver sets the observer and returns s.
func (s *Store) WithObserver(observer StoreObserver) *Store {
	s.observer = observer
	return s
}

func (s *Store) observe(operation, collection string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	status := "success"
	switch {
	case IsCircuitBreakerError(err):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	s.observer(operation, collection, status, time.Since(start))
}

func (s *Store) read(ctx context.Context, op, collection string, fn func(context.Context) (any, error)) (any, error) {
	start := time.Now()
	v, err := s.retry.ExecuteWithResult(ctx, func() (any, error) {
		return s.breaker.ExecuteWithContext(ctx, storeBreaker, fn)
	}, StoreRetryableErrors)
	s.observe(op, collection, start, err)
	return v, err
}

func (s *Store) write(ctx context.Context, op, collection string, fn func(context.Context) error) error {
	start := time.Now()
	_, err := s.breaker.ExecuteWithContext(ctx, storeBreaker, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	s.observe(op, collection, start, err)
	return err
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.write(ctx, "create", doc.Collection, func(ctx context.Context) error {
		return s.inner.CreateDocument(ctx, doc)
	})
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (*models.Document, error) {
	v, err := s.read(ctx, "get", collection, func(ctx context.Context) (any, error) {
		return s.inner.GetDocument(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Document), nil
}

func (s *Store) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return s.write(ctx, "update", doc.Collection, func(ctx context.Context) error {
		return s.inner.UpdateDocument(ctx, doc)
	})
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	return s.write(ctx, "delete", collection, func(ctx context.Context) error {
		return s.inner.DeleteDocument(ctx, collection, id)
	})
}

func (s *Store) ListDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	v, err := s.read(ctx, "list", collection, func(ctx context.Context) (any, error) {
		return s.inner.ListDocuments(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.Document), nil
}

func (s *Store) CollectionVersion(ctx context.Context, collection string) (int64, error) {
	v, err := s.read(ctx, "version", collection, func(ctx context.Context) (any, error) {
		return s.inner.CollectionVersion(ctx, collection)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (s *Store) BeginTx(ctx context.Context) (store.Transaction, error) {
	v, err := s.breaker.ExecuteWithContext(ctx, storeBreaker, func(ctx context.Context) (any, error) {
		return s.inner.BeginTx(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(store.Transaction), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *Store) Close() error {
	return s.inner.Close()
}

var _ store.DocumentStore = (*Store)(nil)
