// Package memory is a process-local DocumentStore. It is the default backend
// and the one tests run against.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/pkg/utils"
)

type collectionData struct {
	order   []string
	docs    map[string]*models.Document
	version int64
}

type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collectionData
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*collectionData),
	}
}

func (s *MemoryStore) collection(name string) *collectionData {
	c, ok := s.collections[name]
	if !ok {
		c = &collectionData{docs: make(map[string]*models.Document)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(doc)
}

func (s *MemoryStore) create(doc *models.Document) error {
	c := s.collection(doc.Collection)
	if _, exists := c.docs[doc.ID]; exists {
		return utils.NewAppError(utils.CodeAlreadyExists, "document already exists", nil).
			WithDetail("collection", doc.Collection).
			WithDetail("id", doc.ID)
	}
	c.docs[doc.ID] = doc.Clone()
	c.order = append(c.order, doc.ID)
	c.version++
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if ok {
		if doc, ok := c.docs[id]; ok {
			return doc.Clone(), nil
		}
	}
	return nil, notFound(collection, id)
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(doc)
}

func (s *MemoryStore) update(doc *models.Document) error {
	c, ok := s.collections[doc.Collection]
	var existing *models.Document
	if ok {
		existing = c.docs[doc.ID]
	}
	if existing == nil || existing.Version != doc.Version {
		return utils.NewAppError(utils.CodeConcurrentModification,
			"document was modified by another process or does not exist", nil).
			WithDetail("collection", doc.Collection).
			WithDetail("id", doc.ID)
	}

	doc.UpdatedAt = time.Now().UTC()
	doc.Version++
	stored := doc.Clone()
	stored.CreatedAt = existing.CreatedAt
	c.docs[doc.ID] = stored
	c.version++
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(collection, id)
}

func (s *MemoryStore) delete(collection, id string) error {
	c, ok := s.collections[collection]
	if !ok {
		return notFound(collection, id)
	}
	if _, ok := c.docs[id]; !ok {
		return notFound(collection, id)
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.version++
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return []*models.Document{}, nil
	}
	docs := make([]*models.Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id].Clone())
	}
	return docs, nil
}

func (s *MemoryStore) CollectionVersion(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[collection]; ok {
		return c.version, nil
	}
	return 0, nil
}

func (s *MemoryStore) BeginTx(ctx context.Context) (store.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{store: s}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return utils.NewAppError(utils.CodeUnavailable, "memory store is closed", nil)
	}
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func notFound(collection, id string) error {
	return utils.NewAppError(utils.CodeNotFound, "document not found", nil).
		WithDetail("collection", collection).
		WithDetail("id", id)
}

var _ store.DocumentStore = (*MemoryStore)(nil)
