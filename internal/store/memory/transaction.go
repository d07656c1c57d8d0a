package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
)

type opKind int

const (
	opCreate opKind = iota
	opUpdate
	opDelete
)

type txOp struct {
	kind       opKind
	doc        *models.Document
	collection string
	id         string
}

// memoryTx buffers writes and applies them under the store lock on Commit.
// A failing write rolls every touched collection back to its prior state.
type memoryTx struct {
	store *MemoryStore
	mu    sync.Mutex
	ops   []txOp
	done  bool
}

func (t *memoryTx) add(ctx context.Context, op txOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *memoryTx) CreateDocument(ctx context.Context, doc *models.Document) error {
	return t.add(ctx, txOp{kind: opCreate, doc: doc, collection: doc.Collection, id: doc.ID})
}

func (t *memoryTx) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return t.add(ctx, txOp{kind: opUpdate, doc: doc, collection: doc.Collection, id: doc.ID})
}

func (t *memoryTx) DeleteDocument(ctx context.Context, collection, id string) error {
	return t.add(ctx, txOp{kind: opDelete, collection: collection, id: id})
}

func (t *memoryTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make(map[string]*collectionData)
	for _, op := range t.ops {
		if _, ok := saved[op.collection]; ok {
			continue
		}
		saved[op.collection] = copyCollection(s.collections[op.collection])
	}

	for _, op := range t.ops {
		var err error
		switch op.kind {
		case opCreate:
			err = s.create(op.doc)
		case opUpdate:
			err = s.update(op.doc)
		case opDelete:
			err = s.delete(op.collection, op.id)
		}
		if err != nil {
			for name, data := range saved {
				if data == nil {
					delete(s.collections, name)
					continue
				}
				s.collections[name] = data
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.ops = nil
	return nil
}

func copyCollection(c *collectionData) *collectionData {
	if c == nil {
		return nil
	}
	cp := &collectionData{
		order:   append([]string(nil), c.order...),
		docs:    make(map[string]*models.Document, len(c.docs)),
		version: c.version,
	}
	for id, doc := range c.docs {
		cp.docs[id] = doc
	}
	return cp
}

var _ store.Transaction = (*memoryTx)(nil)
