package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/internal/store/memory"
	"github.com/sumandas0/farmstore/pkg/utils"
)

func newsDoc(id string) *models.Document {
	return models.NewDocument(models.CollectionNews, map[string]interface{}{
		"id": id, "title": "소식 " + id, "category": "farm", "author": "김농부",
	})
}

func TestTransactionManager_ExecuteWithTimeout(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	tm := NewTransactionManager(st, time.Second)

	err := tm.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
		return tx.CreateDocument(ctx, newsDoc("1"))
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
		if err := tx.CreateDocument(ctx, newsDoc("2")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetDocument(ctx, models.CollectionNews, "2")
	assert.True(t, utils.IsNotFound(err))

	stats := tm.GetStats()
	assert.Equal(t, uint64(1), stats.TotalCommitted)
	assert.Equal(t, uint64(1), stats.TotalRolledBack)
}

func TestTransactionManager_Timeout(t *testing.T) {
	tm := NewTransactionManager(memory.NewMemoryStore(), 10*time.Millisecond)

	err := tm.ExecuteWithTimeout(context.Background(), func(ctx context.Context, tx store.Transaction) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), tm.GetStats().CommitTimeouts)
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStore()
	bp := NewBatchProcessor(NewTransactionManager(st, time.Second), 2)

	ops := []BatchOperation{
		{Type: BatchCreate, Document: newsDoc("1")},
		{Type: BatchCreate, Document: newsDoc("2")},
		{Type: BatchCreate, Document: newsDoc("3")},
		{Type: BatchCreate, Document: newsDoc("1")},
	}

	committed, err := bp.ProcessBatch(ctx, ops)
	require.Error(t, err)
	assert.True(t, utils.IsAlreadyExists(err))
	assert.Equal(t, 0, committed)

	docs, err := st.ListDocuments(ctx, models.CollectionNews)
	require.NoError(t, err)
	assert.Empty(t, docs)
	version, err := st.CollectionVersion(ctx, models.CollectionNews)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	committed, err = bp.ProcessBatch(ctx, ops[:3])
	require.NoError(t, err)
	assert.Equal(t, 3, committed)

	committed, err = bp.ProcessBatch(ctx, []BatchOperation{
		{Type: BatchDelete, Collection: models.CollectionNews, ID: "1"},
		{Type: BatchDelete, Collection: models.CollectionNews, ID: "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, committed)

	docs, err = st.ListDocuments(ctx, models.CollectionNews)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = bp.ProcessBatch(ctx, []BatchOperation{{Type: "upsert"}})
	assert.ErrorContains(t, err, "unknown operation type")
}

func TestBatchProcessor_StopsOnCancelledContext(t *testing.T) {
	st := memory.NewMemoryStore()
	bp := NewBatchProcessor(NewTransactionManager(st, time.Second), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	committed, err := bp.ProcessBatch(ctx, []BatchOperation{{Type: BatchCreate, Document: newsDoc("1")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, committed)
}
