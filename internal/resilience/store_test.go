package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store/memory"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// flakyStore fails the first failures list calls with err.
type flakyStore struct {
	*memory.MemoryStore
	failures int
	err      error
	calls    int
}

func (f *flakyStore) ListDocuments(ctx context.Context, collection string) ([]*models.Document, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.MemoryStore.ListDocuments(ctx, collection)
}

func testRetry() *RetryManager {
	return NewRetryManager(RetryConfig{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}, StrategyExponential)
}

func testBreaker(threshold uint32) *CircuitBreakerManager {
	return NewCircuitBreakerManager(CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: threshold,
	}, zerolog.Nop())
}

func TestStore_RetriesTransientReads(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{
		MemoryStore: memory.NewMemoryStore(),
		failures:    2,
		err:         errors.New("read tcp: connection reset by peer"),
	}
	require.NoError(t, inner.CreateDocument(ctx, models.NewDocument(models.CollectionNews, map[string]interface{}{"id": "1"})))

	s := NewStore(inner, testBreaker(10), testRetry())
	docs, err := s.ListDocuments(ctx, models.CollectionNews)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestStore_DoesNotRetryCallerErrors(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{
		MemoryStore: memory.NewMemoryStore(),
		failures:    5,
		err:         utils.NewAppError(utils.CodeNotFound, "missing", utils.ErrNotFound),
	}

	s := NewStore(inner, testBreaker(1), testRetry())
	_, err := s.ListDocuments(ctx, models.CollectionNews)
	assert.True(t, utils.IsNotFound(err))
	assert.Equal(t, 1, inner.calls)

	// Caller errors count as successes for the breaker.
	_, err = s.ListDocuments(ctx, models.CollectionNews)
	assert.True(t, utils.IsNotFound(err))
	assert.Equal(t, gobreaker.StateClosed, s.breaker.GetState(storeBreaker))
}

func TestStore_BreakerOpens(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{
		MemoryStore: memory.NewMemoryStore(),
		failures:    100,
		err:         errors.New("disk on fire"),
	}

	s := NewStore(inner, testBreaker(2), NewRetryManager(RetryConfig{}, StrategyFixed))
	for i := 0; i < 2; i++ {
		_, err := s.ListDocuments(ctx, models.CollectionNews)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, s.breaker.GetState(storeBreaker))
	assert.True(t, s.breaker.AnyOpen())

	_, err := s.ListDocuments(ctx, models.CollectionNews)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.CodeUnavailable, appErr.Code)
	assert.Equal(t, 2, inner.calls)

	status := s.breaker.Status()
	assert.Equal(t, true, status["enabled"])
}

func TestStore_WritesPassThrough(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.NewMemoryStore(), testBreaker(3), testRetry())

	doc := models.NewDocument(models.CollectionProducts, map[string]interface{}{"id": "p1"})
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, models.CollectionProducts, "p1")
	require.NoError(t, err)
	require.NoError(t, s.UpdateDocument(ctx, got))

	v, err := s.CollectionVersion(ctx, models.CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteDocument(ctx, models.CollectionProducts, "p1"))
	require.NoError(t, tx.Commit())

	assert.True(t, utils.IsNotFound(s.DeleteDocument(ctx, models.CollectionProducts, "p1")))
	require.NoError(t, s.Ping(ctx))
}

func TestStore_Observer(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{
		MemoryStore: memory.NewMemoryStore(),
		failures:    100,
		err:         errors.New("disk on fire"),
	}

	type call struct{ op, collection, status string }
	var calls []call
	s := NewStore(inner, testBreaker(1), NewRetryManager(RetryConfig{}, StrategyFixed)).
		WithObserver(func(op, collection, status string, _ time.Duration) {
			calls = append(calls, call{op, collection, status})
		})

	require.NoError(t, s.CreateDocument(ctx, models.NewDocument(models.CollectionOrders, nil)))
	_, err := s.ListDocuments(ctx, models.CollectionOrders)
	require.Error(t, err)
	_, err = s.ListDocuments(ctx, models.CollectionOrders)
	require.Error(t, err)

	assert.Equal(t, []call{
		{"create", models.CollectionOrders, "success"},
		{"list", models.CollectionOrders, "error"},
		{"list", models.CollectionOrders, "rejected"},
	}, calls)
}

func TestStoreRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"open breaker", gobreaker.ErrOpenState, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unavailable app error", utils.NewAppError(utils.CodeUnavailable, "down", nil), true},
		{"validation", utils.NewAppError(utils.CodeValidation, "bad", nil), false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StoreRetryableErrors(tt.err))
		})
	}
}

func TestRetryManager_GivesUp(t *testing.T) {
	rm := testRetry()
	calls := 0
	_, err := rm.ExecuteWithResult(context.Background(), func() (any, error) {
		calls++
		return nil, errors.New("connection refused")
	}, StoreRetryableErrors)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryManager_DelayIsCapped(t *testing.T) {
	rm := NewRetryManager(RetryConfig{
		Enabled:      true,
		MaxAttempts:  10,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
	}, StrategyExponential)

	assert.Equal(t, 10*time.Millisecond, rm.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, rm.calculateDelay(2))
	assert.Equal(t, 40*time.Millisecond, rm.calculateDelay(5))
}
