package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sumandas0/farmstore/internal/cache"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/observability"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/pkg/utils"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
)

// SearchFields are the product fields the storefront search box matches.
var SearchFields = []string{"name", "tags", "description"}

const maxSuggestions = 6

type Engine struct {
	store        store.DocumentStore
	cacheManager *cache.CacheAwareManager
	catalog      *catalog.Engine
	validator    *Validator
	txManager    *TransactionManager
	batch        *BatchProcessor
	cartPolicy   CartPolicy
	obsManager   *integration.ObservabilityManager
	logger       zerolog.Logger
	tracing      *observability.TracingManager
	metrics      *observability.MetricsManager
	now          func() time.Time
}

type EngineOption func(*Engine)

// WithCatalogEngine replaces the default code-point ordered query engine.
func WithCatalogEngine(ce *catalog.Engine) EngineOption {
	return func(e *Engine) {
		e.catalog = ce
	}
}

func WithTransactionTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.txManager = NewTransactionManager(e.store, timeout)
	}
}

func WithBatchSize(size int) EngineOption {
	return func(e *Engine) {
		e.batch = NewBatchProcessor(e.txManager, size)
	}
}

func WithCartPolicy(policy CartPolicy) EngineOption {
	return func(e *Engine) {
		e.cartPolicy = policy
	}
}

func withClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(
	st store.DocumentStore,
	cacheManager *cache.CacheAwareManager,
	obsManager *integration.ObservabilityManager,
	opts ...EngineOption,
) (*Engine, error) {
	if st == nil || cacheManager == nil || obsManager == nil {
		return nil, errors.New("store, cache manager and observability manager are required")
	}

	txManager := NewTransactionManager(st, 30*time.Second)
	engine := &Engine{
		store:        st,
		cacheManager: cacheManager,
		catalog:      catalog.NewEngine(),
		validator:    NewValidator(),
		txManager:    txManager,
		batch:        NewBatchProcessor(txManager, 100),
		cartPolicy:   DefaultCartPolicy(),
		obsManager:   obsManager,
		logger:       obsManager.GetLogging().GetZerologLogger(),
		tracing:      obsManager.GetTracing(),
		metrics:      obsManager.GetMetrics(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

func lookupCollection(name string) (*models.Collection, error) {
	def, ok := models.LookupCollection(name)
	if !ok {
		return nil, utils.NewAppError(utils.CodeUnknownCollection, "unknown collection", utils.ErrUnknownCollection).
			WithDetail("collection", name)
	}
	return def, nil
}

// Query runs spec against the current snapshot of a collection. Results are
// memoised per snapshot version.
func (e *Engine) Query(ctx context.Context, collection string, spec catalog.QuerySpec) (*catalog.ResultPage, error) {
	ctx, span := e.tracing.StartQueryOperation(ctx, collection, spec.Term, spec.Page, spec.PageSize)
	defer span.End()
	start := time.Now()

	def, err := lookupCollection(collection)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	if err := e.validator.ValidateQuery(def, spec); err != nil {
		e.metrics.RecordQuery(collection, "invalid", time.Since(start), 0)
		e.tracing.SetSpanError(span, err)
		return nil, err
	}

	snap, err := e.cacheManager.GetSnapshot(ctx, collection)
	if err != nil {
		e.metrics.RecordQuery(collection, "error", time.Since(start), 0)
		e.tracing.SetSpanError(span, err)
		return nil, err
	}

	results := e.cacheManager.Results()
	if page, ok := results.Get(collection, snap.Version, spec); ok {
		e.metrics.RecordCacheHit("results")
		e.metrics.RecordQuery(collection, "success", time.Since(start), page.TotalMatched)
		e.tracing.AnnotateQuery(span, page.TotalMatched, page.TotalPages, snap.Version, true)
		return page, nil
	}
	e.metrics.RecordCacheMiss("results")

	page, err := e.catalog.Execute(snap.Records, def.Schema, spec)
	if err != nil {
		err = invalidQuery(collection, err)
		e.metrics.RecordQuery(collection, "invalid", time.Since(start), 0)
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	results.Add(collection, snap.Version, spec, page)

	e.metrics.RecordQuery(collection, "success", time.Since(start), page.TotalMatched)
	e.tracing.AnnotateQuery(span, page.TotalMatched, page.TotalPages, snap.Version, false)
	return page, nil
}

// Search matches term against product name, tags and description.
func (e *Engine) Search(ctx context.Context, term string, page, pageSize int) (*catalog.ResultPage, error) {
	spec := catalog.NewQuery(pageSize).
		WithTerm(term, SearchFields...).
		WithPage(page)
	return e.Query(ctx, models.CollectionProducts, spec)
}

// Suggest returns up to six distinct product names and tags containing term,
// names first, each group in catalog order.
func (e *Engine) Suggest(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []string{}, nil
	}

	snap, err := e.cacheManager.GetSnapshot(ctx, models.CollectionProducts)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(term)
	seen := make(map[string]bool)
	suggestions := make([]string, 0, maxSuggestions)
	add := func(s string) bool {
		if seen[s] || !strings.Contains(fold.String(s), needle) {
			return false
		}
		seen[s] = true
		suggestions = append(suggestions, s)
		return len(suggestions) == maxSuggestions
	}

	for _, field := range []string{"name", "tags"} {
		for _, r := range snap.Records {
			v, ok := r.Get(field)
			if !ok {
				continue
			}
			for _, s := range stringList(v) {
				if add(s) {
					return suggestions, nil
				}
			}
		}
	}
	return suggestions, nil
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (e *Engine) GetDocument(ctx context.Context, collection, id string) (*models.Document, error) {
	ctx, span := e.tracing.StartDocumentOperation(ctx, "get", collection, id)
	defer span.End()

	if _, err := lookupCollection(collection); err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}

	doc, err := e.store.GetDocument(ctx, collection, id)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	return doc, nil
}

// CreateDocument validates fields against the collection model and stores a
// new document. An "id" field, when present, becomes the document id.
func (e *Engine) CreateDocument(ctx context.Context, collection string, fields map[string]interface{}) (*models.Document, error) {
	doc := models.NewDocument(collection, fields)
	ctx, span := e.tracing.StartDocumentOperation(ctx, "create", collection, doc.ID)
	defer span.End()
	start := time.Now()

	err := e.write(ctx, collection, func(ctx context.Context, def *models.Collection) error {
		if err := e.validator.ValidateFields(def, doc.Fields); err != nil {
			return err
		}
		return e.txManager.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
			return tx.CreateDocument(ctx, doc)
		})
	})
	e.recordWrite(span, "create", collection, doc.ID, start, err)
	if err != nil {
		return nil, err
	}

	e.cacheManager.GetNotifier().Notify(collection, cache.ActionCreate)
	return doc, nil
}

// UpdateDocument replaces the fields of an existing document. A non-zero
// expectedVersion must match the stored version.
func (e *Engine) UpdateDocument(ctx context.Context, collection, id string, fields map[string]interface{}, expectedVersion int) (*models.Document, error) {
	ctx, span := e.tracing.StartDocumentOperation(ctx, "update", collection, id)
	defer span.End()
	start := time.Now()

	var doc *models.Document
	err := e.write(ctx, collection, func(ctx context.Context, def *models.Collection) error {
		current, err := e.store.GetDocument(ctx, collection, id)
		if err != nil {
			return err
		}
		if expectedVersion != 0 && expectedVersion != current.Version {
			return utils.NewAppError(utils.CodeConcurrentModification, "document version mismatch", utils.ErrConcurrentModification).
				WithDetail("expected_version", expectedVersion).
				WithDetail("current_version", current.Version)
		}

		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["id"] = id
		if err := e.validator.ValidateFields(def, fields); err != nil {
			return err
		}

		doc = current.Clone()
		doc.Fields = fields
		return e.txManager.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
			return tx.UpdateDocument(ctx, doc)
		})
	})
	e.recordWrite(span, "update", collection, id, start, err)
	if err != nil {
		return nil, err
	}

	e.cacheManager.GetNotifier().Notify(collection, cache.ActionUpdate)
	return doc, nil
}

func (e *Engine) DeleteDocument(ctx context.Context, collection, id string) error {
	ctx, span := e.tracing.StartDocumentOperation(ctx, "delete", collection, id)
	defer span.End()
	start := time.Now()

	err := e.write(ctx, collection, func(ctx context.Context, _ *models.Collection) error {
		return e.txManager.ExecuteWithTimeout(ctx, func(ctx context.Context, tx store.Transaction) error {
			return tx.DeleteDocument(ctx, collection, id)
		})
	})
	e.recordWrite(span, "delete", collection, id, start, err)
	if err != nil {
		return err
	}

	e.cacheManager.GetNotifier().Notify(collection, cache.ActionDelete)
	return nil
}

// ImportDocuments validates every item, then creates them all in one
// transaction. Nothing is written unless every item is.
func (e *Engine) ImportDocuments(ctx context.Context, collection string, items []map[string]interface{}) (int, error) {
	ctx, span := e.tracing.StartDocumentOperation(ctx, "import", collection, "")
	defer span.End()

	def, err := lookupCollection(collection)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return 0, err
	}

	ops := make([]BatchOperation, 0, len(items))
	for i, fields := range items {
		if err := e.validator.ValidateFields(def, fields); err != nil {
			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				appErr.WithDetail("index", i)
			}
			e.tracing.SetSpanError(span, err)
			return 0, err
		}
		ops = append(ops, BatchOperation{
			Type:     BatchCreate,
			Document: models.NewDocument(collection, fields),
		})
	}

	committed, err := e.batch.ProcessBatch(ctx, ops)
	if committed > 0 {
		e.cacheManager.GetNotifier().Notify(collection, cache.ActionCreate)
	}
	if err != nil {
		e.tracing.SetSpanError(span, err)
		e.logger.Error().
			Err(err).
			Str("collection", collection).
			Int("items", len(items)).
			Msg("Document import rolled back")
		return committed, err
	}

	e.logger.Info().
		Str("collection", collection).
		Int("count", committed).
		Msg("Documents imported")
	return committed, nil
}

func (e *Engine) write(ctx context.Context, collection string, fn func(context.Context, *models.Collection) error) error {
	def, err := lookupCollection(collection)
	if err != nil {
		return err
	}
	return fn(ctx, def)
}

func (e *Engine) recordWrite(span trace.Span, op, collection, id string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		e.tracing.SetSpanError(span, err)
	}
	e.metrics.RecordDocumentOperation(op, collection, status, time.Since(start))

	if err != nil {
		event := e.logger.Warn()
		if !isCallerError(err) {
			event = e.logger.Error()
		}
		event.Err(err).
			Str("operation", op).
			Str("collection", collection).
			Str("document_id", id).
			Msg("Document write failed")
	}
}

func isCallerError(err error) bool {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case utils.CodeValidation, utils.CodeNotFound, utils.CodeAlreadyExists,
		utils.CodeConcurrentModification, utils.CodeUnknownCollection:
		return true
	}
	return false
}

// DashboardStats loads products, orders and customers and derives the admin
// dashboard figures.
func (e *Engine) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	ctx, span := e.tracing.StartSpan(ctx, "dashboard.stats")
	defer span.End()

	products, err := decodeSnapshot[models.Product](ctx, e.cacheManager, models.CollectionProducts)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	orders, err := decodeSnapshot[models.Order](ctx, e.cacheManager, models.CollectionOrders)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	customers, err := decodeSnapshot[models.Customer](ctx, e.cacheManager, models.CollectionCustomers)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}

	return ComputeDashboard(products, orders, customers, e.now()), nil
}

// Analytics reports per-day sales and product performance for the inclusive
// day range [from, to].
func (e *Engine) Analytics(ctx context.Context, from, to time.Time) (*Analytics, error) {
	ctx, span := e.tracing.StartSpan(ctx, "analytics.report")
	defer span.End()

	products, err := decodeSnapshot[models.Product](ctx, e.cacheManager, models.CollectionProducts)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	orders, err := decodeSnapshot[models.Order](ctx, e.cacheManager, models.CollectionOrders)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}

	report, err := ComputeAnalytics(products, orders, from, to)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	return report, nil
}

func decodeSnapshot[T any](ctx context.Context, cm *cache.CacheAwareManager, collection string) ([]*T, error) {
	snap, err := cm.GetSnapshot(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		v := new(T)
		if err := doc.Decode(v); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, doc.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// QuoteCart prices cart lines at current product prices.
func (e *Engine) QuoteCart(ctx context.Context, lines []CartLine) (*CartTotals, error) {
	ctx, span := e.tracing.StartSpan(ctx, "cart.quote")
	defer span.End()

	for i := range lines {
		if err := e.validator.ValidateStruct(&lines[i]); err != nil {
			e.tracing.SetSpanError(span, err)
			return nil, err
		}
	}

	snap, err := e.cacheManager.GetSnapshot(ctx, models.CollectionProducts)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	byID := make(map[string]*models.Document, len(snap.Documents))
	for _, doc := range snap.Documents {
		byID[doc.ID] = doc
	}

	quoted := make([]QuotedLine, 0, len(lines))
	for _, line := range lines {
		doc, ok := byID[line.ProductID]
		if !ok {
			err := utils.NewAppError(utils.CodeNotFound, "product not found", utils.ErrNotFound).
				WithDetail("product_id", line.ProductID)
			e.tracing.SetSpanError(span, err)
			return nil, err
		}
		var p models.Product
		if err := doc.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %w", doc.ID, err)
		}
		quoted = append(quoted, QuotedLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			LineTotal: p.Price * int64(line.Quantity),
			Selected:  line.Selected,
			InStock:   p.Status != models.ProductOutOfStock && p.Stock >= line.Quantity,
		})
	}

	totals, err := e.cartPolicy.Totals(quoted)
	if err != nil {
		e.tracing.SetSpanError(span, err)
		return nil, err
	}
	return totals, nil
}

// EngineStats aggregates cache and transaction counters.
type EngineStats struct {
	Snapshots    cache.CacheStats  `json:"snapshots"`
	Results      cache.ResultStats `json:"results"`
	Transactions TransactionStats  `json:"transactions"`
	Collections  map[string]int64  `json:"collection_versions"`
}

func (e *Engine) Stats(ctx context.Context) EngineStats {
	snapStats := e.cacheManager.Stats()
	resultStats := e.cacheManager.Results().Stats()
	e.metrics.SetCacheEntries("snapshots", snapStats.SnapshotCount)
	e.metrics.SetCacheEntries("results", resultStats.Entries)

	versions := make(map[string]int64)
	names := models.CollectionNames()
	sort.Strings(names)
	for _, name := range names {
		v, err := e.store.CollectionVersion(ctx, name)
		if err != nil {
			e.logger.Warn().Err(err).Str("collection", name).Msg("Failed to read collection version")
			continue
		}
		versions[name] = v
	}

	return EngineStats{
		Snapshots:    snapStats,
		Results:      resultStats,
		Transactions: e.txManager.GetStats(),
		Collections:  versions,
	}
}

// CollectionSizes returns the number of documents in each collection's
// current snapshot.
func (e *Engine) CollectionSizes(ctx context.Context) (map[string]int, error) {
	sizes := make(map[string]int)
	for _, name := range models.CollectionNames() {
		snap, err := e.cacheManager.GetSnapshot(ctx, name)
		if err != nil {
			return nil, err
		}
		sizes[name] = len(snap.Documents)
	}
	return sizes, nil
}

// HealthCheck reports whether the backing store is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	return e.store.Ping(ctx)
}

func (e *Engine) Close() error {
	e.cacheManager.InvalidateAll()
	return e.store.Close()
}
