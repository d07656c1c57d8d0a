package sdk

import (
	"context"
	"net/http"
	"net/url"
)

// DocumentService manages catalog documents through the admin endpoints.
type DocumentService struct {
	client *Client
}

func documentPath(collection string, id ...string) string {
	path := apiV1BasePath + "/admin/" + url.PathEscape(collection)
	for _, part := range id {
		path += "/" + url.PathEscape(part)
	}
	return path
}

func requireCollection(collection string) error {
	if collection == "" {
		return &APIError{Code: CodeInvalidInput, Message: "collection is required"}
	}
	return nil
}

// Create stores a new document. An "id" field is used when present;
// otherwise the server assigns one.
func (s *DocumentService) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	if err := requireCollection(collection); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, &APIError{Code: CodeInvalidInput, Message: "document fields are required"}
	}

	var doc Document
	if err := s.client.doJSONRequest(ctx, http.MethodPost, documentPath(collection), nil, DocumentRequest{Fields: fields}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := requireCollection(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, &APIError{Code: CodeInvalidInput, Message: "document id is required"}
	}

	var doc Document
	if err := s.client.doJSONRequest(ctx, http.MethodGet, documentPath(collection, id), nil, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update replaces the document's fields. A non-zero version makes the update
// fail with CONCURRENT_MODIFICATION when someone else wrote first.
func (s *DocumentService) Update(ctx context.Context, collection, id string, fields map[string]any, version int) (*Document, error) {
	if err := requireCollection(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, &APIError{Code: CodeInvalidInput, Message: "document id is required"}
	}

	var doc Document
	req := DocumentRequest{Fields: fields, Version: version}
	if err := s.client.doJSONRequest(ctx, http.MethodPut, documentPath(collection, id), nil, req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	if err := requireCollection(collection); err != nil {
		return err
	}
	if id == "" {
		return &APIError{Code: CodeInvalidInput, Message: "document id is required"}
	}
	return s.client.doJSONRequest(ctx, http.MethodDelete, documentPath(collection, id), nil, nil, nil)
}

// Import writes items in batches. On failure the error details carry the
// failing "index" and how many items were "imported" before it.
func (s *DocumentService) Import(ctx context.Context, collection string, items []map[string]any) (int, error) {
	if err := requireCollection(collection); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	var resp ImportResponse
	if err := s.client.doJSONRequest(ctx, http.MethodPost, documentPath(collection, "import"), nil, ImportRequest{Items: items}, &resp); err != nil {
		return 0, err
	}
	return resp.Imported, nil
}

// CartService prices carts against current catalog prices.
type CartService struct {
	client *Client
}

func (s *CartService) Quote(ctx context.Context, lines []CartLine) (*CartTotals, error) {
	var totals CartTotals
	if err := s.client.doJSONRequest(ctx, http.MethodPost, apiV1BasePath+"/cart/quote", nil, CartQuoteRequest{Lines: lines}, &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}

// AdminService reads dashboard figures and engine statistics.
type AdminService struct {
	client *Client
}

func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/admin/dashboard", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Analytics fetches daily sales and product performance. Empty from or to
// fall back to the server's defaults of the last week ending today.
func (s *AdminService) Analytics(ctx context.Context, from, to string) (*Analytics, error) {
	query := url.Values{}
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}
	var report Analytics
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/admin/analytics", query, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Stats returns cache and transaction counters as loosely typed JSON.
func (s *AdminService) Stats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/admin/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
