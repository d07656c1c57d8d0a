package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CatalogService reads listings, cross-collection search and suggestions.
type CatalogService struct {
	client *Client
}

// List fetches one page of a collection listing. The server sanitises the
// options, so unknown filter values are ignored rather than rejected.
func (s *CatalogService) List(ctx context.Context, collection string, opts *ListOptions) (*ResultPage, error) {
	if collection == "" {
		return nil, &APIError{Code: CodeInvalidInput, Message: "collection is required"}
	}

	var page ResultPage
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/"+collection, opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Query runs a strict query. Unknown fields and malformed bounds come back
// as INVALID_QUERY errors.
func (s *CatalogService) Query(ctx context.Context, collection string, spec QuerySpec) (*ResultPage, error) {
	if collection == "" {
		return nil, &APIError{Code: CodeInvalidInput, Message: "collection is required"}
	}

	var page ResultPage
	if err := s.client.doJSONRequest(ctx, http.MethodPost, apiV1BasePath+"/query/"+url.PathEscape(collection), nil, spec, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search matches term against the product name, description and tags.
func (s *CatalogService) Search(ctx context.Context, term string, page, pageSize int) (*ResultPage, error) {
	query := url.Values{}
	query.Set("q", term)
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}

	var result ResultPage
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/search", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *CatalogService) Suggest(ctx context.Context, term string) ([]string, error) {
	var resp SuggestResponse
	if err := s.client.doJSONRequest(ctx, http.MethodGet, apiV1BasePath+"/search/suggest", url.Values{"q": {term}}, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

func (o *ListOptions) values() url.Values {
	query := url.Values{}
	if o == nil {
		return query
	}
	if o.Term != "" {
		query.Set("q", o.Term)
	}
	for field, value := range o.Filters {
		if value != "" {
			query.Set(field, value)
		}
	}
	for field, value := range o.Min {
		query.Set(field+"_min", value)
	}
	for field, value := range o.Max {
		query.Set(field+"_max", value)
	}
	if o.Sort != "" {
		query.Set("sort", o.Sort)
	}
	if o.Page > 0 {
		query.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(o.PageSize))
	}
	return query
}
