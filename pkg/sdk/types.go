package sdk

import (
	"time"
)

// Collection names served by the catalog.
const (
	CollectionProducts  = "products"
	CollectionOrders    = "orders"
	CollectionCustomers = "customers"
	CollectionNews      = "news"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Record is one listed document with its flattened fields.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Span marks a term occurrence in a field value. Index selects the element of
// a list-valued field; Start and End are rune offsets.
type Span struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// ResultPage is one page of a listing.
type ResultPage struct {
	Items        []Record                     `json:"items"`
	TotalMatched int                          `json:"total_matched"`
	FacetCounts  map[string]map[string]int    `json:"facet_counts"`
	Page         int                          `json:"page"`
	PageSize     int                          `json:"page_size"`
	TotalPages   int                          `json:"total_pages"`
	Highlights   map[string]map[string][]Span `json:"highlights,omitempty"`
}

// ListOptions are the query parameters accepted by listing endpoints. Empty
// values are not sent; the server treats them as unconstrained.
type ListOptions struct {
	Term     string
	Filters  map[string]string
	Min      map[string]string
	Max      map[string]string
	Sort     string
	Page     int
	PageSize int
}

type Range struct {
	Min any `json:"min,omitempty"`
	Max any `json:"max,omitempty"`
}

type SortOption struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order,omitempty"`
}

// QuerySpec is the strict query body of POST /query/{collection}.
type QuerySpec struct {
	Term         string            `json:"term,omitempty"`
	TermFields   []string          `json:"term_fields,omitempty"`
	ExactFilters map[string]string `json:"exact_filters,omitempty"`
	RangeFilters map[string]Range  `json:"range_filters,omitempty"`
	Sort         *SortOption       `json:"sort,omitempty"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
	Facets       []string          `json:"facets,omitempty"`
}

type SuggestResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Version    int            `json:"version"`
}

// DocumentRequest creates or replaces a document. Version, when non-zero,
// must equal the stored version on update.
type DocumentRequest struct {
	Fields  map[string]any `json:"fields"`
	Version int            `json:"version,omitempty"`
}

type ImportRequest struct {
	Items []map[string]any `json:"items"`
}

type ImportResponse struct {
	Collection string `json:"collection"`
	Imported   int    `json:"imported"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Selected  bool   `json:"selected"`
}

type CartQuoteRequest struct {
	Lines []CartLine `json:"lines"`
}

type QuotedLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	Selected  bool   `json:"selected"`
	InStock   bool   `json:"in_stock"`
}

type CartTotals struct {
	Lines             []QuotedLine `json:"lines"`
	SelectedCount     int          `json:"selected_count"`
	Subtotal          int64        `json:"subtotal"`
	ShippingFee       int64        `json:"shipping_fee"`
	Total             int64        `json:"total"`
	UntilFreeShipping int64        `json:"until_free_shipping"`
}

type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type CustomerInsights struct {
	Active            int              `json:"active"`
	TotalSpent        int64            `json:"total_spent"`
	AverageOrderValue int64            `json:"average_order_value"`
	NewThisMonth      int              `json:"new_this_month"`
	Repeat            int              `json:"repeat"`
	VIP               int              `json:"vip"`
	Dormant           int              `json:"dormant"`
	Membership        map[string]Share `json:"membership"`
}

type DashboardStats struct {
	TotalProducts         int              `json:"total_products"`
	TotalOrders           int              `json:"total_orders"`
	TotalCustomers        int              `json:"total_customers"`
	TotalRevenue          int64            `json:"total_revenue"`
	ActiveProducts        int              `json:"active_products"`
	ActiveProductsPercent float64          `json:"active_products_percent"`
	LowStockProducts      int              `json:"low_stock_products"`
	OrdersByStatus        map[string]int   `json:"orders_by_status"`
	Customers             CustomerInsights `json:"customers"`
}

type DailySales struct {
	Date              string `json:"date"`
	Sales             int64  `json:"sales"`
	Orders            int    `json:"orders"`
	Customers         int    `json:"customers"`
	AverageOrderValue int64  `json:"average_order_value"`
}

type ProductPerformance struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Sales    int    `json:"sales"`
	Revenue  int64  `json:"revenue"`
	Stock    int    `json:"stock"`
	Trend    string `json:"trend"`
}

type AnalyticsTotals struct {
	Sales             int64 `json:"sales"`
	Orders            int   `json:"orders"`
	Customers         int   `json:"customers"`
	AverageOrderValue int64 `json:"average_order_value"`
}

type Analytics struct {
	From     string               `json:"from"`
	To       string               `json:"to"`
	Totals   AnalyticsTotals      `json:"totals"`
	Daily    []DailySales         `json:"daily"`
	Products []ProductPerformance `json:"products"`
}
