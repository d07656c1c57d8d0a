package models

import (
	"sort"

	"github.com/sumandas0/farmstore/internal/catalog"
)

const (
	CollectionProducts  = "products"
	CollectionOrders    = "orders"
	CollectionCustomers = "customers"
	CollectionNews      = "news"
)

// Collection binds a stored collection to its catalog schema, the fields a
// free-text term searches, the named sort presets offered to clients and the
// typed model used for validation.
type Collection struct {
	Name            string
	Schema          catalog.Schema
	TermFields      []string
	SortPresets     map[string]*catalog.SortOption
	DefaultPageSize int
	// Vocabularies lists the closed value sets of categorical fields. Fields
	// without an entry accept any value.
	Vocabularies map[string][]string

	newModel func() interface{}
	derive   func(doc *Document, fields map[string]interface{})
}

// NewModel returns a pointer to a zero value of the collection's typed model.
func (c *Collection) NewModel() interface{} {
	return c.newModel()
}

// Record converts a stored document into a catalog record, adding any derived
// fields the collection's schema declares.
func (c *Collection) Record(doc *Document) catalog.Record {
	if c.derive == nil {
		return catalog.NewRecord(doc.ID, doc.Fields)
	}
	fields := make(map[string]interface{}, len(doc.Fields)+2)
	for k, v := range doc.Fields {
		fields[k] = v
	}
	c.derive(doc, fields)
	return catalog.NewRecord(doc.ID, fields)
}

func (c *Collection) Records(docs []*Document) []catalog.Record {
	records := make([]catalog.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, c.Record(d))
	}
	return records
}

var registry = map[string]*Collection{
	CollectionProducts: {
		Name: CollectionProducts,
		Schema: catalog.Schema{
			Name: CollectionProducts,
			Fields: map[string]catalog.FieldKind{
				"id":               catalog.KindText,
				"name":             catalog.KindText,
				"description":      catalog.KindText,
				"origin":           catalog.KindCategorical,
				"tags":             catalog.KindCategorical,
				"category":         catalog.KindCategorical,
				"status":           catalog.KindCategorical,
				"price":            catalog.KindNumeric,
				"original_price":   catalog.KindNumeric,
				"discount_percent": catalog.KindNumeric,
				"rating":           catalog.KindNumeric,
				"reviews":          catalog.KindNumeric,
				"stock":            catalog.KindNumeric,
				"sales":            catalog.KindNumeric,
				"created_at":       catalog.KindDate,
			},
			Facets: []string{"category", "status"},
		},
		TermFields: []string{"name", "tags"},
		SortPresets: map[string]*catalog.SortOption{
			"latest":     nil,
			"newest":     {Field: "created_at", Order: catalog.SortDesc},
			"price_low":  {Field: "price", Order: catalog.SortAsc},
			"price_high": {Field: "price", Order: catalog.SortDesc},
			"rating":     {Field: "rating", Order: catalog.SortDesc},
			"reviews":    {Field: "reviews", Order: catalog.SortDesc},
			"popular":    {Field: "sales", Order: catalog.SortDesc},
		},
		DefaultPageSize: 12,
		Vocabularies: map[string][]string{
			"category": ProductCategories,
			"status":   stringsOf(ProductActive, ProductInactive, ProductOutOfStock),
		},
		newModel: func() interface{} { return &Product{} },
		derive: func(doc *Document, fields map[string]interface{}) {
			var p Product
			if err := doc.Decode(&p); err == nil {
				fields["discount_percent"] = p.DiscountPercent()
			}
		},
	},
	CollectionOrders: {
		Name: CollectionOrders,
		Schema: catalog.Schema{
			Name: CollectionOrders,
			Fields: map[string]catalog.FieldKind{
				"id":               catalog.KindText,
				"order_number":     catalog.KindText,
				"customer_name":    catalog.KindText,
				"customer_phone":   catalog.KindText,
				"shipping_address": catalog.KindText,
				"item_names":       catalog.KindCategorical,
				"status":           catalog.KindCategorical,
				"payment_status":   catalog.KindCategorical,
				"payment_method":   catalog.KindCategorical,
				"total_amount":     catalog.KindNumeric,
				"order_date":       catalog.KindDate,
				"delivery_date":    catalog.KindDate,
			},
			Facets: []string{"status", "payment_status"},
		},
		TermFields: []string{"order_number", "customer_name", "customer_phone"},
		SortPresets: map[string]*catalog.SortOption{
			"latest":      {Field: "order_date", Order: catalog.SortDesc},
			"oldest":      {Field: "order_date", Order: catalog.SortAsc},
			"amount_high": {Field: "total_amount", Order: catalog.SortDesc},
			"amount_low":  {Field: "total_amount", Order: catalog.SortAsc},
		},
		DefaultPageSize: 10,
		Vocabularies: map[string][]string{
			"status":         stringsOf(OrderStatuses...),
			"payment_status": stringsOf(PaymentPending, PaymentCompleted, PaymentFailed),
		},
		newModel: func() interface{} { return &Order{} },
		derive: func(doc *Document, fields map[string]interface{}) {
			var o Order
			if err := doc.Decode(&o); err == nil {
				fields["item_names"] = o.ItemNames()
			}
		},
	},
	CollectionCustomers: {
		Name: CollectionCustomers,
		Schema: catalog.Schema{
			Name: CollectionCustomers,
			Fields: map[string]catalog.FieldKind{
				"id":               catalog.KindText,
				"name":             catalog.KindText,
				"email":            catalog.KindText,
				"phone":            catalog.KindText,
				"address":          catalog.KindText,
				"status":           catalog.KindCategorical,
				"membership_level": catalog.KindCategorical,
				"total_orders":     catalog.KindNumeric,
				"total_spent":      catalog.KindNumeric,
				"join_date":        catalog.KindDate,
				"last_order_date":  catalog.KindDate,
			},
			Facets: []string{"status", "membership_level"},
		},
		TermFields: []string{"name", "email", "phone"},
		SortPresets: map[string]*catalog.SortOption{
			"latest":      {Field: "join_date", Order: catalog.SortDesc},
			"recent":      {Field: "last_order_date", Order: catalog.SortDesc},
			"top_spender": {Field: "total_spent", Order: catalog.SortDesc},
			"most_orders": {Field: "total_orders", Order: catalog.SortDesc},
			"name":        {Field: "name", Order: catalog.SortAsc},
		},
		DefaultPageSize: 10,
		Vocabularies: map[string][]string{
			"status":           stringsOf(CustomerActive, CustomerInactive, CustomerBlocked),
			"membership_level": stringsOf(MembershipLevels...),
		},
		newModel: func() interface{} { return &Customer{} },
	},
	CollectionNews: {
		Name: CollectionNews,
		Schema: catalog.Schema{
			Name: CollectionNews,
			Fields: map[string]catalog.FieldKind{
				"id":           catalog.KindText,
				"title":        catalog.KindText,
				"excerpt":      catalog.KindText,
				"content":      catalog.KindText,
				"author":       catalog.KindCategorical,
				"tags":         catalog.KindCategorical,
				"category":     catalog.KindCategorical,
				"featured":     catalog.KindCategorical,
				"read_time":    catalog.KindNumeric,
				"views":        catalog.KindNumeric,
				"publish_date": catalog.KindDate,
			},
			Facets: []string{"category"},
		},
		TermFields: []string{"title", "excerpt", "tags"},
		SortPresets: map[string]*catalog.SortOption{
			"latest":  {Field: "publish_date", Order: catalog.SortDesc},
			"popular": {Field: "views", Order: catalog.SortDesc},
		},
		DefaultPageSize: 9,
		Vocabularies: map[string][]string{
			"category": ArticleCategories,
		},
		newModel: func() interface{} { return &Article{} },
	},
}

// KnownValue reports whether value belongs to field's vocabulary. Open
// fields know every value.
func (c *Collection) KnownValue(field, value string) bool {
	vocab, ok := c.Vocabularies[field]
	if !ok {
		return true
	}
	for _, v := range vocab {
		if v == value {
			return true
		}
	}
	return false
}

func stringsOf[T ~string](values ...T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func LookupCollection(name string) (*Collection, bool) {
	c, ok := registry[name]
	return c, ok
}

func CollectionNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
