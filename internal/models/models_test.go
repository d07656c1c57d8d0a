package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionSchemasAreValid(t *testing.T) {
	for _, name := range CollectionNames() {
		t.Run(name, func(t *testing.T) {
			c, ok := LookupCollection(name)
			require.True(t, ok)
			require.NoError(t, c.Schema.Validate())

			for _, f := range c.TermFields {
				_, ok := c.Schema.Kind(f)
				assert.True(t, ok, "term field %s", f)
			}
			for preset, opt := range c.SortPresets {
				if opt == nil {
					continue
				}
				_, ok := c.Schema.Kind(opt.Field)
				assert.True(t, ok, "preset %s", preset)
			}
			assert.Positive(t, c.DefaultPageSize)
		})
	}
}

func TestNewDocument(t *testing.T) {
	t.Run("keeps supplied id", func(t *testing.T) {
		doc := NewDocument(CollectionProducts, map[string]interface{}{"id": "7", "name": "배추"})
		assert.Equal(t, "7", doc.ID)
		assert.Equal(t, 1, doc.Version)
	})

	t.Run("generates id", func(t *testing.T) {
		doc := NewDocument(CollectionProducts, map[string]interface{}{"name": "배추"})
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, doc.ID, doc.Fields["id"])
	})

	t.Run("update bumps version and pins id", func(t *testing.T) {
		doc := NewDocument(CollectionProducts, map[string]interface{}{"id": "7"})
		doc.Update(map[string]interface{}{"id": "other", "name": "무"})
		assert.Equal(t, 2, doc.Version)
		assert.Equal(t, "7", doc.Fields["id"])
	})
}

func TestDocumentDecode(t *testing.T) {
	doc := NewDocument(CollectionOrders, map[string]interface{}{
		"id":             "1",
		"order_number":   "ORD-2024-0001",
		"customer_name":  "김철수",
		"customer_phone": "010-1234-5678",
		"items": []interface{}{
			map[string]interface{}{"product_id": "1", "name": "신선한 토마토", "quantity": 2, "price": 3500},
			map[string]interface{}{"product_id": "2", "name": "유기농 상추", "quantity": "1", "price": 2800.0},
		},
		"total_amount":   9800,
		"status":         "preparing",
		"payment_status": "completed",
		"order_date":     "2024-02-15 14:30:00",
		"delivery_date":  "2024-02-16",
	})

	var o Order
	require.NoError(t, doc.Decode(&o))

	assert.Equal(t, "ORD-2024-0001", o.OrderNumber)
	assert.Equal(t, OrderPreparing, o.Status)
	assert.Equal(t, []string{"신선한 토마토", "유기농 상추"}, o.ItemNames())
	assert.Equal(t, int64(9800), o.ItemsTotal())
	assert.Equal(t, time.Date(2024, 2, 15, 14, 30, 0, 0, time.UTC), o.OrderDate)
	require.NotNil(t, o.DeliveryDate)
	assert.Equal(t, 16, o.DeliveryDate.Day())
}

func TestEncodeFieldsRoundTrip(t *testing.T) {
	in := Product{
		ID:        "3",
		Name:      "방울토마토",
		Price:     4200,
		Category:  "채소",
		Status:    ProductActive,
		Tags:      []string{"방울토마토", "달콤"},
		CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	fields, err := EncodeFields(&in)
	require.NoError(t, err)
	assert.NotContains(t, fields, "original_price")

	var out Product
	require.NoError(t, DecodeFields(fields, &out))
	assert.Equal(t, in, out)
}

func TestProductDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		original int64
		want     int
	}{
		{"no original price", 3500, 0, 0},
		{"original below price", 3500, 3000, 0},
		{"tomato", 3500, 4000, 13},
		{"apple", 8000, 9000, 11},
		{"half off", 5000, 10000, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: tt.price, OriginalPrice: tt.original}
			assert.Equal(t, tt.want, p.DiscountPercent())
		})
	}
}

func TestCollectionRecordDerivedFields(t *testing.T) {
	products, _ := LookupCollection(CollectionProducts)
	doc := NewDocument(CollectionProducts, map[string]interface{}{
		"id": "1", "name": "신선한 토마토", "price": 3500, "original_price": 4000,
	})

	rec := products.Record(doc)
	assert.Equal(t, 13, rec.Fields["discount_percent"])
	assert.NotContains(t, doc.Fields, "discount_percent")

	customers, _ := LookupCollection(CollectionCustomers)
	cdoc := NewDocument(CollectionCustomers, map[string]interface{}{"id": "9", "name": "정미애"})
	assert.Equal(t, "정미애", customers.Record(cdoc).Fields["name"])
}

func TestOrderRevenue(t *testing.T) {
	assert.Equal(t, int64(100), (&Order{TotalAmount: 100, Status: OrderDelivered, PaymentStatus: PaymentCompleted}).Revenue())
	assert.Zero(t, (&Order{TotalAmount: 100, Status: OrderCancelled, PaymentStatus: PaymentCompleted}).Revenue())
	assert.Zero(t, (&Order{TotalAmount: 100, Status: OrderPending, PaymentStatus: PaymentFailed}).Revenue())
}

func TestCustomerAverageOrderValue(t *testing.T) {
	assert.Equal(t, int64(16333), (&Customer{TotalOrders: 15, TotalSpent: 245000}).AverageOrderValue())
	assert.Zero(t, (&Customer{}).AverageOrderValue())
}

func TestCollection_KnownValue(t *testing.T) {
	products, ok := LookupCollection(CollectionProducts)
	require.True(t, ok)

	assert.True(t, products.KnownValue("category", "과일"))
	assert.False(t, products.KnownValue("category", "fruit"))
	assert.True(t, products.KnownValue("status", "out_of_stock"))
	assert.True(t, products.KnownValue("origin", "어디든"))

	orders, _ := LookupCollection(CollectionOrders)
	assert.True(t, orders.KnownValue("status", "preparing"))
	assert.False(t, orders.KnownValue("payment_status", "refunded"))
}
