package models

import (
	"math"
	"time"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductInactive   ProductStatus = "inactive"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

// LowStockThreshold is the stock level at or below which a product is
// flagged on the dashboard.
const LowStockThreshold = 50

type Product struct {
	ID            string        `json:"id" example:"1"`
	Name          string        `json:"name" validate:"required,min=1,max=200" example:"신선한 토마토"`
	Price         int64         `json:"price" validate:"gte=0" example:"3500"`
	OriginalPrice int64         `json:"original_price,omitempty" validate:"omitempty,gtefield=Price" example:"4000"`
	Rating        float64       `json:"rating" validate:"gte=0,lte=5" example:"4.5"`
	Reviews       int           `json:"reviews" validate:"gte=0" example:"128"`
	Category      string        `json:"category" validate:"required,product_category" example:"채소"`
	Origin        string        `json:"origin,omitempty" validate:"max=100" example:"경상북도"`
	Stock         int           `json:"stock" validate:"gte=0" example:"150"`
	Status        ProductStatus `json:"status" validate:"required,oneof=active inactive out_of_stock" example:"active"`
	Tags          []string      `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
	Description   string        `json:"description,omitempty" validate:"max=2000"`
	Image         string        `json:"image,omitempty" validate:"omitempty,max=500"`
	Sales         int           `json:"sales" validate:"gte=0" example:"245"`
	CreatedAt     time.Time     `json:"created_at" example:"2024-01-15T00:00:00Z"`
}

var ProductCategories = []string{"채소", "과일", "곡물", "견과류", "기타"}

// DiscountPercent is the rounded markdown from the original price, or 0 when
// the product is not discounted.
func (p *Product) DiscountPercent() int {
	if p.OriginalPrice <= p.Price || p.OriginalPrice == 0 {
		return 0
	}
	return int(math.Round(float64(p.OriginalPrice-p.Price) / float64(p.OriginalPrice) * 100))
}

func (p *Product) LowStock() bool {
	return p.Stock <= LowStockThreshold
}
