package core

import (
	"github.com/sumandas0/farmstore/pkg/utils"
)

// CartPolicy holds the shipping rule applied to cart quotes.
type CartPolicy struct {
	ShippingFee           int64 `yaml:"shipping_fee" mapstructure:"shipping_fee"`
	FreeShippingThreshold int64 `yaml:"free_shipping_threshold" mapstructure:"free_shipping_threshold"`
}

func DefaultCartPolicy() CartPolicy {
	return CartPolicy{
		ShippingFee:           3000,
		FreeShippingThreshold: 30000,
	}
}

type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
	// Selected lines are charged; unselected lines stay in the cart.
	Selected bool `json:"selected"`
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

// Totals prices the selected lines. The fee is waived once the subtotal
// reaches the threshold, inclusive.
func (p CartPolicy) Totals(lines []QuotedLine) (*CartTotals, error) {
	totals := &CartTotals{Lines: lines}
	for _, l := range lines {
		if !l.Selected {
			continue
		}
		totals.SelectedCount++
		totals.Subtotal += l.LineTotal
	}
	if totals.SelectedCount == 0 {
		return nil, utils.NewAppError(utils.CodeValidation, "no cart lines selected", nil)
	}

	if totals.Subtotal < p.FreeShippingThreshold {
		totals.ShippingFee = p.ShippingFee
		totals.UntilFreeShipping = p.FreeShippingThreshold - totals.Subtotal
	}
	totals.Total = totals.Subtotal + totals.ShippingFee
	return totals, nil
}
