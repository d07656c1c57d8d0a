package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderShipping  OrderStatus = "shipping"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderPreparing, OrderShipping, OrderDelivered, OrderCancelled,
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type OrderItem struct {
	ProductID string `json:"product_id" validate:"required" example:"1"`
	Name      string `json:"name" validate:"required" example:"신선한 토마토"`
	Quantity  int    `json:"quantity" validate:"gte=1" example:"2"`
	Price     int64  `json:"price" validate:"gte=0" example:"3500"`
}

type Order struct {
	ID              string        `json:"id" example:"1"`
	OrderNumber     string        `json:"order_number" validate:"required,max=50" example:"ORD-2024-0001"`
	CustomerName    string        `json:"customer_name" validate:"required,max=100" example:"김철수"`
	CustomerPhone   string        `json:"customer_phone" validate:"required,max=20" example:"010-1234-5678"`
	Items           []OrderItem   `json:"items" validate:"required,min=1,dive"`
	TotalAmount     int64         `json:"total_amount" validate:"gte=0" example:"9800"`
	Status          OrderStatus   `json:"status" validate:"required,oneof=pending confirmed preparing shipping delivered cancelled" example:"preparing"`
	PaymentMethod   string        `json:"payment_method" validate:"required,max=50" example:"카드결제"`
	PaymentStatus   PaymentStatus `json:"payment_status" validate:"required,oneof=pending completed failed" example:"completed"`
	ShippingAddress string        `json:"shipping_address" validate:"required,max=300"`
	OrderDate       time.Time     `json:"order_date" example:"2024-02-15T14:30:00Z"`
	DeliveryDate    *time.Time    `json:"delivery_date,omitempty"`
}

func (o *Order) ItemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		names = append(names, item.Name)
	}
	return names
}

// ItemsTotal is the sum of line prices; it may differ from TotalAmount when
// shipping was charged.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Revenue is the amount counted towards sales figures. Cancelled orders and
// failed payments contribute nothing.
func (o *Order) Revenue() int64 {
	if o.Status == OrderCancelled || o.PaymentStatus == PaymentFailed {
		return 0
	}
	return o.TotalAmount
}
