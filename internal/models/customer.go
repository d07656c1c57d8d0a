package models

import "time"

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerBlocked  CustomerStatus = "blocked"
)

type MembershipLevel string

const (
	MembershipBronze MembershipLevel = "bronze"
	MembershipSilver MembershipLevel = "silver"
	MembershipGold   MembershipLevel = "gold"
	MembershipVIP    MembershipLevel = "vip"
)

var MembershipLevels = []MembershipLevel{MembershipBronze, MembershipSilver, MembershipGold, MembershipVIP}

type Customer struct {
	ID              string          `json:"id" example:"1"`
	Name            string          `json:"name" validate:"required,max=100" example:"김철수"`
	Email           string          `json:"email" validate:"required,email" example:"kim@email.com"`
	Phone           string          `json:"phone" validate:"required,max=20" example:"010-1234-5678"`
	Address         string          `json:"address,omitempty" validate:"max=300"`
	BirthDate       *time.Time      `json:"birth_date,omitempty"`
	JoinDate        time.Time       `json:"join_date" example:"2023-05-15T00:00:00Z"`
	LastOrderDate   *time.Time      `json:"last_order_date,omitempty"`
	TotalOrders     int             `json:"total_orders" validate:"gte=0" example:"15"`
	TotalSpent      int64           `json:"total_spent" validate:"gte=0" example:"245000"`
	Status          CustomerStatus  `json:"status" validate:"required,oneof=active inactive blocked" example:"active"`
	MembershipLevel MembershipLevel `json:"membership_level" validate:"required,oneof=bronze silver gold vip" example:"gold"`
}

// AverageOrderValue is TotalSpent over TotalOrders, or 0 for a customer
// without orders.
func (c *Customer) AverageOrderValue() int64 {
	if c.TotalOrders == 0 {
		return 0
	}
	return c.TotalSpent / int64(c.TotalOrders)
}
