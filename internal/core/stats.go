package core

import (
	"math"
	"sort"
	"time"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// DashboardStats feeds the admin dashboard cards.
type DashboardStats struct {
	TotalProducts  int   `json:"total_products"`
	TotalOrders    int   `json:"total_orders"`
	TotalCustomers int   `json:"total_customers"`
	TotalRevenue   int64 `json:"total_revenue"`

	ActiveProducts        int     `json:"active_products"`
	ActiveProductsPercent float64 `json:"active_products_percent"`
	LowStockProducts      int     `json:"low_stock_products"`

	OrdersByStatus map[models.OrderStatus]int `json:"orders_by_status"`

	Customers CustomerInsights `json:"customers"`
}

type CustomerInsights struct {
	Active     int   `json:"active"`
	TotalSpent int64 `json:"total_spent"`
	// AverageOrderValue is total spend over total order count across all
	// customers, not the mean of per-customer averages.
	AverageOrderValue int64                            `json:"average_order_value"`
	NewThisMonth      int                              `json:"new_this_month"`
	Repeat            int                              `json:"repeat"`
	VIP               int                              `json:"vip"`
	Dormant           int                              `json:"dormant"`
	Membership        map[models.MembershipLevel]Share `json:"membership"`
}

type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// dormantAfterMonths without an order makes a customer dormant.
const dormantAfterMonths = 6

// ComputeDashboard derives the dashboard figures from full collection
// contents. now fixes "this month" and the dormancy cutoff.
func ComputeDashboard(products []*models.Product, orders []*models.Order, customers []*models.Customer, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		TotalProducts:  len(products),
		TotalOrders:    len(orders),
		TotalCustomers: len(customers),
		OrdersByStatus: make(map[models.OrderStatus]int, len(models.OrderStatuses)),
	}

	for _, p := range products {
		if p.Status == models.ProductActive {
			stats.ActiveProducts++
		}
		if p.LowStock() {
			stats.LowStockProducts++
		}
	}
	stats.ActiveProductsPercent = percent(stats.ActiveProducts, len(products))

	for _, s := range models.OrderStatuses {
		stats.OrdersByStatus[s] = 0
	}
	for _, o := range orders {
		stats.OrdersByStatus[o.Status]++
		stats.TotalRevenue += o.Revenue()
	}

	stats.Customers = customerInsights(customers, now)
	return stats
}

func customerInsights(customers []*models.Customer, now time.Time) CustomerInsights {
	ci := CustomerInsights{
		Membership: make(map[models.MembershipLevel]Share, len(models.MembershipLevels)),
	}

	cutoff := now.AddDate(0, -dormantAfterMonths, 0)
	counts := make(map[models.MembershipLevel]int, len(models.MembershipLevels))
	totalOrders := 0

	for _, c := range customers {
		if c.Status == models.CustomerActive {
			ci.Active++
		}
		ci.TotalSpent += c.TotalSpent
		totalOrders += c.TotalOrders

		if c.JoinDate.Year() == now.Year() && c.JoinDate.Month() == now.Month() {
			ci.NewThisMonth++
		}
		if c.TotalOrders > 1 {
			ci.Repeat++
		}
		if c.MembershipLevel == models.MembershipVIP {
			ci.VIP++
		}
		if c.LastOrderDate == nil || c.LastOrderDate.Before(cutoff) {
			ci.Dormant++
		}
		counts[c.MembershipLevel]++
	}

	if totalOrders > 0 {
		ci.AverageOrderValue = ci.TotalSpent / int64(totalOrders)
	}
	for _, level := range models.MembershipLevels {
		ci.Membership[level] = Share{
			Count:   counts[level],
			Percent: percent(counts[level], len(customers)),
		}
	}
	return ci
}

// percent rounds to one decimal place; zero when total is zero.
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

// MaxAnalyticsDays bounds the number of daily buckets one report may hold.
const MaxAnalyticsDays = 366

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// DailySales is one order_date bucket. Sales counts revenue-bearing orders
// only; Orders counts every order placed that day.
type DailySales struct {
	Date              string `json:"date" example:"2024-02-15"`
	Sales             int64  `json:"sales" example:"290000"`
	Orders            int    `json:"orders" example:"16"`
	Customers         int    `json:"customers" example:"12"`
	AverageOrderValue int64  `json:"average_order_value" example:"18125"`
}

type ProductPerformance struct {
	ID       string `json:"id" example:"1"`
	Name     string `json:"name" example:"신선한 토마토"`
	Category string `json:"category" example:"채소"`
	Sales    int    `json:"sales" example:"245"`
	Revenue  int64  `json:"revenue" example:"857500"`
	Stock    int    `json:"stock" example:"150"`
	// Trend compares units ordered in the later half of the window with the
	// earlier half.
	Trend Trend `json:"trend" example:"up"`
}

type AnalyticsTotals struct {
	Sales             int64 `json:"sales"`
	Orders            int   `json:"orders"`
	Customers         int   `json:"customers"`
	AverageOrderValue int64 `json:"average_order_value"`
}

type Analytics struct {
	From     string               `json:"from" example:"2024-02-09"`
	To       string               `json:"to" example:"2024-02-15"`
	Totals   AnalyticsTotals      `json:"totals"`
	Daily    []DailySales         `json:"daily"`
	Products []ProductPerformance `json:"products"`
}

// ComputeAnalytics buckets orders by UTC order_date over the inclusive day
// range [from, to] and ranks products by sales, then revenue, then id.
// Customers are distinct by phone number, falling back to name.
func ComputeAnalytics(products []*models.Product, orders []*models.Order, from, to time.Time) (*Analytics, error) {
	from, to = utcDay(from), utcDay(to)
	if to.Before(from) {
		return nil, utils.NewAppError(utils.CodeValidation, "analytics range ends before it starts", nil).
			WithDetail("from", from.Format(time.DateOnly)).
			WithDetail("to", to.Format(time.DateOnly))
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxAnalyticsDays {
		return nil, utils.NewAppError(utils.CodeValidation, "analytics range is too long", nil).
			WithDetail("days", days).
			WithDetail("max_days", MaxAnalyticsDays)
	}

	a := &Analytics{
		From:  from.Format(time.DateOnly),
		To:    to.Format(time.DateOnly),
		Daily: make([]DailySales, days),
	}
	dayCustomers := make([]map[string]struct{}, days)
	for i := range a.Daily {
		a.Daily[i].Date = from.AddDate(0, 0, i).Format(time.DateOnly)
		dayCustomers[i] = make(map[string]struct{})
	}
	allCustomers := make(map[string]struct{})

	// units[id][0] is the earlier half of the window, units[id][1] the later.
	units := make(map[string]*[2]int)
	mid := (days + 1) / 2

	for _, o := range orders {
		i := int(utcDay(o.OrderDate).Sub(from).Hours() / 24)
		if o.OrderDate.Before(from) || i >= days {
			continue
		}
		bucket := &a.Daily[i]
		bucket.Orders++
		bucket.Sales += o.Revenue()

		key := o.CustomerPhone
		if key == "" {
			key = o.CustomerName
		}
		dayCustomers[i][key] = struct{}{}
		allCustomers[key] = struct{}{}

		if o.Status == models.OrderCancelled {
			continue
		}
		half := 0
		if i >= mid {
			half = 1
		}
		for _, item := range o.Items {
			u, ok := units[item.ProductID]
			if !ok {
				u = new([2]int)
				units[item.ProductID] = u
			}
			u[half] += item.Quantity
		}
	}

	for i := range a.Daily {
		d := &a.Daily[i]
		d.Customers = len(dayCustomers[i])
		d.AverageOrderValue = average(d.Sales, d.Orders)
		a.Totals.Sales += d.Sales
		a.Totals.Orders += d.Orders
	}
	a.Totals.Customers = len(allCustomers)
	a.Totals.AverageOrderValue = average(a.Totals.Sales, a.Totals.Orders)

	a.Products = make([]ProductPerformance, 0, len(products))
	for _, p := range products {
		a.Products = append(a.Products, ProductPerformance{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Sales:    p.Sales,
			Revenue:  int64(p.Sales) * p.Price,
			Stock:    p.Stock,
			Trend:    trendOf(units[p.ID]),
		})
	}
	sort.SliceStable(a.Products, func(i, j int) bool {
		pi, pj := a.Products[i], a.Products[j]
		if pi.Sales != pj.Sales {
			return pi.Sales > pj.Sales
		}
		if pi.Revenue != pj.Revenue {
			return pi.Revenue > pj.Revenue
		}
		return pi.ID < pj.ID
	})
	return a, nil
}

func trendOf(u *[2]int) Trend {
	switch {
	case u == nil || u[0] == u[1]:
		return TrendStable
	case u[1] > u[0]:
		return TrendUp
	default:
		return TrendDown
	}
}

func average(total int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return total / int64(n)
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
