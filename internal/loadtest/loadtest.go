// Package loadtest drives the listing endpoints with a constant request rate
// and summarises latencies per route.
package loadtest

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// DefaultScenarios mirrors typical storefront and admin traffic.
var DefaultScenarios = []Scenario{
	{Name: "products_default", Path: "/api/v1/products"},
	{Name: "products_category", Path: "/api/v1/products", Query: url.Values{"category": {"채소"}, "sort": {"price_low"}}},
	{Name: "products_term", Path: "/api/v1/products", Query: url.Values{"q": {"토마토"}}},
	{Name: "orders_range", Path: "/api/v1/orders", Query: url.Values{"total_amount_min": {"10000"}, "sort": {"total_amount:desc"}}},
	{Name: "customers_level", Path: "/api/v1/customers", Query: url.Values{"membership_level": {"gold"}}},
	{Name: "news_page", Path: "/api/v1/news", Query: url.Values{"page": {"2"}, "page_size": {"5"}}},
	{Name: "search", Path: "/api/v1/search", Query: url.Values{"q": {"유기농"}}},
	{Name: "suggest", Path: "/api/v1/search/suggest", Query: url.Values{"q": {"사"}}},
}

type Scenario struct {
	Name  string
	Path  string
	Query url.Values
}

func (s Scenario) url(base string) string {
	u := strings.TrimRight(base, "/") + s.Path
	if len(s.Query) > 0 {
		u += "?" + s.Query.Encode()
	}
	return u
}

type Config struct {
	BaseURL  string
	Rate     int
	Duration time.Duration
	Timeout  time.Duration
	Workers  uint64
}

type Latency struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

type ScenarioReport struct {
	Name        string         `json:"name"`
	Requests    int64          `json:"requests"`
	Errors      int64          `json:"errors"`
	StatusCodes map[string]int `json:"status_codes"`
	Latency     Latency        `json:"latency"`
}

type Report struct {
	Requests   uint64           `json:"requests"`
	Throughput float64          `json:"throughput"`
	Success    float64          `json:"success"`
	Scenarios  []ScenarioReport `json:"scenarios"`
	Errors     []string         `json:"errors,omitempty"`
}

type scenarioStats struct {
	hist   *hdrhistogram.Histogram
	codes  map[string]int
	errors int64
}

// Run attacks every scenario round-robin at cfg.Rate requests per second.
func Run(cfg Config, scenarios []Scenario) (*Report, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to run")
	}
	if cfg.Rate <= 0 || cfg.Duration <= 0 {
		return nil, fmt.Errorf("rate and duration must be positive")
	}

	targets := make([]vegeta.Target, len(scenarios))
	byURL := make(map[string]string, len(scenarios))
	stats := make(map[string]*scenarioStats, len(scenarios))
	for i, s := range scenarios {
		target := s.url(cfg.BaseURL)
		targets[i] = vegeta.Target{Method: http.MethodGet, URL: target}
		byURL[target] = s.Name
		stats[s.Name] = &scenarioStats{
			// 1µs to 1 minute, 3 significant figures
			hist:  hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3),
			codes: make(map[string]int),
		}
	}

	opts := []func(*vegeta.Attacker){vegeta.Timeout(cfg.Timeout)}
	if cfg.Workers > 0 {
		opts = append(opts, vegeta.Workers(cfg.Workers))
	}
	attacker := vegeta.NewAttacker(opts...)
	rate := vegeta.Rate{Freq: cfg.Rate, Per: time.Second}

	var metrics vegeta.Metrics
	for res := range attacker.Attack(vegeta.NewStaticTargeter(targets...), rate, cfg.Duration, "farmstore") {
		metrics.Add(res)

		st, ok := stats[byURL[res.URL]]
		if !ok {
			continue
		}
		st.codes[fmt.Sprint(res.Code)]++
		if res.Error != "" || res.Code >= http.StatusBadRequest {
			st.errors++
		}
		st.hist.RecordValue(max(int64(res.Latency/time.Microsecond), 1))
	}
	metrics.Close()

	report := &Report{
		Requests:   metrics.Requests,
		Throughput: metrics.Throughput,
		Success:    metrics.Success,
		Errors:     metrics.Errors,
	}
	for _, s := range scenarios {
		st := stats[s.Name]
		report.Scenarios = append(report.Scenarios, ScenarioReport{
			Name:        s.Name,
			Requests:    st.hist.TotalCount(),
			Errors:      st.errors,
			StatusCodes: st.codes,
			Latency:     latencyOf(st.hist),
		})
	}
	return report, nil
}

func latencyOf(h *hdrhistogram.Histogram) Latency {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Min:  us(h.Min()),
		Mean: time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:  us(h.ValueAtQuantile(50)),
		P95:  us(h.ValueAtQuantile(95)),
		P99:  us(h.ValueAtQuantile(99)),
		Max:  us(h.Max()),
	}
}

// WriteSummary prints one line per scenario, slowest p99 first.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "requests=%d throughput=%.1f/s success=%.2f%%\n", r.Requests, r.Throughput, r.Success*100)

	scenarios := append([]ScenarioReport(nil), r.Scenarios...)
	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].Latency.P99 > scenarios[j].Latency.P99
	})
	for _, s := range scenarios {
		fmt.Fprintf(w, "%-20s n=%-6d err=%-4d p50=%-10v p95=%-10v p99=%-10v max=%v\n",
			s.Name, s.Requests, s.Errors, s.Latency.P50, s.Latency.P95, s.Latency.P99, s.Latency.Max)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}
