package health

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// ComponentHealth represents the health status of a single component
type ComponentHealth struct {
	Name       string            `json:"name"`
	Status     Status            `json:"status"`
	Message    string            `json:"message,omitempty"`
	LastCheck  time.Time         `json:"last_check"`
	DurationMS int64             `json:"duration_ms"`
	Details    map[string]string `json:"details,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    HealthSummary              `json:"summary"`
}

type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
}

// HealthChecker runs registered checks concurrently under one timeout
type HealthChecker struct {
	components map[string]HealthCheckFunc
	results    map[string]ComponentHealth
	mutex      sync.RWMutex
	timeout    time.Duration
}

type HealthCheckFunc func(ctx context.Context) ComponentHealth

func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HealthChecker{
		components: make(map[string]HealthCheckFunc),
		results:    make(map[string]ComponentHealth),
		timeout:    timeout,
	}
}

func (hc *HealthChecker) RegisterComponent(name string, checkFunc HealthCheckFunc) {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()
	hc.components[name] = checkFunc
}

// RegisterStore registers anything that can be pinged
func (hc *HealthChecker) RegisterStore(name string, store interface{ Ping(context.Context) error }) {
	hc.RegisterComponent(name, func(ctx context.Context) ComponentHealth {
		start := time.Now()
		health := ComponentHealth{
			Name:      name,
			LastCheck: start,
		}

		if err := store.Ping(ctx); err != nil {
			health.Status = StatusUnhealthy
			health.Message = fmt.Sprintf("ping failed: %v", err)
		} else {
			health.Status = StatusHealthy
			health.Message = "Connection successful"
		}

		health.DurationMS = time.Since(start).Milliseconds()
		return health
	})
}

// Check performs health checks on all registered components
func (hc *HealthChecker) Check(ctx context.Context) SystemHealth {
	hc.mutex.RLock()
	components := make(map[string]HealthCheckFunc, len(hc.components))
	for name, checkFunc := range hc.components {
		components[name] = checkFunc
	}
	hc.mutex.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	resultChan := make(chan ComponentHealth, len(components))
	var wg sync.WaitGroup

	for name, checkFunc := range components {
		wg.Add(1)
		go func(n string, cf HealthCheckFunc) {
			defer wg.Done()

			done := make(chan ComponentHealth, 1)
			go func() {
				result := cf(checkCtx)
				result.Name = n
				done <- result
			}()

			select {
			case result := <-done:
				resultChan <- result
			case <-checkCtx.Done():
				resultChan <- ComponentHealth{
					Name:       n,
					Status:     StatusUnhealthy,
					Message:    "Health check timeout",
					LastCheck:  time.Now(),
					DurationMS: hc.timeout.Milliseconds(),
				}
			}
		}(name, checkFunc)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[string]ComponentHealth)
	for result := range resultChan {
		results[result.Name] = result
	}

	hc.mutex.Lock()
	hc.results = results
	hc.mutex.Unlock()

	return calculateSystemHealth(results)
}

func (hc *HealthChecker) GetLastResults() SystemHealth {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()
	return calculateSystemHealth(hc.results)
}

func calculateSystemHealth(results map[string]ComponentHealth) SystemHealth {
	summary := HealthSummary{
		Total: len(results),
	}

	for _, result := range results {
		switch result.Status {
		case StatusHealthy:
			summary.Healthy++
		case StatusUnhealthy:
			summary.Unhealthy++
		case StatusDegraded:
			summary.Degraded++
		}
	}

	overallStatus := StatusHealthy
	if summary.Unhealthy > 0 {
		overallStatus = StatusUnhealthy
	} else if summary.Degraded > 0 {
		overallStatus = StatusDegraded
	}

	return SystemHealth{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Components: results,
		Summary:    summary,
	}
}

func (hc *HealthChecker) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hc.Check(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CreateBreakerHealthCheck reports degraded while any store breaker is open;
// reads may still be served from cached snapshots.
func CreateBreakerHealthCheck(anyOpen func() bool) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		health := ComponentHealth{
			LastCheck: time.Now(),
			Status:    StatusHealthy,
			Message:   "All circuit breakers closed",
		}
		if anyOpen() {
			health.Status = StatusDegraded
			health.Message = "A circuit breaker is open"
		}
		return health
	}
}

// CreateCacheHealthCheck exposes snapshot cache counters; it never fails.
func CreateCacheHealthCheck(stats func() (snapshots int, hitRate float64)) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		snapshots, hitRate := stats()
		return ComponentHealth{
			Status:    StatusHealthy,
			LastCheck: time.Now(),
			Details: map[string]string{
				"snapshots": strconv.Itoa(snapshots),
				"hit_rate":  strconv.FormatFloat(hitRate, 'f', 3, 64),
			},
		}
	}
}

// CreateCatalogHealthCheck is unhealthy when snapshots cannot be loaded and
// degraded while any collection is empty, since listings would render blank.
func CreateCatalogHealthCheck(sizes func(context.Context) (map[string]int, error)) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		health := ComponentHealth{
			Status:    StatusHealthy,
			Message:   "All collections loaded",
			LastCheck: start,
		}

		counts, err := sizes(ctx)
		if err != nil {
			health.Status = StatusUnhealthy
			health.Message = fmt.Sprintf("snapshot load failed: %v", err)
			health.DurationMS = time.Since(start).Milliseconds()
			return health
		}

		health.Details = make(map[string]string, len(counts))
		var empty []string
		for name, n := range counts {
			health.Details[name] = strconv.Itoa(n)
			if n == 0 {
				empty = append(empty, name)
			}
		}
		if len(empty) > 0 {
			sort.Strings(empty)
			health.Status = StatusDegraded
			health.Message = "Empty collections: " + strings.Join(empty, ", ")
		}
		health.DurationMS = time.Since(start).Milliseconds()
		return health
	}
}

// CreateMemoryHealthCheck is degraded once the live heap passes limitBytes.
// A zero limit only reports usage.
func CreateMemoryHealthCheck(limitBytes uint64) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		health := ComponentHealth{
			Status:    StatusHealthy,
			Message:   "Memory usage within normal limits",
			LastCheck: time.Now(),
			Details: map[string]string{
				"heap_alloc_bytes": strconv.FormatUint(m.HeapAlloc, 10),
				"goroutines":       strconv.Itoa(runtime.NumGoroutine()),
			},
		}
		if limitBytes > 0 && m.HeapAlloc > limitBytes {
			health.Status = StatusDegraded
			health.Message = "Heap usage above limit"
		}
		return health
	}
}
