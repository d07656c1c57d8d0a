package security

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// EndpointLimits are keyed by "METHOD /path/prefix".
	EndpointLimits map[string]EndpointLimit `yaml:"endpoint_limits" mapstructure:"endpoint_limits"`

	IPLimitEnabled      bool    `yaml:"ip_limit_enabled" mapstructure:"ip_limit_enabled"`
	IPRequestsPerSecond float64 `yaml:"ip_requests_per_second" mapstructure:"ip_requests_per_second"`
	IPBurstSize         int     `yaml:"ip_burst_size" mapstructure:"ip_burst_size"`
}

type EndpointLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

type RateLimiter struct {
	config           RateLimitConfig
	globalLimiter    *rate.Limiter
	endpointLimiters map[string]*rate.Limiter
	ipLimiters       map[string]*rateLimiterEntry
	mutex            sync.Mutex
	stopCleanup      chan struct{}
	stopOnce         sync.Once
	rejected         uint64
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:           config,
		endpointLimiters: make(map[string]*rate.Limiter),
		ipLimiters:       make(map[string]*rateLimiterEntry),
		stopCleanup:      make(chan struct{}),
	}

	if config.Enabled {
		rl.globalLimiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize)
		for endpoint, limit := range config.EndpointLimits {
			rl.endpointLimiters[endpoint] = rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
		}
		go rl.cleanupRoutine()
	}

	return rl
}

func (rl *RateLimiter) Allow() bool {
	if !rl.config.Enabled || rl.globalLimiter == nil {
		return true
	}
	return rl.globalLimiter.Allow()
}

func (rl *RateLimiter) AllowIP(ip string) bool {
	if !rl.config.Enabled || !rl.config.IPLimitEnabled {
		return true
	}
	return rl.getIPLimiter(ip).Allow()
}

// AllowEndpoint applies the longest configured prefix limit matching the
// request, if any.
func (rl *RateLimiter) AllowEndpoint(method, path string) bool {
	if !rl.config.Enabled {
		return true
	}
	var (
		best    *rate.Limiter
		bestLen int
	)
	for key, limiter := range rl.endpointLimiters {
		m, prefix, ok := strings.Cut(key, " ")
		if !ok || m != method || !strings.HasPrefix(path, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			best, bestLen = limiter, len(prefix)
		}
	}
	if best == nil {
		return true
	}
	return best.Allow()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if entry, exists := rl.ipLimiters[ip]; exists {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.IPRequestsPerSecond), rl.config.IPBurstSize)
	rl.ipLimiters[ip] = &rateLimiterEntry{
		limiter:  limiter,
		lastSeen: time.Now(),
	}
	return limiter
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2)
	for ip, entry := range rl.ipLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.ipLimiters, ip)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) IsEnabled() bool {
	return rl.config.Enabled
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	return map[string]interface{}{
		"enabled":           rl.config.Enabled,
		"ip_limiters_count": len(rl.ipLimiters),
		"rejected_total":    rl.rejected,
		"global_limit": map[string]interface{}{
			"requests_per_second": rl.config.RequestsPerSecond,
			"burst_size":          rl.config.BurstSize,
		},
	}
}

func (rl *RateLimiter) RateLimitMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := ClientIP(r)

			if !rl.Allow() {
				rl.sendRateLimitResponse(w, "Global rate limit exceeded")
				return
			}

			if !rl.AllowIP(clientIP) {
				rl.sendRateLimitResponse(w, "IP rate limit exceeded")
				return
			}

			if !rl.AllowEndpoint(r.Method, r.URL.Path) {
				rl.sendRateLimitResponse(w, "Endpoint rate limit exceeded")
				return
			}

			if rl.globalLimiter != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(rl.globalLimiter.Limit()), 'f', 0, 64))
				w.Header().Set("X-RateLimit-Burst", strconv.Itoa(rl.globalLimiter.Burst()))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) sendRateLimitResponse(w http.ResponseWriter, message string) {
	rl.mutex.Lock()
	rl.rejected++
	rl.mutex.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "RATE_LIMIT_EXCEEDED",
			"message": message,
		},
	})
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
