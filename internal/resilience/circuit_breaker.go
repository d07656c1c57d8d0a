package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/sumandas0/farmstore/pkg/utils"
)

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests" mapstructure:"max_requests"`
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// CircuitBreakerManager keeps one breaker per named dependency.
type CircuitBreakerManager struct {
	config   CircuitBreakerConfig
	logger   zerolog.Logger
	breakers map[string]*gobreaker.CircuitBreaker
	mutex    sync.RWMutex
}

func NewCircuitBreakerManager(config CircuitBreakerConfig, logger zerolog.Logger) *CircuitBreakerManager {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	return &CircuitBreakerManager{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (cbm *CircuitBreakerManager) GetBreaker(serviceName string) *gobreaker.CircuitBreaker {
	if !cbm.config.Enabled {
		return nil
	}

	cbm.mutex.RLock()
	breaker, exists := cbm.breakers[serviceName]
	cbm.mutex.RUnlock()

	if exists {
		return breaker
	}

	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	if breaker, exists := cbm.breakers[serviceName]; exists {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: cbm.config.MaxRequests,
		Interval:    cbm.config.Interval,
		Timeout:     cbm.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbm.config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cbm.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		// Caller mistakes must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !isInfrastructureError(err)
		},
	}

	breaker = gobreaker.NewCircuitBreaker(settings)
	cbm.breakers[serviceName] = breaker

	return breaker
}

func (cbm *CircuitBreakerManager) ExecuteWithContext(ctx context.Context, serviceName string, fn func(context.Context) (any, error)) (any, error) {
	breaker := cbm.GetBreaker(serviceName)
	if breaker == nil {
		return fn(ctx)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if IsCircuitBreakerError(err) {
		return nil, utils.NewAppError(utils.CodeUnavailable, "store temporarily unavailable", err).
			WithDetail("breaker", serviceName)
	}
	return result, err
}

func (cbm *CircuitBreakerManager) GetState(serviceName string) gobreaker.State {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	if breaker, exists := cbm.breakers[serviceName]; exists {
		return breaker.State()
	}

	return gobreaker.StateClosed
}

func (cbm *CircuitBreakerManager) IsEnabled() bool {
	return cbm.config.Enabled
}

func IsCircuitBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Status reports every breaker's state and counts, keyed by breaker name.
func (cbm *CircuitBreakerManager) Status() map[string]any {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	status := make(map[string]any, len(cbm.breakers))
	for name, breaker := range cbm.breakers {
		counts := breaker.Counts()
		status[name] = map[string]any{
			"state":                 breaker.State().String(),
			"requests":              counts.Requests,
			"total_successes":       counts.TotalSuccesses,
			"total_failures":        counts.TotalFailures,
			"consecutive_successes": counts.ConsecutiveSuccesses,
			"consecutive_failures":  counts.ConsecutiveFailures,
		}
	}

	return map[string]any{
		"circuit_breakers": status,
		"enabled":          cbm.config.Enabled,
	}
}

// AnyOpen reports whether some breaker currently rejects calls.
func (cbm *CircuitBreakerManager) AnyOpen() bool {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()
	for _, breaker := range cbm.breakers {
		if breaker.State() == gobreaker.StateOpen {
			return true
		}
	}
	return false
}
