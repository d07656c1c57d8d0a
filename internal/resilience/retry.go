package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sumandas0/farmstore/pkg/utils"
)

type RetryConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterEnabled     bool          `yaml:"jitter_enabled" mapstructure:"jitter_enabled"`
	JitterFactor      float64       `yaml:"jitter_factor" mapstructure:"jitter_factor"`
}

type RetryStrategy string

const (
	StrategyExponential RetryStrategy = "exponential"
	StrategyLinear      RetryStrategy = "linear"
	StrategyFixed       RetryStrategy = "fixed"
)

type RetryManager struct {
	config   RetryConfig
	strategy RetryStrategy
}

func NewRetryManager(config RetryConfig, strategy RetryStrategy) *RetryManager {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2
	}
	return &RetryManager{
		config:   config,
		strategy: strategy,
	}
}

type IsRetryableError func(error) bool

// Postgres SQLSTATEs worth another attempt.
var retryableSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57P01": true, // admin_shutdown
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
}

// StoreRetryableErrors classifies transient store failures. Caller errors
// such as not found or validation never retry, nor does an open breaker.
func StoreRetryableErrors(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsCircuitBreakerError(err) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableSQLStates[pgErr.Code]
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == utils.CodeUnavailable || appErr.Code == utils.CodeTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "temporary failure"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isInfrastructureError reports errors that say the store itself is unwell.
func isInfrastructureError(err error) bool {
	if utils.IsNotFound(err) || utils.IsAlreadyExists(err) || utils.IsValidation(err) || utils.IsInvalidQuery(err) {
		return false
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) && appErr.Code == utils.CodeConcurrentModification {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func (rm *RetryManager) ExecuteWithResult(ctx context.Context, fn func() (any, error), isRetryable IsRetryableError) (any, error) {
	if !rm.config.Enabled {
		return fn()
	}

	var lastErr error

	for attempt := 1; attempt <= rm.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt == rm.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(rm.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("operation failed after %d attempts: %w", rm.config.MaxAttempts, lastErr)
}

func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch rm.strategy {
	case StrategyLinear:
		delay = time.Duration(int64(rm.config.InitialDelay) * int64(attempt))
	case StrategyFixed:
		delay = rm.config.InitialDelay
	default:
		multiplier := math.Pow(rm.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(rm.config.InitialDelay) * multiplier)
	}

	if rm.config.JitterEnabled {
		delay = rm.applyJitter(delay)
	}

	if rm.config.MaxDelay > 0 && delay > rm.config.MaxDelay {
		delay = rm.config.MaxDelay
	}

	return delay
}

func (rm *RetryManager) applyJitter(delay time.Duration) time.Duration {
	if rm.config.JitterFactor <= 0 || rm.config.JitterFactor >= 1 {
		return delay
	}

	jitter := rm.config.JitterFactor * float64(delay)
	randomJitter := (rand.Float64()*2 - 1) * jitter

	finalDelay := time.Duration(float64(delay) + randomJitter)
	if finalDelay < 0 {
		finalDelay = time.Duration(float64(delay) * 0.1)
	}

	return finalDelay
}

func (rm *RetryManager) IsEnabled() bool {
	return rm.config.Enabled
}
