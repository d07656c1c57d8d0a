package integration

import (
	"context"
	"time"

	"github.com/sumandas0/farmstore/internal/observability"
	"github.com/sumandas0/farmstore/internal/resilience"
	"github.com/sumandas0/farmstore/internal/security"
)

// ObservabilityManager integrates all observability components
type ObservabilityManager struct {
	tracing *observability.TracingManager
	logging *observability.Logger
	metrics *observability.MetricsManager
}

func NewObservabilityManager(
	tracingConfig observability.TracingConfig,
	loggingConfig observability.LoggingConfig,
	metricsConfig observability.MetricsConfig,
) (*ObservabilityManager, error) {
	tracing, err := observability.NewTracingManager(tracingConfig)
	if err != nil {
		return nil, err
	}

	logging, err := observability.NewLogger(loggingConfig)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetricsManager(metricsConfig)

	observability.SetGlobalLogger(logging)

	return &ObservabilityManager{
		tracing: tracing,
		logging: logging,
		metrics: metrics,
	}, nil
}

// NewNoopObservabilityManager discards logs and spans and keeps metrics on a
// private registry. Used by tests and one-shot CLI commands.
func NewNoopObservabilityManager() *ObservabilityManager {
	return &ObservabilityManager{
		tracing: observability.NewNoopTracingManager(),
		logging: observability.NewNopLogger(),
		metrics: observability.NewMetricsManager(observability.MetricsConfig{Enabled: true}),
	}
}

func (om *ObservabilityManager) GetTracing() *observability.TracingManager {
	return om.tracing
}

func (om *ObservabilityManager) GetLogging() *observability.Logger {
	return om.logging
}

func (om *ObservabilityManager) GetMetrics() *observability.MetricsManager {
	return om.metrics
}

func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	tracingErr := om.tracing.Shutdown(ctx)
	if err := om.logging.Close(); err != nil {
		return err
	}
	return tracingErr
}

// ResilienceManager integrates all resilience components
type ResilienceManager struct {
	circuitBreaker *resilience.CircuitBreakerManager
	retryManager   *resilience.RetryManager
}

func NewResilienceManager(
	cbConfig resilience.CircuitBreakerConfig,
	retryConfig resilience.RetryConfig,
	logging *observability.Logger,
) *ResilienceManager {
	return &ResilienceManager{
		circuitBreaker: resilience.NewCircuitBreakerManager(cbConfig, logging.GetZerologLogger()),
		retryManager:   resilience.NewRetryManager(retryConfig, resilience.StrategyExponential),
	}
}

func (rm *ResilienceManager) GetCircuitBreaker() *resilience.CircuitBreakerManager {
	return rm.circuitBreaker
}

func (rm *ResilienceManager) GetRetryManager() *resilience.RetryManager {
	return rm.retryManager
}

// SecurityManager integrates all security components
type SecurityManager struct {
	rateLimiter *security.RateLimiter
	sanitizer   *security.InputSanitizer
}

func NewSecurityManager(
	rateLimitConfig security.RateLimitConfig,
	sanitizerConfig security.SanitizerConfig,
) *SecurityManager {
	return &SecurityManager{
		rateLimiter: security.NewRateLimiter(rateLimitConfig),
		sanitizer:   security.NewInputSanitizer(sanitizerConfig),
	}
}

func (sm *SecurityManager) GetRateLimiter() *security.RateLimiter {
	return sm.rateLimiter
}

func (sm *SecurityManager) GetSanitizer() *security.InputSanitizer {
	return sm.sanitizer
}

func (sm *SecurityManager) Stop() {
	sm.rateLimiter.Stop()
}

// AdvancedFeaturesManager integrates all advanced features
type AdvancedFeaturesManager struct {
	observability *ObservabilityManager
	resilience    *ResilienceManager
	security      *SecurityManager
	startTime     time.Time
}

// AdvancedFeaturesConfig holds configuration for all advanced features
type AdvancedFeaturesConfig struct {
	Tracing        observability.TracingConfig     `yaml:"tracing" mapstructure:"tracing"`
	Logging        observability.LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Metrics        observability.MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Retry          resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	RateLimit      security.RateLimitConfig        `yaml:"rate_limit" mapstructure:"rate_limit"`
	Sanitizer      security.SanitizerConfig        `yaml:"sanitizer" mapstructure:"sanitizer"`
}

// BuildInfo is stamped into the build_info gauge at startup.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

func NewAdvancedFeaturesManager(config AdvancedFeaturesConfig, build BuildInfo) (*AdvancedFeaturesManager, error) {
	obs, err := NewObservabilityManager(config.Tracing, config.Logging, config.Metrics)
	if err != nil {
		return nil, err
	}

	afm := &AdvancedFeaturesManager{
		observability: obs,
		resilience:    NewResilienceManager(config.CircuitBreaker, config.Retry, obs.GetLogging()),
		security:      NewSecurityManager(config.RateLimit, config.Sanitizer),
		startTime:     time.Now(),
	}

	if config.Metrics.Enabled {
		obs.GetMetrics().StartUptimeTracker(context.Background(), afm.startTime)
		obs.GetMetrics().SetBuildInfo(build.Version, build.Commit, build.BuildTime)
	}

	return afm, nil
}

func (afm *AdvancedFeaturesManager) GetObservability() *ObservabilityManager {
	return afm.observability
}

func (afm *AdvancedFeaturesManager) GetResilience() *ResilienceManager {
	return afm.resilience
}

func (afm *AdvancedFeaturesManager) GetSecurity() *SecurityManager {
	return afm.security
}

func (afm *AdvancedFeaturesManager) Shutdown(ctx context.Context) error {
	afm.security.Stop()
	return afm.observability.Shutdown(ctx)
}

// HealthCheck reports the state of the cross-cutting components for the
// readiness endpoint.
func (afm *AdvancedFeaturesManager) HealthCheck(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"observability": map[string]interface{}{
			"tracing_enabled": afm.observability.tracing.IsEnabled(),
			"metrics_enabled": afm.observability.metrics.IsEnabled(),
			"uptime_seconds":  time.Since(afm.startTime).Seconds(),
		},
		"resilience": map[string]interface{}{
			"circuit_breakers": afm.resilience.circuitBreaker.Status(),
			"retry_enabled":    afm.resilience.retryManager.IsEnabled(),
		},
		"security": map[string]interface{}{
			"rate_limiter":      afm.security.rateLimiter.GetStats(),
			"sanitizer_enabled": afm.security.sanitizer.IsEnabled(),
		},
	}
}
