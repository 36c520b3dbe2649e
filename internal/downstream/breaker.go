package downstream

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/avarelay/internal/observability"
)

// BreakerConfig configures the optional circuit breaker around a client.
type BreakerConfig struct {
	Enabled   bool
	Threshold int
	Timeout   time.Duration
}

func newBreaker(name string, cfg BreakerConfig, logger observability.Logger, metrics *observability.Metrics) *gobreaker.CircuitBreaker {
	threshold := safeIntToUint32(cfg.Threshold)
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.SetCircuitBreakerState(name, int(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.SetCircuitBreakerState(name, int(to))
		},
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
