package resilience

import "time"

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 15 * time.Second
	defaultHalfOpenRequests = 2
)

// CircuitBreakerConfig tunes the breaker guarding one upstream. Enabled is read
// by the caller; the breaker itself always counts.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	// HalfOpenRequests is both the number of trial calls admitted after
	// OpenTimeout and the number of successes needed to close again.
	HalfOpenRequests int
	OnStateChange    StateChangeFunc
}

// WithDefaults replaces unset or out-of-range limits: five consecutive failures
// open the circuit for fifteen seconds and two trial calls close it.
func (c CircuitBreakerConfig) WithDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	if c.HalfOpenRequests < 1 {
		c.HalfOpenRequests = defaultHalfOpenRequests
	}
	return c
}
