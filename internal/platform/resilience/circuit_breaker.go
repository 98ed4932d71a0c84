package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc observes breaker transitions. It runs with the breaker lock held
// and must not call back into the breaker.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker trips after consecutive dependency failures and tests recovery
// with a bounded number of half-open requests.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	openTimeout      time.Duration
	halfOpenTrials   int
	onStateChange    StateChangeFunc

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int
	now                 func() time.Time
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg = cfg.WithDefaults()
	return &CircuitBreaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenTrials:   cfg.HalfOpenRequests,
		onStateChange:    cfg.OnStateChange,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.halfOpenInFlight >= b.halfOpenTrials {
			return ErrCircuitOpen
		}
		b.halfOpenInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenTrials && b.halfOpenInFlight == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// Record feeds one call outcome into the breaker. Errors for which countable
// returns false are treated as successes (the dependency answered).
func (b *CircuitBreaker) Record(err error, countable func(error) bool) {
	if err != nil && (countable == nil || countable(err)) {
		b.RecordFailure()
		return
	}
	b.RecordSuccess()
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	switch to {
	case CircuitStateClosed:
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	if b.onStateChange != nil && from != to {
		b.onStateChange(b.name, from, to)
	}
}
