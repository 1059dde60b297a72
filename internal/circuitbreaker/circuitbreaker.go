package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the circuit is open and the call is rejected.
var ErrOpen = errors.New("circuit breaker open")

// Config holds circuit breaker parameters. Zero values get defaults:
// 5 failures to open, 2 successes to close, 30s open timeout.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	Component        string
	OnStateChange    func(from, to State) // optional, for metrics
}

// CircuitBreaker rejects calls after repeated upstream failures, letting
// probe calls through after the open timeout elapses (half-open).
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	probeOKs      int
	openedAt      time.Time
	cfg           Config
}

// New creates a CircuitBreaker with the given config.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{state: StateClosed, cfg: cfg}
}

// Call runs fn when the circuit allows it. When open and the timeout has
// not elapsed, returns ErrOpen without calling fn. The fn error (or nil)
// drives the state machine.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.cfg.Timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.transitionLocked(StateHalfOpen)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.openedAt = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.failures = 0
			cb.transitionLocked(StateOpen)
		}
		return err
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.probeOKs++
		if cb.probeOKs >= cb.cfg.SuccessThreshold {
			cb.transitionLocked(StateClosed)
		}
	}
	return nil
}

// State returns the current state (for metrics and tests).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transitionLocked moves to the target state and fires the callback.
// Caller holds cb.mu; the callback runs without the lock to avoid
// re-entrancy deadlocks from metrics code.
func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.probeOKs = 0
	if cb.cfg.OnStateChange != nil {
		cb.mu.Unlock()
		cb.cfg.OnStateChange(from, to)
		cb.mu.Lock()
	}
}
