// Package resilience provides the fault-tolerance primitives used around the
// recommender's external dependencies: a circuit breaker for the Redis
// result cache, exponential-backoff retry for catalog loads, and a
// context-based timeout wrapper for suppliers.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling fn while the breaker rejects
// requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

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
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig controls when the breaker trips and how it probes for
// recovery. Zero values take defaults.
//
// IsFailure decides which errors count against the threshold; nil counts
// every non-nil error. OnStateChange is called after each transition,
// outside the breaker's lock.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	IsFailure           func(error) bool
	OnStateChange       func(name string, from, to State)
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = 1
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
	return c
}

type transition struct{ from, to State }

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests probes through. A
// successful probe closes it; a failed one opens it again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn when the breaker admits the call and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	admitted, changed, err := cb.admit()
	cb.notify(changed)
	if !admitted {
		return err
	}
	err = fn()
	cb.notify(cb.record(err))
	return err
}

// GetState returns the current state. An open breaker whose timeout has
// elapsed still reads open until the next call probes it.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.moveTo(StateClosed)
	cb.mu.Unlock()
	cb.notify(changed)
}

func (cb *CircuitBreaker) admit() (bool, *transition, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var changed *transition
	if cb.state == StateOpen {
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return false, nil, fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		changed = cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.cfg.HalfOpenMaxRequests {
			return false, changed, fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.inFlight++
	}
	return true, changed, nil
}

func (cb *CircuitBreaker) record(err error) *transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}
	if !cb.cfg.IsFailure(err) {
		if cb.state == StateHalfOpen {
			return cb.moveTo(StateClosed)
		}
		cb.failures = 0
		return nil
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		return cb.moveTo(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		return cb.moveTo(StateOpen)
	}
	return nil
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(to State) *transition {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.inFlight = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
		cb.logger.Warn("circuit opened", "from", from.String(), "consecutive_failures", cb.failures)
	case StateClosed:
		cb.failures = 0
		cb.logger.Info("circuit closed", "from", from.String())
	case StateHalfOpen:
		cb.logger.Info("circuit half-open, probing", "after", cb.cfg.ResetTimeout)
	}
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t != nil && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, t.from, t.to)
	}
}
