// Package resilience provides the circuit breaker that guards request-time
// calls into external phrase-table stores.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
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
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
}

// CircuitBreaker trips open after FailureThreshold consecutive failures.
// After ResetTimeout it lets HalfOpenMaxRequests probes through; one
// success closes it again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

// NewCircuitBreaker fills zero config values with 5 failures, 30s and 1
// probe.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it, recording success or failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state, moving Open to HalfOpen once the reset
// timeout has passed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.cooldown()
	return cb.state
}

func (cb *CircuitBreaker) cooldown() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenInFlight = 0
		cb.logger.Info("circuit half-open", "after", cb.cfg.ResetTimeout)
	}
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.cooldown()
	switch cb.state {
	case StateOpen:
		return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name,
			cb.cfg.ResetTimeout-cb.now().Sub(cb.openedAt))
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.halfOpenInFlight++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed")
		}
		cb.state = StateClosed
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		if cb.state != StateOpen {
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}
