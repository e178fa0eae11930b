package retry

import (
	"sync"
	"time"
)

// BreakerState is the closed set of circuit breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker is a single agent's circuit breaker: a rolling failure counter
// that trips to open once failureThreshold consecutive invocation failures
// are recorded, and half-opens for one trial call after timeout elapses.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold int
	timeout          time.Duration
	failureCount     int
	lastFailureAt    time.Time
	state            BreakerState
	halfOpenInFlight bool
}

// NewBreaker constructs a Breaker with the given threshold and open-state
// timeout.
func NewBreaker(failureThreshold int, timeout time.Duration) *Breaker {
	return &Breaker{failureThreshold: failureThreshold, timeout: timeout, state: BreakerClosed}
}

// Allow reports whether a call may proceed, transitioning open -> half_open
// once timeout has elapsed since the last failure. Only one trial call is
// allowed through per half-open window.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	default: // BreakerOpen
		if time.Since(b.lastFailureAt) < b.timeout {
			return false
		}
		b.state = BreakerHalfOpen
		b.halfOpenInFlight = true
		return true
	}
}

// RecordSuccess resets the breaker to closed with a zeroed failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = BreakerClosed
	b.halfOpenInFlight = false
}

// RecordFailure increments the rolling failure count and opens the breaker
// once failureThreshold is reached (or immediately, if the failing call was
// itself the half-open trial).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureAt = time.Now()
	b.halfOpenInFlight = false
	if b.state == BreakerHalfOpen || b.failureCount >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the breaker's current state, for observability.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry hands out one Breaker per agent name, constructor-injected so
// tests get fresh, isolated breaker state rather than reaching through a
// package-level singleton.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	timeout          time.Duration
}

// NewRegistry builds a Registry that mints breakers with the given
// threshold/timeout on first use per agent name.
func NewRegistry(failureThreshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		timeout:          timeout,
	}
}

// For returns the Breaker for agent, creating it on first use.
func (r *Registry) For(agent string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[agent]
	if !ok {
		b = NewBreaker(r.failureThreshold, r.timeout)
		r.breakers[agent] = b
	}
	return b
}
