package provider

import (
	"fmt"
	"sync"
	"time"

	apperrors "oi-reversal/internal/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Upstream failing, fetches rejected
	CircuitHalfOpen CircuitState = "HALF_OPEN" // One trial fetch allowed
)

// CircuitBreaker stops hammering an upstream that keeps failing. After
// threshold consecutive failures it rejects fetches for cooldown, then lets
// a single trial fetch through.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker. A threshold below 1 disables it.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     CircuitClosed,
	}
}

// Allow returns ErrProviderUnavailable while the breaker is open.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.threshold < 1 || cb.state != CircuitOpen {
		return nil
	}
	if wait := cb.cooldown - cb.now().Sub(cb.openedAt); wait > 0 {
		return fmt.Errorf("%w: circuit open for another %s", apperrors.ErrProviderUnavailable, wait.Round(time.Second))
	}
	cb.state = CircuitHalfOpen
	return nil
}

// Record updates the breaker with the outcome of a fetch.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.state = CircuitClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || (cb.threshold > 0 && cb.failures >= cb.threshold) {
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
		cb.failures = 0
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
