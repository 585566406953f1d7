package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit tripped, requests blocked
	StateHalfOpen              // Testing if the adapter recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// ErrOpen is returned instead of running the call while the circuit is open
var ErrOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration
type Config struct {
	Name      string        // Name for logging
	Threshold int           // Consecutive failures before opening
	Cooldown  time.Duration // How long to stay open before a trial call

	// IsFailure decides which errors count against the adapter.
	// Nil counts every error.
	IsFailure func(error) bool
}

// CircuitBreaker guards one adapter. It wraps a gobreaker two-step state
// machine and adds the bookkeeping the status endpoint reports.
type CircuitBreaker struct {
	cfg Config

	mu          sync.RWMutex
	cb          *gobreaker.CircuitBreaker[any]
	lastFailure time.Time
	openedAt    time.Time
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name          string    `json:"name"`
	State         State     `json:"state"`
	Failures      uint32    `json:"consecutiveFailures"`
	Requests      uint32    `json:"requests"`
	TotalFailures uint32    `json:"totalFailures"`
	Threshold     int       `json:"threshold"`
	LastFailure   time.Time `json:"lastFailure,omitempty"`
	RetryInMs     int64     `json:"retryInMs"`
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	b := &CircuitBreaker{cfg: cfg}
	b.cb = b.newBreaker()
	return b
}

func (b *CircuitBreaker) newBreaker() *gobreaker.CircuitBreaker[any] {
	threshold := uint32(b.cfg.Threshold)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        b.cfg.Name,
		MaxRequests: 1,
		Timeout:     b.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if b.cfg.IsFailure != nil && !b.cfg.IsFailure(err) {
				return true
			}
			b.mu.Lock()
			b.lastFailure = time.Now()
			b.mu.Unlock()
			return false
		},
		// The caller giving up says nothing about the adapter
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: b.onStateChange,
	})
}

func (b *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	prefix := logcolors.CircuitBreakerPrefix(name)
	switch fromGobreaker(to) {
	case StateOpen:
		b.mu.Lock()
		b.openedAt = time.Now()
		b.mu.Unlock()
		if fromGobreaker(from) == StateHalfOpen {
			log.Warnf("%s Trial call failed, transitioning back to OPEN", prefix)
		} else {
			log.Warnf("%s Threshold reached (%d failures), transitioning to OPEN (cooldown: %v)",
				prefix, b.cfg.Threshold, b.cfg.Cooldown)
		}
	case StateHalfOpen:
		log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", prefix)
	case StateClosed:
		log.Infof("%s Trial call succeeded, transitioning to CLOSED", prefix)
	}
}

func (b *CircuitBreaker) breaker() *gobreaker.CircuitBreaker[any] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb
}

// Execute runs fn through the breaker and returns its result. While the
// circuit is open fn is not called and ErrOpen is returned.
func Execute[T any](b *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	v, err := b.breaker().Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrOpen
	}
	if v == nil {
		return zero, err
	}
	return v.(T), err
}

// Name returns the breaker name
func (b *CircuitBreaker) Name() string {
	return b.cfg.Name
}

// State returns the current state
func (b *CircuitBreaker) State() State {
	return fromGobreaker(b.breaker().State())
}

// IsOpen returns true if the circuit is open (blocking requests)
func (b *CircuitBreaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Failures returns the current consecutive failure count
func (b *CircuitBreaker) Failures() uint32 {
	return b.breaker().Counts().ConsecutiveFailures
}

// TimeUntilRetry returns the remaining cooldown, or 0 unless the circuit is open
func (b *CircuitBreaker) TimeUntilRetry() time.Duration {
	if !b.IsOpen() {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	remaining := b.cfg.Cooldown - time.Since(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stats returns circuit breaker statistics
func (b *CircuitBreaker) Stats() Stats {
	cb := b.breaker()
	counts := cb.Counts()

	b.mu.RLock()
	lastFailure := b.lastFailure
	b.mu.RUnlock()

	return Stats{
		Name:          b.cfg.Name,
		State:         fromGobreaker(cb.State()),
		Failures:      counts.ConsecutiveFailures,
		Requests:      counts.Requests,
		TotalFailures: counts.TotalFailures,
		Threshold:     b.cfg.Threshold,
		LastFailure:   lastFailure,
		RetryInMs:     b.TimeUntilRetry().Milliseconds(),
	}
}

// Reset manually resets the circuit breaker to closed state
func (b *CircuitBreaker) Reset() {
	cb := b.newBreaker()

	b.mu.Lock()
	b.cb = cb
	b.lastFailure = time.Time{}
	b.openedAt = time.Time{}
	b.mu.Unlock()

	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(b.cfg.Name))
}
