// Package resilience guards calls to unreliable dependencies with a
// per-dependency circuit breaker and a bounded exponential-backoff
// retry policy.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the breaker state for one dependency.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns a human-readable state name.
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

// BreakerOpenError is returned when a call is rejected because the
// dependency's breaker is open (or a half-open probe is in flight).
type BreakerOpenError struct {
	Dependency string
}

// Error implements the error interface.
func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for dependency %q", e.Dependency)
}

// IsBreakerOpen reports whether err is a BreakerOpenError.
func IsBreakerOpen(err error) bool {
	var boe *BreakerOpenError
	return errors.As(err, &boe)
}

// BreakerConfig holds circuit breaker tuning parameters.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the
	// closed state that trips the breaker. Must be >= 1.
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before a
	// single probe call is allowed through.
	RecoveryTimeout time.Duration
}

// DefaultBreakerConfig returns sensible breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// TransitionFunc observes breaker state changes, e.g. for metrics.
type TransitionFunc func(dependency string, from, to State)

// Breaker is a failure-tracking state machine for one dependency.
// All state is process-local; a fresh process starts closed.
type Breaker struct {
	name   string
	config BreakerConfig
	onMove TransitionFunc

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, config BreakerConfig, onTransition TransitionFunc) *Breaker {
	return &Breaker{
		name:   name,
		config: config,
		onMove: onTransition,
		state:  StateClosed,
		now:    time.Now,
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Guard executes op if the breaker permits, recording the outcome.
// When the breaker is open it returns *BreakerOpenError without
// invoking op. In the half-open state exactly one probe is in flight
// at a time; concurrent callers are rejected until it settles.
func (b *Breaker) Guard(ctx context.Context, op func(context.Context) error) error {
	probe, err := b.allow()
	if err != nil {
		return err
	}

	opErr := op(ctx)
	b.record(probe, opErr)
	return opErr
}

// allow decides whether a call may proceed. The returned bool marks
// the call as the half-open probe.
func (b *Breaker) allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.config.RecoveryTimeout {
			b.transition(StateHalfOpen)
			return true, nil
		}
		return false, &BreakerOpenError{Dependency: b.name}
	case StateHalfOpen:
		// A probe is already in flight.
		return false, &BreakerOpenError{Dependency: b.name}
	default:
		return false, &BreakerOpenError{Dependency: b.name}
	}
}

// record applies a call outcome to the state machine.
func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		if err == nil {
			b.failures = 0
			b.transition(StateClosed)
		} else {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return
	}

	// Outcomes from calls admitted before the breaker opened are only
	// meaningful in the closed state; ignore them otherwise so a stale
	// result cannot reopen a breaker a successful probe just closed.
	if b.state != StateClosed {
		return
	}

	if err == nil {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures >= b.config.FailureThreshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// transition moves to a new state, notifying the observer. Caller
// holds b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onMove != nil {
		b.onMove(b.name, from, to)
	}
}

// BreakerSet manages one breaker per named dependency, creating them
// lazily with a shared configuration. Safe for concurrent use.
type BreakerSet struct {
	config BreakerConfig
	onMove TransitionFunc

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set with the given shared config.
func NewBreakerSet(config BreakerConfig, onTransition TransitionFunc) *BreakerSet {
	return &BreakerSet{
		config:   config,
		onMove:   onTransition,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the named dependency, creating it closed
// on first use.
func (s *BreakerSet) Get(name string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[name]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, s.config, s.onMove)
	s.breakers[name] = b
	return b
}
