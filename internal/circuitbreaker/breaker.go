package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // requests pass through
	Open                  // requests are rejected immediately
	HalfOpen              // one trial request is let through
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ignoredError marks an error that says nothing about the protected call's
// health.
type ignoredError struct{ err error }

func (e ignoredError) Error() string { return e.err.Error() }
func (e ignoredError) Unwrap() error { return e.err }

// Ignore wraps err so that Execute returns it unchanged without counting it
// as a failure or as a success. Use it for errors on the caller's side,
// such as a canceled context.
func Ignore(err error) error {
	if err == nil {
		return nil
	}
	return ignoredError{err: err}
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithStateChange registers a callback invoked after every transition.
// It runs with the breaker unlocked.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// Breaker opens after maxFailures consecutive errors and lets a single
// trial request through once resetTimeout has passed.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	maxFailures     int
	resetTimeout    time.Duration
	lastFailureTime time.Time
	trialInFlight   bool

	now      func() time.Time
	onChange func(from, to State)
}

// New creates a Breaker. maxFailures below 1 is treated as 1.
func New(maxFailures int, resetTimeout time.Duration, opts ...Option) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	b := &Breaker{
		state:        Closed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs fn through the breaker. While open, or while a half-open
// trial is in flight, ErrCircuitOpen is returned without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	from, to, err := b.before()
	b.notify(from, to)
	if err != nil {
		return err
	}

	err = fn()

	var ignored ignoredError
	if errors.As(err, &ignored) {
		b.release()
		return ignored.err
	}

	from, to = b.after(err)
	b.notify(from, to)
	return err
}

func (b *Breaker) before() (State, State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.state
	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailureTime) <= b.resetTimeout {
			return from, from, ErrCircuitOpen
		}
		b.state = HalfOpen
		b.trialInFlight = true
	case HalfOpen:
		if b.trialInFlight {
			return from, from, ErrCircuitOpen
		}
		b.trialInFlight = true
	}
	return from, b.state, nil
}

func (b *Breaker) after(err error) (State, State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.state
	b.trialInFlight = false
	if err != nil {
		b.failures++
		b.lastFailureTime = b.now()
		if b.state == HalfOpen || b.failures >= b.maxFailures {
			b.state = Open
		}
		return from, b.state
	}

	b.failures = 0
	b.state = Closed
	return from, b.state
}

// release ends a half-open trial without changing state.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil && from != to {
		b.onChange(from, to)
	}
}

// State returns the current state of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
