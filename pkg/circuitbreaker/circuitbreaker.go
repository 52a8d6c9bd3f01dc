package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is the current mode of the breaker.
type State int

const (
	// Closed lets requests through and counts consecutive failures.
	Closed State = iota
	// Open rejects requests until the cool-off timeout elapses.
	Open
	// HalfOpen lets trial requests through to probe recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to an unreliable upstream.
type CircuitBreaker interface {
	// Execute runs req unless the breaker is open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state.
	State() State
}

type breaker struct {
	failureThreshold     uint32
	successThreshold     uint32
	timeout              time.Duration
	onStateChange        func(from, to State)
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	mutex                sync.Mutex
}

// Option configures a breaker created by New.
type Option func(*breaker)

// WithStateChange registers a callback invoked on every state transition,
// outside the breaker's lock.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *breaker) { b.onStateChange = fn }
}

// New creates a breaker that opens after failureThreshold consecutive
// failures, stays open for timeout, then closes again after successThreshold
// consecutive half-open successes.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state of the breaker.
func (cb *breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Execute wraps one request with the breaker logic.
func (cb *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	cb.mutex.Lock()

	var notified func()
	if cb.state == Open && time.Since(cb.openedAt) > cb.timeout {
		notified = cb.transition(HalfOpen)
		cb.consecutiveSuccesses = 0
	}

	state := cb.state
	cb.mutex.Unlock()
	if notified != nil {
		notified()
	}

	if state == Open {
		return nil, ErrCircuitOpen
	}

	res, err := req()
	if err != nil {
		cb.onFailure()
		return nil, err
	}
	cb.onSuccess()
	return res, nil
}

func (cb *breaker) onSuccess() {
	cb.mutex.Lock()
	var notified func()
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			notified = cb.transition(Closed)
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
	cb.mutex.Unlock()
	if notified != nil {
		notified()
	}
}

func (cb *breaker) onFailure() {
	cb.mutex.Lock()
	var notified func()
	switch cb.state {
	case HalfOpen:
		notified = cb.trip()
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			notified = cb.trip()
		}
	}
	cb.mutex.Unlock()
	if notified != nil {
		notified()
	}
}

// trip opens the circuit. Caller holds the lock.
func (cb *breaker) trip() func() {
	notified := cb.transition(Open)
	cb.openedAt = time.Now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	return notified
}

// transition changes state and returns the pending callback, or nil.
// Caller holds the lock.
func (cb *breaker) transition(to State) func() {
	from := cb.state
	cb.state = to
	if cb.onStateChange == nil || from == to {
		return nil
	}
	fn := cb.onStateChange
	return func() { fn(from, to) }
}
