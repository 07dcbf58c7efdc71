package downloader

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"
)

// State is the position of one download in its retry lifecycle.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateBackoff
	StateSucceeded
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorClass partitions errors into retriable and non-retriable.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassFatal
)

// Classify decides whether an error warrants another attempt.
// Transient: timeouts, connection resets, broken pipes, incomplete
// reads, and protocol-level stream errors. Cancellation is fatal;
// callers that carry a deadline of their own must check ctx.Err()
// rather than rely on classification, because http.Client timeouts
// also match context.DeadlineExceeded.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}
	// Timeout check first: since Go 1.16 client timeouts satisfy
	// errors.Is(err, context.DeadlineExceeded), and they must retry.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassFatal
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNREFUSED) {
		return ClassTransient
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransient
	}
	// Stream errors surfaced as plain strings by net/http.
	msg := err.Error()
	for _, marker := range []string{"connection reset", "broken pipe", "unexpected EOF", "http2: ", "transport connection broken"} {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	if errors.Is(err, ErrSizeMismatch) {
		return ClassTransient
	}
	return ClassFatal
}

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the download retry defaults.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BaseDelay:   2 * time.Second,
}

// Delay returns the backoff before the given attempt is retried:
// base * 2^(attempt-1), scaled by a jitter factor in [1.0, 1.25).
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay << uint(attempt-1)
	jitter := 1.0 + 0.25*rng.Float64()
	return time.Duration(float64(d) * jitter)
}

// Machine is the pure retry state machine driving one download. It
// holds no transport state; callers report attempt outcomes through
// Observe and act on the resulting state.
type Machine struct {
	policy  Policy
	state   State
	attempt int
	lastErr error
}

// NewMachine creates a machine in StateIdle.
func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Attempt returns the current attempt number (1-based once begun).
func (m *Machine) Attempt() int { return m.attempt }

// Err returns the last observed error.
func (m *Machine) Err() error { return m.lastErr }

// Begin starts the first attempt.
func (m *Machine) Begin() {
	m.state = StateAttempting
	m.attempt = 1
}

// Observe transitions based on the outcome of the current attempt.
// nil → Succeeded; fatal error → Failed immediately; transient error →
// Backoff while attempts remain, Failed once exhausted.
func (m *Machine) Observe(err error) State {
	if err == nil {
		m.state = StateSucceeded
		return m.state
	}
	m.lastErr = err
	if Classify(err) == ClassFatal {
		m.state = StateFailed
		return m.state
	}
	if m.attempt >= m.policy.MaxAttempts {
		m.state = StateFailed
		return m.state
	}
	m.state = StateBackoff
	return m.state
}

// Next moves from Backoff into the next attempt and returns its delay.
func (m *Machine) Next(rng *rand.Rand) time.Duration {
	d := m.policy.Delay(m.attempt, rng)
	m.attempt++
	m.state = StateAttempting
	return d
}
