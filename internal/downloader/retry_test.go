package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"connection reset errno", syscall.ECONNRESET, ClassTransient},
		{"broken pipe errno", syscall.EPIPE, ClassTransient},
		{"connection refused errno", syscall.ECONNREFUSED, ClassTransient},
		{"unexpected EOF", io.ErrUnexpectedEOF, ClassTransient},
		{"wrapped unexpected EOF", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), ClassTransient},
		{"size mismatch", fmt.Errorf("%w: got 1, expected 2", ErrSizeMismatch), ClassTransient},
		{"http2 stream error string", errors.New("http2: stream closed"), ClassTransient},
		{"reset string from transport", errors.New("read tcp: connection reset by peer"), ClassTransient},
		{"context canceled", context.Canceled, ClassFatal},
		// Deadline errors are timeouts: client timeouts surface as
		// context.DeadlineExceeded and must stay retriable. Callers
		// abort genuine deadline hits through ctx.Err().
		{"deadline exceeded", context.DeadlineExceeded, ClassTransient},
		{"wrapped deadline exceeded", fmt.Errorf("Get \"x\": %w", context.DeadlineExceeded), ClassTransient},
		{"plain error", errors.New("403 Forbidden"), ClassFatal},
		{"not found", errors.New("file not found"), ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyClientTimeout(t *testing.T) {
	// A slow server against a short http.Client timeout produces the
	// real transport error shape: a url.Error that matches
	// context.DeadlineExceeded and reports Timeout() true. It must be
	// retried, not treated as cancellation.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected a client timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected timeout error shape: %v", err)
	}
	if got := Classify(err); got != ClassTransient {
		t.Errorf("client timeout classified as %v, want ClassTransient", got)
	}
}

func TestDelayBounds(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second}
	rng := rand.New(rand.NewSource(1))

	for attempt := 1; attempt <= 4; attempt++ {
		base := policy.BaseDelay << uint(attempt-1)
		for i := 0; i < 50; i++ {
			d := policy.Delay(attempt, rng)
			if d < base {
				t.Errorf("attempt %d: delay %s below base %s", attempt, d, base)
			}
			if d >= time.Duration(float64(base)*1.25) {
				t.Errorf("attempt %d: delay %s at or above jitter ceiling", attempt, d)
			}
		}
	}
}

func TestDelayDoubles(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Second}
	// Base component doubles per attempt regardless of jitter draw.
	if got := policy.BaseDelay << 2; got != 4*time.Second {
		t.Fatalf("shift math broken: %s", got)
	}
	rng := rand.New(rand.NewSource(7))
	d3 := policy.Delay(3, rng)
	if d3 < 4*time.Second {
		t.Errorf("attempt 3 delay %s below 4s base", d3)
	}
}

func TestMachineSuccess(t *testing.T) {
	m := NewMachine(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	if m.State() != StateIdle {
		t.Fatalf("new machine state = %v, want idle", m.State())
	}
	m.Begin()
	if m.State() != StateAttempting || m.Attempt() != 1 {
		t.Fatalf("after Begin: state %v attempt %d", m.State(), m.Attempt())
	}
	if got := m.Observe(nil); got != StateSucceeded {
		t.Errorf("Observe(nil) = %v, want succeeded", got)
	}
}

func TestMachineRetriesThenFails(t *testing.T) {
	m := NewMachine(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	rng := rand.New(rand.NewSource(1))
	m.Begin()

	transient := syscall.ECONNRESET
	for i := 0; i < 2; i++ {
		if got := m.Observe(transient); got != StateBackoff {
			t.Fatalf("attempt %d: Observe = %v, want backoff", m.Attempt(), got)
		}
		m.Next(rng)
	}
	if m.Attempt() != 3 {
		t.Fatalf("attempt = %d, want 3", m.Attempt())
	}
	// Budget exhausted: third transient failure is final.
	if got := m.Observe(transient); got != StateFailed {
		t.Errorf("final Observe = %v, want failed", got)
	}
	if !errors.Is(m.Err(), syscall.ECONNRESET) {
		t.Errorf("Err() = %v, want ECONNRESET", m.Err())
	}
}

func TestMachineFatalStopsImmediately(t *testing.T) {
	m := NewMachine(Policy{MaxAttempts: 5, BaseDelay: time.Millisecond})
	m.Begin()
	if got := m.Observe(errors.New("403 Forbidden")); got != StateFailed {
		t.Errorf("Observe(fatal) = %v, want failed", got)
	}
	if m.Attempt() != 1 {
		t.Errorf("attempt = %d, want 1 (no retries on fatal)", m.Attempt())
	}
}
