package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

var errFlaky = errors.New("flaky")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first try", []error{nil}, 3, 1, nil},
		{"recovers", []error{errFlaky, errFlaky, nil}, 3, 3, nil},
		{"exhausted", []error{errFlaky, errFlaky, errFlaky}, 3, 3, errFlaky},
		{"permanent stops", []error{Permanent(apperrors.Invalid("bad row")), nil}, 3, 1, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.name, fastRetry(tt.attempts), func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "cancelled", RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errFlaky
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestCallWithTimeout(t *testing.T) {
	v, err := CallWithTimeout(context.Background(), time.Second, "fast", func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("fast = %d, %v", v, err)
	}

	release := make(chan struct{})
	defer close(release)
	v, err = CallWithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	if !errors.Is(err, apperrors.ErrTimeout) || v != 0 {
		t.Errorf("slow = %d, %v; want 0, ErrTimeout", v, err)
	}
	if apperrors.Kind(err) != "timeout" {
		t.Errorf("kind = %s", apperrors.Kind(err))
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "cancelled", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	fail := func() error { return errFlaky }
	ok := func() error { return nil }

	cb.Execute(fail)
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker ran fn: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerIgnoresNonFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, context.Canceled) },
	})
	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return context.Canceled })
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
	cb.Execute(func() error { return errFlaky })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("state after reset = %v", cb.GetState())
	}
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errFlaky })
	now = now.Add(time.Minute)
	if err := cb.Execute(func() error { return errFlaky }); !errors.Is(err, errFlaky) {
		t.Fatalf("probe err = %v, want the probe's own error", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen right after a failed probe", err)
	}
}
