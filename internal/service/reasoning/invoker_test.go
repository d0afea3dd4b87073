package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"loom/internal/domain"
)

// fakeProvider returns scripted outcomes/errors in sequence.
type fakeProvider struct {
	script []func(ctx context.Context) (Outcome, error)
	calls  int
}

func (f *fakeProvider) Name() string                    { return "fake" }
func (f *fakeProvider) SupportsModel(model string) bool { return true }

func (f *fakeProvider) Step(ctx context.Context, req *Request) (Outcome, error) {
	if f.calls >= len(f.script) {
		return nil, fmt.Errorf("unexpected call %d", f.calls)
	}
	step := f.script[f.calls]
	f.calls++
	return step(ctx)
}

func answer(text string) func(ctx context.Context) (Outcome, error) {
	return func(ctx context.Context) (Outcome, error) {
		return FinalAnswer{Text: text}, nil
	}
}

func fail(err error) func(ctx context.Context) (Outcome, error) {
	return func(ctx context.Context) (Outcome, error) {
		return nil, err
	}
}

func testConfig() InvokerConfig {
	return InvokerConfig{
		StepTimeout:    time.Second,
		RetryBaseDelay: time.Millisecond,
		RetryAttempts:  3,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestInvoker_Step(t *testing.T) {
	ctx := context.Background()
	req := &Request{Model: "fake-model"}

	t.Run("success on first attempt", func(t *testing.T) {
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			answer("hello"),
		}}
		inv := NewInvoker(provider, testConfig(), testLogger())

		outcome, err := inv.Step(ctx, req)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
		if fa, ok := outcome.(FinalAnswer); !ok || fa.Text != "hello" {
			t.Errorf("outcome = %#v, want FinalAnswer 'hello'", outcome)
		}
		if provider.calls != 1 {
			t.Errorf("provider called %d times, want 1", provider.calls)
		}
	})

	t.Run("transient failure then success", func(t *testing.T) {
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			fail(fmt.Errorf("overloaded: %w", ErrUnavailable)),
			fail(fmt.Errorf("slow down: %w", ErrRateLimited)),
			answer("eventually"),
		}}
		inv := NewInvoker(provider, testConfig(), testLogger())

		outcome, err := inv.Step(ctx, req)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
		if fa := outcome.(FinalAnswer); fa.Text != "eventually" {
			t.Errorf("text = %s, want 'eventually'", fa.Text)
		}
		if provider.calls != 3 {
			t.Errorf("provider called %d times, want 3", provider.calls)
		}
	})

	t.Run("retries exhausted maps to backend unavailable", func(t *testing.T) {
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			fail(fmt.Errorf("a: %w", ErrUnavailable)),
			fail(fmt.Errorf("b: %w", ErrTimeout)),
			fail(fmt.Errorf("c: %w", ErrUnavailable)),
		}}
		inv := NewInvoker(provider, testConfig(), testLogger())

		_, err := inv.Step(ctx, req)
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			t.Fatalf("error = %v, want ErrBackendUnavailable", err)
		}
		if provider.calls != 3 {
			t.Errorf("provider called %d times, want 3", provider.calls)
		}
	})

	t.Run("non-transient failure returns immediately", func(t *testing.T) {
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			fail(fmt.Errorf("bad model: %w", ErrInvalidRequest)),
		}}
		inv := NewInvoker(provider, testConfig(), testLogger())

		_, err := inv.Step(ctx, req)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("error = %v, want ErrInvalidRequest", err)
		}
		if errors.Is(err, domain.ErrBackendUnavailable) {
			t.Error("non-transient error must not map to backend unavailable")
		}
		if provider.calls != 1 {
			t.Errorf("provider called %d times, want 1", provider.calls)
		}
	})

	t.Run("caller cancellation stops retries", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			func(stepCtx context.Context) (Outcome, error) {
				cancel()
				return nil, fmt.Errorf("dying: %w", ErrUnavailable)
			},
		}}
		inv := NewInvoker(provider, testConfig(), testLogger())

		_, err := inv.Step(cancelCtx, req)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if provider.calls != 1 {
			t.Errorf("provider called %d times, want 1", provider.calls)
		}
	})

	t.Run("attempt timeout counts as transient", func(t *testing.T) {
		cfg := testConfig()
		cfg.StepTimeout = 5 * time.Millisecond
		provider := &fakeProvider{script: []func(ctx context.Context) (Outcome, error){
			func(stepCtx context.Context) (Outcome, error) {
				<-stepCtx.Done()
				return nil, stepCtx.Err()
			},
			answer("second try"),
		}}
		inv := NewInvoker(provider, cfg, testLogger())

		outcome, err := inv.Step(ctx, req)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
		if fa := outcome.(FinalAnswer); fa.Text != "second try" {
			t.Errorf("text = %s, want 'second try'", fa.Text)
		}
	})
}

func TestIsTransient(t *testing.T) {
	transient := []error{ErrUnavailable, ErrRateLimited, ErrTimeout}
	for _, err := range transient {
		if !IsTransient(fmt.Errorf("wrapped: %w", err)) {
			t.Errorf("IsTransient(%v) = false, want true", err)
		}
	}
	if IsTransient(ErrInvalidRequest) {
		t.Error("IsTransient(ErrInvalidRequest) = true, want false")
	}
	if IsTransient(errors.New("random")) {
		t.Error("IsTransient(random) = true, want false")
	}
}
