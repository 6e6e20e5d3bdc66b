package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aml-lang/aml/internal/value"
)

func TestSpawnJoinReturnsValue(t *testing.T) {
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		return value.Int(42), nil
	})
	v, err := h.Join(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(value.Int) != 42 {
		t.Errorf("got %v want 42", v)
	}
}

func TestJoinCanBeCalledMultipleTimes(t *testing.T) {
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		return value.Int(7), nil
	})
	v1, _ := h.Join(0)
	v2, _ := h.Join(0)
	if v1.(value.Int) != v2.(value.Int) {
		t.Errorf("repeated Join should replay the same result, got %v then %v", v1, v2)
	}
}

func TestJoinPropagatesError(t *testing.T) {
	want := errors.New("boom")
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		return nil, want
	})
	_, err := h.Join(0)
	if err != want {
		t.Fatalf("got %v want %v", err, want)
	}
}

func TestJoinTimeout(t *testing.T) {
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		time.Sleep(50 * time.Millisecond)
		return value.NULL, nil
	})
	_, err := h.Join(0.001)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestResultAndLastErrorBeforeCompletion(t *testing.T) {
	block := make(chan struct{})
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		<-block
		return value.Int(1), nil
	})
	if v, ok := h.Result(); ok || v != nil {
		t.Errorf("Result before completion: got (%v, %v) want (nil, false)", v, ok)
	}
	if err := h.LastError(); err != nil {
		t.Errorf("LastError before completion: got %v want nil", err)
	}
	close(block)
	h.Join(0)
	v, ok := h.Result()
	if !ok || v.(value.Int) != 1 {
		t.Errorf("Result after completion: got (%v, %v) want (1, true)", v, ok)
	}
}

func TestCancelStopsTaskObservingContext(t *testing.T) {
	started := make(chan struct{})
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started
	h.Cancel()
	_, err := h.Join(1)
	if err == nil {
		t.Fatal("expected the context-cancellation error to propagate")
	}
}

func TestParallelCollectsResultsAndSwallowsErrors(t *testing.T) {
	fns := []func(ctx context.Context) (value.Value, error){
		func(ctx context.Context) (value.Value, error) { return value.Int(1), nil },
		func(ctx context.Context) (value.Value, error) { return nil, errors.New("fails") },
		func(ctx context.Context) (value.Value, error) { return value.Int(3), nil },
	}
	results := Parallel(context.Background(), fns)
	if len(results) != 3 {
		t.Fatalf("got %d results want 3", len(results))
	}
	if results[0].(value.Int) != 1 {
		t.Errorf("results[0]: got %v want 1", results[0])
	}
	if results[1] != value.NULL {
		t.Errorf("results[1]: got %v want NULL (swallowed error)", results[1])
	}
	if results[2].(value.Int) != 3 {
		t.Errorf("results[2]: got %v want 3", results[2])
	}
}

func TestDoneReflectsCompletion(t *testing.T) {
	h := Spawn(context.Background(), func(ctx context.Context) (value.Value, error) {
		return value.NULL, nil
	})
	h.Join(0)
	if !h.Done() {
		t.Error("expected Done() to be true after Join returns")
	}
}
