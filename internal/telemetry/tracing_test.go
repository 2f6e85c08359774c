package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func testTracer() *Tracer {
	return NewTracer(noop.NewTracerProvider().Tracer("weaver-test"))
}

func TestStageCompileReturnsWrappedError(t *testing.T) {
	tr := testTracer()
	wantErr := errors.New("compile failed")
	err := tr.StageCompile(context.Background(), "def-1", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the stage to return the wrapped error, got %v", err)
	}
}

func TestStageExecuteReturnsNilOnSuccess(t *testing.T) {
	tr := testTracer()
	called := false
	err := tr.StageExecute(context.Background(), 100, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected the wrapped function to be called")
	}
}

func TestStageBuildTreePropagatesContext(t *testing.T) {
	tr := testTracer()
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	var sawValue bool
	err := tr.StageBuildTree(ctx, func(ctx context.Context) error {
		sawValue = ctx.Value(ctxKey{}) == "v"
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawValue {
		t.Fatal("expected the span context to carry the parent's values")
	}
}
