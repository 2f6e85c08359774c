package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps compiler and executor stages in OpenTelemetry spans,
// following the teacher's emit.OTelEmitter: one span per stage, status
// set to error when the wrapped call fails.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer from an OpenTelemetry tracer, typically
// otel.Tracer("weaver").
func NewTracer(tracer trace.Tracer) *Tracer {
	return &Tracer{tracer: tracer}
}

// StageCompile wraps a compile call in a "compile" span.
func (t *Tracer) StageCompile(ctx context.Context, definitionID string, fn func(context.Context) error) error {
	return t.stage(ctx, "compile", []attribute.KeyValue{attribute.String("definition_id", definitionID)}, fn)
}

// StageRefine wraps one rule-refinement stage in a "refine" span.
func (t *Tracer) StageRefine(ctx context.Context, name string, fn func(context.Context) error) error {
	return t.stage(ctx, "refine", []attribute.KeyValue{attribute.String("refine.stage", name)}, fn)
}

// StageBuildTree wraps routing-tree construction in a "build_tree" span.
func (t *Tracer) StageBuildTree(ctx context.Context, fn func(context.Context) error) error {
	return t.stage(ctx, "build_tree", nil, fn)
}

// StageExecute wraps a full execution run in an "execute" span.
func (t *Tracer) StageExecute(ctx context.Context, rowCount int, fn func(context.Context) error) error {
	return t.stage(ctx, "execute", []attribute.KeyValue{attribute.Int("row_count", rowCount)}, fn)
}

func (t *Tracer) stage(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
