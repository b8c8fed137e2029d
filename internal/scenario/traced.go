package scenario

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

type tracedStore struct {
	next   Store
	tracer trace.Tracer
}

// WithTracing wraps next so that every operation runs in its own span.
func WithTracing(next Store, tracer trace.Tracer) Store {
	return &tracedStore{next: next, tracer: tracer}
}

func (t *tracedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scenario."+op, trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedStore) Save(ctx context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error) {
	ctx, span := t.start(ctx, "save", attribute.String("scenario.name", in.ScenarioName))
	sc, err := t.next.Save(ctx, in, result)
	if err == nil {
		span.SetAttributes(attribute.Int64("scenario.id", sc.ID))
	}
	end(span, err)
	return sc, err
}

func (t *tracedStore) List(ctx context.Context) ([]Scenario, error) {
	ctx, span := t.start(ctx, "list")
	out, err := t.next.List(ctx)
	span.SetAttributes(attribute.Int("scenario.count", len(out)))
	end(span, err)
	return out, err
}

func (t *tracedStore) Get(ctx context.Context, id int64) (Scenario, error) {
	ctx, span := t.start(ctx, "get", attribute.Int64("scenario.id", id))
	sc, err := t.next.Get(ctx, id)
	end(span, err)
	return sc, err
}

func (t *tracedStore) Delete(ctx context.Context, id int64) error {
	ctx, span := t.start(ctx, "delete", attribute.Int64("scenario.id", id))
	err := t.next.Delete(ctx, id)
	end(span, err)
	return err
}

func (t *tracedStore) Close() error { return t.next.Close() }
