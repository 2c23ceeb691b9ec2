package http

import (
	"context"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithSpan runs fn inside a child span of whatever trace ctx carries.
func WithSpan(ctx context.Context, name string, fn func(ctx context.Context)) {
	span, ctx2 := tracer.StartSpanFromContext(ctx, name)
	defer span.Finish()
	fn(ctx2)
}
