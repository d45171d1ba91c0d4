/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/metrics"
	"github.com/tomoncle/docstore/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation describes a store call for error wrapping, logging and metrics.
type Operation struct {
	Name       string
	Collection string
	DocumentID string
}

func (o Operation) String() string {
	if o.DocumentID == "" {
		return fmt.Sprintf("%s %s", o.Name, o.Collection)
	}
	return fmt.Sprintf("%s %s/%s", o.Name, o.Collection, o.DocumentID)
}

// Bridge turns store futures into results with uniform error wrapping.
type Bridge struct {
	logger  utils.Logger
	metrics *metrics.StoreMetrics
	tracer  trace.Tracer
}

type BridgeOption func(*Bridge)

func WithLogger(l utils.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *metrics.StoreMetrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

func WithTracer(t trace.Tracer) BridgeOption {
	return func(b *Bridge) {
		if t != nil {
			b.tracer = t
		}
	}
}

// NewBridge builds a bridge. Without options it logs through the "ASYNC" logger,
// records no metrics and uses the global otel tracer provider.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		logger: utils.NewLogger("ASYNC"),
		tracer: otel.Tracer("docstore/async"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBridge = NewBridge()

// Default returns the shared bridge used when none is configured.
func Default() *Bridge {
	return defaultBridge
}

// Await starts the store call, waits for its future and wraps any failure,
// including cancellation of ctx, into a store error carrying op. Configuration
// errors pass through unwrapped.
func Await[Z any](ctx context.Context, b *Bridge, op Operation, call func(ctx context.Context) *Future[Z]) (Z, error) {
	if b == nil {
		b = defaultBridge
	}
	ctx, span := b.tracer.Start(ctx, "docstore."+op.Name,
		trace.WithAttributes(
			attribute.String("docstore.collection", op.Collection),
			attribute.String("docstore.document_id", op.DocumentID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	start := time.Now()
	v, err := wait(ctx, call)
	b.metrics.Observe(op.Name, op.Collection, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero Z
		return zero, b.Wrap(op, err)
	}
	span.SetStatus(codes.Ok, "")
	return v, nil
}

func wait[Z any](ctx context.Context, call func(ctx context.Context) *Future[Z]) (v Z, err error) {
	if err = ctx.Err(); err != nil {
		return v, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	f := call(ctx)
	if f == nil {
		return v, errors.New("store returned no future")
	}
	return f.Get(ctx)
}

// Submit runs Await on a new goroutine and exposes the result as a future.
func Submit[Z any](ctx context.Context, b *Bridge, op Operation, call func(ctx context.Context) *Future[Z]) *Future[Z] {
	return Go(ctx, func(ctx context.Context) (Z, error) {
		return Await(ctx, b, op, call)
	})
}

// Wrap applies the bridge's error policy to err without awaiting anything.
// Stream consumers use it for iterator failures.
func (b *Bridge) Wrap(op Operation, err error) error {
	if err == nil {
		return nil
	}
	if b == nil {
		b = defaultBridge
	}
	if docerr.IsConfiguration(err) {
		return err
	}
	wrapped := docerr.Store(op.Name, op.Collection, op.DocumentID, err)
	b.logger.Debug("store call failed", "operation", op.String(), "cause", docerr.CauseOf(wrapped).String(), "error", err)
	return wrapped
}
