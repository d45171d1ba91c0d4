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

package pubsub

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/metrics"
	"github.com/tomoncle/docstore/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type route struct {
	name         string
	subscription string
	fn           HandleFunc
}

// Dispatcher subscribes every registered subscription and routes deliveries
// to the bound handlers.
type Dispatcher struct {
	subscriber     message.Subscriber
	logger         utils.Logger
	metrics        *metrics.DispatchMetrics
	tracer         trace.Tracer
	handlerTimeout time.Duration

	mu        sync.Mutex
	routes    []route
	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

type DispatcherOption func(*Dispatcher)

func WithDispatchLogger(l utils.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatchMetrics(m *metrics.DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithDispatchTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithHandlerTimeout bounds every handler invocation. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.handlerTimeout = timeout }
}

func NewDispatcher(sub message.Subscriber, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		subscriber: sub,
		logger:     utils.NewLogger("PUBSUB"),
		tracer:     otel.Tracer("docstore/pubsub"),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register validates and adds the bindings of every listener. Nothing is
// registered when any binding is invalid.
func (d *Dispatcher) Register(listeners ...Listener) error {
	var routes []route
	for _, l := range listeners {
		if l == nil {
			return docerr.Configuration("pubsub", "listener is nil", nil)
		}
		for i, b := range l.Bindings() {
			fn, err := b.validate()
			if err != nil {
				return err
			}
			name := b.Name
			if name == "" {
				name = fmt.Sprintf("%T#%d", l, i)
			}
			for _, s := range b.Subscriptions {
				routes = append(routes, route{name: name, subscription: s, fn: fn})
			}
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return docerr.Configuration("pubsub", "dispatcher is already running", nil)
	}
	d.routes = append(d.routes, routes...)
	return nil
}

// Subscriptions lists the distinct registered subscriptions in sorted order.
func (d *Dispatcher) Subscriptions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := lo.Uniq(lo.Map(d.routes, func(r route, _ int) string { return r.subscription }))
	sort.Strings(subs)
	return subs
}

// Run subscribes once per subscription and blocks until ctx is done. Handlers
// of one subscription run in registration order on the same delivery.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.subscriber == nil {
		return docerr.Configuration("pubsub", "dispatcher has no subscriber", nil)
	}
	if !d.running.CompareAndSwap(false, true) {
		return docerr.Configuration("pubsub", "dispatcher is already running", nil)
	}
	defer d.running.Store(false)

	d.mu.Lock()
	grouped := lo.GroupBy(d.routes, func(r route) string { return r.subscription })
	d.mu.Unlock()
	if len(grouped) == 0 {
		return docerr.Configuration("pubsub", "no bindings registered", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	for _, subscription := range lo.Keys(grouped) {
		routes := grouped[subscription]
		ch, err := d.subscriber.Subscribe(gctx, subscription)
		if err != nil {
			cancel()
			_ = g.Wait()
			return errx.Wrap(err, errx.WithDetails(errx.D{"subscription": subscription}))
		}
		d.logger.Info("subscribed", "subscription", subscription, "handlers", len(routes))
		g.Go(func() error {
			d.consume(gctx, subscription, routes, ch)
			return nil
		})
	}
	d.readyOnce.Do(func() { close(d.ready) })
	return g.Wait()
}

// Ready is closed once the first Run has subscribed every subscription.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

func (d *Dispatcher) consume(ctx context.Context, subscription string, routes []route, ch <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, subscription, routes, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, subscription string, routes []route, raw *message.Message) {
	m := fromWatermill(subscription, raw)
	d.logger.Debug("message received", "subscription", subscription, "id", m.ID)
	for _, r := range routes {
		start := time.Now()
		err := d.invoke(ctx, r, m)
		d.metrics.Observe(subscription, err, time.Since(start))
		if err != nil {
			d.logger.Error("message handler failed",
				"subscription", subscription, "handler", r.name, "id", m.ID,
				"duration", time.Since(start).String(), "error", err)
			raw.Nack()
			return
		}
	}
	raw.Ack()
}

func (d *Dispatcher) invoke(ctx context.Context, r route, m *Message) (err error) {
	ctx, span := d.tracer.Start(ctx, "pubsub."+m.Subscription+".consume",
		trace.WithAttributes(
			attribute.String("messaging.destination", m.Subscription),
			attribute.String("messaging.message_id", m.ID),
			attribute.String("pubsub.handler", r.name),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			err = errx.New("panic recovered in message handler", errx.WithDetails(errx.D{
				"panic_values": fmt.Sprintf("%v", rec),
				"stack_trace":  string(stack),
			}))
		}
	}()
	return r.fn(ctx, m)
}
