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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/metrics"
	"github.com/tomoncle/docstore/utils"
)

func TestAdaptShapes(t *testing.T) {
	msg := &Message{ID: "m1", Data: []byte("hello"), Subscription: "events"}

	var got []string
	shapes := []any{
		func(_ context.Context, m *Message) error { got = append(got, "msg:"+m.ID); return nil },
		func(_ context.Context, s string) error { got = append(got, "text:"+s); return nil },
		func(_ context.Context, m *Message, s string) error { got = append(got, m.ID+"+"+s); return nil },
		func(_ context.Context, s string, m *Message) error { got = append(got, s+"+"+m.ID); return nil },
		HandleFunc(func(context.Context, *Message) error { got = append(got, "named"); return nil }),
	}
	for _, h := range shapes {
		fn, err := Adapt(h)
		require.NoError(t, err)
		require.NoError(t, fn(context.Background(), msg))
	}
	assert.Equal(t, []string{"msg:m1", "text:hello", "m1+hello", "hello+m1", "named"}, got)
}

func TestAdaptRejectsOtherShapes(t *testing.T) {
	invalid := []any{
		nil,
		func(context.Context) error { return nil },
		func(string) error { return nil },
		func(context.Context, int) error { return nil },
		func(context.Context, string, string) error { return nil },
		func(context.Context, *Message, *Message) error { return nil },
		func(context.Context, *Message, string, string) error { return nil },
		func(context.Context, *Message) {},
		"not a func",
	}
	for _, h := range invalid {
		_, err := Adapt(h)
		assert.True(t, docerr.IsConfiguration(err), "%T", h)
	}
}

func TestRegisterValidatesBindings(t *testing.T) {
	d := NewDispatcher(nil, WithDispatchLogger(utils.NopLogger{}))
	ok := func(context.Context, string) error { return nil }

	err := d.Register(Bindings{{Name: "empty", Handler: ok}})
	assert.True(t, docerr.IsConfiguration(err))

	err = d.Register(Bindings{{Name: "blank", Subscriptions: []string{""}, Handler: ok}})
	assert.True(t, docerr.IsConfiguration(err))

	err = d.Register(Bindings{
		{Name: "good", Subscriptions: []string{"a"}, Handler: ok},
		{Name: "bad", Subscriptions: []string{"b"}, Handler: func() {}},
	})
	assert.True(t, docerr.IsConfiguration(err))
	assert.Empty(t, d.Subscriptions(), "a failed registration adds nothing")

	require.NoError(t, d.Register(Bindings{{Name: "good", Subscriptions: []string{"b", "a", "b"}, Handler: ok}}))
	assert.Equal(t, []string{"a", "b"}, d.Subscriptions())

	assert.True(t, docerr.IsConfiguration(d.Register(nil)))
}

func TestRunRequiresBindingsAndSubscriber(t *testing.T) {
	assert.True(t, docerr.IsConfiguration(NewDispatcher(nil).Run(context.Background())))

	tr := newTestTransport(t)
	d := NewDispatcher(tr.Subscriber, WithDispatchLogger(utils.NopLogger{}))
	assert.True(t, docerr.IsConfiguration(d.Run(context.Background())))
}

type orderListener struct {
	mu       sync.Mutex
	received []*Message
	texts    []string
}

func (l *orderListener) Bindings() []Binding {
	return []Binding{
		{
			Name:          "orders",
			Subscriptions: []string{"orders", "orders-eu"},
			Handler: func(_ context.Context, m *Message, text string) error {
				l.mu.Lock()
				defer l.mu.Unlock()
				l.received = append(l.received, m)
				l.texts = append(l.texts, text)
				return nil
			},
		},
	}
}

func (l *orderListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.received)
}

func TestDispatchEndToEnd(t *testing.T) {
	tr := newTestTransport(t)
	listener := &orderListener{}
	reg := prometheus.NewRegistry()
	m := metrics.NewDispatchMetrics(reg)

	d := NewDispatcher(tr.Subscriber, WithDispatchLogger(utils.NopLogger{}), WithDispatchMetrics(m))
	require.NoError(t, d.Register(listener))
	stop := runDispatcher(t, d)
	defer stop()

	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPublisher(tr.Publisher, WithPublishLogger(utils.NopLogger{}), WithPublishClock(func() time.Time { return published }))

	ctx := context.Background()
	id, err := p.Publish(ctx, "orders", []byte(`{"total":3}`), map[string]string{"origin": "web"}).Get(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = p.PublishText(ctx, "orders-eu", "plain").Get(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return listener.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	bySub := map[string]*Message{}
	for _, msg := range listener.received {
		bySub[msg.Subscription] = msg
	}
	first := bySub["orders"]
	require.NotNil(t, first)
	assert.Equal(t, id, first.ID)
	assert.Equal(t, `{"total":3}`, first.Text())
	assert.Equal(t, map[string]string{"origin": "web"}, first.Attributes)
	assert.True(t, published.Equal(first.PublishTime))
	assert.ElementsMatch(t, []string{`{"total":3}`, "plain"}, listener.texts)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("orders", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("orders-eu", metrics.OutcomeOK)))
}

func TestFailedHandlerIsRedelivered(t *testing.T) {
	tr := newTestTransport(t)
	var calls atomic.Int32
	var panics atomic.Int32
	m := metrics.NewDispatchMetrics(prometheus.NewRegistry())

	d := NewDispatcher(tr.Subscriber, WithDispatchLogger(utils.NopLogger{}), WithDispatchMetrics(m))
	require.NoError(t, d.Register(Bindings{
		{
			Name:          "flaky",
			Subscriptions: []string{"jobs"},
			Handler: func(context.Context, string) error {
				if calls.Add(1) == 1 {
					return errors.New("temporary")
				}
				return nil
			},
		},
		{
			Name:          "panicky",
			Subscriptions: []string{"audits"},
			Handler: func(context.Context, *Message) error {
				if panics.Add(1) == 1 {
					panic("boom")
				}
				return nil
			},
		},
	}))
	stop := runDispatcher(t, d)
	defer stop()

	p := NewPublisher(tr.Publisher, WithPublishLogger(utils.NopLogger{}))
	ctx := context.Background()
	_, err := p.PublishText(ctx, "jobs", "run").Get(ctx)
	require.NoError(t, err)
	_, err = p.PublishText(ctx, "audits", "check").Get(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() == 2 && panics.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Messages.WithLabelValues("audits", metrics.OutcomeOK)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("jobs", metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("audits", metrics.OutcomeError)))
}

func TestRunTwiceFails(t *testing.T) {
	tr := newTestTransport(t)
	d := NewDispatcher(tr.Subscriber, WithDispatchLogger(utils.NopLogger{}))
	require.NoError(t, d.Register(Bindings{{Subscriptions: []string{"x"}, Handler: func(context.Context, string) error { return nil }}}))
	stop := runDispatcher(t, d)
	defer stop()

	assert.True(t, docerr.IsConfiguration(d.Run(context.Background())))
	assert.True(t, docerr.IsConfiguration(d.Register(Bindings{{Subscriptions: []string{"y"}, Handler: func(context.Context, string) error { return nil }}})))
}

type flakyPublisher struct {
	failures int32
	calls    atomic.Int32
	topics   []string
}

func (f *flakyPublisher) Publish(topic string, _ ...*message.Message) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("broker unavailable")
	}
	f.topics = append(f.topics, topic)
	return nil
}

func (f *flakyPublisher) Close() error { return nil }

func TestPublishRetries(t *testing.T) {
	ctx := context.Background()

	flaky := &flakyPublisher{failures: 2}
	p := NewPublisher(flaky, WithPublishLogger(utils.NopLogger{}), WithPublishRetry(3, 0))
	id, err := p.PublishText(ctx, "events", "x").Get(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, []string{"events"}, flaky.topics)

	down := &flakyPublisher{failures: 100}
	bridge := async.NewBridge(async.WithLogger(utils.NopLogger{}))
	p = NewPublisher(down, WithPublishLogger(utils.NopLogger{}), WithPublishRetry(2, 0), WithPublishBridge(bridge))
	_, err = p.PublishText(ctx, "events", "x").Get(ctx)
	require.Error(t, err)
	assert.True(t, docerr.IsStore(err))
	assert.Equal(t, int32(2), down.calls.Load())
}

func TestPublishValidation(t *testing.T) {
	ctx := context.Background()
	_, err := NewPublisher(&flakyPublisher{}).Publish(ctx, "", nil, nil).Get(ctx)
	assert.True(t, docerr.IsConfiguration(err))

	_, err = NewPublisher(nil).PublishText(ctx, "t", "x").Get(ctx)
	assert.True(t, docerr.IsConfiguration(err))
}

func TestNewTransport(t *testing.T) {
	_, err := NewTransport(Config{Driver: "nats"}, utils.NopLogger{})
	assert.True(t, docerr.IsConfiguration(err))

	_, err = NewTransport(Config{Driver: DriverKafka, Brokers: " , "}, utils.NopLogger{})
	assert.True(t, docerr.IsConfiguration(err))

	tr, err := NewTransport(Config{}, utils.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, tr.Publisher, tr.Subscriber)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

type recordingLogger struct {
	utils.NopLogger
	mu    sync.Mutex
	lines []map[string]interface{}
}

func (r *recordingLogger) Info(msg string, kv ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := map[string]interface{}{"msg": msg}
	for i := 0; i+1 < len(kv); i += 2 {
		line[kv[i].(string)] = kv[i+1]
	}
	r.lines = append(r.lines, line)
}

func TestLoggerAdapterCarriesFields(t *testing.T) {
	rec := &recordingLogger{}
	l := NewLoggerAdapter(rec).With(watermill.LogFields{"topic": "orders"})
	l.Info("sent", watermill.LogFields{"uuid": "1"})

	require.Len(t, rec.lines, 1)
	assert.Equal(t, map[string]interface{}{"msg": "sent", "topic": "orders", "uuid": "1"}, rec.lines[0])
}

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	tr, err := NewTransport(Config{Driver: DriverGoChannel, OutputBuffer: 8}, utils.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func runDispatcher(t *testing.T, d *Dispatcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	select {
	case <-d.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("dispatcher stopped early: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("dispatcher did not subscribe")
	}
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("dispatcher did not stop")
		}
	}
}
