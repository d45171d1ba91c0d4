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
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/metrics"
	"github.com/tomoncle/docstore/utils"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFutureFirstCompletionWins(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(1)
	f.Reject(errors.New("late"))
	f.Resolve(2)
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = Failed[int](nil).Get(context.Background())
	assert.Error(t, err)
}

func TestGoRecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		panic("boom")
	})
	_, err := f.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGetHonoursContext(t *testing.T) {
	f := NewFuture[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// completing afterwards is still observable
	f.Resolve("late")
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestThen(t *testing.T) {
	f := Then(Completed(21), func(v int) (string, error) {
		return strconv.Itoa(v * 2), nil
	})
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	cause := errors.New("down")
	_, err = Then(Failed[int](cause), func(int) (string, error) { return "", nil }).Get(context.Background())
	assert.ErrorIs(t, err, cause)
}

func newTestBridge() (*Bridge, *tracetest.SpanRecorder, *metrics.StoreMetrics) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	m := metrics.NewStoreMetrics(nil)
	b := NewBridge(WithLogger(utils.NopLogger{}), WithMetrics(m), WithTracer(tp.Tracer("test")))
	return b, sr, m
}

func TestAwaitSuccess(t *testing.T) {
	b, sr, m := newTestBridge()
	op := Operation{Name: "get", Collection: "orders", DocumentID: "o1"}
	v, err := Await(context.Background(), b, op, func(ctx context.Context) *Future[string] {
		return Completed("doc")
	})
	require.NoError(t, err)
	assert.Equal(t, "doc", v)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "docstore.get", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("get", "orders", metrics.OutcomeOK)))
}

func TestAwaitWrapsFailure(t *testing.T) {
	b, sr, m := newTestBridge()
	op := Operation{Name: "set", Collection: "orders", DocumentID: "o1"}
	cause := errors.New("connection refused")
	_, err := Await(context.Background(), b, op, func(ctx context.Context) *Future[struct{}] {
		return Failed[struct{}](cause)
	})
	require.Error(t, err)
	assert.True(t, docerr.IsStore(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, docerr.CauseUnavailable, docerr.CauseOf(err))

	var se *docerr.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "orders", se.Collection)
	assert.Equal(t, "o1", se.DocumentID)

	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues("set", "orders", metrics.OutcomeError)))
}

func TestAwaitCancellation(t *testing.T) {
	b, _, _ := newTestBridge()
	ctx, cancel := context.WithCancel(context.Background())
	pending := NewFuture[int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := Await(ctx, b, Operation{Name: "query", Collection: "orders"}, func(context.Context) *Future[int] {
		return pending
	})
	require.Error(t, err)
	assert.True(t, docerr.IsStore(err))
	assert.Equal(t, docerr.CauseCanceled, docerr.CauseOf(err))

	called := false
	_, err = Await(ctx, b, Operation{Name: "get"}, func(context.Context) *Future[int] {
		called = true
		return Completed(1)
	})
	assert.True(t, docerr.IsStore(err))
	assert.False(t, called)
}

func TestAwaitKeepsConfigurationErrors(t *testing.T) {
	b, _, _ := newTestBridge()
	cfgErr := docerr.Configuration("findById", "cannot decode", errors.New("bad"))
	_, err := Await(context.Background(), b, Operation{Name: "get"}, func(context.Context) *Future[int] {
		return Failed[int](cfgErr)
	})
	assert.Same(t, cfgErr, err)
}

func TestAwaitNilFutureAndPanic(t *testing.T) {
	b, _, _ := newTestBridge()
	_, err := Await(context.Background(), b, Operation{Name: "get"}, func(context.Context) *Future[int] { return nil })
	assert.True(t, docerr.IsStore(err))

	_, err = Await(context.Background(), b, Operation{Name: "get"}, func(context.Context) *Future[int] { panic("driver bug") })
	assert.True(t, docerr.IsStore(err))
	assert.Contains(t, err.Error(), "driver bug")
}

func TestSubmit(t *testing.T) {
	b, _, _ := newTestBridge()
	f := Submit(context.Background(), b, Operation{Name: "get"}, func(context.Context) *Future[int] {
		return Completed(7)
	})
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	f = Submit(context.Background(), nil, Operation{Name: "get"}, func(context.Context) *Future[int] {
		return Failed[int](errors.New("x"))
	})
	_, err = f.Get(context.Background())
	assert.True(t, docerr.IsStore(err))
}
