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
	"fmt"
	"sync"
)

// Future is a single-assignment result. The first Resolve or Reject wins.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with v.
func Completed[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Failed returns a future already rejected with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and resolves the returned future with its result.
// A panic in fn rejects the future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := fn(ctx)
		f.complete(v, err)
	}()
	return f
}

func (f *Future[T]) Resolve(v T) {
	f.complete(v, nil)
}

func (f *Future[T]) Reject(err error) {
	if err == nil {
		err = fmt.Errorf("future rejected without error")
	}
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future is resolved or rejected.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the future completes or ctx is done. Cancelling ctx only
// stops the wait; the underlying work is not interrupted.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then maps a successful result of f through fn. Errors pass through unchanged.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := NewFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			out.Reject(f.err)
			return
		}
		v, err := fn(f.val)
		out.complete(v, err)
	}()
	return out
}
