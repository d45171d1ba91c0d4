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

// Package memstore is an in-process store.Store backed by go-cache. It is used
// for tests, the CLI's dry runs and the "memory" driver.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
	"github.com/tomoncle/docstore/utils"
)

// ErrClosed is returned by calls on a closed store.
var ErrClosed = errors.New("memstore: store is closed")

// FaultFunc may fail an operation before it runs. op is one of "get", "set",
// "delete", "query" and "recursiveDelete"; path is the document or collection path.
type FaultFunc func(op, path string) error

type record struct {
	fields  types.JsonObject
	created time.Time
	updated time.Time
}

// Store keeps documents keyed by full path.
type Store struct {
	items   *cache.Cache
	mu      sync.Mutex
	closed  bool
	latency time.Duration
	fault   FaultFunc
	clock   func() time.Time
	logger  utils.Logger
}

type Option func(*Store)

// WithLatency delays every call, making the futures complete asynchronously.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

func WithFault(fn FaultFunc) Option {
	return func(s *Store) { s.fault = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.clock = fn
		}
	}
}

func WithLogger(l utils.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:  cache.New(cache.NoExpiration, 0),
		clock:  time.Now,
		logger: utils.NewLogger("MEMSTORE"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func run[T any](ctx context.Context, s *Store, op, path string, fn func() (T, error)) *async.Future[T] {
	call := func(context.Context) (T, error) {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		var zero T
		if s.isClosed() {
			return zero, ErrClosed
		}
		if s.fault != nil {
			if err := s.fault(op, path); err != nil {
				return zero, err
			}
		}
		return fn()
	}
	if s.latency > 0 {
		return async.Go(ctx, call)
	}
	v, err := call(ctx)
	if err != nil {
		return async.Failed[T](err)
	}
	return async.Completed(v)
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Get(ctx context.Context, ref store.DocumentRef) *async.Future[*store.Snapshot] {
	return run(ctx, s, "get", ref.Path(), func() (*store.Snapshot, error) {
		v, ok := s.items.Get(ref.Path())
		if !ok {
			return store.Missing(ref), nil
		}
		return snapshot(ref, v.(*record)), nil
	})
}

func (s *Store) Set(ctx context.Context, ref store.DocumentRef, fields types.JsonObject) *async.Future[store.WriteResult] {
	return run(ctx, s, "set", ref.Path(), func() (store.WriteResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		now := s.clock()
		rec := &record{fields: fields.Clone(), created: now, updated: now}
		if rec.fields == nil {
			rec.fields = types.JsonObject{}
		}
		if v, ok := s.items.Get(ref.Path()); ok {
			rec.created = v.(*record).created
		}
		s.items.Set(ref.Path(), rec, cache.NoExpiration)
		s.logger.Debug("document written", "path", ref.Path())
		return store.WriteResult{UpdateTime: now}, nil
	})
}

func (s *Store) Delete(ctx context.Context, ref store.DocumentRef) *async.Future[store.WriteResult] {
	return run(ctx, s, "delete", ref.Path(), func() (store.WriteResult, error) {
		s.items.Delete(ref.Path())
		return store.WriteResult{UpdateTime: s.clock()}, nil
	})
}

func (s *Store) RecursiveDelete(ctx context.Context, ref store.DocumentRef) *async.Future[int] {
	return run(ctx, s, "recursiveDelete", ref.Path(), func() (int, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := 0
		for path := range s.items.Items() {
			if ref.Contains(path) {
				s.items.Delete(path)
				n++
			}
		}
		return n, nil
	})
}

func (s *Store) Query(ctx context.Context, q store.Query) *async.Future[[]*store.Snapshot] {
	return run(ctx, s, "query", q.Collection().Path(), func() ([]*store.Snapshot, error) {
		return s.query(q), nil
	})
}

func (s *Store) Documents(ctx context.Context, q store.Query) store.DocumentIterator {
	return store.FutureIterator(ctx, s.Query(ctx, q))
}

func (s *Store) query(q store.Query) []*store.Snapshot {
	coll := q.Collection()
	var out []*store.Snapshot
	for path, item := range s.items.Items() {
		ref, err := store.ParseDocumentPath(path)
		if err != nil || ref.Parent() != coll {
			continue
		}
		rec := item.Object.(*record)
		if !matches(rec.fields, q.Filters()) {
			continue
		}
		out = append(out, snapshot(ref, rec))
	}

	orders := q.Orders()
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range orders {
			c := compare(out[i].Fields[o.Field], out[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Direction == types.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].Ref.Path() < out[j].Ref.Path()
	})

	if skip := q.Skip(); skip > 0 {
		if skip >= len(out) {
			out = nil
		} else {
			out = out[skip:]
		}
	}
	if limit, ok := q.MaxResults(); ok && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func matches(fields types.JsonObject, filters []store.Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || !equal(v, f.Value) {
			return false
		}
	}
	return true
}

func snapshot(ref store.DocumentRef, rec *record) *store.Snapshot {
	return &store.Snapshot{
		Ref:        ref,
		Fields:     rec.fields.Clone(),
		Exists:     true,
		CreateTime: rec.created,
		UpdateTime: rec.updated,
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.items.Flush()
	}
	return nil
}
