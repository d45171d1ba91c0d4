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

package repository

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

func (r *baseRepositoryImpl[T]) Stream(ctx context.Context, vars ...string) iter.Seq2[*T, error] {
	coll, err := r.CollectionRef(vars...)
	if err != nil {
		return failed[T](err)
	}
	return r.stream(ctx, "stream", store.NewQuery(coll))
}

func (r *baseRepositoryImpl[T]) StreamPage(ctx context.Context, page *types.PageRequest, vars ...string) iter.Seq2[*T, error] {
	coll, err := r.CollectionRef(vars...)
	if err != nil {
		return failed[T](err)
	}
	return r.stream(ctx, "streamPage", pageQuery(store.NewQuery(coll), r.desc.OrderField(), page, r.opts.defaultLimit))
}

func failed[T any](err error) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		yield(nil, err)
	}
}

// stream decodes documents as the consumer pulls them. Undecodable documents
// are skipped; a store failure is yielded once and ends the stream.
func (r *baseRepositoryImpl[T]) stream(ctx context.Context, name string, q store.Query) iter.Seq2[*T, error] {
	op := async.Operation{Name: name, Collection: q.Collection().Path()}
	var used atomic.Bool
	return func(yield func(*T, error) bool) {
		if used.Swap(true) {
			yield(nil, docerr.Configurationf(name, "stream over %s was already consumed", op.Collection))
			return
		}
		if err := ctx.Err(); err != nil {
			yield(nil, r.opts.bridge.Wrap(op, err))
			return
		}
		it := r.store.Documents(ctx, q)
		defer it.Stop()
		start := time.Now()
		count := 0
		for {
			snap, err := it.Next()
			if errors.Is(err, store.ErrDone) {
				r.opts.logger.Debug("stream finished", "operation", op.String(), "count", count, "elapsed", time.Since(start))
				return
			}
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(nil, r.opts.bridge.Wrap(op, err))
				return
			}
			e, ok := r.decodeLenient(snap)
			if !ok {
				continue
			}
			count++
			if !yield(e, nil) {
				return
			}
		}
	}
}
