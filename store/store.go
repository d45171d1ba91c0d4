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

package store

import (
	"context"
	"errors"

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/types"
)

// ErrDone is returned by DocumentIterator.Next when the iteration is complete.
var ErrDone = errors.New("no more documents")

// Store is a hierarchical document store. Every call returns immediately with a
// future; implementations must not block the caller.
type Store interface {
	// Get returns the document, or a snapshot with Exists=false when it is absent.
	Get(ctx context.Context, ref DocumentRef) *async.Future[*Snapshot]
	// Set creates or fully replaces the document.
	Set(ctx context.Context, ref DocumentRef, fields types.JsonObject) *async.Future[WriteResult]
	// Delete removes the document. Deleting an absent document succeeds.
	Delete(ctx context.Context, ref DocumentRef) *async.Future[WriteResult]
	// Query returns all matches at once.
	Query(ctx context.Context, q Query) *async.Future[[]*Snapshot]
	// RecursiveDelete removes the document and everything beneath it and returns
	// the number of deleted documents.
	RecursiveDelete(ctx context.Context, ref DocumentRef) *async.Future[int]
	// Documents streams the matches of q.
	Documents(ctx context.Context, q Query) DocumentIterator
	Close() error
}

// DocumentIterator yields snapshots until ErrDone.
type DocumentIterator interface {
	Next() (*Snapshot, error)
	Stop()
}

// SliceIterator iterates over an already fetched result. A non-nil err is
// returned by the first call to Next.
func SliceIterator(snaps []*Snapshot, err error) DocumentIterator {
	return &sliceIterator{snaps: snaps, err: err}
}

type sliceIterator struct {
	snaps []*Snapshot
	err   error
	pos   int
}

func (it *sliceIterator) Next() (*Snapshot, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.pos >= len(it.snaps) {
		return nil, ErrDone
	}
	s := it.snaps[it.pos]
	it.pos++
	return s, nil
}

func (it *sliceIterator) Stop() {
	it.pos = len(it.snaps)
}

// FutureIterator defers to the result of f on the first call to Next.
func FutureIterator(ctx context.Context, f *async.Future[[]*Snapshot]) DocumentIterator {
	return &futureIterator{ctx: ctx, f: f}
}

type futureIterator struct {
	ctx   context.Context
	f     *async.Future[[]*Snapshot]
	inner DocumentIterator
}

func (it *futureIterator) Next() (*Snapshot, error) {
	if it.inner == nil {
		snaps, err := it.f.Get(it.ctx)
		it.inner = SliceIterator(snaps, err)
	}
	return it.inner.Next()
}

func (it *futureIterator) Stop() {
	if it.inner == nil {
		it.inner = SliceIterator(nil, nil)
	}
	it.inner.Stop()
}
