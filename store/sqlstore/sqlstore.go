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

// Package sqlstore is a store.Store kept in a single Bun table. Document
// fields are stored as JSON text and queried with the dialect's JSON functions.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
	"github.com/tomoncle/docstore/utils"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ErrClosed is returned by calls on a closed store.
var ErrClosed = errors.New("sqlstore: store is closed")

const deleteBatchSize = 500

// Store keeps documents in the docstore_documents table.
type Store struct {
	db      *bun.DB
	manager database.Manager
	dialect dialect.Name
	clock   func() time.Time
	logger  utils.Logger
	closed  atomic.Bool
}

type Option func(*Store)

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

// New wraps an open database. The table must exist, see database.Open.
// Close does not close db.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: db.Dialect().Name(),
		clock:   time.Now,
		logger:  utils.NewLogger("SQLSTORE"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects with cfg, creates the documents table and returns a store that
// owns the connection.
func Open(ctx context.Context, cfg *database.ConnectionConfig, opts ...Option) (*Store, error) {
	manager, err := database.Open(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	s := New(manager.GetDB(), opts...)
	s.manager = manager
	return s, nil
}

var _ store.Store = (*Store)(nil)

func run[T any](ctx context.Context, s *Store, fn func(ctx context.Context) (T, error)) *async.Future[T] {
	return async.Go(ctx, func(ctx context.Context) (T, error) {
		var zero T
		if s.closed.Load() {
			return zero, ErrClosed
		}
		v, err := fn(ctx)
		if err != nil {
			return zero, database.Classify(err)
		}
		return v, nil
	})
}

func (s *Store) Get(ctx context.Context, ref store.DocumentRef) *async.Future[*store.Snapshot] {
	return run(ctx, s, func(ctx context.Context) (*store.Snapshot, error) {
		doc := new(Document)
		err := s.db.NewSelect().
			Model(doc).
			Where("?TableAlias.path = ?", ref.Path()).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.Missing(ref), nil
		}
		if err != nil {
			return nil, err
		}
		return doc.snapshot()
	})
}

func (s *Store) Set(ctx context.Context, ref store.DocumentRef, fields types.JsonObject) *async.Future[store.WriteResult] {
	return run(ctx, s, func(ctx context.Context) (store.WriteResult, error) {
		now := s.clock().UTC()
		if fields == nil {
			fields = types.JsonObject{}
		}
		doc := &Document{
			Path:       ref.Path(),
			Collection: ref.Parent().Path(),
			DocID:      ref.ID(),
			Fields:     fields.Clone(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		q := s.db.NewInsert().Model(doc)
		if s.dialect == dialect.MySQL {
			q = q.On("DUPLICATE KEY UPDATE").
				Set("fields = VALUES(fields)").
				Set("updated_at = VALUES(updated_at)")
		} else {
			q = q.On("CONFLICT (path) DO UPDATE").
				Set("fields = EXCLUDED.fields").
				Set("updated_at = EXCLUDED.updated_at")
		}
		if _, err := q.Exec(ctx); err != nil {
			return store.WriteResult{}, err
		}
		s.logger.Debug("document written", "path", ref.Path())
		return store.WriteResult{UpdateTime: now}, nil
	})
}

func (s *Store) Delete(ctx context.Context, ref store.DocumentRef) *async.Future[store.WriteResult] {
	return run(ctx, s, func(ctx context.Context) (store.WriteResult, error) {
		_, err := s.db.NewDelete().
			Model((*Document)(nil)).
			Where("path = ?", ref.Path()).
			Exec(ctx)
		if err != nil {
			return store.WriteResult{}, err
		}
		return store.WriteResult{UpdateTime: s.clock().UTC()}, nil
	})
}

// RecursiveDelete selects candidate paths by key range, filters them exactly
// and deletes them in batches within one transaction.
func (s *Store) RecursiveDelete(ctx context.Context, ref store.DocumentRef) *async.Future[int] {
	return run(ctx, s, func(ctx context.Context) (int, error) {
		prefix := ref.Path() + store.Separator
		upper := ref.Path() + "0" // first string after every "<path>/..." key
		deleted := 0
		err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var candidates []string
			err := tx.NewSelect().
				Model((*Document)(nil)).
				Column("path").
				WhereOr("path = ?", ref.Path()).
				WhereOr("path >= ? AND path < ?", prefix, upper).
				Scan(ctx, &candidates)
			if err != nil {
				return err
			}
			paths := make([]string, 0, len(candidates))
			for _, p := range candidates {
				if ref.Contains(p) {
					paths = append(paths, p)
				}
			}
			for start := 0; start < len(paths); start += deleteBatchSize {
				end := min(start+deleteBatchSize, len(paths))
				res, err := tx.NewDelete().
					Model((*Document)(nil)).
					Where("path IN (?)", bun.In(paths[start:end])).
					Exec(ctx)
				if err != nil {
					return err
				}
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				deleted += int(n)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		s.logger.Debug("documents deleted", "path", ref.Path(), "count", deleted)
		return deleted, nil
	})
}

func (s *Store) Query(ctx context.Context, q store.Query) *async.Future[[]*store.Snapshot] {
	return run(ctx, s, func(ctx context.Context) ([]*store.Snapshot, error) {
		var docs []Document
		sel, err := s.selectQuery(q, &docs)
		if err != nil || sel == nil {
			return nil, err
		}
		if err := sel.Scan(ctx); err != nil {
			return nil, err
		}
		out := make([]*store.Snapshot, 0, len(docs))
		for i := range docs {
			snap, err := docs[i].snapshot()
			if err != nil {
				return nil, err
			}
			out = append(out, snap)
		}
		return out, nil
	})
}

// selectQuery builds the SELECT for q. A nil query means the result is empty.
func (s *Store) selectQuery(q store.Query, model interface{}) (*bun.SelectQuery, error) {
	limit, hasLimit := q.MaxResults()
	if hasLimit && limit == 0 {
		return nil, nil
	}
	sel := s.db.NewSelect().
		Model(model).
		Where("?TableAlias.collection = ?", q.Collection().Path())
	for _, f := range q.Filters() {
		encoded, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		expr, args := equalExpr(s.dialect, f.Field, string(encoded))
		sel = sel.Where(expr, args...)
	}
	for _, o := range q.Orders() {
		expr, args := fieldExpr(s.dialect, o.Field, true)
		sel = sel.OrderExpr(expr+" "+o.Direction.Name(), args...)
	}
	sel = sel.OrderExpr("?TableAlias.path ASC")
	if hasLimit {
		sel = sel.Limit(limit)
	} else if q.Skip() > 0 {
		sel = sel.Limit(math.MaxInt32)
	}
	if q.Skip() > 0 {
		sel = sel.Offset(q.Skip())
	}
	return sel, nil
}

// Documents streams rows from an open cursor. The query runs on the first Next.
func (s *Store) Documents(ctx context.Context, q store.Query) store.DocumentIterator {
	return &rowIterator{ctx: ctx, s: s, q: q}
}

type rowIterator struct {
	ctx  context.Context
	s    *Store
	q    store.Query
	rows *sql.Rows
	done bool
}

func (it *rowIterator) Next() (*store.Snapshot, error) {
	if it.done {
		return nil, store.ErrDone
	}
	if it.rows == nil {
		if err := it.open(); err != nil {
			it.done = true
			return nil, err
		}
		if it.rows == nil {
			it.done = true
			return nil, store.ErrDone
		}
	}
	if !it.rows.Next() {
		err := it.rows.Err()
		it.Stop()
		if err != nil {
			return nil, database.Classify(err)
		}
		return nil, store.ErrDone
	}
	doc := new(Document)
	if err := it.s.db.ScanRow(it.ctx, it.rows, doc); err != nil {
		it.Stop()
		return nil, database.Classify(err)
	}
	return doc.snapshot()
}

func (it *rowIterator) open() error {
	if it.s.closed.Load() {
		return ErrClosed
	}
	sel, err := it.s.selectQuery(it.q, (*Document)(nil))
	if err != nil || sel == nil {
		return err
	}
	rows, err := sel.Rows(it.ctx)
	if err != nil {
		return database.Classify(err)
	}
	it.rows = rows
	return nil
}

func (it *rowIterator) Stop() {
	it.done = true
	if it.rows != nil {
		_ = it.rows.Close()
	}
}

// Close marks the store closed and disconnects the database if Open created it.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.manager != nil {
		return s.manager.Disconnect()
	}
	return nil
}
