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

// Package fsstore adapts a Cloud Firestore client to store.Store.
package fsstore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
	"github.com/tomoncle/docstore/utils"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store forwards every call to Firestore.
type Store struct {
	client *firestore.Client
	owned  bool
	logger utils.Logger
}

type Option func(*Store)

func WithLogger(l utils.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps client. Close does not close it.
func New(client *firestore.Client, opts ...Option) *Store {
	s := &Store{client: client, logger: utils.NewLogger("FIRESTORE")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config selects the Firestore project. The emulator is used when
// FIRESTORE_EMULATOR_HOST is set.
type Config struct {
	ProjectID       string `json:"project_id" yaml:"project_id" validate:"required"`
	DatabaseID      string `json:"database_id" yaml:"database_id"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	CredentialsJSON string `json:"credentials_json" yaml:"credentials_json"`
}

// Open creates a client for cfg and returns a store that owns it.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.CredentialsJSON != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	var (
		client *firestore.Client
		err    error
	)
	if cfg.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.DatabaseID, clientOpts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	}
	if err != nil {
		return nil, err
	}
	s := New(client, opts...)
	s.owned = true
	return s, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) doc(ref store.DocumentRef) *firestore.DocumentRef {
	return s.client.Doc(ref.Path())
}

func (s *Store) Get(ctx context.Context, ref store.DocumentRef) *async.Future[*store.Snapshot] {
	return async.Go(ctx, func(ctx context.Context) (*store.Snapshot, error) {
		snap, err := s.doc(ref).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return store.Missing(ref), nil
		}
		if err != nil {
			return nil, err
		}
		return fromFirestore(ref, snap), nil
	})
}

func (s *Store) Set(ctx context.Context, ref store.DocumentRef, fields types.JsonObject) *async.Future[store.WriteResult] {
	return async.Go(ctx, func(ctx context.Context) (store.WriteResult, error) {
		res, err := s.doc(ref).Set(ctx, toFirestore(fields))
		if err != nil {
			return store.WriteResult{}, err
		}
		return store.WriteResult{UpdateTime: res.UpdateTime}, nil
	})
}

func (s *Store) Delete(ctx context.Context, ref store.DocumentRef) *async.Future[store.WriteResult] {
	return async.Go(ctx, func(ctx context.Context) (store.WriteResult, error) {
		res, err := s.doc(ref).Delete(ctx)
		if err != nil {
			return store.WriteResult{}, err
		}
		return store.WriteResult{UpdateTime: res.UpdateTime}, nil
	})
}

func (s *Store) query(q store.Query) (firestore.Query, bool) {
	fq := s.client.Collection(q.Collection().Path()).Query
	for _, f := range q.Filters() {
		fq = fq.Where(f.Field, "==", toValue(f.Value))
	}
	for _, o := range q.Orders() {
		dir := firestore.Asc
		if o.Direction == types.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Skip() > 0 {
		fq = fq.Offset(q.Skip())
	}
	if limit, ok := q.MaxResults(); ok {
		if limit == 0 {
			return fq, false
		}
		fq = fq.Limit(limit)
	}
	return fq, true
}

func (s *Store) Query(ctx context.Context, q store.Query) *async.Future[[]*store.Snapshot] {
	return async.Go(ctx, func(ctx context.Context) ([]*store.Snapshot, error) {
		fq, ok := s.query(q)
		if !ok {
			return nil, nil
		}
		docs, err := fq.Documents(ctx).GetAll()
		if err != nil {
			return nil, err
		}
		out := make([]*store.Snapshot, 0, len(docs))
		for _, d := range docs {
			snap, err := convert(d)
			if err != nil {
				return nil, err
			}
			out = append(out, snap)
		}
		return out, nil
	})
}

func (s *Store) Documents(ctx context.Context, q store.Query) store.DocumentIterator {
	fq, ok := s.query(q)
	if !ok {
		return store.SliceIterator(nil, nil)
	}
	return &docIterator{it: fq.Documents(ctx)}
}

type docIterator struct {
	it *firestore.DocumentIterator
}

func (d *docIterator) Next() (*store.Snapshot, error) {
	snap, err := d.it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, store.ErrDone
	}
	if err != nil {
		return nil, err
	}
	return convert(snap)
}

func (d *docIterator) Stop() { d.it.Stop() }

// RecursiveDelete deletes the document and every document in its
// subcollections, depth first, through a BulkWriter.
func (s *Store) RecursiveDelete(ctx context.Context, ref store.DocumentRef) *async.Future[int] {
	return async.Go(ctx, func(ctx context.Context) (int, error) {
		bw := s.client.BulkWriter(ctx)
		d := &deleter{bw: bw}
		root := s.doc(ref)
		err := d.tree(ctx, root)
		if err == nil {
			var snap *firestore.DocumentSnapshot
			snap, err = root.Get(ctx)
			switch {
			case status.Code(err) == codes.NotFound:
				err = nil
			case err == nil && snap.Exists():
				err = d.delete(root)
			}
		}
		bw.End()
		if err != nil {
			return 0, err
		}
		for _, job := range d.jobs {
			if _, err := job.Results(); err != nil {
				return 0, err
			}
		}
		s.logger.Debug("documents deleted", "path", ref.Path(), "count", len(d.jobs))
		return len(d.jobs), nil
	})
}

type deleter struct {
	bw   *firestore.BulkWriter
	jobs []*firestore.BulkWriterJob
}

func (d *deleter) delete(ref *firestore.DocumentRef) error {
	job, err := d.bw.Delete(ref)
	if err != nil {
		return err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *deleter) tree(ctx context.Context, doc *firestore.DocumentRef) error {
	cols := doc.Collections(ctx)
	for {
		col, err := cols.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := d.collection(ctx, col); err != nil {
			return err
		}
	}
}

func (d *deleter) collection(ctx context.Context, col *firestore.CollectionRef) error {
	existing, err := col.Select().Documents(ctx).GetAll()
	if err != nil {
		return err
	}
	exists := make(map[string]struct{}, len(existing))
	for _, snap := range existing {
		exists[snap.Ref.ID] = struct{}{}
	}

	// DocumentRefs also yields missing documents that only hold subcollections.
	refs := col.DocumentRefs(ctx)
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := d.tree(ctx, ref); err != nil {
			return err
		}
		if _, ok := exists[ref.ID]; ok {
			if err := d.delete(ref); err != nil {
				return err
			}
		}
	}
}

func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
