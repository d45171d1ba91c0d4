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
	"fmt"
	"time"

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/audit"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/docpath"
	"github.com/tomoncle/docstore/entity"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

type baseRepositoryImpl[T any] struct {
	store    store.Store
	desc     *entity.Descriptor[T]
	template docpath.Template
	opts     *options
}

// New returns a repository for T over s. The entity metadata of T is resolved
// here, so a type without a collection name fails with a configuration error.
func New[T any](s store.Store, opts ...Option) (Repository[T], error) {
	if s == nil {
		return nil, docerr.Configuration("repository", "store is nil", nil)
	}
	desc, err := entity.Describe[T]()
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	raw := desc.Collection()
	if o.template != "" {
		raw = o.template
	}
	return &baseRepositoryImpl[T]{
		store:    s,
		desc:     desc,
		template: docpath.Parse(raw),
		opts:     o,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](s store.Store, opts ...Option) Repository[T] {
	r, err := New[T](s, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *baseRepositoryImpl[T]) Descriptor() *entity.Descriptor[T] { return r.desc }

func (r *baseRepositoryImpl[T]) Store() store.Store { return r.store }

func (r *baseRepositoryImpl[T]) CollectionRef(vars ...string) (store.CollectionRef, error) {
	return r.template.Resolve(vars...)
}

func (r *baseRepositoryImpl[T]) docRef(id string, vars []string) (store.DocumentRef, error) {
	coll, err := r.CollectionRef(vars...)
	if err != nil {
		return store.DocumentRef{}, err
	}
	return coll.Doc(id)
}

func operation(name string, ref store.DocumentRef) async.Operation {
	return async.Operation{Name: name, Collection: ref.Parent().Path(), DocumentID: ref.ID()}
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, e *T, vars ...string) (string, error) {
	if e == nil {
		return "", docerr.Configurationf("save", "%s entity is nil", r.desc.TypeName())
	}
	id, ok := r.desc.ID(e)
	if !ok {
		id = r.opts.newID()
	}
	ref, err := r.docRef(id, vars)
	if err != nil {
		return "", err
	}
	op := operation("save", ref)

	snap, err := async.Await(ctx, r.opts.bridge, op, func(ctx context.Context) *async.Future[*store.Snapshot] {
		return r.store.Get(ctx, ref)
	})
	if err != nil {
		return "", err
	}
	existed := snap != nil && snap.Exists
	if err := audit.Apply(r.desc, e, existed, r.opts.clock()); err != nil {
		return "", err
	}
	fields, err := store.Encode(e)
	if err != nil {
		return "", docerr.Configuration("save", r.desc.TypeName()+" cannot be encoded", err)
	}
	res, err := async.Await(ctx, r.opts.bridge, op, func(ctx context.Context) *async.Future[store.WriteResult] {
		return r.store.Set(ctx, ref, fields)
	})
	if err != nil {
		return "", err
	}
	r.opts.logger.Info(fmt.Sprintf("%s-%s saved at %s", ref.Parent().Path(), id, res.UpdateTime.Format(time.RFC3339Nano)))
	return id, nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id string, vars ...string) (*T, bool, error) {
	ref, err := r.docRef(id, vars)
	if err != nil {
		return nil, false, err
	}
	return r.FindByReference(ctx, ref)
}

func (r *baseRepositoryImpl[T]) FindByReference(ctx context.Context, ref store.DocumentRef) (*T, bool, error) {
	if ref.IsZero() {
		return nil, false, docerr.Configuration("find", "document reference is empty", nil)
	}
	snap, err := async.Await(ctx, r.opts.bridge, operation("find", ref), func(ctx context.Context) *async.Future[*store.Snapshot] {
		return r.store.Get(ctx, ref)
	})
	if err != nil {
		return nil, false, err
	}
	if snap == nil || !snap.Exists {
		return nil, false, nil
	}
	e, err := r.decode(snap)
	if err != nil {
		return nil, false, docerr.Configuration("find", fmt.Sprintf("document %s is not a valid %s", ref.Path(), r.desc.TypeName()), err)
	}
	return e, true, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, vars ...string) ([]*T, error) {
	coll, err := r.CollectionRef(vars...)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, "findAll", store.NewQuery(coll))
}

func (r *baseRepositoryImpl[T]) FindPage(ctx context.Context, page *types.PageRequest, vars ...string) (*types.Page[T], error) {
	coll, err := r.CollectionRef(vars...)
	if err != nil {
		return nil, err
	}
	return r.Paginate(ctx, store.NewQuery(coll), r.desc.OrderField(), page, r.opts.defaultLimit)
}

func (r *baseRepositoryImpl[T]) Paginate(ctx context.Context, q store.Query, orderField string, page *types.PageRequest, defaultLimit int) (*types.Page[T], error) {
	q = pageQuery(q, orderField, page, defaultLimit)
	items, err := r.query(ctx, "paginate", q)
	if err != nil {
		return nil, err
	}
	limit, _ := q.MaxResults()
	return types.NewPage(limit, q.Skip(), items), nil
}

// pageQuery bounds q by page, ordering ascending by orderField when given.
func pageQuery(q store.Query, orderField string, page *types.PageRequest, defaultLimit int) store.Query {
	if orderField != "" {
		q = q.OrderBy(orderField, types.Asc)
	}
	return q.Limit(page.GetLimit(defaultLimit)).Offset(page.GetOffset())
}

func (r *baseRepositoryImpl[T]) query(ctx context.Context, name string, q store.Query) ([]*T, error) {
	op := async.Operation{Name: name, Collection: q.Collection().Path()}
	snaps, err := async.Await(ctx, r.opts.bridge, op, func(ctx context.Context) *async.Future[[]*store.Snapshot] {
		return r.store.Query(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		if e, ok := r.decodeLenient(snap); ok {
			items = append(items, e)
		}
	}
	return items, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, e *T, vars ...string) error {
	if e == nil {
		return docerr.Configurationf("delete", "%s entity is nil", r.desc.TypeName())
	}
	id, ok := r.desc.ID(e)
	if !ok {
		return docerr.Configurationf("delete", "%s entity has no document id", r.desc.TypeName())
	}
	return r.DeleteByID(ctx, id, vars...)
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id string, vars ...string) error {
	ref, err := r.docRef(id, vars)
	if err != nil {
		return err
	}
	res, err := async.Await(ctx, r.opts.bridge, operation("delete", ref), func(ctx context.Context) *async.Future[store.WriteResult] {
		return r.store.Delete(ctx, ref)
	})
	if err != nil {
		return err
	}
	r.opts.logger.Info(fmt.Sprintf("%s-%s deleted at %s", ref.Parent().Path(), id, res.UpdateTime.Format(time.RFC3339Nano)))
	return nil
}

func (r *baseRepositoryImpl[T]) RecursiveDelete(ctx context.Context, id string, vars ...string) (int, error) {
	ref, err := r.docRef(id, vars)
	if err != nil {
		return 0, err
	}
	n, err := async.Await(ctx, r.opts.bridge, operation("recursiveDelete", ref), func(ctx context.Context) *async.Future[int] {
		return r.store.RecursiveDelete(ctx, ref)
	})
	if err != nil {
		return 0, err
	}
	r.opts.logger.Info(fmt.Sprintf("%s-%s deleted recursively", ref.Parent().Path(), id), "count", n)
	return n, nil
}

// decode builds an entity from an existing document. The document id comes
// from the reference, not from the stored fields.
func (r *baseRepositoryImpl[T]) decode(snap *store.Snapshot) (*T, error) {
	e := new(T)
	if err := snap.DataTo(e); err != nil {
		return nil, err
	}
	r.desc.SetID(e, snap.Ref.ID())
	return e, nil
}

func (r *baseRepositoryImpl[T]) decodeLenient(snap *store.Snapshot) (*T, bool) {
	if snap == nil || !snap.Exists {
		return nil, false
	}
	e, err := r.decode(snap)
	if err != nil {
		r.opts.logger.Warn("skipping undecodable document", "path", snap.Ref.Path(), "type", r.desc.TypeName(), "error", err)
		return nil, false
	}
	return e, true
}
