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

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/types"
)

// The future variants run the blocking operation on its own goroutine, so
// errors are wrapped exactly as in the blocking style.

func (r *baseRepositoryImpl[T]) SaveAsync(ctx context.Context, e *T, vars ...string) *async.Future[string] {
	return async.Go(ctx, func(ctx context.Context) (string, error) {
		return r.Save(ctx, e, vars...)
	})
}

func (r *baseRepositoryImpl[T]) FindByIDAsync(ctx context.Context, id string, vars ...string) *async.Future[*T] {
	return async.Go(ctx, func(ctx context.Context) (*T, error) {
		e, _, err := r.FindByID(ctx, id, vars...)
		return e, err
	})
}

func (r *baseRepositoryImpl[T]) FindAllAsync(ctx context.Context, vars ...string) *async.Future[[]*T] {
	return async.Go(ctx, func(ctx context.Context) ([]*T, error) {
		return r.FindAll(ctx, vars...)
	})
}

func (r *baseRepositoryImpl[T]) FindPageAsync(ctx context.Context, page *types.PageRequest, vars ...string) *async.Future[*types.Page[T]] {
	return async.Go(ctx, func(ctx context.Context) (*types.Page[T], error) {
		return r.FindPage(ctx, page, vars...)
	})
}

func (r *baseRepositoryImpl[T]) DeleteAsync(ctx context.Context, e *T, vars ...string) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.Delete(ctx, e, vars...)
	})
}

func (r *baseRepositoryImpl[T]) DeleteByIDAsync(ctx context.Context, id string, vars ...string) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.DeleteByID(ctx, id, vars...)
	})
}

func (r *baseRepositoryImpl[T]) RecursiveDeleteAsync(ctx context.Context, id string, vars ...string) *async.Future[int] {
	return async.Go(ctx, func(ctx context.Context) (int, error) {
		return r.RecursiveDelete(ctx, id, vars...)
	})
}
