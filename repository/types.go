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
	"iter"

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/entity"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

// CrudRepository defines the blocking document operations for an entity type.
// vars fill the placeholders of the collection template in order.
type CrudRepository[T any] interface {
	// Save writes the entity and returns its document id. An entity without an
	// id gets a generated one, which is not written back to the entity.
	Save(ctx context.Context, entity *T, vars ...string) (string, error)

	// FindByID returns the entity, or found=false when the document is absent.
	FindByID(ctx context.Context, id string, vars ...string) (*T, bool, error)

	// FindByReference reads the document at ref.
	FindByReference(ctx context.Context, ref store.DocumentRef) (*T, bool, error)

	// FindAll returns every decodable document of the collection.
	FindAll(ctx context.Context, vars ...string) ([]*T, error)

	// Delete removes the entity's document. The entity must carry an id.
	Delete(ctx context.Context, entity *T, vars ...string) error

	// DeleteByID removes a document. Deleting an absent document succeeds.
	DeleteByID(ctx context.Context, id string, vars ...string) error

	// RecursiveDelete removes the document and every document beneath it and
	// returns how many were removed.
	RecursiveDelete(ctx context.Context, id string, vars ...string) (int, error)
}

// PageQueryRepository defines offset pagination.
type PageQueryRepository[T any] interface {
	// FindPage pages over the collection ordered by the entity's order field.
	FindPage(ctx context.Context, page *types.PageRequest, vars ...string) (*types.Page[T], error)

	// Paginate runs q bounded by page. orderField may be empty; defaultLimit
	// applies when page has no limit.
	Paginate(ctx context.Context, q store.Query, orderField string, page *types.PageRequest, defaultLimit int) (*types.Page[T], error)
}

// AsyncRepository returns futures instead of blocking. A nil entity from
// FindByIDAsync means the document is absent.
type AsyncRepository[T any] interface {
	SaveAsync(ctx context.Context, entity *T, vars ...string) *async.Future[string]
	FindByIDAsync(ctx context.Context, id string, vars ...string) *async.Future[*T]
	FindAllAsync(ctx context.Context, vars ...string) *async.Future[[]*T]
	FindPageAsync(ctx context.Context, page *types.PageRequest, vars ...string) *async.Future[*types.Page[T]]
	DeleteAsync(ctx context.Context, entity *T, vars ...string) *async.Future[struct{}]
	DeleteByIDAsync(ctx context.Context, id string, vars ...string) *async.Future[struct{}]
	RecursiveDeleteAsync(ctx context.Context, id string, vars ...string) *async.Future[int]
}

// StreamRepository yields entities lazily. A stream can be ranged over once.
type StreamRepository[T any] interface {
	Stream(ctx context.Context, vars ...string) iter.Seq2[*T, error]
	StreamPage(ctx context.Context, page *types.PageRequest, vars ...string) iter.Seq2[*T, error]
}

// Repository combines the blocking, future and stream styles over one store.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	AsyncRepository[T]
	StreamRepository[T]

	// CollectionRef resolves the collection template against vars.
	CollectionRef(vars ...string) (store.CollectionRef, error)
	Descriptor() *entity.Descriptor[T]
	Store() store.Store
}
