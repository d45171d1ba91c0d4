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

package docstore

import (
	"context"
	"iter"
	"sync"

	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/repository"
	"github.com/tomoncle/docstore/types"
)

type Service[T any] interface {
	// Get returns the entity with id, or nil when it does not exist.
	Get(ctx context.Context, id string, vars ...string) (*T, error)

	// Exists reports whether a document with id exists.
	Exists(ctx context.Context, id string, vars ...string) (bool, error)

	// All returns every entity of the collection.
	All(ctx context.Context, vars ...string) ([]*T, error)

	// Page returns one page of the collection in the entity's order.
	Page(ctx context.Context, page *types.PageRequest, vars ...string) (*types.Page[T], error)

	// Stream yields the entities of the collection as they are read.
	Stream(ctx context.Context, vars ...string) iter.Seq2[*T, error]

	// Save creates or replaces the entity and returns its document id.
	Save(ctx context.Context, model *T, vars ...string) (string, error)

	// SaveAll saves every model concurrently and returns the ids in order.
	SaveAll(ctx context.Context, models []*T, vars ...string) ([]string, error)

	// Delete removes the document with id.
	Delete(ctx context.Context, id string, vars ...string) error

	// DeleteRecursive removes the document with id and everything beneath it.
	DeleteRecursive(ctx context.Context, id string, vars ...string) (int, error)

	// Repository exposes the underlying repository.
	Repository() (repository.Repository[T], error)
}

type baseServiceImpl[T any] struct {
	opts []repository.Option
	mu   sync.Mutex
	repo repository.Repository[T]
}

// NewService returns a default Service implementation using the generic
// repository backed by the global store. The repository is built on first use,
// so services may be declared before Init.
func NewService[T any](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{opts: opts}
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}
	st := GetStore()
	if st == nil {
		return nil, ErrNotInitialized
	}
	opts, err := RepositoryOptions()
	if err != nil {
		return nil, err
	}
	repo, err := repository.New[T](st, append(opts, s.opts...)...)
	if err != nil {
		return nil, err
	}
	s.repo = repo
	return repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id string, vars ...string) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	e, _, err := repo.FindByID(ctx, id, vars...)
	return e, err
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, id string, vars ...string) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	_, ok, err := repo.FindByID(ctx, id, vars...)
	return ok, err
}

func (s *baseServiceImpl[T]) All(ctx context.Context, vars ...string) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.FindAll(ctx, vars...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest, vars ...string) (*types.Page[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.FindPage(ctx, page, vars...)
}

func (s *baseServiceImpl[T]) Stream(ctx context.Context, vars ...string) iter.Seq2[*T, error] {
	repo, err := s.Repository()
	if err != nil {
		return func(yield func(*T, error) bool) { yield(nil, err) }
	}
	return repo.Stream(ctx, vars...)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T, vars ...string) (string, error) {
	repo, err := s.Repository()
	if err != nil {
		return "", err
	}
	return repo.Save(ctx, model, vars...)
}

func (s *baseServiceImpl[T]) SaveAll(ctx context.Context, models []*T, vars ...string) ([]string, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	futures := make([]*async.Future[string], len(models))
	for i, m := range models {
		futures[i] = repo.SaveAsync(ctx, m, vars...)
	}
	ids := make([]string, len(models))
	var first error
	for i, f := range futures {
		id, err := f.Get(ctx)
		if err != nil && first == nil {
			first = err
		}
		ids[i] = id
	}
	return ids, first
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id string, vars ...string) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id, vars...)
}

func (s *baseServiceImpl[T]) DeleteRecursive(ctx context.Context, id string, vars ...string) (int, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.RecursiveDelete(ctx, id, vars...)
}
