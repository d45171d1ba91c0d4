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

package entity

import (
	"reflect"
	"strings"

	"github.com/tomoncle/docstore/docerr"
)

// Builder registers metadata for types that cannot carry accessor methods,
// for example types from another package.
type Builder[T any] struct {
	d *Descriptor[T]
}

// Register starts a registration of T stored in collection.
func Register[T any](collection string) *Builder[T] {
	return &Builder[T]{d: &Descriptor[T]{
		typeName:   reflect.TypeFor[T]().String(),
		collection: strings.TrimSpace(collection),
	}}
}

func (b *Builder[T]) ID(fn func(*T) *string) *Builder[T] {
	b.d.id = fn
	return b
}

func (b *Builder[T]) OrderBy(field string) *Builder[T] {
	b.d.orderField = strings.TrimSpace(field)
	return b
}

func (b *Builder[T]) CreatedAt(fn func(*T) any) *Builder[T] {
	b.d.createdAt = fn
	return b
}

func (b *Builder[T]) UpdatedAt(fn func(*T) any) *Builder[T] {
	b.d.updatedAt = fn
	return b
}

// Build validates and caches the descriptor, replacing any earlier one for T.
// Repositories already constructed keep the descriptor they captured.
func (b *Builder[T]) Build() (*Descriptor[T], error) {
	if b.d.collection == "" {
		return nil, docerr.Configurationf("register", "%s has an empty collection name", b.d.typeName)
	}
	d := *b.d
	descriptors.Store(reflect.TypeFor[T](), &d)
	return &d, nil
}

// Forget drops the cached descriptor of T.
func Forget[T any]() {
	descriptors.Delete(reflect.TypeFor[T]())
}
