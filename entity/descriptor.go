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
	"sync"

	"github.com/tomoncle/docstore/docerr"
)

// Descriptor is the immutable metadata of entity type T.
type Descriptor[T any] struct {
	typeName   string
	collection string
	orderField string
	id         func(*T) *string
	createdAt  func(*T) any
	updatedAt  func(*T) any
}

var descriptors sync.Map // reflect.Type -> any(*Descriptor[T])

// Describe returns the cached descriptor of T, building it on first use from
// the accessor interfaces implemented by *T or from a Register call.
func Describe[T any]() (*Descriptor[T], error) {
	key := reflect.TypeFor[T]()
	if d, ok := descriptors.Load(key); ok {
		return d.(*Descriptor[T]), nil
	}
	d, err := fromAccessors[T]()
	if err != nil {
		return nil, err
	}
	actual, _ := descriptors.LoadOrStore(key, d)
	return actual.(*Descriptor[T]), nil
}

// MustDescribe is like Describe but panics on error.
func MustDescribe[T any]() *Descriptor[T] {
	d, err := Describe[T]()
	if err != nil {
		panic(err)
	}
	return d
}

func fromAccessors[T any]() (*Descriptor[T], error) {
	var probe any = new(T)
	d := &Descriptor[T]{typeName: reflect.TypeFor[T]().String()}

	c, ok := probe.(Collectioner)
	if !ok {
		return nil, docerr.Configurationf("describe", "%s has no collection name: implement CollectionName() or call entity.Register", d.typeName)
	}
	d.collection = strings.TrimSpace(c.CollectionName())
	if d.collection == "" {
		return nil, docerr.Configurationf("describe", "%s has an empty collection name", d.typeName)
	}
	if _, ok := probe.(Identifiable); ok {
		d.id = func(e *T) *string { return any(e).(Identifiable).DocumentID() }
	}
	if o, ok := probe.(Ordered); ok {
		field := strings.TrimSpace(o.OrderField())
		if !inheritedOrder(reflect.TypeFor[T](), field) {
			d.orderField = field
		}
	}
	if _, ok := probe.(CreationStamped); ok {
		d.createdAt = func(e *T) any { return any(e).(CreationStamped).CreatedAtField() }
	}
	if _, ok := probe.(UpdateStamped); ok {
		d.updatedAt = func(e *T) any { return any(e).(UpdateStamped).UpdatedAtField() }
	}
	return d, nil
}

// inheritedOrder reports whether field is what an embedded type of t answers
// to OrderField. The default ordering only counts when declared on t itself,
// so a promoted OrderField is ignored.
func inheritedOrder(t reflect.Type, field string) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	ordered := reflect.TypeFor[Ordered]()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() != reflect.Pointer {
			ft = reflect.PointerTo(ft)
		}
		if !ft.Implements(ordered) {
			continue
		}
		v := reflect.New(ft.Elem()).Interface().(Ordered)
		if strings.TrimSpace(v.OrderField()) == field {
			return true
		}
	}
	return false
}

func (d *Descriptor[T]) TypeName() string { return d.typeName }

// Collection is the collection template, possibly with placeholders.
func (d *Descriptor[T]) Collection() string { return d.collection }

// OrderField is the default sort field, empty when the type declares none.
func (d *Descriptor[T]) OrderField() string { return d.orderField }

func (d *Descriptor[T]) HasID() bool { return d.id != nil }

// ID returns the entity's document id; ok is false when the type has no id
// accessor or the id is empty.
func (d *Descriptor[T]) ID(e *T) (id string, ok bool) {
	if d.id == nil || e == nil {
		return "", false
	}
	p := d.id(e)
	if p == nil || strings.TrimSpace(*p) == "" {
		return "", false
	}
	return *p, true
}

// SetID writes id into the entity's id field when the type has one.
func (d *Descriptor[T]) SetID(e *T, id string) {
	if d.id == nil || e == nil {
		return
	}
	if p := d.id(e); p != nil {
		*p = id
	}
}

// CreatedAt returns the creation timestamp field, or nil when the type has none.
func (d *Descriptor[T]) CreatedAt(e *T) any {
	if d.createdAt == nil || e == nil {
		return nil
	}
	return d.createdAt(e)
}

// UpdatedAt returns the update timestamp field, or nil when the type has none.
func (d *Descriptor[T]) UpdatedAt(e *T) any {
	if d.updatedAt == nil || e == nil {
		return nil
	}
	return d.updatedAt(e)
}
