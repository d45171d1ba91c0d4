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
	"fmt"
	"strings"

	"github.com/tomoncle/docstore/types"
)

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

// Order sorts by a top-level field.
type Order struct {
	Field     string
	Direction types.Direction
}

// Query selects documents of one collection. Builder methods return copies,
// so a base query can be shared and refined.
type Query struct {
	collection CollectionRef
	filters    []Filter
	orders     []Order
	limit      int
	hasLimit   bool
	offset     int
}

// NewQuery selects every document of coll.
func NewQuery(coll CollectionRef) Query {
	return Query{collection: coll}
}

func (q Query) WhereEqual(field string, value interface{}) Query {
	q.filters = append(append([]Filter(nil), q.filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) OrderBy(field string, dir types.Direction) Query {
	q.orders = append(append([]Order(nil), q.orders...), Order{Field: field, Direction: dir})
	return q
}

// Limit bounds the result size. Negative values mean zero.
func (q Query) Limit(n int) Query {
	if n < 0 {
		n = 0
	}
	q.limit, q.hasLimit = n, true
	return q
}

// Offset skips the first n matches.
func (q Query) Offset(n int) Query {
	if n < 0 {
		n = 0
	}
	q.offset = n
	return q
}

func (q Query) Collection() CollectionRef { return q.collection }

func (q Query) Filters() []Filter { return q.filters }

func (q Query) Orders() []Order { return q.orders }

// MaxResults returns the limit and whether one was set.
func (q Query) MaxResults() (int, bool) { return q.limit, q.hasLimit }

func (q Query) Skip() int { return q.offset }

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.collection.Path())
	for _, f := range q.filters {
		fmt.Fprintf(&b, " where %s=%v", f.Field, f.Value)
	}
	for _, o := range q.orders {
		fmt.Fprintf(&b, " order by %s %s", o.Field, o.Direction)
	}
	if q.hasLimit {
		fmt.Fprintf(&b, " limit %d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, " offset %d", q.offset)
	}
	return b.String()
}
