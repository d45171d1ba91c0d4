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

package database

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/uptrace/bun"
)

// SQLIndexer is implemented by table models that need secondary indexes once
// their table exists.
type SQLIndexer interface {
	CreateIndexes(ctx context.Context, db bun.IDB) error
}

type table struct {
	model any
	order int
}

var tables = struct {
	sync.RWMutex
	list []table
}{}

// RegisterTable adds a bun model whose table Migrator.Up creates. Tables are
// created by ascending order; a model type is registered once.
func RegisterTable(model any, order int) {
	if model == nil {
		return
	}
	t := reflect.TypeOf(model)
	tables.Lock()
	defer tables.Unlock()
	if slices.ContainsFunc(tables.list, func(e table) bool { return reflect.TypeOf(e.model) == t }) {
		return
	}
	tables.list = append(tables.list, table{model: model, order: order})
}

// Tables returns the registered models sorted by creation order.
func Tables() []any {
	tables.RLock()
	list := slices.Clone(tables.list)
	tables.RUnlock()
	slices.SortStableFunc(list, func(a, b table) int { return a.order - b.order })
	models := make([]any, len(list))
	for i, e := range list {
		models[i] = e.model
	}
	return models
}
