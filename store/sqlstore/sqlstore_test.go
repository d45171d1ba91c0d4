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

package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/store/storetest"
	"github.com/tomoncle/docstore/types"
	"github.com/uptrace/bun/dialect"
)

func openMemory(t *testing.T, opts ...Option) *Store {
	t.Helper()
	cfg := database.DefaultConnectionConfig()
	cfg.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.HealthCheckInterval = 0
	s, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openMemory(t) })
}

func TestClockAndClose(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openMemory(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	ref, err := store.ParseDocumentPath("users/u1")
	require.NoError(t, err)
	res, err := s.Set(ctx, ref, types.JsonObject{"name": "one"}).Get(ctx)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(res.UpdateTime))

	snap, err := s.Get(ctx, ref).Get(ctx)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(snap.CreateTime))
	assert.Equal(t, "users", snap.Ref.Parent().Path())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, ref).Get(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Documents(ctx, store.NewQuery(ref.Parent())).Next()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWhereNullAndBool(t *testing.T) {
	s := openMemory(t)
	defer s.Close()
	ctx := context.Background()
	orders, err := store.Collection("orders")
	require.NoError(t, err)

	for id, fields := range map[string]types.JsonObject{
		"a": {"paid": true, "note": nil},
		"b": {"paid": false},
		"c": {"paid": true, "note": "x"},
	} {
		ref, err := orders.Doc(id)
		require.NoError(t, err)
		_, err = s.Set(ctx, ref, fields).Get(ctx)
		require.NoError(t, err)
	}

	paid, err := s.Query(ctx, store.NewQuery(orders).WhereEqual("paid", true)).Get(ctx)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	assert.Equal(t, "a", paid[0].Ref.ID())
	assert.Equal(t, "c", paid[1].Ref.ID())

	// a missing field does not match null
	null, err := s.Query(ctx, store.NewQuery(orders).WhereEqual("note", nil)).Get(ctx)
	require.NoError(t, err)
	require.Len(t, null, 1)
	assert.Equal(t, "a", null[0].Ref.ID())
}

func TestFieldExpr(t *testing.T) {
	expr, args := equalExpr(dialect.PG, "status", `"open"`)
	assert.Equal(t, "(?TableAlias.fields::jsonb -> ?) = ?::jsonb", expr)
	assert.Equal(t, []interface{}{"status", `"open"`}, args)

	expr, args = equalExpr(dialect.MySQL, "status", `"open"`)
	assert.Equal(t, "JSON_EXTRACT(?TableAlias.fields, ?) = CAST(? AS JSON)", expr)
	assert.Equal(t, []interface{}{`$."status"`, `"open"`}, args)

	expr, _ = fieldExpr(dialect.SQLite, "rank", true)
	assert.Equal(t, "(?TableAlias.fields ->> ?)", expr)

	assert.Equal(t, `$."a\"b"`, jsonPath(`a"b`))
}

func TestTableRegistered(t *testing.T) {
	var found bool
	for _, m := range database.Tables() {
		if _, ok := m.(*Document); ok {
			found = true
		}
	}
	assert.True(t, found)
}
