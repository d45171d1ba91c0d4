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

// Package storetest is a behaviour suite shared by the store.Store implementations.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/types"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run exercises every Store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("SetGetDelete", func(t *testing.T) { testSetGetDelete(t, newStore(t)) })
	t.Run("SetKeepsCreateTime", func(t *testing.T) { testSetKeepsCreateTime(t, newStore(t)) })
	t.Run("QueryOrderLimitOffset", func(t *testing.T) { testQueryOrderLimitOffset(t, newStore(t)) })
	t.Run("QueryWhereEqual", func(t *testing.T) { testQueryWhereEqual(t, newStore(t)) })
	t.Run("QueryScopedToCollection", func(t *testing.T) { testQueryScoped(t, newStore(t)) })
	t.Run("RecursiveDelete", func(t *testing.T) { testRecursiveDelete(t, newStore(t)) })
	t.Run("Documents", func(t *testing.T) { testDocuments(t, newStore(t)) })
}

func ref(t *testing.T, path string) store.DocumentRef {
	r, err := store.ParseDocumentPath(path)
	require.NoError(t, err)
	return r
}

func coll(t *testing.T, path string) store.CollectionRef {
	c, err := store.ParseCollectionPath(path)
	require.NoError(t, err)
	return c
}

func set(t *testing.T, s store.Store, path string, fields types.JsonObject) {
	_, err := s.Set(context.Background(), ref(t, path), fields).Get(context.Background())
	require.NoError(t, err)
}

func get(t *testing.T, s store.Store, path string) *store.Snapshot {
	snap, err := s.Get(context.Background(), ref(t, path)).Get(context.Background())
	require.NoError(t, err)
	return snap
}

func query(t *testing.T, s store.Store, q store.Query) []*store.Snapshot {
	snaps, err := s.Query(context.Background(), q).Get(context.Background())
	require.NoError(t, err)
	return snaps
}

func ids(snaps []*store.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Ref.ID()
	}
	return out
}

func testGetMissing(t *testing.T, s store.Store) {
	defer s.Close()
	snap := get(t, s, "orders/none")
	assert.False(t, snap.Exists)
	assert.Equal(t, "none", snap.Ref.ID())
	assert.Nil(t, snap.Fields)
}

func testSetGetDelete(t *testing.T, s store.Store) {
	defer s.Close()
	set(t, s, "orders/o1", types.JsonObject{"total": 10, "status": "new"})

	snap := get(t, s, "orders/o1")
	require.True(t, snap.Exists)
	assert.Equal(t, "new", snap.Fields["status"])
	assert.False(t, snap.UpdateTime.IsZero())

	var doc struct {
		Total  int    `json:"total"`
		Status string `json:"status"`
	}
	require.NoError(t, snap.DataTo(&doc))
	assert.Equal(t, 10, doc.Total)

	_, err := s.Delete(context.Background(), ref(t, "orders/o1")).Get(context.Background())
	require.NoError(t, err)
	assert.False(t, get(t, s, "orders/o1").Exists)

	// deleting an absent document is not an error
	_, err = s.Delete(context.Background(), ref(t, "orders/o1")).Get(context.Background())
	assert.NoError(t, err)
}

func testSetKeepsCreateTime(t *testing.T, s store.Store) {
	defer s.Close()
	set(t, s, "orders/o1", types.JsonObject{"v": 1})
	first := get(t, s, "orders/o1")
	set(t, s, "orders/o1", types.JsonObject{"v": 2})
	second := get(t, s, "orders/o1")
	assert.True(t, first.CreateTime.Equal(second.CreateTime))
	assert.False(t, second.UpdateTime.Before(first.UpdateTime))
	assert.EqualValues(t, "2", fmt.Sprint(second.Fields["v"]))
	_, stale := second.Fields["other"]
	assert.False(t, stale)
}

func testQueryOrderLimitOffset(t *testing.T, s store.Store) {
	defer s.Close()
	for i := 1; i <= 20; i++ {
		set(t, s, fmt.Sprintf("items/i%02d", i), types.JsonObject{"rank": 21 - i})
	}
	items := coll(t, "items")

	page := query(t, s, store.NewQuery(items).OrderBy("rank", types.Asc).Limit(5).Offset(10))
	// ranks 11..15 belong to i10..i06
	assert.Equal(t, []string{"i10", "i09", "i08", "i07", "i06"}, ids(page))

	desc := query(t, s, store.NewQuery(items).OrderBy("rank", types.Desc).Limit(3))
	assert.Equal(t, []string{"i01", "i02", "i03"}, ids(desc))

	assert.Len(t, query(t, s, store.NewQuery(items)), 20)
	assert.Empty(t, query(t, s, store.NewQuery(items).Limit(0)))
	assert.Empty(t, query(t, s, store.NewQuery(items).Offset(50)))
}

func testQueryWhereEqual(t *testing.T, s store.Store) {
	defer s.Close()
	set(t, s, "orders/a", types.JsonObject{"status": "open", "n": 1})
	set(t, s, "orders/b", types.JsonObject{"status": "closed", "n": 2})
	set(t, s, "orders/c", types.JsonObject{"status": "open", "n": 3})

	open := query(t, s, store.NewQuery(coll(t, "orders")).WhereEqual("status", "open").OrderBy("n", types.Asc))
	assert.Equal(t, []string{"a", "c"}, ids(open))

	two := query(t, s, store.NewQuery(coll(t, "orders")).WhereEqual("n", 2))
	assert.Equal(t, []string{"b"}, ids(two))
}

func testQueryScoped(t *testing.T, s store.Store) {
	defer s.Close()
	set(t, s, "users/u1/orders/o1", types.JsonObject{"n": 1})
	set(t, s, "users/u2/orders/o2", types.JsonObject{"n": 2})
	set(t, s, "users/u1", types.JsonObject{"name": "one"})

	got := query(t, s, store.NewQuery(coll(t, "users/u1/orders")))
	assert.Equal(t, []string{"o1"}, ids(got))
	assert.Equal(t, []string{"u1"}, ids(query(t, s, store.NewQuery(coll(t, "users")))))
}

func testRecursiveDelete(t *testing.T, s store.Store) {
	defer s.Close()
	set(t, s, "users/u1", types.JsonObject{"name": "one"})
	set(t, s, "users/u1/orders/o1", types.JsonObject{"n": 1})
	set(t, s, "users/u1/orders/o1/items/x", types.JsonObject{"n": 1})
	set(t, s, "users/u10", types.JsonObject{"name": "ten"})

	n, err := s.RecursiveDelete(context.Background(), ref(t, "users/u1")).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, get(t, s, "users/u1/orders/o1").Exists)
	assert.True(t, get(t, s, "users/u10").Exists)
}

func testDocuments(t *testing.T, s store.Store) {
	defer s.Close()
	for i := 0; i < 3; i++ {
		set(t, s, fmt.Sprintf("logs/l%d", i), types.JsonObject{"seq": i})
	}
	it := s.Documents(context.Background(), store.NewQuery(coll(t, "logs")).OrderBy("seq", types.Desc))
	defer it.Stop()
	var got []string
	for {
		snap, err := it.Next()
		if errors.Is(err, store.ErrDone) {
			break
		}
		require.NoError(t, err)
		got = append(got, snap.Ref.ID())
	}
	assert.Equal(t, []string{"l2", "l1", "l0"}, got)
}
