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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/async"
	"github.com/tomoncle/docstore/docerr"
	"github.com/tomoncle/docstore/entity"
	"github.com/tomoncle/docstore/store"
	"github.com/tomoncle/docstore/store/memstore"
	"github.com/tomoncle/docstore/types"
	"github.com/tomoncle/docstore/utils"
)

type Order struct {
	entity.Model
	entity.Timestamps
	Item  string `json:"item"`
	Total int    `json:"total"`
	Seq   int    `json:"seq"`
}

func (*Order) CollectionName() string { return "users/{}/orders" }

func (*Order) OrderField() string { return "seq" }

type Note struct {
	Text string `json:"text"`
}

func (*Note) CollectionName() string { return "notes" }

type Orphan struct{}

// recordingStore remembers every query it is asked to run.
type recordingStore struct {
	store.Store
	mu      sync.Mutex
	queries []store.Query
}

func (s *recordingStore) Query(ctx context.Context, q store.Query) *async.Future[[]*store.Snapshot] {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return s.Store.Query(ctx, q)
}

// nilSnapshotStore answers every Get with a nil snapshot.
type nilSnapshotStore struct {
	store.Store
}

func (nilSnapshotStore) Get(context.Context, store.DocumentRef) *async.Future[*store.Snapshot] {
	return async.Completed[*store.Snapshot](nil)
}

func newMem(opts ...memstore.Option) *memstore.Store {
	return memstore.New(append([]memstore.Option{memstore.WithLogger(utils.NopLogger{})}, opts...)...)
}

func newOrders(t *testing.T, s store.Store, opts ...Option) Repository[Order] {
	t.Helper()
	r, err := New[Order](s, append([]Option{WithLogger(utils.NopLogger{})}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestOrderEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem())

	id, err := repo.Save(ctx, &Order{Model: entity.Model{ID: "o1"}, Item: "book", Total: 12}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "o1", id)

	got, found, err := repo.FindByID(ctx, "o1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, "book", got.Item)
	assert.Equal(t, 12, got.Total)

	ref, err := repo.CollectionRef("u1")
	require.NoError(t, err)
	assert.Equal(t, "users/u1/orders", ref.Path())

	require.NoError(t, repo.Delete(ctx, got, "u1"))
	all, err := repo.FindAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, found, err = repo.FindByID(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveGeneratesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := newMem()
	repo, err := New[Note](s, WithLogger(utils.NopLogger{}))
	require.NoError(t, err)

	note := &Note{Text: "same"}
	a, err := repo.Save(ctx, note)
	require.NoError(t, err)
	b, err := repo.Save(ctx, note)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveWithULID(t *testing.T) {
	repo := newOrders(t, newMem(), WithIDGenerator(ULIDGenerator))
	id, err := repo.Save(context.Background(), &Order{Item: "x"}, "u1")
	require.NoError(t, err)
	assert.Len(t, id, 26)

	gen, err := GeneratorFor("ULID")
	require.NoError(t, err)
	assert.Len(t, gen(), 26)
	_, err = GeneratorFor("sequence")
	assert.True(t, docerr.IsConfiguration(err))
}

func TestAuditStamps(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	now := t1
	repo := newOrders(t, newMem(), WithClock(func() time.Time { return now }))

	order := &Order{Model: entity.Model{ID: "o1"}}
	_, err := repo.Save(ctx, order, "u1")
	require.NoError(t, err)
	require.NotNil(t, order.CreatedAt)
	assert.True(t, t1.Equal(*order.CreatedAt))
	assert.True(t, t1.Equal(*order.UpdatedAt))

	now = t2
	_, err = repo.Save(ctx, order, "u1")
	require.NoError(t, err)
	assert.True(t, t1.Equal(*order.CreatedAt))
	assert.True(t, t2.Equal(*order.UpdatedAt))

	stored, _, err := repo.FindByID(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.True(t, t1.Equal(*stored.CreatedAt))
	assert.True(t, t2.Equal(*stored.UpdatedAt))
}

func TestNilSnapshotCountsAsAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	repo := newOrders(t, nilSnapshotStore{Store: newMem()}, WithClock(func() time.Time { return now }))

	order := &Order{Model: entity.Model{ID: "o1"}}
	id, err := repo.Save(ctx, order, "u1")
	require.NoError(t, err)
	assert.Equal(t, "o1", id)
	require.NotNil(t, order.CreatedAt)
	assert.True(t, now.Equal(*order.CreatedAt))

	got, found, err := repo.FindByID(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestPathVariableCountMustMatch(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem())

	_, err := repo.Save(ctx, &Order{}, "u1", "u2")
	require.Error(t, err)
	assert.True(t, docerr.IsConfiguration(err))
	assert.Contains(t, err.Error(), "wrong argument count")

	_, err = repo.FindAll(ctx, "u1", "stray")
	assert.True(t, docerr.IsConfiguration(err))
}

func TestFindByIDMissingIsNotAnError(t *testing.T) {
	repo := newOrders(t, newMem())
	got, found, err := repo.FindByID(context.Background(), "nope", "u1")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	s := newMem()
	repo := newOrders(t, s)

	_, err := repo.Save(ctx, &Order{Model: entity.Model{ID: "good"}, Item: "ok"}, "u1")
	require.NoError(t, err)
	bad, err := store.ParseDocumentPath("users/u1/orders/bad")
	require.NoError(t, err)
	_, err = s.Set(ctx, bad, types.JsonObject{"total": "not a number"}).Get(ctx)
	require.NoError(t, err)

	all, err := repo.FindAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)

	_, _, err = repo.FindByID(ctx, "bad", "u1")
	assert.True(t, docerr.IsConfiguration(err))

	var streamed []string
	for o, err := range repo.Stream(ctx, "u1") {
		require.NoError(t, err)
		streamed = append(streamed, o.ID)
	}
	assert.Equal(t, []string{"good"}, streamed)
}

func TestPaginate(t *testing.T) {
	ctx := context.Background()
	rec := &recordingStore{Store: newMem()}
	repo := newOrders(t, rec)
	for i := 1; i <= 20; i++ {
		_, err := repo.Save(ctx, &Order{Seq: i}, "u1")
		require.NoError(t, err)
	}

	page, err := repo.FindPage(ctx, types.NewPageRequest(5, 10), "u1")
	require.NoError(t, err)
	require.Len(t, rec.queries, 1)
	q := rec.queries[0]
	limit, ok := q.MaxResults()
	assert.True(t, ok)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, q.Skip())
	require.Len(t, q.Orders(), 1)
	assert.Equal(t, "seq", q.Orders()[0].Field)
	assert.Equal(t, types.Asc, q.Orders()[0].Direction)

	seqs := make([]int, 0, len(page.Items))
	for _, o := range page.Items {
		seqs = append(seqs, o.Seq)
	}
	assert.Equal(t, []int{11, 12, 13, 14, 15}, seqs)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 10, page.Offset)
	assert.True(t, page.HasNext())
	assert.Equal(t, 15, page.Next().GetOffset())
}

func TestFindPageDefaults(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem())
	for i := 1; i <= 25; i++ {
		_, err := repo.Save(ctx, &Order{Seq: i}, "u1")
		require.NoError(t, err)
	}

	page, err := repo.FindPage(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Len(t, page.Items, types.DefaultPageLimit)
	assert.Equal(t, 1, page.Items[0].Seq)

	small := newOrders(t, repo.Store(), WithDefaultLimit(3))
	page, err = small.FindPage(ctx, types.NewOffsetRequest(22), "u1")
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 23, page.Items[0].Seq)

	page, err = repo.FindPage(ctx, types.NewLimitRequest(0), "u1")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext())
}

func TestPathErrors(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem())

	_, err := repo.FindAll(ctx)
	require.Error(t, err)
	assert.True(t, docerr.IsConfiguration(err))
	assert.Contains(t, err.Error(), "wrong argument count")

	_, err = repo.Save(ctx, &Order{}, " ")
	assert.True(t, docerr.IsConfiguration(err))

	_, _, err = repo.FindByID(ctx, "a/b", "u1")
	assert.True(t, docerr.IsConfiguration(err))

	for _, err := range repo.Stream(ctx) {
		assert.True(t, docerr.IsConfiguration(err))
	}
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend unavailable")
	s := newMem(memstore.WithFault(func(op, path string) error {
		if op == "get" {
			return boom
		}
		return nil
	}))
	repo := newOrders(t, s)

	_, _, err := repo.FindByID(ctx, "o1", "u1")
	require.Error(t, err)
	var se *docerr.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "users/u1/orders", se.Collection)
	assert.Equal(t, "o1", se.DocumentID)
	assert.ErrorIs(t, err, boom)

	_, err = repo.Save(ctx, &Order{Model: entity.Model{ID: "o1"}}, "u1")
	assert.True(t, docerr.IsStore(err))
	assert.Equal(t, 0, s.Len())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := newOrders(t, newMem())

	_, err := repo.Save(ctx, &Order{}, "u1")
	require.Error(t, err)
	assert.True(t, docerr.IsStore(err))
	assert.Equal(t, docerr.CauseCanceled, docerr.CauseOf(err))

	for _, err := range repo.Stream(ctx, "u1") {
		assert.Equal(t, docerr.CauseCanceled, docerr.CauseOf(err))
	}
}

func TestDeleteRequiresID(t *testing.T) {
	repo := newOrders(t, newMem())
	err := repo.Delete(context.Background(), &Order{}, "u1")
	assert.True(t, docerr.IsConfiguration(err))
	assert.True(t, docerr.IsConfiguration(repo.Delete(context.Background(), nil, "u1")))
	assert.NoError(t, repo.DeleteByID(context.Background(), "absent", "u1"))
}

func TestRecursiveDelete(t *testing.T) {
	ctx := context.Background()
	s := newMem()
	users, err := New[Note](s, WithTemplate("users"), WithLogger(utils.NopLogger{}))
	require.NoError(t, err)
	orders := newOrders(t, s)

	_, err = users.Save(ctx, &Note{Text: "placeholder"})
	require.NoError(t, err)
	u1, err := store.ParseDocumentPath("users/u1")
	require.NoError(t, err)
	_, err = s.Set(ctx, u1, types.JsonObject{"text": "one"}).Get(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = orders.Save(ctx, &Order{Seq: i}, "u1")
		require.NoError(t, err)
	}

	n, err := users.RecursiveDelete(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, s.Len())
}

func TestAsyncVariants(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem(memstore.WithLatency(time.Millisecond)))

	id, err := repo.SaveAsync(ctx, &Order{Model: entity.Model{ID: "o1"}, Item: "pen"}, "u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "o1", id)

	got, err := repo.FindByIDAsync(ctx, "o1", "u1").Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pen", got.Item)

	missing, err := repo.FindByIDAsync(ctx, "o2", "u1").Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.FindAllAsync(ctx, "u1").Get(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	page, err := repo.FindPageAsync(ctx, types.NewLimitRequest(10), "u1").Get(ctx)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = repo.DeleteAsync(ctx, &Order{}, "u1").Get(ctx)
	assert.True(t, docerr.IsConfiguration(err))

	_, err = repo.DeleteByIDAsync(ctx, "o1", "u1").Get(ctx)
	require.NoError(t, err)

	n, err := repo.RecursiveDeleteAsync(ctx, "o1", "u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStreamPage(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem())
	for i := 1; i <= 6; i++ {
		_, err := repo.Save(ctx, &Order{Seq: i}, "u1")
		require.NoError(t, err)
	}

	seq := repo.StreamPage(ctx, types.NewPageRequest(2, 3), "u1")
	var got []int
	for o, err := range seq {
		require.NoError(t, err)
		got = append(got, o.Seq)
	}
	assert.Equal(t, []int{4, 5}, got)

	// a stream is not restartable
	for o, err := range seq {
		assert.Nil(t, o)
		assert.True(t, docerr.IsConfiguration(err))
	}

	// stopping early is allowed
	count := 0
	for range repo.Stream(ctx, "u1") {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNewRequiresCollection(t *testing.T) {
	_, err := New[Orphan](newMem())
	assert.True(t, docerr.IsConfiguration(err))

	_, err = New[Order](nil)
	assert.True(t, docerr.IsConfiguration(err))

	assert.Panics(t, func() { MustNew[Orphan](newMem()) })
}

func TestWithTemplate(t *testing.T) {
	ctx := context.Background()
	repo := newOrders(t, newMem(), WithTemplate("archive/{}/orders"))
	_, err := repo.Save(ctx, &Order{Model: entity.Model{ID: "o1"}}, "2024")
	require.NoError(t, err)
	ref, err := repo.CollectionRef("2024")
	require.NoError(t, err)
	assert.Equal(t, "archive/2024/orders", ref.Path())
	assert.Equal(t, "users/{}/orders", repo.Descriptor().Collection())
}
