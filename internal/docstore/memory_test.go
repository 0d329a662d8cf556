package docstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, m *Memory) {
	t.Helper()
	writes := []Write{
		{Collection: "users", ID: "u1", Mode: ModeSet, Fields: map[string]any{"firstName": "Anita", "age": 31, "tags": []string{"a", "b"}}},
		{Collection: "users", ID: "u2", Mode: ModeSet, Fields: map[string]any{"firstName": "Anil", "age": 25, "tags": []string{"b"}}},
		{Collection: "users", ID: "u3", Mode: ModeSet, Fields: map[string]any{"firstName": "Bela", "age": 40}},
		{Collection: "users", ID: "u4", Mode: ModeSet, Fields: map[string]any{"lastName": "Anand"}},
	}
	require.NoError(t, m.BatchWrite(context.Background(), writes))
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestMemory_Query_PrefixRangeOrdersByField(t *testing.T) {
	m := NewMemory()
	seedUsers(t, m)

	docs, err := m.Query(context.Background(), Query{
		Collection: "users",
		Filters:    PrefixRange("firstName", "An"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, ids(docs))
}

func TestMemory_Query_Filters(t *testing.T) {
	m := NewMemory()
	seedUsers(t, m)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"equality on number", []Filter{Eq("age", 25)}, []string{"u2"}},
		{"in on id", []Filter{In(FieldID, []string{"u3", "u1", "missing"})}, []string{"u1", "u3"}},
		{"array contains", []Filter{ArrayContains("tags", "b")}, []string{"u1", "u2"}},
		{"range on number", []Filter{Gte("age", 30), Lte("age", 40)}, []string{"u1", "u3"}},
		{"missing field never matches", []Filter{Eq("lastName", "Anita")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := m.Query(ctx, Query{Collection: "users", Filters: tt.filters})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, docs)
				return
			}
			assert.Equal(t, tt.want, ids(docs))
		})
	}
}

func TestMemory_Query_OrderLimitSelect(t *testing.T) {
	m := NewMemory()
	seedUsers(t, m)

	docs, err := m.Query(context.Background(), Query{
		Collection: "users",
		OrderBy:    "age",
		Descending: true,
		Limit:      2,
		Select:     []string{"firstName"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"u3", "u1"}, ids(docs))
	assert.Equal(t, map[string]any{"firstName": "Bela"}, docs[0].Data)
}

func TestMemory_Query_StartAfter(t *testing.T) {
	m := NewMemory()
	seedUsers(t, m)

	docs, err := m.Query(context.Background(), Query{Collection: "users", StartAfter: "u2", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, ids(docs))

	_, err = m.Query(context.Background(), Query{Collection: "users", OrderBy: "age", StartAfter: "u2"})
	assert.Error(t, err)
}

func TestMemory_Query_RejectsLargeIn(t *testing.T) {
	m := NewMemory()
	keys := make([]string, MaxInKeys+1)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	_, err := m.Query(context.Background(), Query{Collection: "users", Filters: []Filter{In(FieldID, keys)}})
	assert.ErrorIs(t, err, ErrTooManyKeys)
}

func TestMemory_BatchWrite_MergeIsDeep(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.BatchWrite(ctx, []Write{{
		Collection: "users", ID: "u1", Mode: ModeSet,
		Fields: map[string]any{"presence": map[string]any{"state": "online", "device": "ios"}, "name": "A"},
	}}))
	require.NoError(t, m.BatchWrite(ctx, []Write{{
		Collection: "users", ID: "u1", Mode: ModeMerge,
		Fields: map[string]any{"presence": map[string]any{"state": "offline"}},
	}}))

	doc, err := m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "A", doc.Data["name"])
	assert.Equal(t, map[string]any{"state": "offline", "device": "ios"}, doc.Data["presence"])
}

func TestMemory_BatchWrite_UpdateMissingIsAtomic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.BatchWrite(ctx, []Write{
		{Collection: "alerts", ID: "a1", Mode: ModeSet, Fields: map[string]any{"read": false}},
		{Collection: "alerts", ID: "missing", Mode: ModeUpdate, Fields: map[string]any{"read": true}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := m.Get(ctx, "alerts", "a1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemory_BatchWrite_Delete(t *testing.T) {
	m := NewMemory()
	seedUsers(t, m)
	ctx := context.Background()

	require.NoError(t, m.BatchWrite(ctx, []Write{{Collection: "users", ID: "u1", Mode: ModeDelete}}))
	doc, err := m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemory_BatchWrite_RejectsOversizedBatch(t *testing.T) {
	m := NewMemory()
	writes := make([]Write, MaxBatchWrites+1)
	for i := range writes {
		writes[i] = Write{Collection: "c", ID: fmt.Sprint(i), Mode: ModeSet}
	}
	assert.ErrorIs(t, m.BatchWrite(context.Background(), writes), ErrBatchTooLarge)
	assert.NoError(t, BatchWriteAll(context.Background(), m, writes))

	docs, err := m.Query(context.Background(), Query{Collection: "c"})
	require.NoError(t, err)
	assert.Len(t, docs, MaxBatchWrites+1)
}

func TestMemory_RunTransaction_ConcurrentIncrements(t *testing.T) {
	m := NewMemory(WithMaxAttempts(1000))
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.RunTransaction(ctx, "counters", "c1", func(current map[string]any) (map[string]any, error) {
				count, _ := current["count"].(float64)
				return map[string]any{"count": count + 1}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := m.Get(ctx, "counters", "c1")
	require.NoError(t, err)
	assert.Equal(t, float64(workers), doc.Data["count"])
}

func TestMemory_RunTransaction_ExhaustsAttempts(t *testing.T) {
	m := NewMemory(WithMaxAttempts(3))
	ctx := context.Background()

	calls := 0
	err := m.RunTransaction(ctx, "counters", "c1", func(current map[string]any) (map[string]any, error) {
		calls++
		require.NoError(t, m.BatchWrite(ctx, []Write{{
			Collection: "counters", ID: "c1", Mode: ModeSet, Fields: map[string]any{"count": calls},
		}}))
		return map[string]any{"count": -1}, nil
	})

	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 3, calls)
}

func TestMemory_RunTransaction_NilSkipsWrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.RunTransaction(ctx, "counters", "c1", func(current map[string]any) (map[string]any, error) {
		assert.Nil(t, current)
		return nil, nil
	})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "counters", "c1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Nil(t, Chunk([]int{}, 10))
}

func TestDecodeField(t *testing.T) {
	var target struct {
		State string `json:"state"`
	}
	require.NoError(t, DecodeField(map[string]any{"presence": map[string]any{"state": "online"}}, "presence", &target))
	assert.Equal(t, "online", target.State)
	require.NoError(t, DecodeField(map[string]any{}, "presence", &target))
	assert.Equal(t, "online", target.State)
}
