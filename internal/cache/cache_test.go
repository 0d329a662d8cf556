package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryTier_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	tier, err := NewMemoryTier(10, 15*time.Second, clock.Now)
	require.NoError(t, err)

	require.NoError(t, tier.Set(ctx, "milk", []byte("payload")))

	clock.Advance(15 * time.Second)
	data, ok, err := tier.Get(ctx, "milk")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), data)

	clock.Advance(time.Millisecond)
	_, ok, err = tier.Get(ctx, "milk")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tier.Len())
}

func TestMemoryTier_EvictsOldestInsertion(t *testing.T) {
	ctx := context.Background()
	tier, err := NewMemoryTier(3, time.Minute, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, tier.Set(ctx, fmt.Sprint(i), []byte{byte(i)}))
	}
	// Reads must not protect the oldest entry.
	_, ok, _ := tier.Get(ctx, "0")
	require.True(t, ok)

	require.NoError(t, tier.Set(ctx, "3", []byte{3}))

	_, ok, _ = tier.Get(ctx, "0")
	assert.False(t, ok)
	for _, key := range []string{"1", "2", "3"} {
		_, ok, _ := tier.Get(ctx, key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, tier.Len())
}

func TestMemoryHitCounter(t *testing.T) {
	ctx := context.Background()
	counter, err := NewMemoryHitCounter(2)
	require.NoError(t, err)

	n, _ := counter.Incr(ctx, "a")
	assert.Equal(t, 1, n)
	n, _ = counter.Incr(ctx, "a")
	assert.Equal(t, 2, n)

	counter.Incr(ctx, "b")
	counter.Incr(ctx, "c")
	n, _ = counter.Incr(ctx, "a")
	assert.Equal(t, 1, n, "bounded counter forgets the least recent key")
}

func TestKey(t *testing.T) {
	k := Key{Query: "  Amul Butter ", Category: "dairy", Stores: []string{"s2", "s1"}, Limit: 20}
	assert.Equal(t, "amul butter|dairy|s1,s2|20", k.Short())
	assert.Equal(t, "amul butter|20", k.Popular())
	assert.Equal(t, "amul butter", k.Popularity())
	assert.False(t, k.PopularEligible())
	assert.Equal(t, []string{"s2", "s1"}, k.Stores, "sorting must not mutate the request")

	assert.True(t, Key{Query: "milk"}.PopularEligible())
	assert.False(t, Key{Query: "milk", Stores: []string{"s1"}}.PopularEligible())
}

func newSearchCache(t *testing.T, clock *fakeClock) *SearchCache {
	t.Helper()
	short, err := NewMemoryTier(200, 15*time.Second, clock.Now)
	require.NoError(t, err)
	popular, err := NewMemoryTier(500, 120*time.Second, clock.Now)
	require.NoError(t, err)
	hits, err := NewMemoryHitCounter(500)
	require.NoError(t, err)
	return New(Config{Short: short, Popular: popular, Hits: hits, Threshold: 3})
}

func TestSearchCache_ShortHitThenExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := newSearchCache(t, clock)
	key := Key{Query: "milk", Category: "dairy", Limit: 20}

	data, src := c.Lookup(ctx, key)
	assert.Nil(t, data)
	assert.Equal(t, SourceNone, src)

	c.Store(ctx, key, []byte(`{"results":[1]}`))
	data, src = c.Lookup(ctx, key)
	assert.Equal(t, SourceShort, src)
	assert.Equal(t, []byte(`{"results":[1]}`), data)

	clock.Advance(16 * time.Second)
	_, src = c.Lookup(ctx, key)
	assert.Equal(t, SourceNone, src)
}

func TestSearchCache_PromotesAfterThreshold(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := newSearchCache(t, clock)
	key := Key{Query: "Milk", Limit: 20}

	for i := 0; i < 2; i++ {
		c.Store(ctx, key, []byte("v"))
		clock.Advance(16 * time.Second)
		_, src := c.Lookup(ctx, key)
		assert.Equal(t, SourceNone, src)
	}

	c.Store(ctx, key, []byte("v"))
	clock.Advance(16 * time.Second)
	data, src := c.Lookup(ctx, Key{Query: "milk", Limit: 20})
	assert.Equal(t, SourcePopular, src)
	assert.Equal(t, []byte("v"), data)

	_, src = c.Lookup(ctx, Key{Query: "milk", Limit: 5})
	assert.Equal(t, SourceNone, src, "a payload stored for one limit never answers another")

	clock.Advance(2 * time.Minute)
	_, src = c.Lookup(ctx, key)
	assert.Equal(t, SourceNone, src)
}

func TestSearchCache_FilteredSearchesNeverPromote(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := newSearchCache(t, clock)
	key := Key{Query: "milk", Stores: []string{"s1"}, Limit: 20}

	for i := 0; i < 5; i++ {
		c.Store(ctx, key, []byte("v"))
	}
	clock.Advance(16 * time.Second)
	_, src := c.Lookup(ctx, Key{Query: "milk", Limit: 20})
	assert.Equal(t, SourceNone, src)
}

func TestSearchCache_NilIsDisabled(t *testing.T) {
	var c *SearchCache
	c.Store(context.Background(), Key{Query: "milk"}, []byte("v"))
	data, src := c.Lookup(context.Background(), Key{Query: "milk"})
	assert.Nil(t, data)
	assert.Equal(t, SourceNone, src)
}

type mockTier struct {
	mock.Mock
}

func (m *mockTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *mockTier) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func TestSearchCache_BackendErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	short := new(mockTier)
	popular := new(mockTier)
	hits, err := NewMemoryHitCounter(10)
	require.NoError(t, err)
	c := New(Config{Short: short, Popular: popular, Hits: hits})

	boom := errors.New("connection refused")
	popular.On("Get", ctx, "milk|20").Return(nil, false, boom)
	short.On("Get", ctx, "milk||20").Return(nil, false, boom)
	short.On("Set", ctx, "milk||20", []byte("v")).Return(boom)

	_, src := c.Lookup(ctx, Key{Query: "milk", Limit: 20})
	assert.Equal(t, SourceNone, src)
	assert.NotPanics(t, func() { c.Store(ctx, Key{Query: "milk", Limit: 20}, []byte("v")) })

	short.AssertExpectations(t)
	popular.AssertExpectations(t)
}

func TestSearchCache_HitsCountAcrossLimits(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := newSearchCache(t, clock)

	c.Store(ctx, Key{Query: "butter", Limit: 20}, []byte("20"))
	c.Store(ctx, Key{Query: "butter", Limit: 21}, []byte("21"))
	c.Store(ctx, Key{Query: "butter", Limit: 22}, []byte("22"))
	clock.Advance(16 * time.Second)

	data, src := c.Lookup(ctx, Key{Query: "butter", Limit: 22})
	assert.Equal(t, SourcePopular, src)
	assert.Equal(t, []byte("22"), data)

	_, src = c.Lookup(ctx, Key{Query: "butter", Limit: 1})
	assert.Equal(t, SourceNone, src)
}
