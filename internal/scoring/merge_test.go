package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type hit struct {
	id    string
	score float64
}

func hitKey(h hit) string { return h.id }

func TestMerge_FirstSeenWins(t *testing.T) {
	a := []hit{{"1", 1}, {"2", 2}}
	b := []hit{{"2", 99}, {"3", 3}}

	merged := Merge(hitKey, 0, a, b)

	assert.Equal(t, []hit{{"1", 1}, {"2", 2}, {"3", 3}}, merged)
}

func TestMerge_EarlyStop(t *testing.T) {
	a := []hit{{"1", 1}, {"1", 1}, {"2", 2}}
	b := []hit{{"3", 3}, {"4", 4}}

	merged := Merge(hitKey, 3, a, b)

	assert.Equal(t, []hit{{"1", 1}, {"2", 2}, {"3", 3}}, merged)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(hitKey, 5))
	assert.Empty(t, Merge(hitKey, 5, nil, []hit{}))
}

func TestRank_StableDescendingAndTruncated(t *testing.T) {
	items := []hit{{"a", 1}, {"b", 5}, {"c", 5}, {"d", 3}}

	ranked := Rank(items, func(h hit) float64 { return h.score }, 3)

	got := make([]string, len(ranked))
	for i, r := range ranked {
		got[i] = r.Item.id
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
	assert.Equal(t, 5.0, ranked[0].Score)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Truncate([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1, 2, 3}, Truncate([]int{1, 2, 3}, 0))
}
