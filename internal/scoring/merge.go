package scoring

import "sort"

// Merge concatenates result sets in order, keeping the first occurrence of
// each key. A positive limit stops accumulation once that many items are kept.
func Merge[T any](key func(T) string, limit int, sets ...[]T) []T {
	seen := make(map[string]struct{})
	var merged []T
	for _, set := range sets {
		for _, item := range set {
			if limit > 0 && len(merged) >= limit {
				return merged
			}
			k := key(item)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}

// Scored pairs an item with its relevance.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank scores every item once, stable-sorts descending and truncates to a
// positive limit.
func Rank[T any](items []T, score func(T) float64, limit int) []Scored[T] {
	scored := make([]Scored[T], len(items))
	for i, item := range items {
		scored[i] = Scored[T]{Item: item, Score: score(item)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Truncate returns at most n items. Non-positive n keeps everything.
func Truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
