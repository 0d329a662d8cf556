package analytics

import (
	"time"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const (
	// LowResultThreshold marks searches that returned too few results.
	LowResultThreshold = 3
	lowResultRetention = 30 * day
)

// ApplyTrend counts the query globally and records it as a low-result query
// when it returned fewer than LowResultThreshold results. Low-result entries
// older than 30 days are dropped whenever a new one is recorded.
func ApplyTrend(t *domain.SearchTrends, query string, resultCount int, now time.Time) {
	if t.GlobalQueries == nil {
		t.GlobalQueries = map[string]int{}
	}
	if t.LowResultQueries == nil {
		t.LowResultQueries = map[string]domain.LowResultQueryStat{}
	}

	t.GlobalQueries[query]++

	if resultCount < LowResultThreshold {
		stat := t.LowResultQueries[query]
		stat.Count++
		stat.LastSeen = now
		t.LowResultQueries[query] = stat

		cutoff := now.Add(-lowResultRetention)
		for q, s := range t.LowResultQueries {
			if !s.LastSeen.After(cutoff) {
				delete(t.LowResultQueries, q)
			}
		}
	}
	t.LastUpdated = &now
}
