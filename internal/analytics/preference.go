// Package analytics folds search and behavior events into per-user analytics
// snapshots and derives the scores computed from them. Every function here is
// pure: callers supply the current snapshot and the clock.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/shopple/internal/domain"
)

const (
	// DecayFactor is applied once per elapsed day to stored query frequencies.
	DecayFactor = 0.9

	preferredSearchTimeCount = 3
	day                      = 24 * time.Hour
)

// ApplySearch folds one search into the user's search analytics. brands are the
// known brand names found in the query.
func ApplySearch(a *domain.UserSearchAnalytics, event domain.SearchEvent, brands []string, now time.Time) {
	a.Normalize()

	Decay(a, now)

	queryKey := strings.ToLower(event.Query)
	a.QueryFrequency[queryKey]++

	if event.Category != "" {
		a.CategoryFrequency[event.Category]++
	}
	for _, brand := range brands {
		a.BrandFrequency[brand]++
	}

	utc := now.UTC()
	a.SearchPatterns.TimeOfDay[utc.Hour()]++
	a.SearchPatterns.DayOfWeek[int(utc.Weekday())]++

	a.TotalSearches++
	a.PersonalizedScores = PersonalizedScores(a)
	a.PreferredSearchTimes = PreferredSearchTimes(a.SearchPatterns.TimeOfDay)
	a.LastUpdated = &now
}

// Decay scales every query frequency by DecayFactor^days since LastUpdated.
// Snapshots without LastUpdated are left alone.
func Decay(a *domain.UserSearchAnalytics, now time.Time) {
	if a.LastUpdated == nil {
		return
	}
	days := now.Sub(*a.LastUpdated).Hours() / 24
	if days <= 0 {
		return
	}
	factor := math.Pow(DecayFactor, days)
	for query := range a.QueryFrequency {
		a.QueryFrequency[query] *= factor
	}
}

// PersonalizedScores blends relative and log-dampened frequency for every
// category and brand: (freq/total) * ln(1+freq).
func PersonalizedScores(a *domain.UserSearchAnalytics) map[string]float64 {
	scores := make(map[string]float64, len(a.CategoryFrequency)+len(a.BrandFrequency))
	if a.TotalSearches <= 0 {
		return scores
	}
	total := float64(a.TotalSearches)
	for category, freq := range a.CategoryFrequency {
		scores["category_"+category] = tfScore(float64(freq), total)
	}
	for brand, freq := range a.BrandFrequency {
		scores["brand_"+brand] = tfScore(float64(freq), total)
	}
	return scores
}

func tfScore(freq, total float64) float64 {
	return (freq / total) * math.Log1p(freq)
}

// PreferredSearchTimes returns the three most frequent search hours. Ties go to
// the earlier hour.
func PreferredSearchTimes(timeOfDay map[int]int) []int {
	return topKeys(timeOfDay, preferredSearchTimeCount)
}

func topKeys(counts map[int]int, n int) []int {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
