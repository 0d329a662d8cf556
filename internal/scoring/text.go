// Package scoring holds the deterministic relevance functions used by product
// and people search, and the merge and rank helpers that combine their results.
package scoring

import (
	"regexp"
	"strings"

	"github.com/cloo-solutions/shopple/internal/domain"
)

// ProductThreshold is the minimum average per-word score a product needs to
// be returned. The comparison is strict.
const ProductThreshold = 0.3

// Product field weights, applied per query word.
const (
	weightName         = 1.0
	weightBrand        = 0.8
	weightVariety      = 0.6
	weightOriginalName = 0.5
	weightCategory     = 0.3
)

// QueryWords lowercases a query and splits it on whitespace.
func QueryWords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// ProductScore averages, over the query words, the summed weights of every
// product field containing the word.
func ProductScore(p domain.Product, query string) float64 {
	words := QueryWords(query)
	if len(words) == 0 {
		return 0
	}

	fields := []struct {
		value  string
		weight float64
	}{
		{strings.ToLower(p.Name), weightName},
		{strings.ToLower(p.Brand()), weightBrand},
		{strings.ToLower(p.Variety), weightVariety},
		{strings.ToLower(p.OriginalName), weightOriginalName},
		{strings.ToLower(p.Category), weightCategory},
	}

	var total float64
	for _, word := range words {
		for _, f := range fields {
			if f.value != "" && strings.Contains(f.value, word) {
				total += f.weight
			}
		}
	}
	return total / float64(len(words))
}

// ProductQualifies reports whether a score clears the inclusion threshold.
func ProductQualifies(score float64) bool {
	return score > ProductThreshold
}

type personWeight struct {
	prefix    float64
	substring float64
}

var (
	firstNameWeight   = personWeight{100, 50}
	lastNameWeight    = personWeight{90, 45}
	displayNameWeight = personWeight{85, 40}
	emailWeight       = personWeight{80, 35}
)

// PersonScore is the additive full-search score. A prefix hit is also a
// substring hit, so both weights apply.
func PersonScore(u domain.UserProfile, query string) float64 {
	q := strings.ToLower(query)
	if q == "" {
		return 0
	}

	var score float64
	for _, f := range []struct {
		value  string
		weight personWeight
	}{
		{u.FirstName, firstNameWeight},
		{u.LastName, lastNameWeight},
		{u.DisplayName, displayNameWeight},
		{u.Email, emailWeight},
	} {
		value := strings.ToLower(f.value)
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, q) {
			score += f.weight.prefix
		}
		if strings.Contains(value, q) {
			score += f.weight.substring
		}
	}
	return score
}

// ShortQueryScore scores one- and two-character queries. First-name and
// last-name prefix hits return immediately; other hits raise a 0.5 floor.
func ShortQueryScore(u domain.UserProfile, query string) float64 {
	q := strings.ToLower(query)
	score := 0.5

	if first := strings.ToLower(u.FirstName); first != "" {
		if strings.HasPrefix(first, q) {
			return 1.0
		}
		if strings.Contains(first, q) {
			score = 0.85
		}
	}

	if last := strings.ToLower(u.LastName); last != "" && score < 0.95 {
		if strings.HasPrefix(last, q) {
			return 0.95
		}
		if strings.Contains(last, q) {
			score = max(score, 0.8)
		}
	}

	if display := strings.ToLower(u.DisplayName); display != "" && score < 0.9 {
		if strings.HasPrefix(display, q) {
			score = max(score, 0.9)
		} else if strings.Contains(display, q) {
			score = max(score, 0.75)
		}
	}

	if email := strings.ToLower(u.Email); email != "" && (strings.Contains(q, "@") || len(query) > 2) {
		if strings.HasPrefix(email, q) {
			score = max(score, 0.88)
		}
	}

	return score
}

// IsShortQuery reports whether a query takes the short autosuggest path.
func IsShortQuery(query string) bool {
	return len([]rune(query)) <= 2
}

// RankScore picks the scorer matching the query length.
func RankScore(u domain.UserProfile, query string) float64 {
	if IsShortQuery(query) {
		return ShortQueryScore(u, query)
	}
	return PersonScore(u, query)
}

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips everything but decimal digits.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// MixedScore orders mixed-intent candidates: name hits first, then email,
// then phone digits.
func MixedScore(u domain.UserProfile, query string) float64 {
	q := strings.ToLower(query)
	var score float64

	fullName := strings.ToLower(u.FirstName + " " + u.LastName)
	display := strings.ToLower(u.DisplayName)
	switch {
	case strings.HasPrefix(fullName, q) || (display != "" && strings.HasPrefix(display, q)):
		score += 100
	case strings.Contains(fullName, q) || (display != "" && strings.Contains(display, q)):
		score += 80
	}

	if email := strings.ToLower(u.Email); email != "" {
		if strings.HasPrefix(email, q) {
			score += 90
		} else if strings.Contains(email, q) {
			score += 70
		}
	}

	if qd := Digits(query); qd != "" && u.PhoneNumber != "" && strings.Contains(Digits(u.PhoneNumber), qd) {
		score += 85
	}

	return score
}
