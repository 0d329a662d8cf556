package domain

import "time"

// UserSearchAnalytics is stored under users/{uid}.searchAnalytics and is only
// ever rewritten as a whole so decay can be computed against LastUpdated.
type UserSearchAnalytics struct {
	TotalSearches        int                `json:"totalSearches"`
	QueryFrequency       map[string]float64 `json:"queryFrequency"`
	CategoryFrequency    map[string]int     `json:"categoryFrequency"`
	BrandFrequency       map[string]int     `json:"brandFrequency"`
	SearchPatterns       SearchPatterns     `json:"searchPatterns"`
	PersonalizedScores   map[string]float64 `json:"personalizedScores"`
	PreferredSearchTimes []int              `json:"preferredSearchTimes"`
	LastUpdated          *time.Time         `json:"lastUpdated,omitempty"`
}

// SearchPatterns are unbounded hour-of-day and day-of-week histograms.
type SearchPatterns struct {
	TimeOfDay map[int]int `json:"timeOfDay"`
	DayOfWeek map[int]int `json:"dayOfWeek"`
}

// NewUserSearchAnalytics returns an empty snapshot with allocated maps.
func NewUserSearchAnalytics() *UserSearchAnalytics {
	return &UserSearchAnalytics{
		QueryFrequency:     map[string]float64{},
		CategoryFrequency:  map[string]int{},
		BrandFrequency:     map[string]int{},
		SearchPatterns:     SearchPatterns{TimeOfDay: map[int]int{}, DayOfWeek: map[int]int{}},
		PersonalizedScores: map[string]float64{},
	}
}

// Normalize allocates any map that decoded as nil.
func (a *UserSearchAnalytics) Normalize() {
	if a.QueryFrequency == nil {
		a.QueryFrequency = map[string]float64{}
	}
	if a.CategoryFrequency == nil {
		a.CategoryFrequency = map[string]int{}
	}
	if a.BrandFrequency == nil {
		a.BrandFrequency = map[string]int{}
	}
	if a.SearchPatterns.TimeOfDay == nil {
		a.SearchPatterns.TimeOfDay = map[int]int{}
	}
	if a.SearchPatterns.DayOfWeek == nil {
		a.SearchPatterns.DayOfWeek = map[int]int{}
	}
	if a.PersonalizedScores == nil {
		a.PersonalizedScores = map[string]float64{}
	}
}

// SearchEvent is one search as reported by the client.
type SearchEvent struct {
	UserID      string
	Query       string
	Category    string
	ResultCount int
}

// SearchTrends is the global analytics/search_trends document.
type SearchTrends struct {
	GlobalQueries    map[string]int                `json:"globalQueries"`
	LowResultQueries map[string]LowResultQueryStat `json:"lowResultQueries"`
	LastUpdated      *time.Time                    `json:"lastUpdated,omitempty"`
}

// LowResultQueryStat tracks queries that returned fewer than three results.
type LowResultQueryStat struct {
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}
