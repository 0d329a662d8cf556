package domain

import "strings"

// QueryType selects the lookup strategy for people search.
type QueryType string

const (
	QueryTypeName    QueryType = "name"
	QueryTypeEmail   QueryType = "email"
	QueryTypePhone   QueryType = "phone"
	QueryTypeMixed   QueryType = "mixed"
	QueryTypePartial QueryType = "partial"
	QueryTypePing    QueryType = "ping"
)

// IsValid reports whether the query type is known. The empty type is valid
// and resolves to name search.
func (q QueryType) IsValid() bool {
	switch q {
	case "", QueryTypeName, QueryTypeEmail, QueryTypePhone, QueryTypeMixed, QueryTypePartial, QueryTypePing:
		return true
	}
	return false
}

// UserProfile is the searchable projection of a users document.
type UserProfile struct {
	UID            string  `json:"uid"`
	FirstName      string  `json:"firstName,omitempty"`
	LastName       string  `json:"lastName,omitempty"`
	DisplayName    string  `json:"displayName,omitempty"`
	Email          string  `json:"email,omitempty"`
	PhoneNumber    string  `json:"phoneNumber,omitempty"`
	PhotoURL       string  `json:"photoURL,omitempty"`
	CustomPhotoURL string  `json:"customPhotoURL,omitempty"`
	MatchScore     float64 `json:"matchScore,omitempty"`
}

// FullName joins first and last name.
func (u UserProfile) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasName reports whether any of the name fields is populated.
func (u UserProfile) HasName() bool {
	return u.FirstName != "" || u.LastName != "" || u.DisplayName != ""
}

// PrivacySettings is stored under users/{uid}.privacy. Absent flags mean searchable.
type PrivacySettings struct {
	IsFullyPrivate    bool  `json:"isFullyPrivate,omitempty"`
	SearchableByName  *bool `json:"searchableByName,omitempty"`
	SearchableByEmail *bool `json:"searchableByEmail,omitempty"`
	SearchableByPhone *bool `json:"searchableByPhone,omitempty"`
}

func allowed(flag *bool) bool {
	return flag == nil || *flag
}

// Allows reports whether a user with these settings may appear in results
// for the given query type.
func (p PrivacySettings) Allows(queryType QueryType) bool {
	if p.IsFullyPrivate {
		return false
	}
	switch queryType {
	case QueryTypeName, QueryTypePartial:
		return allowed(p.SearchableByName)
	case QueryTypeEmail:
		return allowed(p.SearchableByEmail)
	case QueryTypePhone:
		return allowed(p.SearchableByPhone)
	case QueryTypeMixed:
		return allowed(p.SearchableByName) || allowed(p.SearchableByEmail) || allowed(p.SearchableByPhone)
	default:
		return true
	}
}
