package domain

import "time"

// Presence states.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// PresenceStatus mirrors the realtime /status/{uid} entry.
type PresenceStatus struct {
	State        string     `json:"state"`
	LastChanged  *time.Time `json:"last_changed,omitempty"`
	CustomStatus string     `json:"customStatus,omitempty"`
	StatusEmoji  string     `json:"statusEmoji,omitempty"`
}

// Contact sync statuses.
const (
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// ContactMatch is a registered user whose phone hash was found in a contact upload.
type ContactMatch struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Email          string `json:"email,omitempty"`
}

// ContactMatchResult is stored at user_contacts/{uid}.
type ContactMatchResult struct {
	Matches        []ContactMatch `json:"matches"`
	TotalProcessed int            `json:"totalProcessed"`
	TotalMatches   int            `json:"totalMatches"`
	LastUpdated    time.Time      `json:"lastUpdated"`
	SyncStatus     string         `json:"syncStatus"`
}
