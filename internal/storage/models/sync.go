package models

import (
	"time"
)

// SyncResult contains the results of one property's feed sync.
type SyncResult struct {
	PropertyID    string    `json:"property_id"`
	UserID        string    `json:"-"`
	PropertyTitle string    `json:"property_title"`
	EventsFound   int       `json:"events_found"`
	EventsSkipped int       `json:"events_skipped"`
	Created       int       `json:"created"`
	Updated       int       `json:"updated"`
	Unchanged     int       `json:"unchanged"`
	Stale         int       `json:"stale"`
	Error         error     `json:"-"`
	SyncedAt      time.Time `json:"synced_at"`
}

// Changed returns the number of reservations created or updated.
func (r *SyncResult) Changed() int {
	return r.Created + r.Updated
}
