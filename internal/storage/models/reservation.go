package models

import (
	"time"
)

// Reservation sources
const (
	SourceManual   = "manual"
	SourceImported = "imported"
)

// Reservation statuses. Only imported stays are ever cancelled, and only by
// the "cancel" stale policy.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// ImportedGuestPlaceholder is the guest name stored for feed events without a summary.
const ImportedGuestPlaceholder = "(iCal)"

// DateLayout is the storage and wire format of stay dates.
const DateLayout = "2006-01-02"

// Reservation is a stay occupying the nights in [StartDate, EndDate).
// Dates are whole days at UTC midnight and carry no timezone meaning.
type Reservation struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	GuestName  string    `json:"guest_name"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	TotalPrice *float64  `json:"total_price,omitempty"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsImported reports whether the reservation came from a feed.
func (r *Reservation) IsImported() bool {
	return r.Source == SourceImported
}

// IsActive reports whether the stay counts towards occupancy.
func (r *Reservation) IsActive() bool {
	return r.Status != StatusCancelled
}

// Nights returns the number of nights in the stay.
func (r *Reservation) Nights() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

// Date truncates t to its calendar date at UTC midnight, keeping the
// year/month/day as written in t's own location.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Overlaps is the half-open interval test [aStart, aEnd) ∩ [bStart, bEnd) ≠ ∅.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
