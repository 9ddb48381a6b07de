// Package occupancy derives per-day busy maps from stored reservations and
// answers overlap questions about proposed stays.
package occupancy

import (
	"sort"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// Key identifies one property on one calendar day.
type Key struct {
	PropertyID string
	Day        time.Time
}

// Index maps (property, day) to occupied for a closed window of days. It is
// built per request and never mutated afterwards.
type Index struct {
	From time.Time
	To   time.Time

	occupied map[Key]bool
}

// Build marks every day d in [start, end) of each active reservation that
// falls inside the closed window [from, to]. Overlapping reservations simply
// mark the same days; overlap is not an error here.
func Build(reservations []models.Reservation, from, to time.Time) *Index {
	from, to = models.Date(from), models.Date(to)
	ix := &Index{From: from, To: to, occupied: make(map[Key]bool)}

	for _, r := range reservations {
		if !r.IsActive() {
			continue
		}
		d := r.StartDate
		if d.Before(from) {
			d = from
		}
		for ; d.Before(r.EndDate) && !d.After(to); d = d.AddDate(0, 0, 1) {
			ix.occupied[Key{PropertyID: r.PropertyID, Day: d}] = true
		}
	}
	return ix
}

// Occupied reports whether the property is busy on day.
func (ix *Index) Occupied(propertyID string, day time.Time) bool {
	return ix.occupied[Key{PropertyID: propertyID, Day: models.Date(day)}]
}

// Len returns the number of occupied (property, day) pairs.
func (ix *Index) Len() int {
	return len(ix.occupied)
}

// Days returns the occupied days of a property in ascending order.
func (ix *Index) Days(propertyID string) []time.Time {
	var days []time.Time
	for k := range ix.occupied {
		if k.PropertyID == propertyID {
			days = append(days, k.Day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// ByProperty returns occupied days formatted as YYYY-MM-DD, keyed by
// property id. Every id in propertyIDs is present, possibly with no days.
func (ix *Index) ByProperty(propertyIDs []string) map[string][]string {
	out := make(map[string][]string, len(propertyIDs))
	for _, id := range propertyIDs {
		days := ix.Days(id)
		formatted := make([]string, len(days))
		for i, d := range days {
			formatted[i] = d.Format(models.DateLayout)
		}
		out[id] = formatted
	}
	return out
}
