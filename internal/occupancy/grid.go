package occupancy

import (
	"strings"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// Day is one cell of a month grid.
type Day struct {
	Date     string `json:"date"`
	Day      int    `json:"day"`
	InMonth  bool   `json:"in_month"`
	Occupied bool   `json:"occupied"`
}

// Month is a grid of whole weeks covering one calendar month. Cells before
// the first and after the last day of the month are padding.
type Month struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Title string  `json:"title"`
	Weeks [][]Day `json:"weeks"`
}

// PropertyCalendar holds consecutive month grids for one property.
type PropertyCalendar struct {
	PropertyID string  `json:"property_id"`
	Title      string  `json:"title"`
	Months     []Month `json:"months"`
}

// ParseWeekStart maps "sunday" to time.Sunday and anything else to time.Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// GridWindow returns the first and last day shown by months grids starting
// at the month containing first, padding included.
func GridWindow(first time.Time, months int, weekStart time.Weekday) (from, to time.Time) {
	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := start.AddDate(0, months, -1)
	return weekFloor(start, weekStart), weekFloor(last, weekStart).AddDate(0, 0, 6)
}

// BuildMonth lays out the month containing month as whole weeks starting on
// weekStart, reading occupancy from ix.
func BuildMonth(ix *Index, propertyID string, month time.Time, weekStart time.Weekday) Month {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	m := Month{
		Year:  first.Year(),
		Month: int(first.Month()),
		Title: first.Format("January 2006"),
	}

	end := weekFloor(last, weekStart).AddDate(0, 0, 6)
	for d := weekFloor(first, weekStart); !d.After(end); {
		week := make([]Day, 7)
		for i := range week {
			week[i] = Day{
				Date:     d.Format(models.DateLayout),
				Day:      d.Day(),
				InMonth:  d.Month() == first.Month(),
				Occupied: ix.Occupied(propertyID, d),
			}
			d = d.AddDate(0, 0, 1)
		}
		m.Weeks = append(m.Weeks, week)
	}
	return m
}

// weekFloor moves d back to the closest weekStart on or before it.
func weekFloor(d time.Time, weekStart time.Weekday) time.Time {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
