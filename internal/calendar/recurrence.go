package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/staybook/backend/internal/storage/models"
)

const occurrenceLayout = "20060102"

func occurrenceID(uid string, day time.Time) string {
	return uid + "/" + day.Format(occurrenceLayout)
}

// expand turns a recurring event into one stay per occurrence within the
// horizon after its first start. Each occurrence keeps the base stay length
// and gets the identifier "<uid>/<YYYYMMDD>". Dates in overridden are left
// to their RECURRENCE-ID events.
func (n *Normalizer) expand(base Event, rule string, exdates []time.Time, overridden map[string]bool) ([]Event, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, err
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex)
	}

	nights := base.End.Sub(base.Start)
	starts := set.Between(base.Start, base.Start.Add(n.horizon), true)

	events := make([]Event, 0, len(starts))
	for _, s := range starts {
		start := models.Date(s)
		if overridden[start.Format(occurrenceLayout)] {
			continue
		}
		events = append(events, Event{
			UID:     truncateID(occurrenceID(base.UID, start)),
			Summary: base.Summary,
			Start:   start,
			End:     start.Add(nights),
		})
	}
	return events, nil
}
