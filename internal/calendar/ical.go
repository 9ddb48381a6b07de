// Package calendar implements external calendar synchronization: fetching
// iCal feeds, normalizing their events into whole-day stays, reconciling them
// with stored reservations, and scheduling periodic sweeps.
package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"

	"github.com/staybook/backend/internal/storage/models"
)

// MaxExternalIDLength bounds stored external identifiers.
const MaxExternalIDLength = 255

// Event is a normalized feed event: a whole-day stay [Start, End) with a
// stable identifier.
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

// Normalizer turns raw iCal text into normalized events.
type Normalizer struct {
	// horizon limits RRULE expansion, counted from each event's DTSTART.
	horizon time.Duration
}

// NewNormalizer creates a Normalizer that expands recurring events for at
// most horizonDays days after their first occurrence.
func NewNormalizer(horizonDays int) *Normalizer {
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return &Normalizer{horizon: time.Duration(horizonDays) * 24 * time.Hour}
}

// Normalize parses raw calendar text. A body that is not a calendar fails
// with ErrFeedMalformed. Otherwise the returned sequence yields one Event per
// usable occurrence in feed order; events whose dates cannot be parsed are
// reported to skip (which may be nil) and left out. The sequence is single
// pass: ranging over it a second time yields nothing.
func (n *Normalizer) Normalize(raw []byte, skip func(*EventError)) (iter.Seq[Event], error) {
	if !bytes.Contains(raw, []byte("BEGIN:VCALENDAR")) {
		return nil, fmt.Errorf("%w: no VCALENDAR component", ErrFeedMalformed)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedMalformed, err)
	}
	vevents := cal.Events()
	overrides := recurrenceOverrides(vevents)

	consumed := false
	return func(yield func(Event) bool) {
		if consumed {
			return
		}
		consumed = true

		for _, ve := range vevents {
			events, err := n.normalizeVEvent(ve, overrides)
			if err != nil {
				if skip != nil {
					skip(err)
				}
				continue
			}
			for _, ev := range events {
				if !yield(ev) {
					return
				}
			}
		}
	}, nil
}

func (n *Normalizer) normalizeVEvent(ve *ical.VEvent, overrides map[string]map[string]bool) ([]Event, *EventError) {
	uid := propertyText(ve, ical.ComponentPropertyUniqueId)
	summary := propertyText(ve, ical.ComponentPropertySummary)
	fail := func(err error) ([]Event, *EventError) {
		return nil, &EventError{UID: uid, Summary: summary, Err: err}
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return fail(errors.New("missing DTSTART"))
	}
	start, err := parseDate(startProp.Value)
	if err != nil {
		return fail(fmt.Errorf("DTSTART: %w", err))
	}

	var end time.Time
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if end, err = parseDate(endProp.Value); err != nil {
			return fail(fmt.Errorf("DTEND: %w", err))
		}
	} else {
		end = start.AddDate(0, 0, durationDays(propertyText(ve, "DURATION")))
	}

	switch {
	case end.Equal(start):
		// Same-day timed event: it still occupies that day.
		end = start.AddDate(0, 0, 1)
	case end.Before(start):
		return fail(fmt.Errorf("DTEND %s before DTSTART %s",
			end.Format(models.DateLayout), start.Format(models.DateLayout)))
	}

	if rid := propertyText(ve, "RECURRENCE-ID"); rid != "" && uid != "" {
		// An overridden occurrence replaces the one the master's RRULE
		// would have produced, under the same identifier.
		d, err := parseDate(rid)
		if err != nil {
			return fail(fmt.Errorf("RECURRENCE-ID: %w", err))
		}
		return []Event{{
			UID:     truncateID(occurrenceID(uid, d)),
			Summary: summary,
			Start:   start,
			End:     end,
		}}, nil
	}

	if uid == "" {
		uid = fmt.Sprintf("%s-%s-%s", summary, start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	base := Event{UID: truncateID(uid), Summary: summary, Start: start, End: end}

	rule := propertyText(ve, ical.ComponentPropertyRrule)
	if rule == "" {
		return []Event{base}, nil
	}

	occurrences, err := n.expand(base, rule, exDates(ve), overrides[uid])
	if err != nil {
		return fail(fmt.Errorf("RRULE: %w", err))
	}
	return occurrences, nil
}

// dateLayouts are tried in order. Timed values keep only the date written in
// the feed: stays are whole days and carry no timezone.
var dateLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

var durationPattern = regexp.MustCompile(`^\+?P(?:(\d+)W|(\d+)D)`)

// durationDays reads the whole days of an iCal DURATION. Missing or
// sub-day durations count as one day.
func durationDays(value string) int {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 1
	}
	if m[1] != "" {
		w, _ := strconv.Atoi(m[1])
		return max(w*7, 1)
	}
	d, _ := strconv.Atoi(m[2])
	return max(d, 1)
}

// recurrenceOverrides maps each UID to the occurrence dates (YYYYMMDD) that
// a separate VEVENT with RECURRENCE-ID replaces.
func recurrenceOverrides(vevents []*ical.VEvent) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, ve := range vevents {
		uid := propertyText(ve, ical.ComponentPropertyUniqueId)
		rid := propertyText(ve, "RECURRENCE-ID")
		if uid == "" || rid == "" {
			continue
		}
		d, err := parseDate(rid)
		if err != nil {
			continue
		}
		if out[uid] == nil {
			out[uid] = make(map[string]bool)
		}
		out[uid][d.Format(occurrenceLayout)] = true
	}
	return out
}

func exDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if d, err := parseDate(part); err == nil {
				out = append(out, d)
			}
		}
	}
	return out
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func propertyText(ve *ical.VEvent, name ical.ComponentProperty) string {
	p := ve.GetProperty(name)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(textUnescaper.Replace(p.Value))
}

func truncateID(id string) string {
	if utf8.RuneCountInString(id) <= MaxExternalIDLength {
		return id
	}
	runes := []rune(id)
	return string(runes[:MaxExternalIDLength])
}
