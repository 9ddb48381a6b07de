package calendar

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/storage/models"
)

func feed(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, e := range events {
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(e), "\n", "\r\n"))
		b.WriteString("\r\nEND:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func normalizeAll(t *testing.T, raw []byte) ([]Event, []*EventError) {
	t.Helper()

	var skipped []*EventError
	seq, err := NewNormalizer(365).Normalize(raw, func(e *EventError) { skipped = append(skipped, e) })
	require.NoError(t, err)
	return slices.Collect(seq), skipped
}

func day(e Event) (string, string) {
	return e.Start.Format(models.DateLayout), e.End.Format(models.DateLayout)
}

func TestNormalize_AllDayEvent(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:abc123
SUMMARY:J. Doe
DTSTART;VALUE=DATE:20240701
DTEND;VALUE=DATE:20240705`))

	require.Empty(t, skipped)
	require.Len(t, events, 1)
	assert.Equal(t, "abc123", events[0].UID)
	assert.Equal(t, "J. Doe", events[0].Summary)
	start, end := day(events[0])
	assert.Equal(t, "2024-07-01", start)
	assert.Equal(t, "2024-07-05", end)
}

func TestNormalize_TimedEventKeepsLiteralDate(t *testing.T) {
	events, _ := normalizeAll(t, feed(`
UID:late-checkin
DTSTART;TZID=America/New_York:20240610T230000
DTEND;TZID=America/New_York:20240613T100000`, `
UID:utc
DTSTART:20240801T220000Z
DTEND:20240803T090000Z`))

	require.Len(t, events, 2)
	start, end := day(events[0])
	assert.Equal(t, "2024-06-10", start)
	assert.Equal(t, "2024-06-13", end)
	start, end = day(events[1])
	assert.Equal(t, "2024-08-01", start)
	assert.Equal(t, "2024-08-03", end)
}

func TestNormalize_EndDefaults(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:no-end
DTSTART;VALUE=DATE:20240901`, `
UID:duration
DTSTART;VALUE=DATE:20240901
DURATION:P3D`, `
UID:same-day
DTSTART:20240901T100000
DTEND:20240901T150000`))

	require.Empty(t, skipped)
	require.Len(t, events, 3)

	_, end := day(events[0])
	assert.Equal(t, "2024-09-02", end)
	_, end = day(events[1])
	assert.Equal(t, "2024-09-04", end)
	_, end = day(events[2])
	assert.Equal(t, "2024-09-02", end, "same-day events still occupy their day")
}

func TestNormalize_MissingUIDIsSynthesizedDeterministically(t *testing.T) {
	raw := feed(`
SUMMARY:Blocked
DTSTART;VALUE=DATE:20240610
DTEND;VALUE=DATE:20240613`)

	first, _ := normalizeAll(t, raw)
	second, _ := normalizeAll(t, raw)

	require.Len(t, first, 1)
	assert.Equal(t, "Blocked-2024-06-10-2024-06-13", first[0].UID)
	assert.Equal(t, first, second)
}

func TestNormalize_TruncatesLongUID(t *testing.T) {
	long := strings.Repeat("é", 300)
	events, _ := normalizeAll(t, feed("UID:"+long+"\nDTSTART;VALUE=DATE:20240610\nDTEND;VALUE=DATE:20240611"))

	require.Len(t, events, 1)
	assert.Equal(t, MaxExternalIDLength, len([]rune(events[0].UID)))
}

func TestNormalize_SkipsBadEventsAndKeepsTheRest(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:good-1
DTSTART;VALUE=DATE:20240601
DTEND;VALUE=DATE:20240603`, `
UID:bad-date
DTSTART:not-a-date
DTEND;VALUE=DATE:20240603`, `
UID:backwards
DTSTART;VALUE=DATE:20240610
DTEND;VALUE=DATE:20240605`, `
UID:no-start
SUMMARY:Nothing`, `
UID:good-2
DTSTART;VALUE=DATE:20240620
DTEND;VALUE=DATE:20240622`))

	uids := make([]string, 0, len(events))
	for _, e := range events {
		uids = append(uids, e.UID)
	}
	assert.Equal(t, []string{"good-1", "good-2"}, uids)

	require.Len(t, skipped, 3)
	assert.Equal(t, "bad-date", skipped[0].UID)
	assert.Equal(t, "backwards", skipped[1].UID)
	assert.Equal(t, "no-start", skipped[2].UID)
}

func TestNormalize_MalformedFeed(t *testing.T) {
	n := NewNormalizer(365)

	_, err := n.Normalize([]byte("<html>not found</html>"), nil)
	assert.ErrorIs(t, err, ErrFeedMalformed)

	_, err = n.Normalize(nil, nil)
	assert.ErrorIs(t, err, ErrFeedMalformed)
}

func TestNormalize_EmptyCalendar(t *testing.T) {
	events, skipped := normalizeAll(t, feed())
	assert.Empty(t, events)
	assert.Empty(t, skipped)
}

func TestNormalize_SequenceIsSinglePass(t *testing.T) {
	seq, err := NewNormalizer(365).Normalize(feed(`
UID:a
DTSTART;VALUE=DATE:20240601
DTEND;VALUE=DATE:20240603`), nil)
	require.NoError(t, err)

	assert.Len(t, slices.Collect(seq), 1)
	assert.Empty(t, slices.Collect(seq))
}

func TestNormalize_ExpandsRecurringEvents(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:cleaning
SUMMARY:Cleaning block
DTSTART;VALUE=DATE:20240603
DTEND;VALUE=DATE:20240604
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE;VALUE=DATE:20240617`))

	require.Empty(t, skipped)
	require.Len(t, events, 3)

	want := []string{"cleaning/20240603", "cleaning/20240610", "cleaning/20240624"}
	for i, e := range events {
		assert.Equal(t, want[i], e.UID)
		assert.Equal(t, 24*60*60, int(e.End.Sub(e.Start).Seconds()))
	}
}

func TestNormalize_RecurrenceOverrideReplacesOccurrence(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:cleaning
SUMMARY:Cleaning block
RECURRENCE-ID;VALUE=DATE:20240610
DTSTART;VALUE=DATE:20240611
DTEND;VALUE=DATE:20240613`, `
UID:cleaning
SUMMARY:Cleaning block
DTSTART;VALUE=DATE:20240603
DTEND;VALUE=DATE:20240604
RRULE:FREQ=WEEKLY;COUNT=3`))

	require.Empty(t, skipped)
	require.Len(t, events, 3)

	byID := make(map[string]Event)
	for _, e := range events {
		_, dup := byID[e.UID]
		require.False(t, dup, "duplicate identifier %s", e.UID)
		byID[e.UID] = e
	}
	moved, ok := byID["cleaning/20240610"]
	require.True(t, ok)
	assert.Equal(t, "2024-06-11", moved.Start.Format(models.DateLayout))
	assert.Equal(t, "2024-06-13", moved.End.Format(models.DateLayout))
	assert.Contains(t, byID, "cleaning/20240603")
	assert.Contains(t, byID, "cleaning/20240617")
}

func TestNormalize_RecurrenceStopsAtHorizon(t *testing.T) {
	seq, err := NewNormalizer(30).Normalize(feed(`
UID:daily
DTSTART;VALUE=DATE:20240601
DTEND;VALUE=DATE:20240602
RRULE:FREQ=DAILY`), nil)
	require.NoError(t, err)

	events := slices.Collect(seq)
	assert.Len(t, events, 31)
}

func TestNormalize_BadRRuleIsSkipped(t *testing.T) {
	events, skipped := normalizeAll(t, feed(`
UID:weird
DTSTART;VALUE=DATE:20240601
DTEND;VALUE=DATE:20240602
RRULE:FREQ=SOMETIMES`))

	assert.Empty(t, events)
	require.Len(t, skipped, 1)
	assert.Equal(t, "weird", skipped[0].UID)
}

func TestDurationDays(t *testing.T) {
	assert.Equal(t, 1, durationDays(""))
	assert.Equal(t, 1, durationDays("PT4H"))
	assert.Equal(t, 2, durationDays("P2D"))
	assert.Equal(t, 14, durationDays("P2W"))
	assert.Equal(t, 3, durationDays("P3DT12H"))
}
