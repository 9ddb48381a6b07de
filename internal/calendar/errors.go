package calendar

import (
	"errors"
	"fmt"
)

// Sync failure classes. Callers classify with errors.Is.
var (
	// ErrFeedUnreachable covers network errors, timeouts and non-2xx statuses.
	ErrFeedUnreachable = errors.New("feed unreachable")
	// ErrFeedMalformed means the body could not be parsed as a calendar at all.
	ErrFeedMalformed = errors.New("feed malformed")
	// ErrInvalidFeedURL means the URL failed the pattern or reachability check.
	ErrInvalidFeedURL = errors.New("invalid feed url")
)

// EventError describes one feed event that was skipped because its dates
// could not be parsed. It never fails a sync.
type EventError struct {
	UID     string
	Summary string
	Err     error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %q (%s): %v", e.UID, e.Summary, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}
