package occupancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// ErrInvalidRange is returned for a proposed stay whose end is not after its start.
var ErrInvalidRange = errors.New("end date must be after start date")

// Conflict describes an existing reservation that overlaps a proposed stay.
type Conflict struct {
	ReservationID string    `json:"reservation_id"`
	GuestName     string    `json:"guest_name"`
	Source        string    `json:"source"`
	OverlapStart  time.Time `json:"overlap_start"`
	OverlapEnd    time.Time `json:"overlap_end"`
}

// CheckConflicts lists the active reservations of propertyID that overlap
// the proposed stay [start, end). excludeID skips one reservation, so an
// edited stay is not reported against itself.
func (s *Service) CheckConflicts(ctx context.Context, propertyID string, start, end time.Time, excludeID string) ([]Conflict, error) {
	start, end = models.Date(start), models.Date(end)
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	existing, err := s.reservations.ListOverlapping(ctx, []string{propertyID}, start, end)
	if err != nil {
		return nil, fmt.Errorf("checking conflicts: %w", err)
	}

	var conflicts []Conflict
	for _, r := range existing {
		if r.ID == excludeID || !r.IsActive() || !models.Overlaps(start, end, r.StartDate, r.EndDate) {
			continue
		}

		overlapStart := start
		if r.StartDate.After(overlapStart) {
			overlapStart = r.StartDate
		}
		overlapEnd := end
		if r.EndDate.Before(overlapEnd) {
			overlapEnd = r.EndDate
		}

		conflicts = append(conflicts, Conflict{
			ReservationID: r.ID,
			GuestName:     r.GuestName,
			Source:        r.Source,
			OverlapStart:  overlapStart,
			OverlapEnd:    overlapEnd,
		})
	}

	return conflicts, nil
}

// HasConflict reports whether CheckConflicts finds anything.
func (s *Service) HasConflict(ctx context.Context, propertyID string, start, end time.Time, excludeID string) (bool, error) {
	conflicts, err := s.CheckConflicts(ctx, propertyID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Conflicts reports whether a proposed stay [start, end) overlaps any
// existing active reservation of the property.
func (s *Service) Conflicts(ctx context.Context, propertyID string, start, end time.Time) (bool, error) {
	return s.HasConflict(ctx, propertyID, start, end, "")
}
