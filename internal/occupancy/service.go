package occupancy

import (
	"context"
	"fmt"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// ReservationLister reads active reservations intersecting a half-open
// window. *storage.ReservationRepository implements it.
type ReservationLister interface {
	ListOverlapping(ctx context.Context, propertyIDs []string, from, to time.Time) ([]models.Reservation, error)
}

// Service builds occupancy views from the current reservation store.
type Service struct {
	reservations ReservationLister
	weekStart    time.Weekday
}

// NewService creates an occupancy service. weekStart orders grid columns.
func NewService(reservations ReservationLister, weekStart time.Weekday) *Service {
	return &Service{reservations: reservations, weekStart: weekStart}
}

// Occupancy builds an index for the closed window [from, to].
func (s *Service) Occupancy(ctx context.Context, propertyIDs []string, from, to time.Time) (*Index, error) {
	from, to = models.Date(from), models.Date(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	reservations, err := s.reservations.ListOverlapping(ctx, propertyIDs, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("loading reservations: %w", err)
	}
	return Build(reservations, from, to), nil
}

// Calendar renders months consecutive month grids, starting with the month
// containing first, for each property.
func (s *Service) Calendar(ctx context.Context, properties []models.Property, first time.Time, months int) ([]PropertyCalendar, error) {
	if months < 1 {
		months = 1
	}
	from, to := GridWindow(first, months, s.weekStart)

	ids := make([]string, len(properties))
	for i, p := range properties {
		ids[i] = p.ID
	}
	ix, err := s.Occupancy(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]PropertyCalendar, 0, len(properties))
	for _, p := range properties {
		cal := PropertyCalendar{PropertyID: p.ID, Title: p.Title}
		month := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
		for range months {
			cal.Months = append(cal.Months, BuildMonth(ix, p.ID, month, s.weekStart))
			month = month.AddDate(0, 1, 0)
		}
		out = append(out, cal)
	}
	return out, nil
}
