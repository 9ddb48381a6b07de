package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// ReservationRepository provides data access for reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(q Queryable) *ReservationRepository {
	return &ReservationRepository{BaseRepository: NewBaseRepository(q)}
}

const reservationColumns = `id, property_id, source, status, guest_name, start_date, end_date,
	total_price, external_id, created_at, updated_at`

// Create inserts a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	if !res.EndDate.After(res.StartDate) {
		return fmt.Errorf("inserting reservation: end date %s not after start date %s",
			res.EndDate.Format(models.DateLayout), res.StartDate.Format(models.DateLayout))
	}

	res.ID = GenerateID()
	res.CreatedAt = r.Now()
	res.UpdatedAt = res.CreatedAt
	if res.Status == "" {
		res.Status = models.StatusConfirmed
	}

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO reservations (
			id, property_id, source, status, guest_name, start_date, end_date,
			total_price, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.PropertyID, res.Source, res.Status, res.GuestName,
		res.StartDate.Format(models.DateLayout), res.EndDate.Format(models.DateLayout),
		res.TotalPrice, res.ExternalID, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by its ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	row := r.Q().QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return r.one(row)
}

// FindByExternalID looks a reservation up by its dedup key.
// Returns ErrNotFound when no reservation carries the key.
func (r *ReservationRepository) FindByExternalID(ctx context.Context, propertyID, externalID string) (*models.Reservation, error) {
	row := r.Q().QueryRowContext(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE property_id = ? AND external_id = ?
	`, propertyID, externalID)
	return r.one(row)
}

// UpdateImported rewrites the feed-owned fields of an imported reservation:
// dates, guest name and status. Price and source are left untouched.
func (r *ReservationRepository) UpdateImported(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE reservations SET
			start_date = ?, end_date = ?, guest_name = ?, status = ?, updated_at = ?
		WHERE id = ? AND source = 'imported'
	`,
		res.StartDate.Format(models.DateLayout), res.EndDate.Format(models.DateLayout),
		res.GuestName, res.Status, res.UpdatedAt, res.ID,
	)
	if err != nil {
		return fmt.Errorf("updating imported reservation: %w", err)
	}
	return expectAffected(result, "imported reservation", res.ID)
}

// UpdateManual rewrites a manual reservation.
func (r *ReservationRepository) UpdateManual(ctx context.Context, res *models.Reservation) error {
	if !res.EndDate.After(res.StartDate) {
		return fmt.Errorf("updating reservation: end date not after start date")
	}
	res.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE reservations SET
			start_date = ?, end_date = ?, guest_name = ?, total_price = ?, updated_at = ?
		WHERE id = ? AND source = 'manual'
	`,
		res.StartDate.Format(models.DateLayout), res.EndDate.Format(models.DateLayout),
		res.GuestName, res.TotalPrice, res.UpdatedAt, res.ID,
	)
	if err != nil {
		return fmt.Errorf("updating manual reservation: %w", err)
	}
	return expectAffected(result, "manual reservation", res.ID)
}

// SetPrice annotates any reservation with a total price.
func (r *ReservationRepository) SetPrice(ctx context.Context, id string, price *float64) error {
	result, err := r.Q().ExecContext(ctx, `
		UPDATE reservations SET total_price = ?, updated_at = ? WHERE id = ?
	`, price, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating price: %w", err)
	}
	return expectAffected(result, "reservation", id)
}

// SetStatus changes the status of a reservation.
func (r *ReservationRepository) SetStatus(ctx context.Context, id, status string) error {
	result, err := r.Q().ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?
	`, status, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return expectAffected(result, "reservation", id)
}

// Delete removes a reservation by ID.
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reservation: %w", err)
	}
	return expectAffected(result, "reservation", id)
}

// ListByProperty retrieves all reservations of a property ordered by start date.
func (r *ReservationRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE property_id = ?
		ORDER BY start_date, id
	`, propertyID)
}

// ListImported retrieves the imported reservations of a property.
func (r *ReservationRepository) ListImported(ctx context.Context, propertyID string) ([]models.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE property_id = ? AND source = 'imported'
		ORDER BY start_date, id
	`, propertyID)
}

// ListOverlapping retrieves the active reservations of the given properties
// whose stay [start_date, end_date) intersects [from, to).
func (r *ReservationRepository) ListOverlapping(ctx context.Context, propertyIDs []string, from, to time.Time) ([]models.Reservation, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(propertyIDs)), ",")
	args := make([]any, 0, len(propertyIDs)+2)
	for _, id := range propertyIDs {
		args = append(args, id)
	}
	args = append(args, to.Format(models.DateLayout), from.Format(models.DateLayout))

	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE property_id IN (`+placeholders+`)
		  AND status <> 'cancelled'
		  AND start_date < ? AND end_date > ?
		ORDER BY property_id, start_date, id
	`, args...)
}

func (r *ReservationRepository) one(row *sql.Row) (*models.Reservation, error) {
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}

	return reservations, rows.Err()
}

func scanReservation(s rowScanner) (*models.Reservation, error) {
	res := &models.Reservation{}
	var start, end string
	if err := s.Scan(
		&res.ID, &res.PropertyID, &res.Source, &res.Status, &res.GuestName,
		&start, &end, &res.TotalPrice, &res.ExternalID,
		&res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if res.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	if res.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	return res, nil
}
