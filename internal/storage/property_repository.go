package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staybook/backend/internal/storage/models"
)

// PropertyRepository provides data access for properties.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(q Queryable) *PropertyRepository {
	return &PropertyRepository{BaseRepository: NewBaseRepository(q)}
}

const propertyColumns = `id, user_id, title, feed_url, last_sync_at, created_at, updated_at`

// Create inserts a new property.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	p.ID = GenerateID()
	p.CreatedAt = r.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO properties (id, user_id, title, feed_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Title, p.FeedURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// GetByID retrieves a property by its ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	row := r.Q().QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)

	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}
	return p, nil
}

// ListByUser retrieves all properties owned by a user.
func (r *PropertyRepository) ListByUser(ctx context.Context, userID string) ([]models.Property, error) {
	return r.list(ctx, `SELECT `+propertyColumns+` FROM properties WHERE user_id = ? ORDER BY title`, userID)
}

// ListWithFeed retrieves properties with a non-empty feed URL, least recently
// synced first. An empty userID lists them system-wide.
func (r *PropertyRepository) ListWithFeed(ctx context.Context, userID string) ([]models.Property, error) {
	if userID == "" {
		return r.list(ctx, `
			SELECT `+propertyColumns+` FROM properties
			WHERE feed_url <> ''
			ORDER BY last_sync_at ASC NULLS FIRST, id
		`)
	}
	return r.list(ctx, `
		SELECT `+propertyColumns+` FROM properties
		WHERE feed_url <> '' AND user_id = ?
		ORDER BY last_sync_at ASC NULLS FIRST, id
	`, userID)
}

// Update updates the title and feed URL of a property.
func (r *PropertyRepository) Update(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE properties SET title = ?, feed_url = ?, updated_at = ? WHERE id = ?
	`, p.Title, p.FeedURL, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}
	return expectAffected(result, "property", p.ID)
}

// SetLastSync records the wall-clock time of a sync attempt.
func (r *PropertyRepository) SetLastSync(ctx context.Context, id string, at time.Time) error {
	result, err := r.Q().ExecContext(ctx, `
		UPDATE properties SET last_sync_at = ? WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating last sync: %w", err)
	}
	return expectAffected(result, "property", id)
}

// Delete removes a property; its reservations are removed by cascade.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return expectAffected(result, "property", id)
}

func (r *PropertyRepository) list(ctx context.Context, query string, args ...any) ([]models.Property, error) {
	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, *p)
	}

	return properties, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(s rowScanner) (*models.Property, error) {
	p := &models.Property{}
	if err := s.Scan(
		&p.ID, &p.UserID, &p.Title, &p.FeedURL,
		&p.LastSyncAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return p, nil
}

func expectAffected(result sql.Result, kind, id string) error {
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
