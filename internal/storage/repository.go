package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Queryable represents a database connection that can execute queries.
// Both *sql.DB and *sql.Tx implement this interface.
type Queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BaseRepository provides common functionality for all repositories.
type BaseRepository struct {
	q Queryable
}

// NewBaseRepository creates a base repository bound to q, which may be the
// pool or an open transaction.
func NewBaseRepository(q Queryable) BaseRepository {
	return BaseRepository{q: q}
}

// Q returns the bound query handle.
func (r *BaseRepository) Q() Queryable {
	return r.q
}

// Now returns the current time in UTC for database timestamps.
func (r *BaseRepository) Now() time.Time {
	return time.Now().UTC()
}

// GenerateID creates a new random UUID for use as a primary key.
func GenerateID() string {
	return uuid.NewString()
}

// Repositories groups the repositories bound to one query handle.
type Repositories struct {
	Users        *UserRepository
	Properties   *PropertyRepository
	Reservations *ReservationRepository
}

// NewRepositories binds every repository to q.
func NewRepositories(q Queryable) Repositories {
	return Repositories{
		Users:        NewUserRepository(q),
		Properties:   NewPropertyRepository(q),
		Reservations: NewReservationRepository(q),
	}
}
