// Package storagetest opens migrated throwaway databases for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// NewDB opens a migrated SQLite database in a per-test temp directory.
func NewDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.RunMigrations(context.Background(), db, logging.Nop()))
	return db
}

// SeedUser inserts a user with the given email.
func SeedUser(t *testing.T, db *storage.DB, email string) *models.User {
	t.Helper()

	u := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, storage.NewUserRepository(db).Create(context.Background(), u))
	return u
}

// SeedProperty inserts a property owned by userID.
func SeedProperty(t *testing.T, db *storage.DB, userID, title, feedURL string) *models.Property {
	t.Helper()

	p := &models.Property{UserID: userID, Title: title, FeedURL: feedURL}
	require.NoError(t, storage.NewPropertyRepository(db).Create(context.Background(), p))
	return p
}

// SeedManual inserts a manual reservation for [start, end) given as YYYY-MM-DD.
func SeedManual(t *testing.T, db *storage.DB, propertyID, guest, start, end string) *models.Reservation {
	t.Helper()

	res := &models.Reservation{
		PropertyID: propertyID,
		Source:     models.SourceManual,
		GuestName:  guest,
		StartDate:  MustDate(t, start),
		EndDate:    MustDate(t, end),
	}
	require.NoError(t, storage.NewReservationRepository(db).Create(context.Background(), res))
	return res
}

// MustDate parses YYYY-MM-DD or fails the test.
func MustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}
