package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
	"github.com/staybook/backend/internal/storage/storagetest"
)

func ptr[T any](v T) *T { return &v }

func TestReservationRepository_ExternalIDIsUniquePerProperty(t *testing.T) {
	db := storagetest.NewDB(t)
	ctx := context.Background()
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p1 := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")
	p2 := storagetest.SeedProperty(t, db, u.ID, "Loft", "")
	repo := storage.NewReservationRepository(db)

	newImported := func(propertyID string) *models.Reservation {
		return &models.Reservation{
			PropertyID: propertyID,
			Source:     models.SourceImported,
			GuestName:  "Guest",
			StartDate:  storagetest.MustDate(t, "2024-09-01"),
			EndDate:    storagetest.MustDate(t, "2024-09-04"),
			ExternalID: ptr("abc123"),
		}
	}

	require.NoError(t, repo.Create(ctx, newImported(p1.ID)))
	require.NoError(t, repo.Create(ctx, newImported(p2.ID)), "same key on another property is allowed")
	assert.Error(t, repo.Create(ctx, newImported(p1.ID)), "duplicate key on same property must fail")

	got, err := repo.FindByExternalID(ctx, p1.ID, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "2024-09-01", got.StartDate.Format(models.DateLayout))
	assert.Equal(t, models.StatusConfirmed, got.Status)

	_, err = repo.FindByExternalID(ctx, p1.ID, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReservationRepository_ManualWithoutExternalIDNeverCollide(t *testing.T) {
	db := storagetest.NewDB(t)
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")

	storagetest.SeedManual(t, db, p.ID, "A", "2024-07-01", "2024-07-05")
	storagetest.SeedManual(t, db, p.ID, "A", "2024-07-01", "2024-07-05")

	all, err := storage.NewReservationRepository(db).ListByProperty(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReservationRepository_RejectsEmptyStay(t *testing.T) {
	db := storagetest.NewDB(t)
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")

	err := storage.NewReservationRepository(db).Create(context.Background(), &models.Reservation{
		PropertyID: p.ID,
		Source:     models.SourceManual,
		StartDate:  storagetest.MustDate(t, "2024-07-05"),
		EndDate:    storagetest.MustDate(t, "2024-07-05"),
	})
	assert.Error(t, err)
}

func TestReservationRepository_ListOverlappingIsHalfOpen(t *testing.T) {
	db := storagetest.NewDB(t)
	ctx := context.Background()
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")
	repo := storage.NewReservationRepository(db)

	storagetest.SeedManual(t, db, p.ID, "before", "2024-06-01", "2024-06-10")
	inside := storagetest.SeedManual(t, db, p.ID, "inside", "2024-06-10", "2024-06-13")
	storagetest.SeedManual(t, db, p.ID, "after", "2024-06-13", "2024-06-15")

	got, err := repo.ListOverlapping(ctx, []string{p.ID},
		storagetest.MustDate(t, "2024-06-10"), storagetest.MustDate(t, "2024-06-13"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)

	require.NoError(t, repo.SetStatus(ctx, inside.ID, models.StatusCancelled))
	got, err = repo.ListOverlapping(ctx, []string{p.ID},
		storagetest.MustDate(t, "2024-06-10"), storagetest.MustDate(t, "2024-06-13"))
	require.NoError(t, err)
	assert.Empty(t, got, "cancelled stays are not listed")
}

func TestReservationRepository_UpdateImportedKeepsPrice(t *testing.T) {
	db := storagetest.NewDB(t)
	ctx := context.Background()
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")
	repo := storage.NewReservationRepository(db)

	res := &models.Reservation{
		PropertyID: p.ID,
		Source:     models.SourceImported,
		GuestName:  "Old",
		StartDate:  storagetest.MustDate(t, "2024-09-01"),
		EndDate:    storagetest.MustDate(t, "2024-09-04"),
		ExternalID: ptr("uid-1"),
	}
	require.NoError(t, repo.Create(ctx, res))
	require.NoError(t, repo.SetPrice(ctx, res.ID, ptr(420.0)))

	res.StartDate = storagetest.MustDate(t, "2024-09-02")
	res.GuestName = "New"
	require.NoError(t, repo.UpdateImported(ctx, res))

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.GuestName)
	assert.Equal(t, "2024-09-02", got.StartDate.Format(models.DateLayout))
	require.NotNil(t, got.TotalPrice)
	assert.InDelta(t, 420.0, *got.TotalPrice, 0.001)
}

func TestReservationRepository_UpdateImportedIgnoresManual(t *testing.T) {
	db := storagetest.NewDB(t)
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")
	manual := storagetest.SeedManual(t, db, p.ID, "Walk-in", "2024-07-01", "2024-07-03")

	manual.GuestName = "Overwritten"
	err := storage.NewReservationRepository(db).UpdateImported(context.Background(), manual)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
