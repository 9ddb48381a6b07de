package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/storagetest"
)

func TestPropertyRepository_ListWithFeed(t *testing.T) {
	db := storagetest.NewDB(t)
	ctx := context.Background()
	alice := storagetest.SeedUser(t, db, "alice@example.com")
	bob := storagetest.SeedUser(t, db, "bob@example.com")

	a1 := storagetest.SeedProperty(t, db, alice.ID, "A1", "https://example.com/a1.ics")
	storagetest.SeedProperty(t, db, alice.ID, "A2", "")
	b1 := storagetest.SeedProperty(t, db, bob.ID, "B1", "https://example.com/b1.ics")

	repo := storage.NewPropertyRepository(db)

	mine, err := repo.ListWithFeed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a1.ID, mine[0].ID)

	require.NoError(t, repo.SetLastSync(ctx, a1.ID, time.Now()))

	all, err := repo.ListWithFeed(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b1.ID, all[0].ID, "never-synced properties come first")
	assert.NotNil(t, all[1].LastSyncAt)
}

func TestPropertyRepository_DeleteCascadesReservations(t *testing.T) {
	db := storagetest.NewDB(t)
	ctx := context.Background()
	u := storagetest.SeedUser(t, db, "owner@example.com")
	p := storagetest.SeedProperty(t, db, u.ID, "Chalet", "")
	res := storagetest.SeedManual(t, db, p.ID, "Guest", "2024-07-01", "2024-07-03")

	require.NoError(t, storage.NewPropertyRepository(db).Delete(ctx, p.ID))

	_, err := storage.NewReservationRepository(db).GetByID(ctx, res.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPropertyRepository_GetMissing(t *testing.T) {
	db := storagetest.NewDB(t)
	_, err := storage.NewPropertyRepository(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
