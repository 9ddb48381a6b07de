package calendar

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/staybook/backend/internal/config"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// Reconciler merges normalized feed events into a property's reservations.
// Manual reservations are never read for matching nor written.
type Reconciler struct {
	db          *storage.DB
	stalePolicy string
	now         func() time.Time
}

// NewReconciler creates a Reconciler. stalePolicy is one of config.StaleKeep,
// config.StaleCancel or config.StaleDelete and decides what happens to
// imported reservations whose event is no longer in the feed.
func NewReconciler(db *storage.DB, stalePolicy string) *Reconciler {
	return &Reconciler{
		db:          db,
		stalePolicy: stalePolicy,
		now:         time.Now,
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeUnchanged
)

// Reconcile applies events to property p in one transaction: each event
// updates the imported reservation carrying its identifier in place, or
// creates one. The stale policy runs afterwards and the property's last sync
// time is recorded. Either all of it commits or none of it does. Counts are
// added to result only on commit.
//
// The normalizer's skip callback counts into result.EventsSkipped while
// events is ranged. If that count grows, the feed was not fully parsed and
// the stale policy is not applied: a skipped event's stay is still listed.
func (r *Reconciler) Reconcile(ctx context.Context, p *models.Property, events iter.Seq[Event], result *models.SyncResult) error {
	syncedAt := r.now().UTC()
	skippedBefore := result.EventsSkipped
	var counts models.SyncResult

	err := r.db.WithTx(ctx, func(tx storage.Queryable) error {
		repos := storage.NewRepositories(tx)
		seen := make(map[string]bool)

		for ev := range events {
			counts.EventsFound++
			seen[ev.UID] = true

			o, err := r.apply(ctx, repos.Reservations, p.ID, ev)
			if err != nil {
				return err
			}
			switch o {
			case outcomeCreated:
				counts.Created++
			case outcomeUpdated:
				counts.Updated++
			default:
				counts.Unchanged++
			}
		}

		if result.EventsSkipped == skippedBefore {
			stale, err := r.handleStale(ctx, repos.Reservations, p.ID, seen)
			if err != nil {
				return err
			}
			counts.Stale = stale
		}

		return repos.Properties.SetLastSync(ctx, p.ID, syncedAt)
	})
	if err != nil {
		return fmt.Errorf("reconciling property %s: %w", p.ID, err)
	}

	result.EventsFound += counts.EventsFound
	result.Created += counts.Created
	result.Updated += counts.Updated
	result.Unchanged += counts.Unchanged
	result.Stale += counts.Stale
	result.SyncedAt = syncedAt
	p.LastSyncAt = &syncedAt
	return nil
}

func (r *Reconciler) apply(ctx context.Context, repo *storage.ReservationRepository, propertyID string, ev Event) (outcome, error) {
	existing, err := repo.FindByExternalID(ctx, propertyID, ev.UID)
	if errors.Is(err, storage.ErrNotFound) {
		guest := ev.Summary
		if guest == "" {
			guest = models.ImportedGuestPlaceholder
		}
		uid := ev.UID
		zero := 0.0
		res := &models.Reservation{
			PropertyID: propertyID,
			Source:     models.SourceImported,
			Status:     models.StatusConfirmed,
			GuestName:  guest,
			StartDate:  ev.Start,
			EndDate:    ev.End,
			TotalPrice: &zero,
			ExternalID: &uid,
		}
		if err := repo.Create(ctx, res); err != nil {
			return 0, err
		}
		return outcomeCreated, nil
	}
	if err != nil {
		return 0, err
	}

	if !existing.IsImported() {
		return outcomeUnchanged, nil
	}

	changed := !existing.StartDate.Equal(ev.Start) ||
		!existing.EndDate.Equal(ev.End) ||
		existing.Status != models.StatusConfirmed ||
		(ev.Summary != "" && ev.Summary != existing.GuestName)
	if !changed {
		return outcomeUnchanged, nil
	}

	existing.StartDate = ev.Start
	existing.EndDate = ev.End
	existing.Status = models.StatusConfirmed
	if ev.Summary != "" {
		existing.GuestName = ev.Summary
	}
	if err := repo.UpdateImported(ctx, existing); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

// handleStale applies the stale policy to imported reservations whose
// identifier was not seen in this pass and returns how many it touched.
func (r *Reconciler) handleStale(ctx context.Context, repo *storage.ReservationRepository, propertyID string, seen map[string]bool) (int, error) {
	if r.stalePolicy != config.StaleCancel && r.stalePolicy != config.StaleDelete {
		return 0, nil
	}

	imported, err := repo.ListImported(ctx, propertyID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, res := range imported {
		if res.ExternalID == nil || seen[*res.ExternalID] {
			continue
		}
		switch r.stalePolicy {
		case config.StaleCancel:
			if !res.IsActive() {
				continue
			}
			err = repo.SetStatus(ctx, res.ID, models.StatusCancelled)
		case config.StaleDelete:
			err = repo.Delete(ctx, res.ID)
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
