package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// FeedFetcher retrieves a raw feed body.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Notifier is told about every finished property sync.
type Notifier interface {
	BroadcastSyncCompleted(result models.SyncResult)
	BroadcastSyncError(result models.SyncResult)
}

// SyncService runs fetch, normalize and reconcile for properties.
type SyncService struct {
	properties *storage.PropertyRepository
	fetcher    FeedFetcher
	normalizer *Normalizer
	reconciler *Reconciler
	notifier   Notifier
	logger     logging.Logger
}

// NewSyncService creates a new calendar sync service. notifier may be nil.
func NewSyncService(
	db *storage.DB,
	fetcher FeedFetcher,
	normalizer *Normalizer,
	reconciler *Reconciler,
	notifier Notifier,
	logger logging.Logger,
) *SyncService {
	return &SyncService{
		properties: storage.NewPropertyRepository(db),
		fetcher:    fetcher,
		normalizer: normalizer,
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
	}
}

// SyncPropertyByID loads a property and syncs it.
func (s *SyncService) SyncPropertyByID(ctx context.Context, propertyID string) (*models.SyncResult, error) {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	return s.SyncProperty(ctx, p)
}

// SyncProperty runs one property's fetch, normalize and reconcile cycle.
// The returned error wraps ErrInvalidFeedURL, ErrFeedUnreachable or
// ErrFeedMalformed for feed problems; in those cases nothing is written and
// the last sync time is not advanced. The result is non-nil either way.
func (s *SyncService) SyncProperty(ctx context.Context, p *models.Property) (*models.SyncResult, error) {
	result := &models.SyncResult{
		PropertyID:    p.ID,
		UserID:        p.UserID,
		PropertyTitle: p.Title,
		SyncedAt:      time.Now().UTC(),
	}
	log := s.logger.With("property_id", p.ID, "feed", redactURL(p.FeedURL))

	err := s.syncProperty(ctx, p, result, log)
	if err != nil {
		result.Error = err
		log.Warn(ctx, "property sync failed", "err", err)
		if s.notifier != nil {
			s.notifier.BroadcastSyncError(*result)
		}
		return result, err
	}

	log.Info(ctx, "property synced",
		"events", result.EventsFound,
		"skipped", result.EventsSkipped,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"stale", result.Stale,
	)
	if s.notifier != nil {
		s.notifier.BroadcastSyncCompleted(*result)
	}
	return result, nil
}

func (s *SyncService) syncProperty(ctx context.Context, p *models.Property, result *models.SyncResult, log logging.Logger) error {
	if !IsFeedURL(p.FeedURL) {
		return fmt.Errorf("%w: %s", ErrInvalidFeedURL, redactURL(p.FeedURL))
	}

	body, err := s.fetcher.Fetch(ctx, p.FeedURL)
	if err != nil {
		return err
	}

	events, err := s.normalizer.Normalize(body, func(e *EventError) {
		result.EventsSkipped++
		log.Debug(ctx, "skipping unparseable event", "uid", e.UID, "err", e.Err)
	})
	if err != nil {
		return err
	}

	return s.reconciler.Reconcile(ctx, p, events, result)
}

// SyncUser syncs every property of userID that has a feed, one at a time.
// Per-property failures are logged and recorded in the results.
func (s *SyncService) SyncUser(ctx context.Context, userID string) []models.SyncResult {
	return s.sweep(ctx, userID)
}

// SyncAll syncs every property with a feed, system-wide. It never fails:
// listing and per-property errors are logged and the sweep moves on.
func (s *SyncService) SyncAll(ctx context.Context) []models.SyncResult {
	return s.sweep(ctx, "")
}

func (s *SyncService) sweep(ctx context.Context, userID string) []models.SyncResult {
	properties, err := s.properties.ListWithFeed(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "listing properties for sync failed", "user_id", userID, "err", err)
		return nil
	}

	results := make([]models.SyncResult, 0, len(properties))
	for i := range properties {
		if ctx.Err() != nil {
			s.logger.Warn(ctx, "sync sweep interrupted", "remaining", len(properties)-i)
			break
		}
		result, _ := s.SyncProperty(ctx, &properties[i])
		results = append(results, *result)
	}
	return results
}
