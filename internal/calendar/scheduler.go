package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage/models"
)

// Syncer is the part of SyncService the scheduler drives.
type Syncer interface {
	SyncAll(ctx context.Context) []models.SyncResult
	SyncUser(ctx context.Context, userID string) []models.SyncResult
}

// Scheduler runs the periodic system-wide sync sweep and on-demand
// per-user syncs.
type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	logger   logging.Logger
	interval time.Duration

	entryID cron.EntryID

	// base is cancelled on Stop so in-flight syncs abort.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Users with a triggered sync still running.
	running   map[string]bool
	runningMu sync.Mutex
}

// NewScheduler creates a sweep scheduler that runs every interval.
func NewScheduler(syncer Syncer, interval time.Duration, logger logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	cl := cronLogger{logger: logger}

	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		syncer:   syncer,
		logger:   logger,
		interval: interval,
		base:     base,
		cancel:   cancel,
		running:  make(map[string]bool),
	}
}

// Start registers the sweep job, runs one sweep immediately in the
// background and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting sync scheduler", "interval", s.interval.String())

	job := cron.FuncJob(s.sweep)
	s.entryID = s.cron.Schedule(cron.Every(s.interval), job)

	// The first sweep goes through the entry's wrapped job so it shares the
	// skip-if-running guard with scheduled runs.
	first := s.cron.Entry(s.entryID).WrappedJob
	if first == nil {
		return fmt.Errorf("scheduling sync sweep: entry %d not found", s.entryID)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		first.Run()
	}()

	s.cron.Start()
	return nil
}

// Stop cancels running syncs and waits for them to return.
func (s *Scheduler) Stop() {
	s.logger.Info(context.Background(), "stopping sync scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info(context.Background(), "sync scheduler stopped")
}

// TriggerUserSync starts a sync of every property owned by userID and
// returns at once. It reports false when a sync for that user is already
// running; the running sync will pick up the same properties.
func (s *Scheduler) TriggerUserSync(userID string) bool {
	s.runningMu.Lock()
	if s.running[userID] {
		s.runningMu.Unlock()
		return false
	}
	s.running[userID] = true
	s.runningMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.runningMu.Lock()
			delete(s.running, userID)
			s.runningMu.Unlock()
		}()

		results := s.syncer.SyncUser(s.base, userID)
		s.logger.Info(s.base, "user sync finished", "user_id", userID, "properties", len(results), "failed", countFailed(results))
	}()
	return true
}

// NextRun returns when the next sweep is due, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	if s.entryID == 0 {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *Scheduler) sweep() {
	if s.base.Err() != nil {
		return
	}
	started := time.Now()
	results := s.syncer.SyncAll(s.base)
	s.logger.Info(s.base, "sync sweep finished",
		"properties", len(results),
		"failed", countFailed(results),
		"took", time.Since(started).String(),
	)
}

func countFailed(results []models.SyncResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(context.Background(), "cron: "+msg, append(keysAndValues, "err", err)...)
}
