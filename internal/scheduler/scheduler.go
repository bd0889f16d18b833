package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/quota"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/ratelimit"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/repository"
	"github.com/robfig/cron/v3"
)

const decisionLogRetention = 30 * 24 * time.Hour

// Scheduler runs the admission core's background maintenance: idle cache
// eviction, persisted-window retention, decision log pruning and the
// idempotent monthly usage rollover.
type Scheduler struct {
	cron *cron.Cron

	store     ratelimit.WindowStore
	windows   *repository.RateWindowRepository
	logs      *repository.AdmissionLogRepository
	tracker   *quota.Tracker
	keys      *repository.APIKeyRepository
	retention time.Duration
}

func New(store ratelimit.WindowStore, windows *repository.RateWindowRepository, logs *repository.AdmissionLogRepository, tracker *quota.Tracker, keys *repository.APIKeyRepository, retention time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		store:     store,
		windows:   windows,
		logs:      logs,
		tracker:   tracker,
		keys:      keys,
		retention: retention,
	}
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"* * * * *", "cache-idle-sweep", s.sweepIdleCache},
		{"@hourly", "window-retention", s.pruneWindows},
		{"30 2 * * *", "decision-log-retention", s.pruneDecisionLogs},
		// Minutes past midnight on the first, before the day's traffic.
		{"10 0 1 * *", "monthly-rollover", s.rolloverUsage},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return err
		}
		log.Printf("Scheduled %s (%s)", job.name, job.spec)
	}

	// A gateway restarted across a month boundary catches up immediately;
	// the rollover is idempotent so running it early is harmless.
	go s.rolloverUsage()

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweepIdleCache() {
	if evicted := s.store.SweepIdle(time.Now()); evicted > 0 {
		log.Printf("Evicted %d idle rate-limit cache entries", evicted)
	}
}

func (s *Scheduler) pruneWindows() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.windows.DeleteOlderThan(ctx, time.Now().Add(-s.retention))
	if err != nil {
		log.Printf("Window retention sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Deleted %d expired rate windows", deleted)
	}
}

func (s *Scheduler) pruneDecisionLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.logs.DeleteOlderThan(ctx, time.Now().Add(-decisionLogRetention))
	if err != nil {
		log.Printf("Decision log retention sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Deleted %d old admission log rows", deleted)
	}
}

func (s *Scheduler) rolloverUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rolled, err := s.tracker.RolloverStale(ctx, s.keys)
	if err != nil {
		log.Printf("Monthly usage rollover failed: %v", err)
		return
	}
	if rolled > 0 {
		log.Printf("Rolled %d usage rows into the current month", rolled)
	}
}
