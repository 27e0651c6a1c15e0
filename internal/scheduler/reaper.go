package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultReaperInterval         = time.Minute
	defaultQualifyingStaleAfter   = 10 * time.Minute
	defaultProvisioningStaleAfter = 30 * time.Minute
	reaperBatch                   = 50
	reaperParallelism             = 4
)

// StaleLeadStore finds and reverts leads stuck in qualifying.
type StaleLeadStore interface {
	ListStaleQualifying(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Lead, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error
}

// QualificationTrigger re-queues qualification for a lead.
type QualificationTrigger interface {
	TriggerQualification(ctx context.Context, leadID string) error
}

// QualificationReaper returns leads whose qualifier run never finished to
// pending and queues them again.
type QualificationReaper struct {
	leads      StaleLeadStore
	trigger    QualificationTrigger
	activity   activity.Writer
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewQualificationReaper(leads StaleLeadStore, trigger QualificationTrigger, activityWriter activity.Writer, log *logger.Logger, interval, staleAfter time.Duration) *QualificationReaper {
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultQualifyingStaleAfter
	}
	return &QualificationReaper{
		leads:      leads,
		trigger:    trigger,
		activity:   activityWriter,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (r *QualificationReaper) Run(ctx context.Context) {
	if r == nil || r.leads == nil {
		return
	}
	runEvery(ctx, r.interval, func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.log.Warn("qualification reaper failed", "error", err)
		}
	})
}

// Sweep reverts one batch of stale leads and returns how many were requeued.
func (r *QualificationReaper) Sweep(ctx context.Context) (int, error) {
	stale, err := r.leads.ListStaleQualifying(ctx, r.now().Add(-r.staleAfter), reaperBatch)
	if err != nil {
		r.log.DatabaseError("list stale qualifying leads", err)
		return 0, fmt.Errorf("list stale qualifying leads: %w", err)
	}

	var requeued atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reaperParallelism)
	for _, lead := range stale {
		g.Go(func() error {
			if r.reap(gctx, lead) {
				requeued.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := requeued.Load(); n > 0 {
		r.log.Info("requeued stale qualifications", "count", n)
	}
	return int(requeued.Load()), nil
}

func (r *QualificationReaper) reap(ctx context.Context, lead domain.Lead) bool {
	log := r.log.WithLeadID(lead.ID)

	err := r.leads.TransitionStatus(ctx, lead.ID, domain.StatusQualifying, domain.StatusPending)
	if errors.Is(err, domain.ErrStatusConflict) {
		// The qualifier finished between the list and the update.
		return false
	}
	if err != nil {
		log.Error("failed to revert stale qualification", "error", err)
		return false
	}

	if r.activity != nil {
		if err := r.activity.Append(ctx, activity.Entry{
			EventType: activity.EventQualificationFailed,
			LeadID:    lead.ID,
			Details:   map[string]interface{}{"error": "qualification timed out", "stale_after": r.staleAfter.String()},
		}); err != nil {
			log.Error("failed to record stale qualification", "error", err)
		}
	}

	if r.trigger != nil {
		if err := r.trigger.TriggerQualification(ctx, lead.ID); err != nil {
			log.Error("failed to requeue qualification", "error", err)
		}
	}
	return true
}

// StaleJobFailer fails provisioning jobs that stopped reporting progress.
type StaleJobFailer interface {
	FailStaleJobs(ctx context.Context, olderThan time.Duration) (int, error)
}

// ProvisioningReaper periodically fails provisioning jobs stuck in running.
type ProvisioningReaper struct {
	jobs       StaleJobFailer
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
}

func NewProvisioningReaper(jobs StaleJobFailer, log *logger.Logger, interval, staleAfter time.Duration) *ProvisioningReaper {
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultProvisioningStaleAfter
	}
	return &ProvisioningReaper{
		jobs:       jobs,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (r *ProvisioningReaper) Run(ctx context.Context) {
	if r == nil || r.jobs == nil {
		return
	}
	runEvery(ctx, r.interval, func() { r.Sweep(ctx) })
}

// Sweep fails stale jobs once and returns how many were failed.
func (r *ProvisioningReaper) Sweep(ctx context.Context) int {
	failed, err := r.jobs.FailStaleJobs(ctx, r.staleAfter)
	if err != nil {
		r.log.Warn("provisioning reaper failed", "error", err)
	}
	if failed > 0 {
		r.log.Info("failed stale provisioning jobs", "count", failed)
	}
	return failed
}

// runEvery calls fn immediately and then on every tick until ctx is done.
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
