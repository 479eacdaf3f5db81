// services/scheduler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"bounty-board/metrics"
	"bounty-board/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type AutoResolverOptions struct {
	// GracePeriod is added to a bounty's deadline before it can be auto-resolved.
	GracePeriod time.Duration
	Interval    time.Duration
	Clock       clockwork.Clock
}

func DefaultAutoResolverOptions() AutoResolverOptions {
	return AutoResolverOptions{
		GracePeriod: 7 * 24 * time.Hour,
		Interval:    time.Hour,
		Clock:       clockwork.NewRealClock(),
	}
}

// AutoResolver picks a winner for open bounties whose deadline plus grace
// period has passed: the first submission in stored order wins.
type AutoResolver struct {
	engine *BountyService
	opts   AutoResolverOptions

	mu    sync.Mutex
	sched gocron.Scheduler
	stop  chan struct{}
}

func NewAutoResolver(engine *BountyService, opts AutoResolverOptions) *AutoResolver {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &AutoResolver{engine: engine, opts: opts}
}

// TickReport summarises one pass.
type TickReport struct {
	Scanned       int               `json:"scanned"`
	Eligible      int               `json:"eligible"`
	Resolved      int               `json:"resolved"`
	NoSubmissions int               `json:"no_submissions"`
	Skipped       int               `json:"skipped"`
	Failed        int               `json:"failed"`
	Repaired      int               `json:"repaired"`
	Winners       map[string]string `json:"winners,omitempty"` // bounty id -> winner
}

// Start schedules Tick every Interval until ctx is done or Stop is called.
// Overlapping runs are rescheduled rather than stacked.
func (r *AutoResolver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sched != nil {
		return errors.New("auto-resolver already started")
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(r.opts.Clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(r.opts.Interval),
		gocron.NewTask(func() {
			if _, err := r.Tick(ctx); err != nil {
				log.Printf("[Scheduler] Auto-resolve tick failed: %v", err)
			}
		}),
		gocron.WithName("auto-resolve-bounties"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule auto-resolve job: %w", err)
	}

	sched.Start()
	stop := make(chan struct{})
	r.sched = sched
	r.stop = stop
	log.Printf("[Scheduler] Auto-resolver running every %s (grace period %s)", r.opts.Interval, r.opts.GracePeriod)

	go func() {
		select {
		case <-ctx.Done():
			if err := r.stopRun(stop); err != nil {
				log.Printf("[Scheduler] Shutdown error: %v", err)
			}
		case <-stop:
		}
	}()
	return nil
}

// Stop shuts the scheduler down; it is safe to call more than once.
func (r *AutoResolver) Stop() error {
	return r.stopRun(nil)
}

// stopRun shuts down the current run. A non-nil stop only matches the run
// that created it, so a cancelled context from an earlier Start cannot stop
// a later one.
func (r *AutoResolver) stopRun(stop chan struct{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sched == nil || (stop != nil && stop != r.stop) {
		return nil
	}
	err := r.sched.Shutdown()
	close(r.stop)
	r.sched = nil
	r.stop = nil
	log.Println("[Scheduler] Auto-resolver stopped.")
	return err
}

// Tick runs one resolution pass. Per-bounty failures are logged and counted;
// only failing to read the store aborts the pass. Every eligible approval
// starts at once; each payment is bounded by the engine's payment timeout.
func (r *AutoResolver) Tick(ctx context.Context) (TickReport, error) {
	started := time.Now()
	defer func() { metrics.RecordTick(time.Since(started).Seconds()) }()

	report := TickReport{Winners: map[string]string{}}

	repaired, err := r.engine.RepairApprovals(ctx)
	if err != nil {
		return report, err
	}
	report.Repaired = repaired

	bounties, _, err := r.engine.loadBounties(ctx)
	if err != nil {
		return report, fmt.Errorf("auto-resolve: %w", err)
	}
	submissions, _, err := r.engine.loadSubmissions(ctx)
	if err != nil {
		return report, fmt.Errorf("auto-resolve: %w", err)
	}

	// Stored order is insertion order, so the first hit per bounty is the
	// earliest submission.
	first := make(map[string]models.Submission)
	for _, sub := range submissions {
		if _, seen := first[sub.BountyID]; !seen {
			first[sub.BountyID] = sub
		}
	}

	now := r.opts.Clock.Now()
	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for _, b := range bounties {
		if !b.IsOpen() {
			continue
		}
		report.Scanned++
		if now.Before(b.AutoResolveAt(r.opts.GracePeriod)) {
			continue
		}
		report.Eligible++

		sub, ok := first[b.ID]
		if !ok {
			report.NoSubmissions++
			continue
		}

		bounty := b
		g.Go(func() error {
			result, err := r.engine.ApproveWinner(ctx, bounty.ID, sub.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Resolved++
				report.Winners[bounty.ID] = result.Bounty.Winner
				log.Printf("✅ [Scheduler] Auto-assigned winner %s for bounty %q", result.Bounty.Winner, bounty.Title)
			case errors.Is(err, ErrInvalidState):
				report.Skipped++
			default:
				report.Failed++
				log.Printf("❌ [Scheduler] Auto-resolve of bounty %s failed: %v", bounty.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if report.Eligible > 0 {
		log.Printf("[Scheduler] Tick: %d open, %d eligible, %d resolved, %d without submissions, %d failed",
			report.Scanned, report.Eligible, report.Resolved, report.NoSubmissions, report.Failed)
	}
	return report, nil
}
