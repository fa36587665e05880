// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

const (
	MaterializeCron = "0 */6 * * *"
	RosterCron      = "0 */4 * * *"
	jobTimeout      = 5 * time.Minute
)

// RosterTopUp keeps the reference accounts visible on the public leaderboard.
type RosterTopUp interface {
	RunBatch(ctx context.Context) (int, error)
}

// LedgerScheduler owns the periodic ledger jobs.
type LedgerScheduler struct {
	sched gocron.Scheduler
}

// NewLedgerScheduler registers the materializers (every 6h), the midnight
// pointsToday reset and, when roster is non-nil, the 4-hourly top-up.
func NewLedgerScheduler(clock clockwork.Clock, leaderboards *LeaderboardService, ledger *LedgerService, roster RosterTopUp) (*LedgerScheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	for _, kind := range LeaderboardKinds {
		kind := kind
		_, err := sched.NewJob(
			gocron.CronJob(MaterializeCron, false),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				n, cached, err := leaderboards.Refresh(ctx, kind, false)
				if err != nil {
					log.Printf("❌ [SCHEDULER] %s leaderboard failed: %v", kind, err)
					return
				}
				log.Printf("[SCHEDULER] %s leaderboard: %d entries (cached=%t)", kind, n, cached)
			}),
			gocron.WithName("leaderboard-"+string(kind)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			if _, err := ledger.ResetPointsToday(); err != nil {
				log.Printf("❌ [SCHEDULER] daily reset failed: %v", err)
			}
		}),
		gocron.WithName("reset-points-today"),
	)
	if err != nil {
		return nil, err
	}

	if roster != nil {
		_, err = sched.NewJob(
			gocron.CronJob(RosterCron, false),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				n, err := roster.RunBatch(ctx)
				if err != nil {
					log.Printf("❌ [SCHEDULER] roster top-up failed: %v", err)
					return
				}
				log.Printf("[SCHEDULER] roster top-up credited %d accounts", n)
			}),
			gocron.WithName("roster-top-up"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	return &LedgerScheduler{sched: sched}, nil
}

func (s *LedgerScheduler) Start() {
	s.sched.Start()
	log.Printf("✅ [SCHEDULER] %d ledger jobs running", len(s.sched.Jobs()))
}

func (s *LedgerScheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// Jobs returns the names of the registered jobs.
func (s *LedgerScheduler) Jobs() []string {
	jobs := s.sched.Jobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	return names
}
