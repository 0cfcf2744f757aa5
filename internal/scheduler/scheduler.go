package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/analytics"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

// Job names accepted by RunJob and the on-demand trigger endpoint.
const (
	JobDailyReminders = "daily_reminders"
	JobNoShowSweep    = "no_show_sweep"
	JobAutoRelease    = "auto_release"
	JobCleanup        = "cleanup"
	JobWeeklyStats    = "weekly_stats"
)

// ErrUnknownJob distinguishes a bad job name from a job that ran and
// failed; callers map the former to a client error.
var ErrUnknownJob = errors.New("unknown job")

// Scheduler drives the unattended maintenance jobs on fixed tickers. Jobs
// never share a lock: each one is idempotent through its own source-state
// predicates, so overlapping or repeated runs are safe.
type Scheduler struct {
	Reservations  *reservation.Service
	Notifications *notification.Service
	Analytics     *analytics.Service
	Logger        *logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(reservations *reservation.Service, notifications *notification.Service, stats *analytics.Service, log *logger.Logger) *Scheduler {
	return &Scheduler{
		Reservations:  reservations,
		Notifications: notifications,
		Analytics:     stats,
		Logger:        log,
		stop:          make(chan struct{}),
	}
}

// Start launches one goroutine per job. Intervals follow the operational
// cadence: reminders and cleanup daily, the no-show sweep hourly, the
// auto-release every 15 minutes, statistics weekly.
func (s *Scheduler) Start(ctx context.Context) {
	s.spawn(ctx, JobDailyReminders, 24*time.Hour)
	s.spawn(ctx, JobNoShowSweep, time.Hour)
	s.spawn(ctx, JobAutoRelease, 15*time.Minute)
	s.spawn(ctx, JobCleanup, 24*time.Hour)
	s.spawn(ctx, JobWeeklyStats, 7*24*time.Hour)
	s.Logger.Info("SCHEDULER", "background jobs started")
}

func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.Logger.Info("SCHEDULER", "background jobs stopped")
}

func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runIsolated(ctx, name)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// runIsolated shields the ticker loop from a panicking job: one bad run
// never kills the schedule.
func (s *Scheduler) runIsolated(ctx context.Context, name string) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("SCHEDULER", fmt.Sprintf("job %s panicked: %v", name, r))
		}
	}()
	if _, err := s.RunJob(ctx, name); err != nil {
		s.Logger.Error("SCHEDULER", fmt.Sprintf("job %s: %v", name, err))
	}
}

// RunJob executes one job by name and returns its structured summary. The
// on-demand trigger endpoint calls this directly.
func (s *Scheduler) RunJob(ctx context.Context, name string) (interface{}, error) {
	now := time.Now()
	switch name {
	case JobDailyReminders:
		summary, err := s.Notifications.SendBatchReminders(ctx, "")
		if err != nil {
			return nil, err
		}
		s.Logger.LogJob(name, fmt.Sprintf("%d selected, %d sent, %d failed",
			summary.Selected, summary.Succeeded, summary.Failed))
		return summary, nil

	case JobNoShowSweep:
		summary := s.Reservations.SweepNoShows(ctx, now)
		s.logSummary(summary)
		return summary, nil

	case JobAutoRelease:
		summary := s.Reservations.AutoRelease(ctx, now)
		s.logSummary(summary)
		return summary, nil

	case JobCleanup:
		summary := s.Reservations.Cleanup(ctx, now)
		s.logSummary(summary)
		return summary, nil

	case JobWeeklyStats:
		stats, err := s.Analytics.WeeklyStatsAll(ctx, now)
		if err != nil {
			return nil, err
		}
		for _, st := range stats {
			s.Logger.LogJob(name, fmt.Sprintf("restaurant %s: %d reservations, %.1f avg party, %.0f%% no-show",
				st.RestaurantID, st.TotalReservations, st.AveragePartySize, st.NoShowRate*100))
		}
		return stats, nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownJob, name)
	}
}

func (s *Scheduler) logSummary(summary models.JobSummary) {
	s.Logger.LogJob(summary.Job, fmt.Sprintf("processed=%d succeeded=%d failed=%d skipped=%d",
		summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped))
	for _, e := range summary.Errors {
		s.Logger.Error("SCHEDULER", fmt.Sprintf("[%s] %s", summary.Job, e))
	}
}
