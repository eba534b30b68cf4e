// Package scheduler registers and fires future publication jobs. One-shot
// jobs run on timers; recurring jobs run on a cron table and stop at their
// horizon. All jobs are persisted and survive restarts via Restore.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/repository"
	"github.com/rabota-krsk/rabota-bot/pkg/metrics"
)

// Publisher sends a scheduled job's text to the feed.
type Publisher interface {
	PublishScheduled(ctx context.Context, job *domain.ScheduledJob) error
}

// Notifier informs the user about job lifecycle events.
type Notifier interface {
	NotifyJobFinished(ctx context.Context, userID int64, job *domain.ScheduledJob)
	NotifyJobStale(ctx context.Context, userID int64, job *domain.ScheduledJob)
}

// ErrPastTime indicates a one-shot job was requested for a moment in the past.
var ErrPastTime = errors.New("scheduled time is in the past")

// Scheduler owns all timers and cron entries for active jobs.
type Scheduler struct {
	repo      repository.JobRepository
	publisher Publisher
	notifier  Notifier
	log       *slog.Logger
	loc       *time.Location
	now       func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	timers  map[string]*time.Timer
	entries map[string]cron.EntryID
}

// New creates a scheduler. The location fixes the wall clock used for
// recurring jobs and horizon checks.
func New(repo repository.JobRepository, publisher Publisher, notifier Notifier, loc *time.Location, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
		loc:       loc,
		now:       func() time.Time { return time.Now().In(loc) },
		cron:      cron.New(cron.WithLocation(loc)),
		timers:    make(map[string]*time.Timer),
		entries:   make(map[string]cron.EntryID),
	}
}

// Start launches the cron loop. Call Restore first so persisted jobs are
// registered before the first tick.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and all pending timers without touching the
// persisted job records.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// ScheduleOnce registers a one-shot publication at runAt and returns the job
// identifier. The time must be in the future.
func (s *Scheduler) ScheduleOnce(ctx context.Context, userID int64, pubType domain.PublicationType, text string, runAt time.Time) (string, error) {
	now := s.now()
	if !runAt.After(now) {
		return "", ErrPastTime
	}

	job := &domain.ScheduledJob{
		JobID:     onceJobID(userID, now),
		UserID:    userID,
		Type:      pubType,
		Text:      text,
		Trigger:   domain.TriggerOnce,
		RunAt:     &runAt,
		Active:    true,
		CreatedAt: now,
	}

	if err := s.repo.Save(ctx, job); err != nil {
		return "", fmt.Errorf("persist one-shot job: %w", err)
	}

	s.armTimer(job, runAt.Sub(now))
	metrics.RecordJobEvent(string(job.Trigger), "registered")

	s.log.Info("one-shot job registered",
		slog.String("job_id", job.JobID),
		slog.Int64("user_id", userID),
		slog.Time("run_at", runAt),
	)

	return job.JobID, nil
}

// ScheduleRecurring registers a daily or weekly publication that fires at
// timeOfDay (HH:MM) until the horizon computed from repetitions passes.
// Weekly jobs additionally need a weekday.
func (s *Scheduler) ScheduleRecurring(
	ctx context.Context,
	userID int64,
	pubType domain.PublicationType,
	text string,
	trigger domain.TriggerKind,
	weekday *time.Weekday,
	timeOfDay string,
	repetitions int,
) (string, error) {
	if trigger != domain.TriggerDaily && trigger != domain.TriggerWeekly {
		return "", fmt.Errorf("unsupported trigger kind %q", trigger)
	}
	if trigger == domain.TriggerWeekly && weekday == nil {
		return "", errors.New("weekly job needs a weekday")
	}

	hour, minute, err := parseClock(timeOfDay)
	if err != nil {
		return "", err
	}

	now := s.now()
	horizon := Horizon(trigger, repetitions, now)

	job := &domain.ScheduledJob{
		JobID:     recurringJobID(userID, now),
		UserID:    userID,
		Type:      pubType,
		Text:      text,
		Trigger:   trigger,
		TimeOfDay: timeOfDay,
		Weekday:   weekday,
		Horizon:   &horizon,
		Active:    true,
		CreatedAt: now,
	}

	if err := s.repo.Save(ctx, job); err != nil {
		return "", fmt.Errorf("persist recurring job: %w", err)
	}

	if err := s.armCron(job, hour, minute); err != nil {
		return "", err
	}
	metrics.RecordJobEvent(string(job.Trigger), "registered")

	s.log.Info("recurring job registered",
		slog.String("job_id", job.JobID),
		slog.Int64("user_id", userID),
		slog.String("trigger", string(trigger)),
		slog.String("time_of_day", timeOfDay),
		slog.Time("horizon", horizon),
	)

	return job.JobID, nil
}

// Cancel deactivates a job and stops its timer or cron entry. Cancelling an
// unknown or already-cancelled job is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	s.disarm(jobID)

	if err := s.repo.Deactivate(ctx, jobID); err != nil {
		return fmt.Errorf("deactivate job: %w", err)
	}

	metrics.RecordJobEvent(triggerFromJobID(jobID), "cancelled")
	s.log.Info("job cancelled", slog.String("job_id", jobID))

	return nil
}

// CancelAllForUser cancels every active job the user owns and returns how
// many were cancelled.
func (s *Scheduler) CancelAllForUser(ctx context.Context, userID int64) (int, error) {
	jobs, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, job := range jobs {
		if err := s.Cancel(ctx, job.JobID); err != nil {
			return 0, err
		}
	}

	return len(jobs), nil
}

// Restore re-registers persisted active jobs after a restart. One-shot jobs
// whose time already passed and recurring jobs past their horizon are
// deactivated, never fired late; owners of stale one-shots are notified.
func (s *Scheduler) Restore(ctx context.Context) error {
	jobs, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active jobs: %w", err)
	}

	now := s.now()
	var restored, dropped int

	for _, job := range jobs {
		switch job.Trigger {
		case domain.TriggerOnce:
			if job.RunAt == nil || !job.RunAt.After(now) {
				s.drop(ctx, job, "stale one-shot job dropped")
				if s.notifier != nil {
					s.notifier.NotifyJobStale(ctx, job.UserID, job)
				}
				dropped++
				continue
			}

			s.armTimer(job, job.RunAt.Sub(now))
			restored++

		case domain.TriggerDaily, domain.TriggerWeekly:
			if job.Horizon != nil && now.After(*job.Horizon) {
				s.drop(ctx, job, "expired recurring job dropped")
				dropped++
				continue
			}

			hour, minute, err := parseClock(job.TimeOfDay)
			if err != nil {
				s.drop(ctx, job, "recurring job with bad time dropped")
				dropped++
				continue
			}

			if err := s.armCron(job, hour, minute); err != nil {
				return err
			}
			restored++

		default:
			s.drop(ctx, job, "job with unknown trigger dropped")
			dropped++
		}
	}

	s.log.Info("scheduler restored", slog.Int("restored", restored), slog.Int("dropped", dropped))

	return nil
}

func (s *Scheduler) armTimer(job *domain.ScheduledJob, delay time.Duration) {
	jobID := job.JobID
	jobCopy := *job

	timer := time.AfterFunc(delay, func() {
		s.fireOnce(&jobCopy)
	})

	s.mu.Lock()
	s.timers[jobID] = timer
	s.mu.Unlock()
}

func (s *Scheduler) armCron(job *domain.ScheduledJob, hour, minute int) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if job.Trigger == domain.TriggerWeekly && job.Weekday != nil {
		spec = fmt.Sprintf("%d %d * * %d", minute, hour, int(*job.Weekday))
	}

	jobCopy := *job
	entryID, err := s.cron.AddFunc(spec, func() {
		s.fireRecurring(&jobCopy)
	})
	if err != nil {
		return fmt.Errorf("register cron entry: %w", err)
	}

	s.mu.Lock()
	s.entries[job.JobID] = entryID
	s.mu.Unlock()

	return nil
}

func (s *Scheduler) fireOnce(job *domain.ScheduledJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.mu.Lock()
	delete(s.timers, job.JobID)
	s.mu.Unlock()

	if err := s.publisher.PublishScheduled(ctx, job); err != nil {
		s.log.Error("one-shot job publish failed", slog.String("job_id", job.JobID), slog.Any("error", err))
		metrics.RecordJobEvent(string(job.Trigger), "failed")
	} else {
		metrics.RecordJobEvent(string(job.Trigger), "fired")
	}

	if err := s.repo.Deactivate(ctx, job.JobID); err != nil {
		s.log.Error("failed to deactivate fired job", slog.String("job_id", job.JobID), slog.Any("error", err))
	}
}

func (s *Scheduler) fireRecurring(job *domain.ScheduledJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if job.Horizon != nil && s.now().After(*job.Horizon) {
		s.disarm(job.JobID)

		if err := s.repo.Deactivate(ctx, job.JobID); err != nil {
			s.log.Error("failed to deactivate finished job", slog.String("job_id", job.JobID), slog.Any("error", err))
		}

		metrics.RecordJobEvent(string(job.Trigger), "expired")
		s.log.Info("recurring job reached horizon", slog.String("job_id", job.JobID))

		if s.notifier != nil {
			s.notifier.NotifyJobFinished(ctx, job.UserID, job)
		}
		return
	}

	if err := s.publisher.PublishScheduled(ctx, job); err != nil {
		s.log.Error("recurring job publish failed", slog.String("job_id", job.JobID), slog.Any("error", err))
		metrics.RecordJobEvent(string(job.Trigger), "failed")
		return
	}

	metrics.RecordJobEvent(string(job.Trigger), "fired")
}

func (s *Scheduler) drop(ctx context.Context, job *domain.ScheduledJob, reason string) {
	if err := s.repo.Deactivate(ctx, job.JobID); err != nil {
		s.log.Error("failed to deactivate job", slog.String("job_id", job.JobID), slog.Any("error", err))
		return
	}

	metrics.RecordJobEvent(string(job.Trigger), "dropped")
	s.log.Warn(reason, slog.String("job_id", job.JobID), slog.Int64("user_id", job.UserID))
}

func (s *Scheduler) disarm(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[jobID]; ok {
		timer.Stop()
		delete(s.timers, jobID)
	}

	if entryID, ok := s.entries[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
}

// Horizon computes when a recurring job stops firing: repetitions days for
// daily jobs, repetitions weeks for weekly ones. The bound is a point in
// time, not a firing counter, so missed runs are skipped rather than
// carried over.
func Horizon(trigger domain.TriggerKind, repetitions int, from time.Time) time.Time {
	if repetitions < 1 {
		repetitions = 1
	}

	switch trigger {
	case domain.TriggerWeekly:
		return from.AddDate(0, 0, 7*repetitions)
	default:
		return from.AddDate(0, 0, repetitions)
	}
}

func onceJobID(userID int64, now time.Time) string {
	return fmt.Sprintf("single_%d_%d", userID, now.UnixNano())
}

func recurringJobID(userID int64, now time.Time) string {
	return fmt.Sprintf("recurring_%d_%d", userID, now.UnixNano())
}

func triggerFromJobID(jobID string) string {
	if strings.HasPrefix(jobID, "single_") {
		return string(domain.TriggerOnce)
	}
	if strings.HasPrefix(jobID, "recurring_") {
		return "recurring"
	}
	return "unknown"
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}

	return hour, minute, nil
}
