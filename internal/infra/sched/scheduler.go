// Package sched runs the periodic billing sweeps on cron schedules.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"
	"subscription-billing/internal/infra/redis"
	"subscription-billing/internal/usecase"
)

const (
	JobReminders    = "reminders"
	JobMaintenance  = "maintenance"
	JobExchangeRate = "exchange_rate"
)

var ErrUnknownJob = errors.New("unknown job")

type ReminderSweeper interface {
	SendDueReminders(ctx context.Context, now time.Time, windowDays int) (usecase.BatchResult, error)
}

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (usecase.SweepResult, error)
}

type RateRefresher interface {
	Refresh(ctx context.Context) (model.RateQuote, error)
}

// Deps are the collaborators the jobs drive. Locker and Alerter are optional.
type Deps struct {
	Reminders ReminderSweeper
	Lifecycle OverdueSweeper
	Rates     RateRefresher
	Locker    redis.Locker
	Alerter   adapter.AdminAlerter
}

// job returns a one-line summary for logs and the admin digest.
type job struct {
	name   string
	spec   string
	run    func(ctx context.Context, now time.Time) (string, error)
	digest bool
}

type Scheduler struct {
	cron *cron.Cron
	jobs map[string]job
	deps Deps
	cfg  config.SchedulerConfig
	loc  *time.Location
	log  *zerolog.Logger
	now  func() time.Time
}

func New(cfg config.SchedulerConfig, deps Deps, logger *zerolog.Logger) (*Scheduler, error) {
	l := logger.With().Str("component", "scheduler").Logger()
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("scheduler timezone: %w", err)
		}
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 3
	}

	cl := cronLogger{log: &l}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		deps: deps,
		cfg:  cfg,
		loc:  loc,
		log:  &l,
		now:  time.Now,
	}
	s.jobs = map[string]job{
		JobReminders:    {name: JobReminders, spec: orSpec(cfg.RemindersCron, "0 9 * * *"), run: s.runReminders, digest: true},
		JobMaintenance:  {name: JobMaintenance, spec: orSpec(cfg.MaintenanceCron, "0 0 * * *"), run: s.runMaintenance, digest: true},
		JobExchangeRate: {name: JobExchangeRate, spec: orSpec(cfg.ExchangeRateCron, "0 */6 * * *"), run: s.runExchangeRate},
	}
	for _, name := range s.JobNames() {
		j := s.jobs[name]
		if _, err := s.cron.AddFunc(j.spec, func() { _, _ = s.execute(context.Background(), j) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
	}
	return s, nil
}

func orSpec(spec, def string) string {
	if spec == "" {
		return def
	}
	return spec
}

func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.log.Info().Str("tz", s.loc.String()).Int("jobs", len(s.jobs)).Msg("scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes one job immediately, outside the cron schedule.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (string, error) {
	j, ok := s.jobs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

// execute wraps a job with lock, timeout, panic recovery, metrics and the
// optional admin digest.
func (s *Scheduler) execute(parent context.Context, j job) (summary string, err error) {
	ctx, cancel := context.WithTimeout(logging.WithJob(parent, j.name), s.cfg.JobTimeout)
	defer cancel()
	log := logging.With(ctx, s.log)
	start := time.Now()
	status := "ok"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			log.Error().Interface("panic", r).Msg("job panicked")
		}
		metrics.ObserveJob(j.name, status, time.Since(start).Seconds())
	}()

	if s.cfg.UseLocks && s.deps.Locker != nil {
		key := redis.JobLockKey(j.name)
		token, lerr := s.deps.Locker.TryLock(ctx, key, s.cfg.JobTimeout)
		if lerr != nil {
			status = "locked"
			log.Info().Err(lerr).Msg("job skipped, lock not acquired")
			return "skipped: locked elsewhere", nil
		}
		defer func() {
			if uerr := s.deps.Locker.Unlock(context.Background(), key, token); uerr != nil {
				log.Warn().Err(uerr).Msg("job unlock failed")
			}
		}()
	}

	summary, err = j.run(ctx, s.now().In(s.loc))
	if err != nil {
		status = "error"
		log.Error().Err(err).Str("summary", summary).Dur("took", time.Since(start)).Msg("job failed")
	} else {
		log.Info().Str("summary", summary).Dur("took", time.Since(start)).Msg("job finished")
	}
	if j.digest {
		s.alert(ctx, j.name, summary, err)
	}
	return summary, err
}

func (s *Scheduler) alert(ctx context.Context, name, summary string, err error) {
	if s.deps.Alerter == nil {
		return
	}
	text := fmt.Sprintf("[billing] %s: %s", name, summary)
	if err != nil {
		text += "\nerror: " + err.Error()
	}
	if aerr := s.deps.Alerter.Alert(ctx, text); aerr != nil {
		s.log.Warn().Err(aerr).Str("job", name).Msg("admin digest not delivered")
	}
}

func (s *Scheduler) runReminders(ctx context.Context, now time.Time) (string, error) {
	res, err := s.deps.Reminders.SendDueReminders(ctx, now, s.cfg.ReminderWindow)
	if err != nil {
		return "reminders not run", err
	}
	return fmt.Sprintf("due=%d sent=%d skipped=%d failed=%d", len(res.Results), res.Sent, res.Skipped, res.Failed), nil
}

func (s *Scheduler) runMaintenance(ctx context.Context, now time.Time) (string, error) {
	res, err := s.deps.Lifecycle.SweepOverdue(ctx, now)
	return fmt.Sprintf("expired=%d overdue=%d", res.Expired, res.Overdue), err
}

func (s *Scheduler) runExchangeRate(ctx context.Context, _ time.Time) (string, error) {
	q, err := s.deps.Rates.Refresh(ctx)
	if err != nil {
		return "refresh failed, cached rate kept", err
	}
	return fmt.Sprintf("rate=%s source=%s", q.Rate.String(), q.Source), nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
