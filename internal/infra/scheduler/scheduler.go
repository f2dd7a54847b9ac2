package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/app"
	"recurring_payments/internal/recurrence"
)

// Job names a periodic task.
type Job string

const (
	JobReminders   Job = "reminders"
	JobAutoPost    Job = "auto_post"
	JobSuggestions Job = "suggestions"
)

// ParseJob maps a job name from the admin API to a Job.
func ParseJob(name string) (Job, error) {
	switch j := Job(name); j {
	case JobReminders, JobAutoPost, JobSuggestions:
		return j, nil
	}
	return "", fmt.Errorf("unknown job %q", name)
}

// Jobs are the services the scheduler drives.
type Jobs struct {
	Reminders          app.ReminderService
	AutoPost           app.AutoPostService
	Suggestions        app.SuggestionService
	SuggestionDaysBack int
}

// Specs are standard five-field cron expressions, e.g. "0 8 * * *".
type Specs struct {
	Reminders   string
	AutoPost    string
	Suggestions string
}

type Options struct {
	Location   *time.Location // zone for cron specs and for "today"; UTC when nil
	JobTimeout time.Duration
	Clock      app.Clock
}

// Scheduler owns the cron engine. It is built once by main and stopped on
// shutdown; nothing else holds a reference to the engine.
type Scheduler struct {
	cronEngine *cron.Cron
	jobs       Jobs
	specs      Specs
	opts       Options
	logger     *logrus.Entry
}

func New(jobs Jobs, logger *logrus.Entry, specs Specs, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = app.SystemClock
	}
	logger = logger.WithField("component", "scheduler")
	cronLog := cronLogger{logger}

	return &Scheduler{
		cronEngine: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		jobs:   jobs,
		specs:  specs,
		opts:   opts,
		logger: logger,
	}
}

// Start registers the jobs and starts the engine.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler...")

	entries := []struct {
		job  Job
		spec string
	}{
		{JobReminders, s.specs.Reminders},
		{JobAutoPost, s.specs.AutoPost},
		{JobSuggestions, s.specs.Suggestions},
	}
	for _, e := range entries {
		job := e.job
		if _, err := s.cronEngine.AddFunc(e.spec, func() { s.tick(job) }); err != nil {
			return fmt.Errorf("could not add %s cron job (%q): %w", job, e.spec, err)
		}
		s.logger.WithFields(logrus.Fields{"job": job, "spec": e.spec}).Info("Cron job registered")
	}

	s.cronEngine.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops adding runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler...")
	cronCtx := s.cronEngine.Stop()
	select {
	case <-cronCtx.Done():
		s.logger.Info("Scheduler gracefully stopped")
		return nil
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).Warn("Scheduler stop timed out with jobs still running")
		return ctx.Err()
	}
}

// Today is the current calendar date in the scheduler's zone.
func (s *Scheduler) Today() time.Time {
	return recurrence.Day(s.opts.Clock().In(s.opts.Location))
}

func (s *Scheduler) tick(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()
	_, _ = s.RunNow(ctx, job)
}

// RunNow runs job immediately for today. It backs both the cron entries and
// the manual re-trigger endpoint; the jobs themselves are idempotent per day.
func (s *Scheduler) RunNow(ctx context.Context, job Job) (app.BatchResult, error) {
	today := s.Today()
	logCtx := s.logger.WithFields(logrus.Fields{
		"job":    job,
		"run_id": uuid.NewString(),
		"today":  today.Format(app.DateLayout),
	})
	logCtx.Info("Job triggered")
	started := time.Now()

	var (
		res app.BatchResult
		err error
	)
	switch job {
	case JobReminders:
		res, err = s.jobs.Reminders.GenerateAll(ctx, today)
	case JobAutoPost:
		res, err = s.jobs.AutoPost.Run(ctx, today)
	case JobSuggestions:
		res, err = s.jobs.Suggestions.GenerateAll(ctx, today, s.jobs.SuggestionDaysBack)
	default:
		err = fmt.Errorf("unknown job %q", job)
	}

	logCtx = logCtx.WithFields(logrus.Fields{
		"checked":  res.Checked,
		"created":  res.Created,
		"skipped":  res.Skipped,
		"errored":  res.Errored,
		"duration": time.Since(started).String(),
	})
	if err != nil {
		logCtx.WithError(err).Error("Job failed")
		return res, err
	}
	logCtx.Info("Job finished")
	return res, nil
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
