// Package scheduler runs the background jobs: the nightly pipeline, the
// test-mode monitor tick, backups and history cleanup. It is a thin
// wrapper over robfig/cron with seconds-resolution schedules.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/events"
)

// Job represents a scheduled job.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule.
// Schedule examples:
//   - "0 30 17 * * MON-FRI" - 17:30 weekdays
//   - "0 0 2 * * *"         - 02:00 daily
//   - "@every 2s"           - every 2 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// WithEvents wraps a job so its lifecycle (started, completed, failed)
// is published on the event bus. The monitor tick is deliberately not
// wrapped: at a 2-second cadence it would drown the stream.
func WithEvents(job Job, em *events.Manager) Job {
	return &eventedJob{job: job, events: em}
}

type eventedJob struct {
	job    Job
	events *events.Manager
}

func (e *eventedJob) Name() string { return e.job.Name() }

func (e *eventedJob) Run() error {
	started := time.Now().UTC()
	e.events.Emit("scheduler", &events.JobStatusData{
		JobName:   e.job.Name(),
		Status:    "started",
		Timestamp: started,
	})

	err := e.job.Run()
	finished := time.Now().UTC()
	status := &events.JobStatusData{
		JobName:   e.job.Name(),
		Duration:  finished.Sub(started).Seconds(),
		Timestamp: finished,
	}
	if err != nil {
		status.Status = "failed"
		status.Error = err.Error()
	} else {
		status.Status = "completed"
	}
	e.events.Emit("scheduler", status)

	return err
}
