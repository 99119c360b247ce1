package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/famtree/server/cron"
	"github.com/Daskott/famtree/server/models"
	"github.com/Daskott/famtree/shared"
	"github.com/go-co-op/gocron"
)

const (
	DEFAULT_CONCURRENCY   = 1
	DEFAULT_STUCK_AFTER   = 10 * time.Minute
	DEFAULT_POLL_INTERVAL = 5 * time.Second
)

// Options tunes the worker pool, zero fields take the defaults.
type Options struct {
	Concurrency int

	// StuckAfter is how long an in-progress job may go without an update
	// before the requeuer counts the run as failed.
	StuckAfter time.Duration

	// PollInterval is how long requeuers wait after a sweep that left nothing behind.
	PollInterval time.Duration

	// Backoffs are the idle waits, in seconds, of a worker finding an empty queue.
	Backoffs []int64
}

func OptionsFromConfig(config shared.JobsConfig) Options {
	return Options{
		Concurrency:  config.Concurrency,
		StuckAfter:   time.Duration(config.StuckAfterMinutes) * time.Minute,
		PollInterval: time.Duration(config.RequeuePollSeconds) * time.Second,
		Backoffs:     config.SleepBackoffs,
	}
}

func (opts Options) withDefaults() Options {
	if opts.Concurrency == 0 {
		opts.Concurrency = DEFAULT_CONCURRENCY
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = DEFAULT_STUCK_AFTER
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DEFAULT_POLL_INTERVAL
	}
	if len(opts.Backoffs) == 0 {
		opts.Backoffs = DefaultSleepBackoffsInSeconds
	}
	return opts
}

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
}

// NewWorkerAdapter returns an adapter whose cron jobs run in timeZone.
func NewWorkerAdapter(timeZone string, opts Options) (*WorkerPoolAdapter, error) {
	pool, err := newWorkerPool(opts)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZone),
		pool:          pool,
	}, nil
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() error {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()

	return nil
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() error {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// ObserveJobs reports every job outcome to observer. Call before Start.
func (adapter *WorkerPoolAdapter) ObserveJobs(observer JobObserver) {
	adapter.pool.setObserver(observer)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Infof("Enqueuing job: %v", job.Name)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	return nil
}

// PerformIn schedules a job to be queued 'secondsFromNow' seconds from now
func (adapter *WorkerPoolAdapter) PerformIn(secondsFromNow int64, job JobParams) error {
	logg.Infof("Scheduling job: %v to run in %vs", job.Name, secondsFromNow)

	err := adapter.pool.enqueueIn(secondsFromNow, job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error scheduling job: %v, %v", job.Name, err)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)
	return err
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) error {
	return adapter.cronScheduler.RemoveByTag(jobName)
}
