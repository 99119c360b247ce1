package work

import (
	"fmt"
	"time"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/server/models"
)

// REQUEUE_BATCH_SIZE caps how many jobs a single sweep moves.
const REQUEUE_BATCH_SIZE = 50

// requeuer sweeps one queue. On the scheduled queue it enqueues every job
// whose run time has come. On the in-progress queue it treats a job nobody has
// updated for stuckAfter as a failed run, so a handler that keeps hanging its
// worker ends up dead instead of being retried forever.
type requeuer struct {
	queue        string
	stuckAfter   time.Duration
	pollInterval time.Duration
	stopChan     chan struct{}
}

func newRequeuer(queue string, opts Options) (*requeuer, error) {
	if queue != models.IN_PROGRESS_JOB && queue != models.SCHEDULED_JOB {
		return nil, fmt.Errorf("no requeue policy for %q jobs", queue)
	}

	opts = opts.withDefaults()
	return &requeuer{
		queue:        queue,
		stuckAfter:   opts.StuckAfter,
		pollInterval: opts.PollInterval,
		stopChan:     make(chan struct{}),
	}, nil
}

func (r *requeuer) start() {
	go r.loop()
}

func (r *requeuer) stop() {
	r.stopChan <- struct{}{}
}

func (r *requeuer) loop() {
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	logg.Infof("Starting %s job requeuer, sweeping every %v", r.queue, r.pollInterval)
	for {
		select {
		case <-r.stopChan:
			logg.Infof("Stopping %s job requeuer", r.queue)
			return
		case <-rateLimiter.C:
			moved, err := r.sweep(time.Now())
			if err != nil {
				r.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			// a full batch means more jobs may be waiting
			if moved == REQUEUE_BATCH_SIZE {
				rateLimiter.Reset(DefaultTickerDuration)
				continue
			}
			rateLimiter.Reset(r.pollInterval)
		}
	}
}

// sweep settles the jobs of the queue that are due at now and returns how many it moved.
func (r *requeuer) sweep(now time.Time) (int, error) {
	if r.queue == models.SCHEDULED_JOB {
		return r.enqueueDue(now)
	}
	return r.failStuck(now)
}

func (r *requeuer) enqueueDue(now time.Time) (int, error) {
	jobs, err := models.DueScheduledJobs(now, REQUEUE_BATCH_SIZE)
	if err != nil {
		return 0, err
	}

	moved := 0
	for i := range jobs {
		ok, err := jobs[i].MoveTo(models.ENQUEUED_JOB, map[string]interface{}{"enqueued_at": now})
		if err != nil {
			return moved, err
		}

		if ok {
			moved++
			r.logInfof("job with id=%v due at %v enqueued", jobs[i].ID, jobs[i].RunAt.Format(time.RFC3339))
		}
	}

	return moved, nil
}

func (r *requeuer) failStuck(now time.Time) (int, error) {
	jobs, err := models.StuckJobs(now.Add(-r.stuckAfter), REQUEUE_BATCH_SIZE)
	if err != nil {
		return 0, err
	}

	moved := 0
	reason := fmt.Sprintf("stuck in-progress for more than %v", r.stuckAfter)
	for i := range jobs {
		status, ok, err := failJob(&jobs[i], reason)
		if err != nil {
			return moved, err
		}

		if ok {
			moved++
			r.logInfof("job with id=%v stuck, moved to %v after %v fail(s)", jobs[i].ID, status, jobs[i].Fails)
		}
	}

	return moved, nil
}

func (r *requeuer) logInfof(template string, args ...interface{}) {
	logg.Infof(colors.Tag(colors.Yellow, "%s job requeuer", r.queue)+template, args...)
}

func (r *requeuer) logError(args ...interface{}) {
	logg.Error(append([]interface{}{colors.Tag(colors.Red, "%s job requeuer", r.queue)}, args...)...)
}
