package work

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/server/logger"
	"github.com/Daskott/famtree/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MAX_FAILS = 4

var (
	DefaultTickerDuration = 5 * time.Millisecond
	TickerDurationOnError = 10 * time.Millisecond

	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrUnknownHandler   = errors.New("no handler registered with the provided name")

	logg = logger.NewLogger()
)

type JobParams struct {
	Name    string
	Handler string
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

// JobObserver is told the outcome of every job run.
type JobObserver func(handler string, err error)

type worker struct {
	id                     string
	handlers               map[string]Handler
	stopChan               chan struct{}
	sleepBackoffsInSeconds []int64
	observer               JobObserver
}

func newWorker(sleepBackoffsInSeconds []int64) *worker {
	return &worker{
		id:                     uuid.NewString()[:8],
		handlers:               make(map[string]Handler),
		stopChan:               make(chan struct{}),
		sleepBackoffsInSeconds: sleepBackoffsInSeconds,
	}
}

// registerHandler binds a name to a job handler.
func (w *worker) registerHandler(name string, handler Handler) error {
	if _, ok := w.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	w.handlers[name] = handler

	return nil
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	var consequtiveNoJobs int
	var currentJob *models.Job
	var err error

	sleepBackoffs := w.sleepBackoffsInSeconds
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	logg.Infof("Starting worker %s", w.id)
	for {
		select {
		case <-w.stopChan:
			logg.Infof("Stopping worker %s", w.id)
			return
		case <-rateLimiter.C:
			currentJob, err = models.NextJob(models.ENQUEUED_JOB, false)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// slowly increase the wait between fetches while the queue stays empty
					idx := consequtiveNoJobs
					if idx >= len(sleepBackoffs) {
						idx = len(sleepBackoffs) - 1
					}
					consequtiveNoJobs++
					rateLimiter.Reset(backoffDuration(sleepBackoffs[idx]))
					continue
				}

				w.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			claimed, err := currentJob.MarkAsClaimed()
			if err != nil {
				w.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			w.logInfof("fetched job with id=%v, status_id=%v, claimed=%v",
				currentJob.ID, currentJob.JobStatusID, claimed)

			if !claimed {
				continue
			}

			w.processJob(currentJob)
			rateLimiter.Reset(DefaultTickerDuration)
			consequtiveNoJobs = 0
		}
	}
}

func (w *worker) processJob(job *models.Job) {
	err := w.runJob(job)
	if w.observer != nil {
		w.observer(job.Handler, err)
	}

	if err != nil {
		w.logError(err)
		w.determineFailedJobFate(job, err)
		return
	}
	w.markJobAsSuccessful(job)
}

func (w *worker) runJob(job *models.Job) error {
	handler, ok := w.handlers[job.Handler]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandler, job.Handler)
	}

	args := make(map[string]interface{})
	err := json.Unmarshal([]byte(job.Args), &args)
	if err != nil {
		return err
	}

	return handler(args)
}

func (w *worker) determineFailedJobFate(job *models.Job, runError error) {
	status, moved, err := failJob(job, runError.Error())
	if err != nil {
		w.logError(err)
		return
	}

	if !moved {
		w.logInfof("job with id=%v was settled by a requeuer, dropping the result", job.ID)
		return
	}
	w.logInfof("job with id=%v completed with status=%v", job.ID, status)
}

func (w *worker) markJobAsSuccessful(job *models.Job) {
	moved, err := job.MoveTo(models.SUCCESSFUL_JOB, nil)
	if err != nil {
		w.logError(err)
		return
	}

	if !moved {
		w.logInfof("job with id=%v was settled by a requeuer, dropping the result", job.ID)
		return
	}
	w.logInfof("job with id=%v completed with status=%v", job.ID, models.SUCCESSFUL_JOB)
}

// failJob records a failed run of an in-progress job. The job dies once it
// reaches MAX_FAILS, otherwise it goes back to the queue.
func failJob(job *models.Job, reason string) (string, bool, error) {
	fails := job.Fails + 1
	status := models.ENQUEUED_JOB
	changes := map[string]interface{}{
		"fails":      fails,
		"last_error": reason,
	}

	if fails >= MAX_FAILS {
		status = models.DEAD_JOB
	} else {
		changes["enqueued_at"] = time.Now()
	}

	moved, err := job.MoveTo(status, changes)
	if err != nil || !moved {
		return status, false, err
	}

	job.Fails = fails
	job.LastError = reason
	return status, true, nil
}

func (w *worker) logInfof(template string, args ...interface{}) {
	logg.Infof(colors.Tag(colors.Yellow, "worker %v", w.id)+template, args...)
}

func (w *worker) logError(args ...interface{}) {
	logg.Error(append([]interface{}{colors.Tag(colors.Red, "worker %v", w.id)}, args...)...)
}

func backoffDuration(seconds int64) time.Duration {
	if seconds <= 0 {
		return DefaultTickerDuration
	}
	return time.Duration(seconds) * time.Second
}
