package work

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/famtree/server/models"
	"github.com/pkg/errors"
)

var DefaultSleepBackoffsInSeconds = []int64{0, 10, 100, 120}

type WorkerPool struct {
	handlers    map[string]Handler
	workers     []*worker
	requeuers   []*requeuer
	concurrency int
	started     bool
	mu          sync.Mutex
}

func newWorkerPool(opts Options) (*WorkerPool, error) {
	opts = opts.withDefaults()
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %v", opts.Concurrency)
	}

	wp := WorkerPool{handlers: make(map[string]Handler), concurrency: opts.Concurrency}

	for i := 0; i < opts.Concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(opts.Backoffs))
	}

	for _, queue := range []string{models.IN_PROGRESS_JOB, models.SCHEDULED_JOB} {
		r, err := newRequeuer(queue, opts)
		if err != nil {
			return nil, err
		}
		wp.requeuers = append(wp.requeuers, r)
	}

	return &wp, nil
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler

	for _, worker := range wp.workers {
		err := worker.registerHandler(name, handler)
		if err != nil && !errors.Is(err, ErrDuplicateHandler) {
			return err
		}
	}
	return nil
}

func (wp *WorkerPool) setObserver(observer JobObserver) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for _, worker := range wp.workers {
		worker.observer = observer
	}
}

// enqueue adds a job to the queue(to be executed) by creating a DB record based on 'JobParams' provided
func (wp *WorkerPool) enqueue(job JobParams) error {
	return wp.enqueueAt(nil, job)
}

// enqueueIn schedules a job to be queued 'secondsFromNow' seconds from now
func (wp *WorkerPool) enqueueIn(secondsFromNow int64, job JobParams) error {
	runAt := time.Now().Add(time.Duration(secondsFromNow) * time.Second)
	return wp.enqueueAt(&runAt, job)
}

func (wp *WorkerPool) enqueueAt(runAt *time.Time, job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return err
	}

	// This ensures that all jobs currently in the queue or in-progress are unique
	return models.CreateUniqueJobByName(job.Name, job.Handler, string(argsAsJson), runAt)
}

// start starts all workers & requeuers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}

	for _, r := range wp.requeuers {
		r.start()
	}
}

// stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return
	}

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}

	for _, r := range wp.requeuers {
		wg.Add(1)
		go func(r *requeuer) {
			r.stop()
			wg.Done()
		}(r)
	}

	wg.Wait()
	wp.started = false
}
