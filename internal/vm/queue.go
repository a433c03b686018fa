package vm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// JobState is the lifecycle of a queued job.
type JobState int32

const (
	JobPending JobState = iota
	JobRunning
	JobComplete
	JobError
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "Pending"
	case JobRunning:
		return "Running"
	case JobComplete:
		return "Complete"
	case JobError:
		return "Error"
	default:
		return "?"
	}
}

// Job is one deferred call: the callable plus its argument, the context it
// was pushed under, and the cloned VM it executes in.
type Job struct {
	ID   string
	Ctx  string
	Fn   *FunctionValue
	Args []Value

	vm     *VM
	state  atomic.Int32
	result Value
	err    error
}

// State returns the job's current lifecycle state.
func (j *Job) State() JobState { return JobState(j.state.Load()) }

// Queue is the deferred-call backend: a FIFO drained by a small worker
// pool executing jobs in cloned VMs. Within a context,
// pushes are FIFO; across contexts there are no ordering guarantees.
type Queue struct {
	cfg Config

	mu      sync.Mutex
	ch      chan *Job
	group   *errgroup.Group
	started bool
	closed  bool

	nextJob int64
	nextCtx int64

	byCtx map[string][]*Job
	wg    map[string]*sync.WaitGroup
	allWG sync.WaitGroup
}

// NewQueue creates a queue backend with the given worker-pool
// configuration. Workers start lazily on the first push.
func NewQueue(cfg Config) *Queue {
	return &Queue{
		cfg:   cfg,
		ch:    make(chan *Job, 1024),
		byCtx: make(map[string][]*Job),
		wg:    make(map[string]*sync.WaitGroup),
	}
}

// NewContext allocates a fresh context id (EnterContext).
func (q *Queue) NewContext() string {
	return fmt.Sprintf("ctx_%d", atomic.AddInt64(&q.nextCtx, 1))
}

func (q *Queue) startLocked() {
	if q.started {
		return
	}
	q.started = true
	q.group = new(errgroup.Group)
	workers := q.cfg.MaxThreads
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.group.Go(q.worker)
	}
}

func (q *Queue) worker() error {
	for job := range q.ch {
		q.runJob(job)
	}
	return nil
}

func (q *Queue) runJob(job *Job) {
	defer func() {
		q.mu.Lock()
		if wg, ok := q.wg[job.Ctx]; ok {
			wg.Done()
		}
		q.mu.Unlock()
		q.allWG.Done()
	}()

	job.state.Store(int32(JobRunning))
	result, err := job.vm.CallFunction(job.Fn, job.Args)
	if err != nil {
		job.err = &QueueExecutionError{JobID: job.ID, Err: err}
		job.state.Store(int32(JobError))
		return
	}
	job.result = result
	job.vm.publishResult(job.ID, result)
	job.state.Store(int32(JobComplete))
}

// Push enqueues fn(args) as a job pinned to ctx, executing in jobVM (a
// clone of the pushing VM's state). It returns the job id.
func (q *Queue) Push(ctx string, fn *FunctionValue, args []Value, jobVM *VM) string {
	q.mu.Lock()
	q.startLocked()
	id := fmt.Sprintf("job_%d", atomic.AddInt64(&q.nextJob, 1))
	job := &Job{ID: id, Ctx: ctx, Fn: fn, Args: args, vm: jobVM}
	q.byCtx[ctx] = append(q.byCtx[ctx], job)
	wg, ok := q.wg[ctx]
	if !ok {
		wg = new(sync.WaitGroup)
		q.wg[ctx] = wg
	}
	wg.Add(1)
	q.allWG.Add(1)
	q.mu.Unlock()

	q.ch <- job
	return id
}

// Drain blocks until every job pushed under ctx has completed, then
// surfaces their failures, if any, as an aggregate error. An empty ctx
// drains every queue.
func (q *Queue) Drain(ctx string) error {
	if ctx == "" {
		q.allWG.Wait()
	} else {
		q.mu.Lock()
		wg := q.wg[ctx]
		q.mu.Unlock()
		if wg != nil {
			wg.Wait()
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	var errs []error
	collect := func(jobs []*Job) []*Job {
		var remaining []*Job
		for _, j := range jobs {
			switch j.State() {
			case JobError:
				errs = append(errs, j.err)
			case JobComplete:
				// consumed
			default:
				remaining = append(remaining, j)
			}
		}
		return remaining
	}
	if ctx == "" {
		for c, jobs := range q.byCtx {
			q.byCtx[c] = collect(jobs)
		}
	} else {
		q.byCtx[ctx] = collect(q.byCtx[ctx])
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	agg := errs[0]
	for _, e := range errs[1:] {
		agg = fmt.Errorf("%w; %w", agg, e)
	}
	return agg
}

// Close shuts the worker pool down after the in-flight jobs finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed || !q.started {
		q.closed = true
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.allWG.Wait()
	close(q.ch)
	return q.group.Wait()
}
