// Package dispatcher implements spec.md §4.9's Request Dispatcher: a fixed
// worker pool that runs each protocol request to completion, honoring
// cancellation and a soft deadline, and recovering panics at its boundary
// per spec.md §7 so a bug in one request cannot kill the server.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// DefaultSoftDeadline is spec.md §5's 200ms default per-request budget. It
// is advisory: work already CPU-bound to completion (parsing, scope
// building) is not preempted mid-computation, but a request whose context
// outlives the deadline is logged so slow paths are visible.
const DefaultSoftDeadline = 200 * time.Millisecond

// Task is one unit of dispatched work: a context (carrying cancellation)
// and a function computing the response.
type Task struct {
	ctx  context.Context
	fn   func(ctx context.Context) (interface{}, error)
	done chan result
}

type result struct {
	val interface{}
	err error
}

// Pool is a fixed-size goroutine pool consuming Tasks off a buffered
// channel, sized at construction from runtime.GOMAXPROCS(0) by default —
// the same bounded-worker-pool shape the teacher uses for its subscription
// poller and schema watcher.
type Pool struct {
	tasks        chan *Task
	workers      int
	softDeadline time.Duration
	log          *zap.SugaredLogger
	stop         chan struct{}
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithWorkers overrides the worker count (default runtime.GOMAXPROCS(0)).
func WithWorkers(n int) Option {
	return func(p *Pool) { p.workers = n }
}

// WithSoftDeadline overrides DefaultSoftDeadline.
func WithSoftDeadline(d time.Duration) Option {
	return func(p *Pool) { p.softDeadline = d }
}

// WithLogger attaches a logger used for panic recovery and deadline-miss
// reporting.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pool) { p.log = log }
}

// New builds and starts a Pool. Call Close to stop accepting new tasks and
// let in-flight ones finish.
func New(opts ...Option) *Pool {
	p := &Pool{
		tasks:        make(chan *Task, 256),
		softDeadline: DefaultSoftDeadline,
		stop:         make(chan struct{}),
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	for i := 0; i < p.workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	for {
		select {
		case <-p.stop:
			return
		case t := <-p.tasks:
			p.execute(t)
		}
	}
}

func (p *Pool) execute(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Errorw("dispatcher: recovered panic", "panic", r)
			}
			select {
			case t.done <- result{err: fmt.Errorf("internal error: %v", r)}:
			default:
			}
		}
	}()

	start := time.Now()
	val, err := t.fn(t.ctx)
	if elapsed := time.Since(start); elapsed > p.softDeadline && p.log != nil {
		p.log.Warnw("dispatcher: request exceeded soft deadline", "elapsed", elapsed, "deadline", p.softDeadline)
	}

	select {
	case t.done <- result{val: val, err: err}:
	case <-t.ctx.Done():
		// Caller cancelled and stopped listening; drop the result, per
		// spec.md §4.9's "a cancelled request stops further work and does
		// not reply".
	}
}

// Submit enqueues fn to run on the pool and blocks until it completes, is
// cancelled via ctx, or the pool is closed. A cancelled ctx causes Submit to
// return ctx.Err() without waiting for fn to finish running (fn may still
// complete in the background; its result is discarded).
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	t := &Task{ctx: ctx, fn: fn, done: make(chan result, 1)}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stop:
		return nil, fmt.Errorf("dispatcher: pool closed")
	}

	select {
	case r := <-t.done:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stop:
		return nil, fmt.Errorf("dispatcher: pool closed")
	}
}

// Close stops the pool; in-flight tasks run to completion but no new task
// is accepted.
func (p *Pool) Close() {
	close(p.stop)
}
