package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wapc-sdk/wapc-go/waerrors"
)

// Result is what a dispatched call eventually produces.
type Result struct {
	Response []byte
	Err      error
}

type workItem struct {
	ctx     context.Context
	op      string
	payload []byte
	result  chan Result
	done    func()
}

func (item *workItem) complete(res Result) {
	item.result <- res
	item.done()
}

// Pool multiplexes calls across an elastic population of Workers. The zero
// value is not usable; construct one with New.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	items  chan *workItem
	idle   chan *worker
	closed chan struct{}

	closing int32

	workersMu sync.Mutex
	workers   map[*worker]struct{}
	workerWG  sync.WaitGroup

	inFlight sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Option configures ambient concerns of a Pool that don't belong in the
// validated Config, mirroring wapc.Option.
type Option func(*Pool)

// WithLogger overrides the pool's structured logger. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// New builds a Pool per cfg, starting cfg.MinThreads workers immediately.
// Zero-valued elasticity fields in cfg fall back to the package defaults
// before validation runs.
func New(cfg Config, opts ...Option) (*Pool, error) {
	cfg = cfg.withDefaults()
	if cfg.Factory == nil {
		return nil, fmt.Errorf("pool: Factory is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("pool: invalid config: %w", err)
	}

	p := &Pool{
		cfg:     cfg,
		logger:  slog.Default(),
		items:   make(chan *workItem),
		idle:    make(chan *worker, cfg.MaxThreads),
		closed:  make(chan struct{}),
		workers: make(map[*worker]struct{}, cfg.MaxThreads),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < cfg.MinThreads; i++ {
		if _, err := p.spawnWorker(nil); err != nil {
			close(p.closed)
			return nil, fmt.Errorf("pool: spawning initial worker %d/%d: %w", i+1, cfg.MinThreads, err)
		}
	}

	go p.dispatchLoop()
	return p, nil
}

// Dispatch enqueues one call and returns a channel the caller reads for
// its Result. The dispatch goroutine pops enqueued items in FIFO order and
// hands each to an idle Worker, growing the population first if none is
// idle within MaxWait; completion order across items is not guaranteed.
func (p *Pool) Dispatch(ctx context.Context, op string, payload []byte) (<-chan Result, error) {
	if atomic.LoadInt32(&p.closing) == 1 {
		return nil, &waerrors.PoolShutdownError{Pool: p.cfg.Name}
	}

	p.inFlight.Add(1)
	item := &workItem{
		ctx:     ctx,
		op:      op,
		payload: payload,
		result:  make(chan Result, 1),
		done:    p.inFlight.Done,
	}

	select {
	case p.items <- item:
		return item.result, nil
	case <-p.closed:
		p.inFlight.Done()
		return nil, &waerrors.PoolShutdownError{Pool: p.cfg.Name}
	case <-ctx.Done():
		p.inFlight.Done()
		return nil, ctx.Err()
	}
}

// Call is the blocking convenience form of Dispatch: it enqueues op and
// payload and waits for the Result.
func (p *Pool) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	resultCh, err := p.Dispatch(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-resultCh:
		return res.Response, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NumWorkers reports the current population size, for tests and
// diagnostics.
func (p *Pool) NumWorkers() int {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	return len(p.workers)
}

// Close shuts the pool down. Calls submitted after Close (or concurrent
// with it, if AbortOnClose) fail with PoolShutdownError; every worker
// exits after finishing whatever call it is currently executing. Close is
// idempotent and safe to call more than once.
func (p *Pool) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		atomic.StoreInt32(&p.closing, 1)

		if p.cfg.AbortOnClose {
			close(p.closed)
		}
		p.inFlight.Wait()
		if !p.cfg.AbortOnClose {
			close(p.closed)
		}

		p.workerWG.Wait()

		p.workersMu.Lock()
		defer p.workersMu.Unlock()
		var errs []error
		for w := range p.workers {
			if err := w.host.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

func (p *Pool) dispatchLoop() {
	for {
		select {
		case item := <-p.items:
			p.assign(item)
		case <-p.closed:
			return
		}
	}
}

// assign hands item to an idle worker, growing the population if none
// becomes idle within MaxWait and there is room to grow.
func (p *Pool) assign(item *workItem) {
	if w := p.tryTakeIdleWorker(); w != nil {
		w.deliver(item)
		return
	}

	timer := time.NewTimer(p.cfg.MaxWait)
	defer timer.Stop()

	w, reason := p.waitForIdleWorker(timer.C, item.ctx.Done(), p.closed)
	if w != nil {
		w.deliver(item)
		return
	}
	if p.failOn(item, reason) {
		return
	}

	if p.count() < p.cfg.MaxThreads {
		if _, err := p.spawnWorker(item); err != nil {
			item.complete(Result{Err: fmt.Errorf("pool: growing population: %w", err)})
		}
		return
	}

	w, reason = p.waitForIdleWorker(nil, item.ctx.Done(), p.closed)
	if w != nil {
		w.deliver(item)
		return
	}
	p.failOn(item, reason)
}

func (p *Pool) failOn(item *workItem, reason idleWaitResult) bool {
	switch reason {
	case idleWaitCtxDone:
		item.complete(Result{Err: item.ctx.Err()})
		return true
	case idleWaitClosed:
		item.complete(Result{Err: &waerrors.PoolShutdownError{Pool: p.cfg.Name}})
		return true
	default:
		return false
	}
}

type idleWaitResult int

const (
	idleWaitNone idleWaitResult = iota
	idleWaitTimeout
	idleWaitCtxDone
	idleWaitClosed
)

// tryTakeIdleWorker claims an announced-idle worker without blocking,
// discarding stale announcements from workers that retired concurrently.
func (p *Pool) tryTakeIdleWorker() *worker {
	for {
		select {
		case w := <-p.idle:
			if atomic.CompareAndSwapInt32(&w.claimed, 0, 1) {
				return w
			}
		default:
			return nil
		}
	}
}

// waitForIdleWorker blocks until a worker is claimed, timeout fires, ctx is
// cancelled, or the pool closes. A nil timeout channel waits indefinitely.
func (p *Pool) waitForIdleWorker(timeout <-chan time.Time, ctxDone <-chan struct{}, closed <-chan struct{}) (*worker, idleWaitResult) {
	for {
		select {
		case w := <-p.idle:
			if atomic.CompareAndSwapInt32(&w.claimed, 0, 1) {
				return w, idleWaitNone
			}
		case <-timeout:
			return nil, idleWaitTimeout
		case <-ctxDone:
			return nil, idleWaitCtxDone
		case <-closed:
			return nil, idleWaitClosed
		}
	}
}

// spawnWorker constructs a worker via the pool's Factory and starts its
// goroutine. If initial is non-nil the worker is pre-claimed and handed
// initial before it ever announces itself idle, so a concurrent idle-claim
// race can never double-deliver to a worker this call is also about to use.
func (p *Pool) spawnWorker(initial *workItem) (*worker, error) {
	host, err := p.cfg.Factory()
	if err != nil {
		return nil, err
	}

	w := &worker{host: host, input: make(chan *workItem, 1), pool: p}
	if initial != nil {
		w.claimed = 1
		w.input <- initial
	}

	p.workersMu.Lock()
	p.workers[w] = struct{}{}
	p.workersMu.Unlock()

	p.workerWG.Add(1)
	go w.run()
	return w, nil
}

func (p *Pool) count() int {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	return len(p.workers)
}

// tryRetire removes w from the population if doing so would not drop it
// below MinThreads. Called only from w's own goroutine when it has been
// idle for MaxIdle.
func (p *Pool) tryRetire(w *worker) bool {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	if len(p.workers) <= p.cfg.MinThreads {
		return false
	}
	delete(p.workers, w)
	return true
}

func (p *Pool) removeWorker(w *worker) {
	p.workersMu.Lock()
	delete(p.workers, w)
	p.workersMu.Unlock()
}
