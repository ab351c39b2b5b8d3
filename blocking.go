package gorun

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
)

// blockingSpawnCategory is the single catrate category used to smooth
// bursts of new blocking-pool OS threads: the pack's own rate limiter
// (go-catrate) is built for bursty per-category admission, and a sudden
// flood of spawn_blocking calls creating hundreds of threads in one
// instant is exactly that shape of burst (spec.md §4.6's elastic growth).
const blockingSpawnCategory = "blocking-thread-spawn"

// BlockingPoolConfig configures the elastic pool (spec.md §4.6, C6),
// populated from Builder options.
type BlockingPoolConfig struct {
	MaxThreads    int
	KeepAlive     time.Duration
	ThreadName    func(n uint64) string
	OnThreadStart func()
	OnThreadStop  func()
}

type blockingJob struct {
	fn   func()
	done chan struct{}
}

// BlockingPool runs synchronous work on a bounded, elastic set of OS
// threads so it never blocks a scheduler worker's run ticket (spec.md
// §4.6). Threads are created on demand up to MaxThreads, throttled by a
// catrate limiter so a burst of submissions doesn't spawn hundreds of
// threads in the same instant, and exit after sitting idle for
// KeepAlive.
type BlockingPool struct {
	cfg     BlockingPoolConfig
	limiter *catrate.Limiter
	metrics *Metrics

	mu     sync.Mutex
	queue  []*blockingJob
	wake   chan struct{}
	alive  int
	closed bool
	wg     sync.WaitGroup

	idleCount atomic.Int64
	nextID    atomic.Uint64
}

func newBlockingPool(cfg BlockingPoolConfig, metrics *Metrics) *BlockingPool {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = 512
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 10 * time.Second
	}
	return &BlockingPool{
		cfg:     cfg,
		limiter: catrate.NewLimiter(map[time.Duration]int{time.Second: 64}),
		metrics: metrics,
		wake:    make(chan struct{}),
	}
}

// Run executes fn on a pool thread and blocks the caller until it
// completes or ctx is cancelled. If the pool has already been shut down
// it returns ErrRuntimeShutdown without running fn; a shutdown that
// begins after fn was queued does not end the wait. Callers
// running as task code should route through yieldTicket first so the
// scheduler's run ticket is released for the duration (see
// SpawnOnPool).
func (p *BlockingPool) Run(ctx context.Context, fn func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrRuntimeShutdown
	}
	job := &blockingJob{fn: fn, done: make(chan struct{})}
	p.queue = append(p.queue, job)
	p.wg.Add(1)
	needSpawn := p.idleCount.Load() == 0
	close(p.wake)
	p.wake = make(chan struct{})
	p.mu.Unlock()

	if needSpawn {
		p.maybeSpawn()
	}

	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BlockingPool) maybeSpawn() {
	p.mu.Lock()
	if p.closed || p.alive >= p.cfg.MaxThreads || len(p.queue) == 0 {
		p.mu.Unlock()
		return
	}
	if _, ok := p.limiter.Allow(blockingSpawnCategory); !ok {
		p.mu.Unlock()
		time.AfterFunc(10*time.Millisecond, p.maybeSpawn)
		return
	}
	p.alive++
	p.mu.Unlock()
	go p.runWorker()
}

func (p *BlockingPool) runWorker() {
	id := p.nextID.Add(1)
	name := fmt.Sprintf("gorun-blocking-%d", id)
	if p.cfg.ThreadName != nil {
		// Go has no portable API to rename the underlying OS thread
		// (unlike pthread_setname_np in the spec's target language), so
		// this only affects diagnostics, not the actual kernel thread
		// name; see DESIGN.md.
		name = p.cfg.ThreadName(id)
	}
	getLogger().Debug().Str(`thread`, name).Log(`gorun: blocking worker started`)
	p.metrics.blockingThreadStarted()

	if p.cfg.OnThreadStart != nil {
		p.cfg.OnThreadStart()
	}
	defer func() {
		if p.cfg.OnThreadStop != nil {
			p.cfg.OnThreadStop()
		}
		getLogger().Debug().Str(`thread`, name).Log(`gorun: blocking worker stopped`)
		p.metrics.blockingThreadStopped()
		p.mu.Lock()
		p.alive--
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			wake := p.wake
			p.mu.Unlock()

			p.idleCount.Add(1)
			timer := time.NewTimer(p.cfg.KeepAlive)
			select {
			case <-wake:
				timer.Stop()
				p.idleCount.Add(-1)
			case <-timer.C:
				p.idleCount.Add(-1)
				return
			}
			p.mu.Lock()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runBlockingJob(job)
	}
}

func (p *BlockingPool) runBlockingJob(job *blockingJob) {
	defer p.wg.Done()
	defer close(job.done)
	defer func() {
		if r := recover(); r != nil {
			getLogger().Err().Interface(`panic`, r).Log(`gorun: blocking job panicked`)
		}
	}()
	job.fn()
}

// Close stops admitting new work and blocks until every already-queued or
// already-running job finishes or d elapses, whichever comes first
// (spec.md's `shutdown(Some(d))`: "join those that terminate within d, and
// abandon (leak) the rest"). A job still running past d keeps its worker
// goroutine alive in the background; Close does not wait for it. d <= 0
// returns immediately without waiting at all, matching
// Runtime.ShutdownBackground's "don't wait" semantics.
func (p *BlockingPool) Close(d time.Duration) {
	p.mu.Lock()
	p.closed = true
	close(p.wake)
	p.wake = make(chan struct{})
	p.mu.Unlock()

	if d <= 0 {
		return
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(d):
	}
}

// SpawnOnPool runs fn on the blocking pool and returns a JoinHandle for
// its result, following the same shape as a scheduled task's JoinHandle
// (spec.md §4.6's "looks like spawn to the caller" requirement) even
// though blocking work never holds a run ticket.
func SpawnOnPool[T any](ctx context.Context, p *BlockingPool, fn func() (T, error)) *JoinHandle[T] {
	taskCtx, cancel := context.WithCancel(ctx)
	h := &JoinHandle[T]{done: make(chan struct{}), cancel: cancel}

	go func() {
		var value T
		var err error
		runErr := p.Run(taskCtx, func() {
			value, err = fn()
		})
		if runErr != nil && err == nil {
			err = runErr
		}
		h.mu.Lock()
		h.value, h.err = value, err
		h.mu.Unlock()
		close(h.done)
	}()
	return h
}
