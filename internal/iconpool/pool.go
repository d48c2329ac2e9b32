// Package iconpool loads icons and thumbnails for the entries of the current
// listing on a small pool of background workers.
//
// Jobs live in a fixed-capacity ring guarded by a mutex. Workers wait on a
// work signal and a terminate signal. Every job carries the listing
// generation it was queued under; when the panel swaps listings it calls
// Sleep, which empties the queue and waits until no worker is inside a job,
// and results from an older generation are discarded.
package iconpool

import (
	"context"
	"image"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
)

// Loader produces the image shown for one entry.
type Loader interface {
	Load(ctx context.Context, path string, e *listing.Entry) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string, e *listing.Entry) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, path string, e *listing.Entry) (image.Image, error) {
	return f(ctx, path, e)
}

// Job is one queued load.
type Job struct {
	Gen   uint64
	Index int
	Path  string
	Entry *listing.Entry
}

// Result is delivered to the owner for jobs of the current generation.
type Result struct {
	Gen   uint64
	Index int
	Name  string
	Image image.Image
	Err   error
}

// Config configures a Pool.
type Config struct {
	Workers  int
	Capacity int
	Loader   Loader
	OnResult func(Result)
	OnDrop   func() // queue full
}

// Stats counts what happened to jobs.
type Stats struct {
	Queued    int
	Dropped   int
	Delivered int
	Stale     int
}

// Pool is a bounded icon loader.
type Pool struct {
	cfg Config

	mu       sync.Mutex
	idle     *sync.Cond
	ring     []Job
	head     int
	n        int
	gen      uint64
	sleeping bool
	active   int
	stats    Stats

	work      chan struct{}
	terminate chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	group     singleflight.Group
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a sleeping pool. Call Start to run the workers.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:       cfg,
		ring:      make([]Job, cfg.Capacity),
		sleeping:  true,
		work:      make(chan struct{}, 1),
		terminate: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	debug.Log(debug.ICON, "iconpool: started %d workers, capacity %d", p.cfg.Workers, p.cfg.Capacity)
}

// Stop terminates the workers and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.Sleep()
		p.cancel()
		close(p.terminate)
		p.wg.Wait()
		debug.Log(debug.ICON, "iconpool: stopped")
	})
}

// Sleep empties the queue and blocks until no worker is running a job.
// After Sleep returns no worker holds an entry pointer.
func (p *Pool) Sleep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeping = true
	p.head, p.n = 0, 0
	for i := range p.ring {
		p.ring[i] = Job{}
	}
	for p.active > 0 {
		p.idle.Wait()
	}
}

// Sleeping reports whether the pool is quiesced.
func (p *Pool) Sleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeping
}

// Wake queues entries of the listing installed under gen. dir is joined
// with each entry name to form the load path. It returns how many jobs were
// queued; the rest were dropped because the ring was full.
func (p *Pool) Wake(gen uint64, dir string, entries []*listing.Entry) int {
	p.mu.Lock()
	p.gen = gen
	p.sleeping = false
	queued := 0
	dropped := 0
	for i, e := range entries {
		if e == nil || e.IsUpDir() {
			continue
		}
		if p.n == len(p.ring) {
			dropped++
			continue
		}
		p.ring[(p.head+p.n)%len(p.ring)] = Job{Gen: gen, Index: i, Path: filepath.Join(dir, e.Name), Entry: e}
		p.n++
		queued++
	}
	p.stats.Queued += queued
	p.stats.Dropped += dropped
	p.mu.Unlock()

	if p.cfg.OnDrop != nil {
		for i := 0; i < dropped; i++ {
			p.cfg.OnDrop()
		}
	}
	if queued > 0 {
		p.signal()
	}
	debug.Log(debug.ICON, "iconpool: wake gen=%d queued=%d dropped=%d", gen, queued, dropped)
	return queued
}

// Generation returns the generation the pool was last woken with.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Pending returns the number of queued jobs.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *Pool) signal() {
	select {
	case p.work <- struct{}{}:
	default:
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.terminate:
			return
		case <-p.work:
		}
		for {
			job, ok := p.next()
			if !ok {
				break
			}
			p.run(job)
		}
	}
}

// next pops a job and marks the caller active.
func (p *Pool) next() (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sleeping || p.n == 0 {
		return Job{}, false
	}
	job := p.ring[p.head]
	p.ring[p.head] = Job{}
	p.head = (p.head + 1) % len(p.ring)
	p.n--
	p.active++
	if p.n > 0 {
		p.signal()
	}
	return job, true
}

func (p *Pool) run(job Job) {
	defer func() {
		p.mu.Lock()
		p.active--
		if p.active == 0 {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}()

	v, err, _ := p.group.Do(job.Path, func() (any, error) {
		return p.cfg.Loader.Load(p.ctx, job.Path, job.Entry)
	})
	img, _ := v.(image.Image)
	res := Result{Gen: job.Gen, Index: job.Index, Name: job.Entry.Name, Image: img, Err: err}

	p.mu.Lock()
	stale := p.sleeping || job.Gen != p.gen
	if stale {
		p.stats.Stale++
	} else {
		p.stats.Delivered++
	}
	p.mu.Unlock()
	if stale {
		debug.Log(debug.ICON, "iconpool: drop stale result gen=%d for %s", job.Gen, job.Path)
		return
	}
	if p.cfg.OnResult != nil {
		p.cfg.OnResult(res)
	}
}
