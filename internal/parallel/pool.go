// Package parallel schedules indexed work across a fixed set of goroutines.
//
// The CPU compute device runs one task per work-group; a dispatch of N
// groups becomes a Run(N, fn) call that returns once every group finished.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// span is a contiguous range of task indices handed to one worker.
type span struct {
	lo, hi int
	fn     func(i int)
	done   *sync.WaitGroup
}

func (s span) run() {
	defer s.done.Done()
	for i := s.lo; i < s.hi; i++ {
		s.fn(i)
	}
}

// WorkerPool runs indexed tasks on a fixed number of goroutines.
//
// Each worker owns a queue of spans. A worker whose queue is empty steals
// spans from the other queues, so slow work-groups do not stall a dispatch.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan span

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// grain is the number of spans a Run call aims to create per worker.
	grain int
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan span, workers),
		done:    make(chan struct{}),
		grain:   4,
	}
	for i := range workers {
		p.queues[i] = make(chan span, queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case s := <-own:
			s.run()
		default:
			if s, ok := p.steal(id); ok {
				s.run()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case s := <-own:
				s.run()
			}
		}
	}
}

func (p *WorkerPool) drain(q chan span) {
	for {
		select {
		case s := <-q:
			s.run()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) (span, bool) {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case s := <-p.queues[i]:
			return s, true
		default:
		}
	}
	return span{}, false
}

// Run calls fn(i) for every i in [0, n) and waits for all calls to return.
// Calls run concurrently and in no particular order.
//
// On a closed pool the calls run on the calling goroutine.
func (p *WorkerPool) Run(n int, fn func(i int)) {
	if n <= 0 || fn == nil {
		return
	}

	var wg sync.WaitGroup
	if !p.running.Load() {
		wg.Add(1)
		span{lo: 0, hi: n, fn: fn, done: &wg}.run()
		return
	}

	chunk := (n + p.workers*p.grain - 1) / (p.workers * p.grain)
	if chunk < 1 {
		chunk = 1
	}

	w := 0
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		s := span{lo: lo, hi: hi, fn: fn, done: &wg}
		wg.Add(1)
		select {
		case p.queues[w] <- s:
		case <-p.done:
			s.run()
		}
		w = (w + 1) % p.workers
	}
	wg.Wait()
}

// Close stops the workers after the queued spans have run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// Pending returns the number of spans waiting in the queues. The value is
// approximate while a Run is in progress.
func (p *WorkerPool) Pending() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
