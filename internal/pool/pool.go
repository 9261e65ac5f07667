// Package pool schedules recurring bundle build jobs on a fixed number of
// worker goroutines, ordered by deadline.
package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Pool runs named jobs in deadline order. A job function returns the time it
// wants to run next; returning the zero time removes the job from the pool.
// Adding a job while a worker waits for the next deadline wakes the worker.
type Pool struct {
	mu    sync.Mutex
	queue []*job
	reg   map[string]*job
	wait  chan struct{}
}

type job struct {
	name     string
	fn       func(context.Context) time.Time
	deadline time.Time
	rerun    bool
}

func New(workers int) *Pool {
	p := Pool{reg: make(map[string]*job)}

	for range workers {
		go p.work()
	}

	return &p
}

// Add registers a job and schedules its first run immediately.
func (p *Pool) Add(name string, fn func(context.Context) time.Time) {
	p.finish(&job{name: name, fn: fn}, time.Now())
}

func (p *Pool) work() {
	for {
		j := p.dequeue()
		p.finish(j, j.fn(context.Background()))
	}
}

// Trigger schedules the named job to run now. If the job is queued, it is
// pulled to the front; if it is currently running, it re-runs right after the
// current run instead of waiting for its returned deadline.
func (p *Pool) Trigger(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.IndexFunc(p.queue, func(j *job) bool { return j.name == name }); i != -1 {
		p.queue[i].deadline = time.Now()
		p.sortAndWake()
		return nil
	}
	if j, ok := p.reg[name]; ok {
		j.rerun = true
		return nil
	}

	return fmt.Errorf("no job with name %s", name)
}

// sortAndWake must be called with p.mu held.
func (p *Pool) sortAndWake() {
	slices.SortFunc(p.queue, func(a, b *job) int {
		return a.deadline.Compare(b.deadline)
	})

	if p.wait != nil {
		close(p.wait)
		p.wait = nil
	}
}

// finish requeues j with the deadline its run returned, honoring a rerun
// request that arrived while the job was executing. All deadline and rerun
// state is touched under p.mu only.
func (p *Pool) finish(j *job, deadline time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if j.rerun {
		j.rerun = false
		deadline = time.Now()
	}
	j.deadline = deadline

	if deadline.IsZero() {
		// Job requested removal from the pool.
		delete(p.reg, j.name)
		return
	}

	p.reg[j.name] = j
	p.queue = append(p.queue, j)
	p.sortAndWake()
}

func (p *Pool) dequeue() *job {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		var j *job
		if len(p.queue) == 0 {
			// Nothing queued: park on a far-future deadline until woken.
			j = &job{deadline: time.Now().Add(time.Hour * 24 * 365)}
		} else {
			j = p.queue[0]
		}

		if j.deadline.After(time.Now()) {
			if p.wait == nil {
				p.wait = make(chan struct{})
			}

			// Snapshot under the lock; Trigger may rewrite the deadline.
			wait := p.wait
			deadline := j.deadline

			p.mu.Unlock()

			select {
			case <-time.After(time.Until(deadline)):
			case <-wait:
			}

			p.mu.Lock()
			continue
		}

		break
	}

	var j *job
	j, p.queue = p.queue[0], p.queue[1:]
	return j
}
