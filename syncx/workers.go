package syncx

import (
	"sync"
)

// PanicFunc receives the value recovered from a panicking task.
type PanicFunc func(recovered any)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
// Tasks are queued in a buffered channel, so Submit only blocks when the queue is full.
type WorkerPool struct {
	tasks   chan func()
	onPanic PanicFunc

	mux    sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool starts workers goroutines that consume a queue of the given size.
// Both values must be >= 1.
func NewWorkerPool(workers, queue int, onPanic PanicFunc) *WorkerPool {
	if workers < 1 {
		panic("worker count must be >= 1")
	}
	if queue < 1 {
		panic("queue size must be >= 1")
	}
	p := &WorkerPool{
		tasks:   make(chan func(), queue),
		onPanic: onPanic,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	task()
}

// Submit queues a task for execution.
// False is returned if the pool has been closed, in which case the task will not run.
func (p *WorkerPool) Submit(task func()) bool {
	if task == nil {
		return false
	}
	// The read lock keeps Close from closing the channel while a send is in progress.
	p.mux.RLock()
	defer p.mux.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// TrySubmit queues a task only if there is room in the queue.
// False is returned if the queue is full or the pool has been closed.
func (p *WorkerPool) TrySubmit(task func()) bool {
	if task == nil {
		return false
	}
	p.mux.RLock()
	defer p.mux.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks, waits for queued tasks to finish, and stops all workers.
// This is safe to call multiple times.
func (p *WorkerPool) Close() {
	LockFunc(&p.mux, func() {
		if p.closed {
			return
		}
		p.closed = true
		close(p.tasks)
	})
	p.wg.Wait()
}

// Closed reports whether [WorkerPool.Close] has been called.
func (p *WorkerPool) Closed() bool {
	return RLockFuncT(&p.mux, func() bool {
		return p.closed
	})
}
