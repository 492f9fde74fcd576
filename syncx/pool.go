package syncx

import "sync"

// Pool is a typed wrapper of [sync.Pool].
// Values are passed through an optional reset function before being returned to the pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

// NewPool creates a typed [Pool]. The factory must not be nil, reset may be.
func NewPool[T any](factory func() T, reset func(T) T) *Pool[T] {
	if factory == nil {
		panic("nil factory function")
	}
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		return factory()
	}
	return p
}

// Get returns an arbitrary value from the [Pool], or a new one from the factory.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put resets val and adds it back to the [Pool].
func (p *Pool[T]) Put(val T) {
	if p.reset != nil {
		val = p.reset(val)
	}
	p.pool.Put(val)
}
