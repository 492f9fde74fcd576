// Package syncx provides small concurrency helpers used by the event dispatcher.
package syncx

import "sync"

// LockFunc runs fn while holding mux.
func LockFunc(mux sync.Locker, fn func()) {
	mux.Lock()
	defer mux.Unlock()
	fn()
}

// LockFuncT runs fn while holding mux and returns its result.
func LockFuncT[T any](mux sync.Locker, fn func() T) T {
	mux.Lock()
	defer mux.Unlock()
	return fn()
}

// RLocker is satisfied by [sync.RWMutex].
type RLocker interface {
	RLock()
	RUnlock()
}

// RLockFunc runs fn while holding a read lock on mux.
func RLockFunc(mux RLocker, fn func()) {
	mux.RLock()
	defer mux.RUnlock()
	fn()
}

// RLockFuncT runs fn while holding a read lock on mux and returns its result.
func RLockFuncT[T any](mux RLocker, fn func() T) T {
	mux.RLock()
	defer mux.RUnlock()
	return fn()
}
