package event

import (
	"reflect"
	"sync/atomic"
)

// Priority orders synchronous listener execution. Higher values run first.
// Any int value may be used; the named levels are provided for consistency.
type Priority int

const (
	PriorityLowest  Priority = -200
	PriorityLow     Priority = -100
	PriorityNormal  Priority = 0
	PriorityHigh    Priority = 100
	PriorityHighest Priority = 200
	PriorityMonitor Priority = 1000 // PriorityMonitor is for listeners that observe an event before anything else acts on it.
)

// Cancellable is implemented by events that listeners may cancel.
// Cancelling an event during synchronous delivery prevents lower priority listeners from running.
//
// Cancellable events should be posted as pointers so that all listeners share the same cancellation state.
type Cancellable interface {
	Cancel()
	Cancelled() bool
}

var _ Cancellable = (*Cancellation)(nil)

// Cancellation can be embedded in an event struct to make a pointer to it [Cancellable].
// It's safe for use by concurrently executing listeners.
type Cancellation struct {
	cancelled atomic.Bool
}

func (c *Cancellation) Cancel() {
	c.cancelled.Store(true)
}

func (c *Cancellation) Cancelled() bool {
	return c.cancelled.Load()
}

// IsCancelled reports whether evt is [Cancellable] and has been cancelled.
// A nil event is never cancelled.
func IsCancelled(evt any) bool {
	if isNilEvent(evt) {
		return false
	}
	c, ok := evt.(Cancellable)
	return ok && c.Cancelled()
}

// isNilEvent reports whether evt is nil or a nil pointer, neither of which can be delivered.
func isNilEvent(evt any) bool {
	if evt == nil {
		return true
	}
	v := reflect.ValueOf(evt)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// TypeOf returns the event type key for E, as used by [Dispatcher.HasListeners].
func TypeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}
