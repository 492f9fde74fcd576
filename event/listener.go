package event

import (
	"fmt"
	"reflect"
)

// Listener is a registered callable bound to one event type.
// Create one with [NewListener] or [NewListenerErr] for explicit registration, or let [Dispatcher.Register] build them by scanning an object.
//
// A Listener is a handle: registering the same *Listener twice is a no-op, and [Dispatcher.DeregisterListener] removes it by identity.
type Listener struct {
	eventType reflect.Type
	priority  Priority
	name      string
	invoke    func(evt any) error

	owner   any
	ownerID any
	method  string // Only set for listeners created from a method of the owner.
}

// ListenerOption customizes a [Listener] at construction time.
type ListenerOption func(l *Listener)

// WithPriority sets the synchronous execution priority. The default is [PriorityNormal].
func WithPriority(p Priority) ListenerOption {
	return func(l *Listener) {
		l.priority = p
	}
}

// WithOwner associates the [Listener] with an owner, so it's removed when the owner is passed to [Dispatcher.Deregister].
// An owner that can't be used as an identity (a nil pointer or non-comparable value) is ignored.
func WithOwner(owner any) ListenerOption {
	return func(l *Listener) {
		l.setOwner(owner)
	}
}

// WithName sets a descriptive name used in logs and errors.
func WithName(name string) ListenerOption {
	return func(l *Listener) {
		if len(name) > 0 {
			l.name = name
		}
	}
}

// NewListener creates a [Listener] for events of exactly type E.
// E must be a concrete type, since delivery matches the dynamic type of the posted event.
func NewListener[E any](fn func(E), opts ...ListenerOption) *Listener {
	if fn == nil {
		panic("nil listener function")
	}
	return newFuncListener[E](func(evt E) error {
		fn(evt)
		return nil
	}, opts)
}

// NewListenerErr is like [NewListener], but errors returned from fn are reported to the dispatcher's error handler.
func NewListenerErr[E any](fn func(E) error, opts ...ListenerOption) *Listener {
	if fn == nil {
		panic("nil listener function")
	}
	return newFuncListener[E](fn, opts)
}

func newFuncListener[E any](fn func(E) error, opts []ListenerOption) *Listener {
	eventType := reflect.TypeOf((*E)(nil)).Elem()
	if eventType.Kind() == reflect.Interface {
		panic(fmt.Sprintf("listener event type must be concrete, got interface %s", eventType))
	}
	l := &Listener{
		eventType: eventType,
		name:      fmt.Sprintf("func(%s)", eventType),
		invoke: func(evt any) error {
			return fn(evt.(E))
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) setOwner(owner any) {
	id, ok := identity(owner)
	if !ok {
		return
	}
	l.owner = owner
	l.ownerID = id
}

// EventType returns the exact event type this [Listener] receives.
func (l *Listener) EventType() reflect.Type {
	return l.eventType
}

func (l *Listener) Priority() Priority {
	return l.priority
}

// Owner returns the owning object, or nil if there isn't one.
func (l *Listener) Owner() any {
	return l.owner
}

func (l *Listener) Name() string {
	return l.name
}

func (l *Listener) String() string {
	return fmt.Sprintf("%s[%s@%d]", l.name, l.eventType, l.priority)
}

// identity returns a comparable key that identifies provider.
// Reference types are identified by address so that non-comparable pointees still work.
func identity(provider any) (any, bool) {
	if provider == nil {
		return nil, false
	}
	v := reflect.ValueOf(provider)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
		return refIdentity{typ: v.Type(), ptr: v.Pointer()}, true
	}
	if !v.Comparable() {
		return nil, false
	}
	return provider, true
}

type refIdentity struct {
	typ reflect.Type
	ptr uintptr
}

type methodKey struct {
	owner  any
	method string
}
