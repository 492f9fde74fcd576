package event

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/eventsys/syncx"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

var (
	instance *Dispatcher
	initOnce sync.Once
)

// InitInstance configures the global [Dispatcher] returned by [Instance].
// True is returned if this call created the instance, false if it already existed.
// Invalid options panic, as with [New].
func InitInstance(opts ...Option) bool {
	var created bool
	initOnce.Do(func() {
		instance = New(opts...)
		created = true
	})
	return created
}

// Instance returns a global [Dispatcher], creating one with default settings if [InitInstance] hasn't been called.
func Instance() *Dispatcher {
	InitInstance()
	return instance
}

// Stats is a point in time view of a [Dispatcher].
type Stats struct {
	Listeners int    // Listeners is the number of registered listeners.
	Types     int    // Types is the number of distinct event types with listeners.
	Posted    uint64 // Posted counts non-nil events passed to any post method.
	Cancelled uint64 // Cancelled counts posts that ended with a cancelled event.
	Failures  uint64 // Failures counts listener errors and panics.
}

// Dispatcher delivers posted events to the listeners registered for their exact dynamic type.
// All methods are safe for concurrent use, including registering and deregistering from within a listener.
// Changes to the registry made during delivery apply to the next post.
type Dispatcher struct {
	reg     *registry
	pool    *syncx.WorkerPool
	log     *slog.Logger
	onError func(error)

	posted    atomic.Uint64
	cancelled atomic.Uint64
	failures  atomic.Uint64
}

// New creates a [Dispatcher]. This panics if an [Option] is invalid; use [NewE] to get an error instead.
func New(opts ...Option) *Dispatcher {
	d, err := NewE(opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// NewE creates a [Dispatcher], returning an error if an [Option] is invalid.
func NewE(opts ...Option) (*Dispatcher, error) {
	conf := dispatcherConf{
		numWorkers: DefaultNumWorkers,
		queueSize:  DefaultQueueSize,
	}
	var errs []error
	for _, opt := range opts {
		if err := opt(&conf); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if conf.logger == nil {
		conf.logger = slog.Default()
	}
	d := &Dispatcher{
		reg:     newRegistry(),
		log:     conf.logger,
		onError: conf.onError,
	}
	if d.onError == nil {
		d.onError = func(err error) {
			d.log.Error("Listener failed", "error", err)
		}
	}
	d.pool = syncx.NewWorkerPool(conf.numWorkers, conf.queueSize, func(recovered any) {
		d.log.Error("Panic in async delivery", "recovered", recovered)
	})
	return d, nil
}

// Post delivers evt synchronously on the calling goroutine, in descending priority order.
// If evt is [Cancellable], delivery stops as soon as it's cancelled, and true is returned.
// An event that is already cancelled when posted reaches no listeners.
// Nil events, including nil pointers, are ignored.
func (d *Dispatcher) Post(evt any) bool {
	if isNilEvent(evt) {
		return false
	}
	d.posted.Add(1)
	c, cancellable := evt.(Cancellable)
	for _, l := range d.reg.listeners(reflect.TypeOf(evt)) {
		if cancellable && c.Cancelled() {
			break
		}
		d.invoke(l, evt)
	}
	return d.finish(evt)
}

// PostWith delivers evt either synchronously (see [Dispatcher.Post]) or asynchronously.
//
// Asynchronous delivery ignores priority and runs listeners concurrently on the dispatcher's workers, so listeners and the event must be safe for concurrent use.
// Cancellation doesn't stop other listeners in this mode.
// When await is true, this blocks until every listener has finished and returns the final cancellation status.
// The calling goroutine runs any listener that no worker has picked up yet, so awaiting from within a listener can't starve the pool.
// When await is false, this returns immediately, and the returned status only reflects listeners that happened to finish already.
func (d *Dispatcher) PostWith(evt any, asynchronous, await bool) bool {
	if !asynchronous {
		return d.Post(evt)
	}
	result, tasks := d.postAsync(evt, await)
	if !await {
		return IsCancelled(evt)
	}
	for _, task := range tasks {
		task.run()
	}
	return result.Await()
}

// PostAsync delivers evt asynchronously like [Dispatcher.PostWith], returning a [syncx.Future] that resolves to the cancellation status once every listener has finished.
// Listeners that need to wait for a nested post should use [Dispatcher.PostWith] instead of awaiting this [syncx.Future], since this doesn't help the workers.
func (d *Dispatcher) PostAsync(evt any) syncx.Future[bool] {
	result, _ := d.postAsync(evt, false)
	return result
}

// delivery is one listener invocation that runs at most once, on whichever goroutine claims it first.
type delivery struct {
	claimed atomic.Bool
	fn      func()
}

func (t *delivery) run() {
	if t.claimed.CompareAndSwap(false, true) {
		t.fn()
	}
}

func (d *Dispatcher) postAsync(evt any, callerHelps bool) (syncx.Future[bool], []*delivery) {
	if isNilEvent(evt) {
		return syncx.Resolved(false), nil
	}
	d.posted.Add(1)
	listeners := d.reg.listeners(reflect.TypeOf(evt))
	if len(listeners) == 0 {
		return syncx.Resolved(d.finish(evt)), nil
	}
	result := syncx.NewFuture[bool]()
	var remaining atomic.Int64
	remaining.Store(int64(len(listeners)))
	tasks := make([]*delivery, len(listeners))
	for i, l := range listeners {
		l := l
		task := &delivery{fn: func() {
			defer func() {
				if remaining.Add(-1) == 0 {
					result.Resolve(d.finish(evt))
				}
			}()
			d.invoke(l, evt)
		}}
		tasks[i] = task
		// A full queue never blocks the poster.
		if !d.pool.TrySubmit(task.run) && !callerHelps {
			go task.run()
		}
	}
	return result, tasks
}

func (d *Dispatcher) finish(evt any) bool {
	if IsCancelled(evt) {
		d.cancelled.Add(1)
		return true
	}
	return false
}

func (d *Dispatcher) invoke(l *Listener, evt any) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(&ListenerError{Listener: l, Event: evt, Err: fmt.Errorf("%w: %v", ErrListenerPanic, r)})
		}
	}()
	if err := l.invoke(evt); err != nil {
		d.fail(&ListenerError{Listener: l, Event: evt, Err: err})
	}
}

func (d *Dispatcher) fail(err *ListenerError) {
	d.failures.Add(1)
	d.onError(err)
}

// Register scans each object for listener methods and registers them.
//
// A listener method is an exported method named with the [ListenerPrefix] followed by an upper case letter (e.g. OnUserCreated), that accepts exactly one argument of a concrete type, and returns nothing or an error.
// The argument type is the event type the method listens to.
// Priorities are taken from [PriorityProvider] if implemented, and [ListenerSource] listeners are registered as well.
//
// Objects that can't own listeners (nil or non-comparable values) are skipped. Methods that are already registered are left as-is.
func (d *Dispatcher) Register(objects ...any) {
	for _, obj := range objects {
		d.registerObject(obj)
	}
}

func (d *Dispatcher) registerObject(obj any) {
	ownerID, ok := identity(obj)
	if !ok {
		d.log.Debug("Skipping registration", "error", fmt.Errorf("%w: %T", ErrInvalidProvider, obj))
		return
	}
	for _, method := range listenerMethods(obj) {
		l, err := methodListener(method, obj)
		if err != nil {
			d.log.Debug("Skipping listener method", "error", err)
			continue
		}
		d.add(l, nil)
	}
	if src, ok := obj.(ListenerSource); ok {
		for _, l := range src.Listeners() {
			if l == nil {
				continue
			}
			d.add(l, ownerID)
		}
	}
}

func (d *Dispatcher) add(l *Listener, fallbackOwner any) bool {
	if !d.reg.add(l, fallbackOwner) {
		d.log.Debug("Listener not registered", "listener", l.Name(), "error", ErrDuplicate)
		return false
	}
	d.log.Debug("Registered listener", "listener", l.Name(), "type", l.eventType.String(), "priority", int(l.priority))
	return true
}

// RegisterMethod registers the named method of provider as a listener.
// The method name doesn't need the [ListenerPrefix], but must have a listener signature as described for [Dispatcher.Register].
// False is returned if the method is already registered for provider, doesn't exist, or has an incompatible signature.
func (d *Dispatcher) RegisterMethod(method string, provider any) bool {
	l, err := methodListener(method, provider)
	if err != nil {
		d.log.Debug("Listener method rejected", "error", err)
		return false
	}
	return d.add(l, nil)
}

// RegisterListener registers a pre-built [Listener]. Registering the same handle again does nothing.
func (d *Dispatcher) RegisterListener(l *Listener) {
	if l == nil {
		return
	}
	d.add(l, nil)
}

// Deregister removes every listener owned by each object, whether it came from a listener method, a [ListenerSource], or [WithOwner].
func (d *Dispatcher) Deregister(objects ...any) {
	for _, obj := range objects {
		ownerID, ok := identity(obj)
		if !ok {
			continue
		}
		if n := d.reg.removeOwner(ownerID); n > 0 {
			d.log.Debug("Deregistered listeners", "owner", fmt.Sprintf("%T", obj), "count", n)
		}
	}
}

// DeregisterMethod removes a listener registered from the named method of provider.
// False is returned if it wasn't registered.
func (d *Dispatcher) DeregisterMethod(method string, provider any) bool {
	ownerID, ok := identity(provider)
	if !ok {
		return false
	}
	return d.reg.removeMethod(methodKey{owner: ownerID, method: method})
}

// DeregisterListener removes l, returning false if it wasn't registered.
func (d *Dispatcher) DeregisterListener(l *Listener) bool {
	if l == nil {
		return false
	}
	return d.reg.remove(l)
}

// HasListeners reports whether at least one listener is registered for exactly eventType.
func (d *Dispatcher) HasListeners(eventType reflect.Type) bool {
	if eventType == nil {
		return false
	}
	return d.reg.has(eventType)
}

// Has is a typed form of [Dispatcher.HasListeners].
func Has[E any](d *Dispatcher) bool {
	return d.HasListeners(TypeOf[E]())
}

// Clear removes all listeners.
func (d *Dispatcher) Clear() {
	d.reg.clear()
}

func (d *Dispatcher) Stats() Stats {
	listeners, types := d.reg.counts()
	return Stats{
		Listeners: listeners,
		Types:     types,
		Posted:    d.posted.Load(),
		Cancelled: d.cancelled.Load(),
		Failures:  d.failures.Load(),
	}
}

// Close stops the asynchronous workers after queued deliveries finish.
// The [Dispatcher] remains usable: synchronous posts are unaffected, and asynchronous posts run listeners on their own goroutines.
// This is safe to call multiple times.
func (d *Dispatcher) Close() {
	d.pool.Close()
}
