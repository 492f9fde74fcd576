/*
Package event provides an in-process event dispatcher with prioritized synchronous delivery, cancellation, and optional asynchronous fan-out.

# Design Priorities

  - Delivery should be predictable: synchronous listeners always run in the same order for the same registrations.
  - Misuse should be boring: registration and deregistration report failures as false instead of panicking or returning errors.
  - Listeners should be able to change registrations while events are in flight without deadlocking the [Dispatcher].

# Events

Any non-nil value may be posted as an event.
Listeners are matched by the exact dynamic type of the posted value, so a *UserCreated reaches listeners for *UserCreated only, and not listeners for UserCreated or for interfaces that it implements.

An event may implement [Cancellable] to let listeners stop synchronous delivery.
Embedding [Cancellation] in a struct is the easiest way to do this, and the event should then be posted as a pointer.

# Listeners

There are three ways to register a [Listener]:
  - Use [Dispatcher.Register] with one or more objects. Each exported method named like OnSomething, with a single concrete argument and no result (or an error result), becomes a listener for its argument type. Objects can implement [PriorityProvider] to set priorities per method.
  - Use [Dispatcher.RegisterMethod] to register a single named method of an object. A (method, object) pair can only be registered once.
  - Use [NewListener] or [NewListenerErr] to build a handle from a function, and register it with [Dispatcher.RegisterListener].

Each registration has a symmetric way to remove it. [Dispatcher.Deregister] removes everything owned by an object, including handles created [WithOwner].

# Delivery

[Dispatcher.Post] runs listeners on the calling goroutine in descending [Priority] order, with ties broken by registration order.
If a listener cancels the event, no lower priority listener runs, and Post returns true.

[Dispatcher.PostWith] and [Dispatcher.PostAsync] can instead hand each listener to a pool of worker goroutines.
Priority is ignored in this mode and listeners run concurrently, so it's up to the caller to make listeners and event values safe for concurrent use.
Callers that need the cancellation status should wait for it, either with await set to true or by awaiting the returned [syncx.Future].

A listener that panics or returns an error doesn't affect other listeners.
The failure is wrapped in a [ListenerError] and passed to the error handler set with [WithErrorHandler], which logs it by default.

[syncx.Future]: github.com/saylorsolutions/eventsys/syncx
*/
package event
