package event

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testAwaitTimeout = time.Second

type testEvent struct {
	Cancellation
	Value int
}

type otherEvent struct {
	Name string
}

type orderRecorder struct {
	mux   sync.Mutex
	order []string
}

func (r *orderRecorder) record(name string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.order = append(r.order, name)
}

func (r *orderRecorder) get() []string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]string(nil), r.order...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	d := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(d.Close)
	return d
}

func recordingListener(rec *orderRecorder, name string, p Priority) *Listener {
	return NewListener(func(evt *testEvent) {
		rec.record(name)
	}, WithPriority(p), WithName(name))
}

func TestDispatcher_Post_PriorityOrder(t *testing.T) {
	d := testDispatcher(t)
	rec := new(orderRecorder)
	d.RegisterListener(recordingListener(rec, "normal-1", PriorityNormal))
	d.RegisterListener(recordingListener(rec, "low", PriorityLow))
	d.RegisterListener(recordingListener(rec, "highest", PriorityHighest))
	d.RegisterListener(recordingListener(rec, "normal-2", PriorityNormal))
	d.RegisterListener(recordingListener(rec, "custom", 42))

	cancelled := d.Post(&testEvent{})
	assert.False(t, cancelled)
	assert.Equal(t, []string{"highest", "custom", "normal-1", "normal-2", "low"}, rec.get(), "Listeners should run by descending priority, then registration order")
}

func TestDispatcher_Post_Cancel(t *testing.T) {
	d := testDispatcher(t)
	rec := new(orderRecorder)
	d.RegisterListener(recordingListener(rec, "high", PriorityHigh))
	d.RegisterListener(NewListener(func(evt *testEvent) {
		rec.record("canceller")
		evt.Cancel()
	}, WithPriority(PriorityNormal)))
	d.RegisterListener(recordingListener(rec, "low", PriorityLow))

	assert.True(t, d.Post(&testEvent{}), "Post should report the cancellation")
	assert.Equal(t, []string{"high", "canceller"}, rec.get(), "Lower priority listeners should not run")
	assert.Equal(t, uint64(1), d.Stats().Cancelled)
}

func TestDispatcher_Post_AlreadyCancelled(t *testing.T) {
	d := testDispatcher(t)
	var called atomic.Bool
	d.RegisterListener(NewListener(func(evt *testEvent) {
		called.Store(true)
	}))
	evt := &testEvent{}
	evt.Cancel()
	assert.True(t, d.Post(evt))
	assert.False(t, called.Load(), "A cancelled event should not be delivered")
}

func TestDispatcher_Post_NotCancellable(t *testing.T) {
	d := testDispatcher(t)
	var received string
	d.RegisterListener(NewListener(func(evt otherEvent) {
		received = evt.Name
	}))
	assert.False(t, d.Post(otherEvent{Name: "value"}))
	assert.Equal(t, "value", received)
	assert.False(t, d.Post(nil), "Nil events are ignored")
}

func TestDispatcher_Post_NilPointer(t *testing.T) {
	d := testDispatcher(t)
	assert.NotPanics(t, func() {
		assert.False(t, d.Post((*testEvent)(nil)))
	}, "Nil pointers should be ignored without listeners")

	var called atomic.Bool
	d.RegisterListener(NewListener(func(evt *testEvent) {
		called.Store(true)
	}))
	assert.NotPanics(t, func() {
		assert.False(t, d.Post((*testEvent)(nil)))
		assert.False(t, d.PostWith((*testEvent)(nil), true, true))
		assert.False(t, d.PostWith((*testEvent)(nil), true, false))
		assert.False(t, d.PostAsync((*testEvent)(nil)).Await(testAwaitTimeout))
	})
	assert.False(t, called.Load(), "Nil pointers should not be delivered")
	assert.False(t, IsCancelled((*testEvent)(nil)))
	assert.Equal(t, uint64(0), d.Stats().Posted)
}

func TestDispatcher_Post_ExactTypeOnly(t *testing.T) {
	d := testDispatcher(t)
	var pointer, value atomic.Int32
	d.RegisterListener(NewListener(func(evt *otherEvent) {
		pointer.Add(1)
	}))
	d.RegisterListener(NewListener(func(evt otherEvent) {
		value.Add(1)
	}))
	d.Post(&otherEvent{})
	assert.Equal(t, int32(1), pointer.Load())
	assert.Equal(t, int32(0), value.Load(), "A pointer event should not reach value listeners")
}

func TestDispatcher_PostWith_AsyncAwait(t *testing.T) {
	d := testDispatcher(t, NumWorkers(3), QueueSize(2))
	const numListeners = 25
	var counter atomic.Int32
	for i := 0; i < numListeners; i++ {
		d.RegisterListener(NewListener(func(evt *testEvent) {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		}))
	}
	cancelled := d.PostWith(&testEvent{}, true, true)
	assert.False(t, cancelled)
	assert.Equal(t, int32(numListeners), counter.Load(), "All listeners should have run before returning")
}

func TestDispatcher_PostWith_AsyncCancel(t *testing.T) {
	d := testDispatcher(t)
	var counter atomic.Int32
	d.RegisterListener(NewListener(func(evt *testEvent) {
		evt.Cancel()
	}, WithPriority(PriorityHighest)))
	for i := 0; i < 3; i++ {
		d.RegisterListener(NewListener(func(evt *testEvent) {
			counter.Add(1)
		}))
	}
	assert.True(t, d.PostWith(&testEvent{}, true, true))
	assert.Equal(t, int32(3), counter.Load(), "Async delivery doesn't short-circuit on cancellation")
}

func TestDispatcher_PostWith_NoAwait(t *testing.T) {
	d := testDispatcher(t)
	release := make(chan struct{})
	var done sync.WaitGroup
	done.Add(1)
	d.RegisterListener(NewListener(func(evt *testEvent) {
		defer done.Done()
		<-release
		evt.Cancel()
	}))

	evt := &testEvent{}
	assert.False(t, d.PostWith(evt, true, false), "Should return before the listener cancels")
	close(release)
	done.Wait()
	assert.True(t, evt.Cancelled())
}

func TestDispatcher_PostWith_Sync(t *testing.T) {
	d := testDispatcher(t)
	rec := new(orderRecorder)
	d.RegisterListener(recordingListener(rec, "b", PriorityLow))
	d.RegisterListener(recordingListener(rec, "a", PriorityHigh))
	assert.False(t, d.PostWith(&testEvent{}, false, false))
	assert.Equal(t, []string{"a", "b"}, rec.get())
}

func TestDispatcher_PostAsync(t *testing.T) {
	d := testDispatcher(t)
	result := d.PostAsync(&testEvent{})
	assert.False(t, result.Await(testAwaitTimeout), "No listeners resolves immediately")

	d.RegisterListener(NewListener(func(evt *testEvent) {
		evt.Cancel()
	}))
	assert.True(t, d.PostAsync(&testEvent{}).Await(testAwaitTimeout))
	assert.False(t, d.PostAsync(nil).Await(testAwaitTimeout))
}

func TestDispatcher_PostAsync_NestedAwait(t *testing.T) {
	// A single worker that awaits a nested post must not deadlock.
	d := testDispatcher(t, NumWorkers(1), QueueSize(1))
	var inner atomic.Int32
	d.RegisterListener(NewListener(func(evt *otherEvent) {
		inner.Add(1)
	}))
	d.RegisterListener(NewListener(func(evt *testEvent) {
		d.PostWith(&otherEvent{}, true, true)
	}))
	for i := 0; i < 3; i++ {
		d.RegisterListener(NewListener(func(evt *testEvent) {}))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.PostWith(&testEvent{}, true, true)
	}()
	select {
	case <-done:
	case <-time.After(testAwaitTimeout):
		t.Fatal("Nested async post deadlocked")
	}
	assert.Equal(t, int32(1), inner.Load())
}

func TestDispatcher_Close(t *testing.T) {
	d := New(WithLogger(quietLogger()))
	var counter atomic.Int32
	d.RegisterListener(NewListener(func(evt *testEvent) {
		counter.Add(1)
	}))
	d.Close()
	assert.NotPanics(t, d.Close, "Close should be idempotent")

	d.Post(&testEvent{})
	d.PostWith(&testEvent{}, true, true)
	assert.Equal(t, int32(2), counter.Load(), "Posting should still work after Close")
}

func TestDispatcher_RegisterListener_Duplicate(t *testing.T) {
	d := testDispatcher(t)
	var counter atomic.Int32
	l := NewListener(func(evt *testEvent) {
		counter.Add(1)
	})
	d.RegisterListener(l)
	d.RegisterListener(l)
	d.RegisterListener(nil)
	d.Post(&testEvent{})
	assert.Equal(t, int32(1), counter.Load(), "A handle should only be registered once")
	assert.Equal(t, 1, d.Stats().Listeners)
}

func TestDispatcher_DeregisterListener(t *testing.T) {
	d := testDispatcher(t)
	l := NewListener(func(evt *testEvent) {})
	assert.False(t, d.DeregisterListener(l), "Unregistered listener can't be removed")
	assert.False(t, d.DeregisterListener(nil))

	d.RegisterListener(l)
	assert.True(t, Has[*testEvent](d))
	assert.True(t, d.DeregisterListener(l))
	assert.False(t, d.DeregisterListener(l), "Second removal should fail")
	assert.False(t, d.HasListeners(TypeOf[*testEvent]()), "No listeners should remain")
	assert.False(t, d.HasListeners(nil))
}

func TestDispatcher_HasListeners_LastRemoved(t *testing.T) {
	d := testDispatcher(t)
	a := NewListener(func(evt *testEvent) {})
	b := NewListener(func(evt *testEvent) {})
	d.RegisterListener(a)
	d.RegisterListener(b)
	assert.True(t, d.DeregisterListener(a))
	assert.True(t, Has[*testEvent](d), "One listener still remains")
	assert.True(t, d.DeregisterListener(b))
	assert.False(t, Has[*testEvent](d))
	assert.Equal(t, 0, d.Stats().Types)
}

func TestDispatcher_ListenerFailures(t *testing.T) {
	var (
		mux  sync.Mutex
		errs []error
	)
	d := testDispatcher(t, WithErrorHandler(func(err error) {
		mux.Lock()
		defer mux.Unlock()
		errs = append(errs, err)
	}))
	errExpected := errors.New("expected failure")
	var reached atomic.Bool
	d.RegisterListener(NewListener(func(evt *testEvent) {
		panic("listener exploded")
	}, WithPriority(PriorityHigh)))
	d.RegisterListener(NewListenerErr(func(evt *testEvent) error {
		return errExpected
	}))
	d.RegisterListener(NewListener(func(evt *testEvent) {
		reached.Store(true)
	}, WithPriority(PriorityLow)))

	assert.False(t, d.Post(&testEvent{}))
	assert.True(t, reached.Load(), "Failures should not stop delivery")
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrListenerPanic)
	assert.ErrorIs(t, errs[1], errExpected)

	var lerr *ListenerError
	require.ErrorAs(t, errs[1], &lerr)
	assert.IsType(t, &testEvent{}, lerr.Event)
	assert.Equal(t, uint64(2), d.Stats().Failures)
}

func TestDispatcher_ModifyDuringDelivery(t *testing.T) {
	d := testDispatcher(t)
	var secondCalls atomic.Int32
	second := NewListener(func(evt *testEvent) {
		secondCalls.Add(1)
	}, WithPriority(PriorityLow))
	var first *Listener
	first = NewListener(func(evt *testEvent) {
		d.DeregisterListener(first)
		d.DeregisterListener(second)
	}, WithPriority(PriorityHigh))
	d.RegisterListener(first)
	d.RegisterListener(second)

	d.Post(&testEvent{})
	assert.Equal(t, int32(1), secondCalls.Load(), "Removal applies to the next post")
	d.Post(&testEvent{})
	assert.Equal(t, int32(1), secondCalls.Load())
	assert.False(t, Has[*testEvent](d))
}

func TestDispatcher_ConcurrentUse(t *testing.T) {
	d := testDispatcher(t)
	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l := NewListener(func(evt *testEvent) {
				counter.Add(1)
			})
			d.RegisterListener(l)
			d.Post(&testEvent{})
			d.DeregisterListener(l)
		}()
		go func() {
			defer wg.Done()
			d.PostWith(&testEvent{}, true, true)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, counter.Load(), int64(10), "Each goroutine's own post reaches at least its own listener")
	assert.Equal(t, 0, d.Stats().Listeners)
}

func TestDispatcher_Clear(t *testing.T) {
	d := testDispatcher(t)
	d.RegisterListener(NewListener(func(evt *testEvent) {}))
	d.RegisterListener(NewListener(func(evt *otherEvent) {}))
	assert.Equal(t, 2, d.Stats().Types)
	d.Clear()
	assert.Equal(t, Stats{}, d.Stats())
}

func TestInitInstance(t *testing.T) {
	t.Cleanup(func() {
		initOnce = sync.Once{}
		instance = nil
	})
	assert.True(t, InitInstance(NumWorkers(2), WithLogger(quietLogger())))
	assert.False(t, InitInstance(NumWorkers(8)), "Instance was already configured")
	assert.Same(t, Instance(), Instance())
	Instance().Close()
}

func TestNewListener_Invalid(t *testing.T) {
	assert.Panics(t, func() {
		NewListener[any](func(evt any) {})
	}, "Interface event types can never match")
	assert.Panics(t, func() {
		NewListener[*testEvent](nil)
	})
	assert.Panics(t, func() {
		NewListenerErr[*testEvent](nil)
	})
}

func TestListener_Accessors(t *testing.T) {
	owner := &struct{ id int }{id: 1}
	l := NewListener(func(evt *testEvent) {}, WithPriority(PriorityHigh), WithOwner(owner), WithName("named"))
	assert.Equal(t, TypeOf[*testEvent](), l.EventType())
	assert.Equal(t, PriorityHigh, l.Priority())
	assert.Same(t, owner, l.Owner())
	assert.Equal(t, "named", l.Name())
	assert.Contains(t, l.String(), "named")

	anon := NewListener(func(evt otherEvent) {}, WithOwner(nil), WithName(""))
	assert.Nil(t, anon.Owner())
	assert.Equal(t, "func(event.otherEvent)", anon.Name())
}
