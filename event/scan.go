package event

import (
	"fmt"
	"github.com/saylorsolutions/eventsys/syncx"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ListenerPrefix is the method name prefix that [Dispatcher.Register] looks for when scanning an object.
const ListenerPrefix = "On"

// PriorityProvider may be implemented by objects passed to [Dispatcher.Register] or [Dispatcher.RegisterMethod] to set the priority of each listener method.
type PriorityProvider interface {
	ListenerPriority(method string) Priority
}

// ListenerSource may be implemented by objects passed to [Dispatcher.Register] to contribute pre-built listeners.
// Listeners without an owner are registered on behalf of the source, so [Dispatcher.Deregister] removes them with it.
// The returned listeners aren't modified, and a listener that is already registered keeps its existing registration.
type ListenerSource interface {
	Listeners() []*Listener
}

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	argsPool  = syncx.NewPool(func() *[1]reflect.Value {
		return new([1]reflect.Value)
	}, func(args *[1]reflect.Value) *[1]reflect.Value {
		args[0] = reflect.Value{}
		return args
	})
)

// isListenerName matches names like OnUserCreated, but not Once or On.
func isListenerName(name string) bool {
	rest, found := strings.CutPrefix(name, ListenerPrefix)
	if !found || len(rest) == 0 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// listenerMethods returns the names of methods on provider that look like listeners.
// Signatures are not checked here.
func listenerMethods(provider any) []string {
	t := reflect.TypeOf(provider)
	var names []string
	for i := 0; i < t.NumMethod(); i++ {
		if name := t.Method(i).Name; isListenerName(name) {
			names = append(names, name)
		}
	}
	return names
}

// methodListener binds the named method of provider to a new [Listener].
// Valid methods take exactly one concrete, non-interface argument and return nothing or an error.
func methodListener(method string, provider any) (*Listener, error) {
	ownerID, ok := identity(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidProvider, provider)
	}
	fn := reflect.ValueOf(provider).MethodByName(method)
	if !fn.IsValid() {
		return nil, fmt.Errorf("%w: %T.%s", ErrMethodNotFound, provider, method)
	}
	ft := fn.Type()
	if ft.NumIn() != 1 || ft.IsVariadic() {
		return nil, fmt.Errorf("%w: %T.%s must accept exactly one event argument", ErrIncompatibleMethod, provider, method)
	}
	returnsErr := false
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		returnsErr = true
	default:
		return nil, fmt.Errorf("%w: %T.%s may only return an error", ErrIncompatibleMethod, provider, method)
	}
	eventType := ft.In(0)
	if eventType.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w: %T.%s accepts interface %s, but events are matched by concrete type", ErrIncompatibleMethod, provider, method, eventType)
	}

	priority := PriorityNormal
	if pp, ok := provider.(PriorityProvider); ok {
		priority = pp.ListenerPriority(method)
	}
	return &Listener{
		eventType: eventType,
		priority:  priority,
		name:      fmt.Sprintf("%T.%s", provider, method),
		owner:     provider,
		ownerID:   ownerID,
		method:    method,
		invoke: func(evt any) error {
			args := argsPool.Get()
			args[0] = reflect.ValueOf(evt)
			out := fn.Call(args[:])
			argsPool.Put(args)
			if returnsErr && !out[0].IsNil() {
				return out[0].Interface().(error)
			}
			return nil
		},
	}, nil
}
