package event

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOption      = errors.New("invalid option")
	ErrInvalidProvider    = errors.New("provider cannot own listeners")
	ErrMethodNotFound     = errors.New("method not found")
	ErrIncompatibleMethod = errors.New("incompatible listener method")
	ErrDuplicate          = errors.New("listener already registered")
	ErrListenerPanic      = errors.New("listener panicked")
)

// ListenerError is reported to the error handler when a listener returns an error or panics.
type ListenerError struct {
	Listener *Listener
	Event    any
	Err      error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s failed to handle %T: %v", e.Listener.Name(), e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
