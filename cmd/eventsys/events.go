package main

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/eventsys/event"
	"github.com/tidwall/gjson"
	"io"
	"sync"
)

// UserCreated may be cancelled by a moderating listener before it's announced.
type UserCreated struct {
	event.Cancellation
	ID   string
	Name string
}

type UserDeleted struct {
	ID     string
	Reason string
}

type Message struct {
	From string
	Text string
}

var (
	errUnknownType = errors.New("unknown event type")
	errInvalidJSON = errors.New("invalid JSON")
)

// decodeEvent maps a JSON object with a "type" field to a typed event.
func decodeEvent(line string) (any, error) {
	if !gjson.Valid(line) {
		return nil, errInvalidJSON
	}
	fields := gjson.GetMany(line, "type", "id", "name", "reason", "from", "text")
	switch typ := fields[0].String(); typ {
	case "user.created":
		return &UserCreated{ID: fields[1].String(), Name: fields[2].String()}, nil
	case "user.deleted":
		return &UserDeleted{ID: fields[1].String(), Reason: fields[3].String()}, nil
	case "message":
		return &Message{From: fields[4].String(), Text: fields[5].String()}, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", errUnknownType, typ)
	}
}

var _ event.PriorityProvider = (*moderator)(nil)

// moderator rejects users without a name before anything else sees them.
type moderator struct{}

func (m *moderator) OnUserCreated(evt *UserCreated) {
	if len(evt.Name) == 0 {
		evt.Cancel()
	}
}

func (m *moderator) ListenerPriority(string) event.Priority {
	return event.PriorityHighest
}

// announcer writes a line for every event it receives.
type announcer struct {
	mux sync.Mutex
	out io.Writer
}

func (a *announcer) printf(format string, args ...any) {
	a.mux.Lock()
	defer a.mux.Unlock()
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *announcer) OnUserCreated(evt *UserCreated) {
	a.printf("user %s created: %s\n", evt.ID, evt.Name)
}

func (a *announcer) OnUserDeleted(evt *UserDeleted) {
	a.printf("user %s deleted: %s\n", evt.ID, evt.Reason)
}

func (a *announcer) OnMessage(evt *Message) error {
	if len(evt.Text) == 0 {
		return fmt.Errorf("empty message from '%s'", evt.From)
	}
	a.printf("%s says: %s\n", evt.From, evt.Text)
	return nil
}
