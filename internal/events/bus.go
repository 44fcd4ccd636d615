// Package events carries the launcher's outbound notifications. Delivery is
// fire-and-forget: a subscriber whose buffer is full misses the event.
package events

import (
	"fmt"
	"sync"
)

// Kind identifies an event.
type Kind int

const (
	InstanceSelectionChanged Kind = iota
	AccountSelectionChanged
	WhitelistAccessRevoked
	LoginCompleted
	InstancesChanged
	Notice
)

func (k Kind) String() string {
	switch k {
	case InstanceSelectionChanged:
		return "instance-selection-changed"
	case AccountSelectionChanged:
		return "account-selection-changed"
	case WhitelistAccessRevoked:
		return "whitelist-access-revoked"
	case LoginCompleted:
		return "login-completed"
	case InstancesChanged:
		return "instances-changed"
	case Notice:
		return "notice"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Level of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Event is a single notification. Fields not relevant to Kind are empty.
type Event struct {
	Kind Kind

	AccountID   string // account-selection-changed, login-completed
	AccountName string // login-completed
	Instance    string // instance-selection-changed: new selection
	OldInstance string // whitelist-access-revoked
	NewInstance string // whitelist-access-revoked

	Level Level  // notice
	Text  string // notice
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel receiving every event published afterwards.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s)
			return
		}
	}
}

// Publish delivers e without blocking. Safe on a nil Bus.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s <- e:
		default:
		}
	}
}

// Notify publishes a notice.
func (b *Bus) Notify(level Level, format string, args ...any) {
	b.Publish(Event{Kind: Notice, Level: level, Text: fmt.Sprintf(format, args...)})
}
