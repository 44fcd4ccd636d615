package launch

import "context"

// EventType names a launch session lifecycle event.
type EventType string

const (
	EventExtract   EventType = "extract"
	EventProgress  EventType = "progress"
	EventCheck     EventType = "check"
	EventEstimated EventType = "estimated"
	EventSpeed     EventType = "speed"
	EventPatch     EventType = "patch"
	EventData      EventType = "data"
	EventClose     EventType = "close"
	EventError     EventType = "error"
)

// Event is one lifecycle event. Only the fields of its Type are set.
type Event struct {
	Type    EventType `json:"type"`
	Current int64     `json:"current,omitempty"` // progress, check
	Total   int64     `json:"total,omitempty"`   // progress, check
	Seconds float64   `json:"seconds,omitempty"` // estimated
	Speed   float64   `json:"speed,omitempty"`   // bytes per second
	Line    string    `json:"line,omitempty"`    // data
	Code    int       `json:"code,omitempty"`    // close
	Reason  string    `json:"reason,omitempty"`  // error
}

// Session is one running launch attempt. The channel is closed when the
// session ends.
type Session interface {
	Events() <-chan Event
}

// Backend installs and starts the game.
type Backend interface {
	Start(ctx context.Context, opts *Options) (Session, error)
}
