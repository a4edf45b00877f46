package feed

import (
	"fmt"

	"feedwall/internal/catalog"
)

func parseName(names []string, text []byte, kind string) (int, error) {
	for i, n := range names {
		if n == string(text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("feed: unknown %s %q", kind, text)
}

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no catalog, or an empty one, is loaded.
	StateIdle State = iota
	StateTransitioning
	StateDisplaying
	// StateExhausted means the country filter matches no camera.
	StateExhausted
)

var stateNames = [...]string{"idle", "transitioning", "displaying", "exhausted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	i, err := parseName(stateNames[:], text, "state")
	*s = State(i)
	return err
}

// Role says which surface a request feeds.
type Role int

const (
	RolePrimary Role = iota
	RolePreload
)

func (r Role) String() string {
	if r == RolePreload {
		return "preload"
	}
	return "primary"
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	i, err := parseName([]string{"primary", "preload"}, text, "role")
	*r = Role(i)
	return err
}

// Tag identifies one issued request. Completions carry the tag back and are
// ignored unless it still matches what the controller is waiting for.
type Tag struct {
	Seq      uint64           `json:"seq"`
	CameraID catalog.CameraID `json:"camera_id"`
	Tier     Tier             `json:"tier"`
	Role     Role             `json:"role"`
}

// Issue is a request the rendering surface should perform.
type Issue struct {
	Tag Tag    `json:"tag"`
	URL string `json:"url"`
}

// Zero reports whether no request is in flight.
func (i Issue) Zero() bool {
	return i.Tag.Seq == 0
}

// EventKind classifies controller notifications.
type EventKind int

const (
	// EventState reports a state change.
	EventState EventKind = iota
	// EventDisplay asks the surface to show Source.
	EventDisplay
	// EventPreload asks the surface to warm Source in a back buffer.
	EventPreload
	// EventRefresh asks the surface to reload the current tier.
	EventRefresh
	// EventRetry re-issues a failed source once, unchanged.
	EventRetry
	// EventAutoSkip reports that a dark camera is being skipped.
	EventAutoSkip
)

var eventKindNames = [...]string{"state", "display", "preload", "refresh", "retry", "auto_skip"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	i, err := parseName(eventKindNames[:], text, "event kind")
	*k = EventKind(i)
	return err
}

// Event is a controller notification. Err carries one of the package's
// sentinel errors when the event reports a failure kind.
type Event struct {
	Kind      EventKind
	State     State
	Index     int
	Camera    catalog.CameraRecord
	Source    Issue
	Preloaded bool
	Err       error
}

// Listener receives events on the controller's goroutine.
type Listener func(Event)
