// Package coordinator decides when a build light has to be updated and keeps
// the per-light desired-state cache.
package coordinator

import (
	"context"
	"errors"

	"github.com/dokzlo13/buildlight/internal/status"
)

var (
	// ErrNotInitialized is returned when the coordinator has no CI provider or light device.
	ErrNotInitialized = errors.New("coordinator not initialized")
	// ErrInvalidArgument is returned for a missing light id or job name.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingState is returned when a light status has no power state.
	ErrMissingState = errors.New("light status has no power state")
)

// CIStatusProvider looks up build colors.
type CIStatusProvider interface {
	JobColor(ctx context.Context, jobName string) (status.BuildColor, error)
	// ViewColor returns the aggregated color of the configured view.
	ViewColor(ctx context.Context) (status.BuildColor, error)
}

// LightDevice talks to a physical light.
type LightDevice interface {
	SetLight(ctx context.Context, lightID string, state status.LightState) error
	LightStatus(ctx context.Context, lightID string) (*LightStatus, error)
	Blink(ctx context.Context, lightID string) error
}

// LightStatus is the live status reported by a light device.
type LightStatus struct {
	ID        string
	Name      string
	On        *bool // nil when the device did not report a power state
	Reachable bool
}

// Decision describes what an update decided for a light.
type Decision struct {
	CycleID     string
	LightID     string
	State       status.LightState
	Previous    status.LightState
	HadPrevious bool // false when the cache held no state before this update
	WasOff      bool // the light was found powered off and the cache was reset
	Pushed      bool // a push (followed by a blink) was dispatched
}

// EventKind names a coordinator event.
type EventKind string

const (
	EventCacheReset  EventKind = "cache_reset"
	EventPushSkipped EventKind = "push_skipped"
	EventPushed      EventKind = "light_pushed"
	EventPushFailed  EventKind = "push_failed"
	EventBlinked     EventKind = "blink_issued"
	EventBlinkFailed EventKind = "blink_failed"
)

// Event is reported to a Recorder as updates progress.
type Event struct {
	Kind    EventKind
	CycleID string
	LightID string
	State   status.LightState
	Err     error
}

// Recorder observes coordinator events.
type Recorder interface {
	Record(ev Event)
}

// Recorders fans events out to several recorders.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Record(ev)
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}
