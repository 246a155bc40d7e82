package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/buildlight/internal/status"
)

// Coordinator pushes build states to lights and remembers, per light, the last
// state it intended to show.
//
// The cache holds desired state, not confirmed state: it is written before the
// device push completes. A light found powered off loses its cache entry so the
// next update always pushes again.
//
// Updates for the same light are serialized, and their pushes reach the device
// in the order they were decided. Different lights are independent.
type Coordinator struct {
	ci       CIStatusProvider
	device   LightDevice
	recorder Recorder

	mu    sync.Mutex
	cache map[string]status.LightState
	lanes map[string]*lane

	inflight sync.WaitGroup
}

// lane serializes updates for a single light. A lane is dropped once nobody
// holds it and its pushes have finished.
type lane struct {
	mu   sync.Mutex
	tail chan struct{} // closed when the last dispatched push has finished

	users int // guarded by Coordinator.mu
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder sets the recorder that receives coordinator events.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New creates a coordinator. Both collaborators are required.
func New(ci CIStatusProvider, device LightDevice, opts ...Option) (*Coordinator, error) {
	if ci == nil {
		return nil, fmt.Errorf("%w: no CI status provider", ErrNotInitialized)
	}
	if device == nil {
		return nil, fmt.Errorf("%w: no light device", ErrNotInitialized)
	}

	c := &Coordinator{
		ci:       ci,
		device:   device,
		recorder: nopRecorder{},
		cache:    make(map[string]status.LightState),
		lanes:    make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Coordinator) ready() error {
	if c == nil || c.ci == nil || c.device == nil || c.cache == nil {
		return ErrNotInitialized
	}
	return nil
}

// UpdateForJob shows the current state of a Jenkins job on a light.
func (c *Coordinator) UpdateForJob(ctx context.Context, lightID, jobName string) (Decision, error) {
	if err := c.ready(); err != nil {
		return Decision{}, err
	}
	if lightID == "" || jobName == "" {
		return Decision{}, fmt.Errorf("%w: light id and job name are required", ErrInvalidArgument)
	}

	color, err := c.ci.JobColor(ctx, jobName)
	if err != nil {
		return Decision{}, err
	}

	log.Debug().Str("light", lightID).Str("job", jobName).Str("color", string(color)).Msg("Fetched job color")
	return c.Apply(ctx, lightID, status.Classify(color))
}

// UpdateForView shows the aggregated state of the configured view on a light.
func (c *Coordinator) UpdateForView(ctx context.Context, lightID string) (Decision, error) {
	if err := c.ready(); err != nil {
		return Decision{}, err
	}
	if lightID == "" {
		return Decision{}, fmt.Errorf("%w: light id is required", ErrInvalidArgument)
	}

	color, err := c.ci.ViewColor(ctx)
	if err != nil {
		return Decision{}, err
	}

	log.Debug().Str("light", lightID).Str("color", string(color)).Msg("Fetched view color")
	return c.Apply(ctx, lightID, status.Classify(color))
}

// Apply shows state on a light. The live power status is queried first; a
// light that is off is always pushed again. Apply returns once the cache is
// updated and the push, if any, has been dispatched.
func (c *Coordinator) Apply(ctx context.Context, lightID string, state status.LightState) (Decision, error) {
	if err := c.ready(); err != nil {
		return Decision{}, err
	}
	if lightID == "" {
		return Decision{}, fmt.Errorf("%w: light id is required", ErrInvalidArgument)
	}

	l := c.acquire(lightID)
	defer c.release(lightID, l)

	on, err := c.IsLightOn(ctx, lightID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{CycleID: uuid.NewString(), LightID: lightID, State: state}
	if !on {
		c.mu.Lock()
		delete(c.cache, lightID)
		c.mu.Unlock()
		d.WasOff = true
		c.recorder.Record(Event{Kind: EventCacheReset, CycleID: d.CycleID, LightID: lightID, State: state})
		log.Debug().Str("light", lightID).Msg("Light is off, forgetting its state")
	}

	c.commit(ctx, l, &d)
	return d, nil
}

// SwitchOff shows Off on a light without checking its power status first.
func (c *Coordinator) SwitchOff(ctx context.Context, lightID string) (Decision, error) {
	if err := c.ready(); err != nil {
		return Decision{}, err
	}
	if lightID == "" {
		return Decision{}, fmt.Errorf("%w: light id is required", ErrInvalidArgument)
	}

	l := c.acquire(lightID)
	defer c.release(lightID, l)

	d := Decision{CycleID: uuid.NewString(), LightID: lightID, State: status.Off}
	c.commit(ctx, l, &d)
	return d, nil
}

// BlinkLight makes a light flash once. The cache is not affected.
func (c *Coordinator) BlinkLight(ctx context.Context, lightID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if lightID == "" {
		return fmt.Errorf("%w: light id is required", ErrInvalidArgument)
	}
	return c.device.Blink(ctx, lightID)
}

// IsLightOn reports whether the light is powered on.
func (c *Coordinator) IsLightOn(ctx context.Context, lightID string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}

	st, err := c.device.LightStatus(ctx, lightID)
	if err != nil {
		return false, err
	}
	if st == nil || st.On == nil {
		return false, fmt.Errorf("%w: light %s", ErrMissingState, lightID)
	}
	return *st.On, nil
}

// CurrentLightState returns the state last applied to a light. The second
// result is false when no state is known.
func (c *Coordinator) CurrentLightState(lightID string) (status.LightState, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.cache[lightID]
	return state, ok
}

// Wait blocks until all dispatched pushes and blinks have finished.
func (c *Coordinator) Wait() {
	if c == nil {
		return
	}
	c.inflight.Wait()
}

// acquire returns the locked lane of a light.
func (c *Coordinator) acquire(lightID string) *lane {
	c.mu.Lock()
	l, ok := c.lanes[lightID]
	if !ok {
		l = &lane{}
		c.lanes[lightID] = l
	}
	l.users++
	c.mu.Unlock()

	l.mu.Lock()
	return l
}

func (c *Coordinator) release(lightID string, l *lane) {
	l.mu.Unlock()
	c.unref(lightID, l)
}

func (c *Coordinator) unref(lightID string, l *lane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.users--
	if l.users == 0 {
		delete(c.lanes, lightID)
	}
}

// commit records d.State in the cache and dispatches a push when it differs
// from the previous entry. The caller holds l.mu.
func (c *Coordinator) commit(ctx context.Context, l *lane, d *Decision) {
	c.mu.Lock()
	prev, known := c.cache[d.LightID]
	c.cache[d.LightID] = d.State
	c.mu.Unlock()

	d.Previous, d.HadPrevious = prev, known
	if known && prev == d.State {
		c.recorder.Record(Event{Kind: EventPushSkipped, CycleID: d.CycleID, LightID: d.LightID, State: d.State})
		log.Debug().Str("light", d.LightID).Str("state", d.State.String()).Msg("Light already shows state")
		return
	}

	d.Pushed = true
	c.dispatch(ctx, l, *d)
}

// dispatch runs the push, and the blink after a successful push, in the
// background. Pushes on one lane run in dispatch order. The caller holds l.mu.
func (c *Coordinator) dispatch(ctx context.Context, l *lane, d Decision) {
	prev := l.tail
	done := make(chan struct{})
	l.tail = done

	c.mu.Lock()
	l.users++
	c.mu.Unlock()

	// The push outlives the caller's request.
	ctx = context.WithoutCancel(ctx)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer c.unref(d.LightID, l)
		defer close(done)
		if prev != nil {
			<-prev
		}

		ev := Event{CycleID: d.CycleID, LightID: d.LightID, State: d.State}

		log.Info().
			Str("light", d.LightID).
			Str("state", d.State.String()).
			Str("cycle", d.CycleID).
			Msg("Pushing light state")

		if err := c.device.SetLight(ctx, d.LightID, d.State); err != nil {
			ev.Kind, ev.Err = EventPushFailed, err
			c.recorder.Record(ev)
			log.Error().Err(err).Str("light", d.LightID).Str("state", d.State.String()).Msg("Failed to push light state")
			return
		}
		ev.Kind = EventPushed
		c.recorder.Record(ev)

		if err := c.device.Blink(ctx, d.LightID); err != nil {
			ev.Kind, ev.Err = EventBlinkFailed, err
			c.recorder.Record(ev)
			log.Error().Err(err).Str("light", d.LightID).Msg("Failed to blink light")
			return
		}
		ev.Kind = EventBlinked
		c.recorder.Record(ev)
	}()
}
