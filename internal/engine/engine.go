// Package engine implements the polling engine of spec.md section 4.4:
// it owns a Session and a register catalog, polls on a timer, maintains
// a change-detecting cache of last-known display values, applies the
// consecutive-failure policy, and fans typed events out to subscribers.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/genvex/tunnel/internal/registers"
	"github.com/genvex/tunnel/internal/session"
	"github.com/genvex/tunnel/internal/tunnel"
)

const (
	defaultPollInterval         = 30 * time.Second
	defaultMaxConsecutiveErrors = 3
	subscriberBufferSize        = 64
)

// Config configures an Engine.
type Config struct {
	PollInterval         time.Duration
	MaxConsecutiveErrors int
	Logger               *log.Logger
}

func (c *Config) normalize() {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = defaultMaxConsecutiveErrors
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// Engine is the polling engine bound to one session and one catalog. Like
// Session, all mutable state (the value cache, the consecutive-error
// counter, the subscriber set) is confined to the run goroutine once
// Start has launched it; callers reach it by dispatching closures over
// act. Before Start, doSync runs those closures on the caller's goroutine.
type Engine struct {
	sess    *session.Session
	catalog registers.Catalog
	cfg     Config
	logger  *log.Logger

	act  chan func()
	stop chan struct{}
	done chan struct{}

	stopOnce sync.Once

	mu      sync.Mutex
	started bool

	cache       map[string]float64
	consecutive int
	subs        map[chan Event]uint64
}

// New creates an Engine over an unconnected session. Call Start to bring
// it up.
func New(sess *session.Session, catalog registers.Catalog, cfg Config) *Engine {
	cfg.normalize()
	return &Engine{
		sess:    sess,
		catalog: catalog,
		cfg:     cfg,
		logger:  cfg.Logger,
		act:     make(chan func()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		cache:   make(map[string]float64),
		subs:    make(map[chan Event]uint64),
	}
}

// Subscription is a live handle to an Engine's event stream.
type Subscription struct {
	engine *Engine
	ch     chan Event
}

// Events returns the subscription's channel. It is closed when the
// engine stops.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unsubscribes, releasing the engine's reference to this channel.
func (s *Subscription) Close() { s.engine.unsubscribe(s.ch) }

// Subscribe registers a new bounded-buffer subscriber (spec.md section
// 4.4: "bounded per-subscriber buffer ... so one slow consumer cannot
// block the other").
func (e *Engine) Subscribe() *Subscription {
	ch := make(chan Event, subscriberBufferSize)
	e.doSync(func() { e.subs[ch] = 0 })
	return &Subscription{engine: e, ch: ch}
}

func (e *Engine) unsubscribe(ch chan Event) {
	e.doSync(func() {
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	})
}

// doSync dispatches fn to the run goroutine and waits for it to finish,
// or returns immediately without running fn if the engine has already
// stopped. Before Start has launched the run goroutine, fn runs directly
// on the caller's goroutine.
func (e *Engine) doSync(fn func()) {
	e.mu.Lock()
	if !e.started {
		fn()
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	waiter := make(chan struct{})
	select {
	case e.act <- func() { fn(); close(waiter) }:
		<-waiter
	case <-e.done:
	}
}

// Start connects the session and begins polling: one immediate poll,
// then a periodic poll every cfg.PollInterval (spec.md section 4.4,
// "startPolling").
func (e *Engine) Start(ctx context.Context) error {
	if err := e.sess.Connect(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	go e.run(ctx)
	return nil
}

// Stop tears the engine, and the session beneath it, down.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer e.closeSubs()

	sessionEvents := e.sess.Events()

	// Connect emitted EventConnected synchronously before returning;
	// drain it before the immediate poll so subscribers observe
	// connected before polled/data.
	select {
	case ev := <-sessionEvents:
		e.handleSessionEvent(ev)
	case <-ctx.Done():
		_ = e.sess.Disconnect()
		return
	}

	e.poll(ctx)
	timer := time.NewTimer(e.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case fn := <-e.act:
			fn()
		case ev, ok := <-sessionEvents:
			if !ok {
				return
			}
			if e.handleSessionEvent(ev) {
				return
			}
		case <-timer.C:
			e.poll(ctx)
			timer.Reset(e.cfg.PollInterval)
		case <-e.stop:
			_ = e.sess.Disconnect()
			return
		case <-ctx.Done():
			_ = e.sess.Disconnect()
			return
		}
	}
}

func (e *Engine) closeSubs() {
	for ch := range e.subs {
		close(ch)
	}
	e.subs = nil
}

// handleSessionEvent translates a session-level event into an engine
// event. It returns true when the session has gone down for good and the
// run loop must exit.
func (e *Engine) handleSessionEvent(ev session.Event) bool {
	switch ev.Kind {
	case session.EventConnected:
		e.emit(Event{Kind: EventConnected})
	case session.EventModel:
		e.emit(Event{
			Kind:              EventModel,
			DeviceNumber:      ev.Model.DeviceNumber,
			DeviceModel:       ev.Model.DeviceModel,
			SlaveDeviceNumber: ev.Model.SlaveDeviceNumber,
			SlaveDeviceModel:  ev.Model.SlaveDeviceModel,
		})
	case session.EventError:
		e.emit(Event{Kind: EventError, Err: ev.Err})
	case session.EventDisconnected:
		e.emit(Event{Kind: EventDisconnected, Reason: ev.Err})
		return true
	case session.EventData:
		e.logger.Printf("engine: unsolicited data frame, seq=%d", ev.SeqID)
	}
	return false
}

// poll performs one round: readDatapoints, then readSetpoints, applying
// the consecutive-failure policy (spec.md section 4.4).
func (e *Engine) poll(ctx context.Context) {
	if e.sess.State() != session.StateConnected {
		return
	}

	dpList := e.catalog.DatapointRequestList()
	spList := e.catalog.SetpointRequestList()

	dpValues, dpErr := e.sess.ReadDatapoints(ctx, dpList)
	if dpErr == nil {
		e.applyDatapoints(dpList, dpValues)
	}

	spValues, spErr := e.sess.ReadSetpoints(ctx, spList)
	if spErr == nil {
		e.applySetpoints(spList, spValues)
	}

	if dpErr != nil || spErr != nil {
		cause := dpErr
		if cause == nil {
			cause = spErr
		}
		e.consecutive++
		e.emit(Event{Kind: EventError, Err: cause})
		if e.consecutive >= e.cfg.MaxConsecutiveErrors {
			e.logger.Printf("engine: %d consecutive poll failures, disconnecting", e.consecutive)
			e.consecutive = 0
			_ = e.sess.Disconnect()
		}
		return
	}

	e.consecutive = 0
	e.emit(Event{Kind: EventPolled})
}

func (e *Engine) applyDatapoints(list []registers.Datapoint, values []int16) {
	for i, raw := range values {
		if i >= len(list) {
			break
		}
		d := list[i]
		e.updateCache(d.Name, registers.ConvertDatapoint(raw, d), d.Unit)
	}
}

func (e *Engine) applySetpoints(list []registers.Setpoint, values []uint16) {
	for i, raw := range values {
		if i >= len(list) {
			break
		}
		s := list[i]
		e.updateCache(s.Name, registers.ConvertSetpoint(raw, s), s.Unit)
	}
}

// updateCache stores display under name and emits EventData only when
// the value actually changed (spec.md section 3, "cached value set").
func (e *Engine) updateCache(name string, display float64, unit string) {
	prev, existed := e.cache[name]
	e.cache[name] = display
	if !existed || prev != display {
		e.emit(Event{Kind: EventData, Name: name, Value: display, Unit: unit})
	}
}

// emit fans ev out to every subscriber. A subscriber whose buffer is full
// has its oldest buffered event dropped to make room — logged, never
// silent (spec.md section 9, "no silent caps" carried from the teacher's
// discipline).
func (e *Engine) emit(ev Event) {
	for ch, dropped := range e.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
		dropped++
		e.subs[ch] = dropped
		e.logger.Printf("engine: subscriber buffer full, dropped oldest event (total dropped=%d)", dropped)
	}
}

// GetValue returns the last-cached display value for name, if any. The
// cache survives the engine stopping, so this still answers afterwards.
func (e *Engine) GetValue(name string) (float64, bool) {
	var v float64
	var ok bool
	ran := false
	e.doSync(func() { v, ok = e.cache[name]; ran = true })
	if !ran {
		// The run goroutine has exited and no longer touches the cache.
		v, ok = e.cache[name]
	}
	return v, ok
}

// GetAllValues returns a snapshot of the entire cache, including after
// the engine has stopped.
func (e *Engine) GetAllValues() map[string]float64 {
	out := make(map[string]float64)
	snapshot := func() {
		for k, v := range e.cache {
			out[k] = v
		}
	}
	ran := false
	e.doSync(func() { snapshot(); ran = true })
	if !ran {
		snapshot()
	}
	return out
}

// SetValue looks up name in the catalog, converts display to a raw
// value, validates bounds, writes it, and optimistically updates the
// cache (spec.md section 4.3, "Write").
func (e *Engine) SetValue(ctx context.Context, name string, display float64) error {
	s, ok := e.catalog.SetpointByName(name)
	if !ok {
		return &UnknownSetpointError{Name: name}
	}
	raw := registers.ToRawSetpoint(display, s)
	if raw < s.Min || raw > s.Max {
		return &OutOfRangeError{Name: name, Raw: raw, Min: s.Min, Max: s.Max}
	}

	err := e.sess.WriteSetpoints(ctx, []tunnel.SetpointWrite{
		{ID: 0, Value: raw, Param: s.WriteAddress},
	})
	if err != nil {
		return err
	}

	e.doSync(func() { e.updateCache(s.Name, display, s.Unit) })
	return nil
}

// SetFanLevel is a convenience wrapper over SetValue for the FAN_SPEED
// setpoint present on both catalogs.
func (e *Engine) SetFanLevel(ctx context.Context, level int32) error {
	return e.SetValue(ctx, "FAN_SPEED", float64(level))
}

// SetTemperatureSetpoint is a convenience wrapper over SetValue for the
// TEMP_SETPOINT setpoint present on both catalogs.
func (e *Engine) SetTemperatureSetpoint(ctx context.Context, celsius float64) error {
	return e.SetValue(ctx, "TEMP_SETPOINT", celsius)
}
