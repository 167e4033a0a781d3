// Package status tracks a per-device health summary derived from an
// engine's event stream: the teacher's device-status-block writer had no
// downstream register block to target in this protocol, so only its
// health-state model and its orchestrator's 1Hz seconds-in-error
// accounting survive, repurposed as an in-process tracker for logging
// and history instead of a Modbus write target.
package status

// Health is the coarse device health state, carried over from the
// teacher's status block health codes.
type Health uint16

const (
	HealthUnknown Health = iota
	HealthOK
	HealthError
)

// Snapshot is the health summary a Tracker maintains for one device.
type Snapshot struct {
	Health         Health
	LastErrorCode  string // the engine error's message, "" when healthy
	SecondsInError uint16
}

// Tracker accumulates a Snapshot from engine events, mirroring
// cmd/replicator/main.go's inline orchestrator loop: health flips to OK
// on a successful poll and to Error on a poll failure, and
// SecondsInError climbs once per second while not healthy, capped so it
// never wraps.
type Tracker struct {
	snap Snapshot
}

// NewTracker returns a Tracker starting in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current summary.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// OnConnected marks the device healthy and clears the error state.
func (t *Tracker) OnConnected() (Snapshot, bool) {
	return t.set(HealthOK, "")
}

// OnPolled marks the device healthy after a successful poll cycle.
func (t *Tracker) OnPolled() (Snapshot, bool) {
	return t.set(HealthOK, "")
}

// OnError marks the device in error with err's message.
func (t *Tracker) OnError(err error) (Snapshot, bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return t.set(HealthError, msg)
}

// OnDisconnected marks the device in error (or unknown, if no cause) and
// resets the error timer — a fresh connect attempt starts the clock
// over.
func (t *Tracker) OnDisconnected(cause error) (Snapshot, bool) {
	health := HealthUnknown
	msg := ""
	if cause != nil {
		health = HealthError
		msg = cause.Error()
	}
	snap, changed := t.set(health, msg)
	t.snap.SecondsInError = 0
	return snap, changed
}

// set updates health/lastErrorCode and reports whether anything changed.
func (t *Tracker) set(h Health, lastError string) (Snapshot, bool) {
	changed := t.snap.Health != h || t.snap.LastErrorCode != lastError
	t.snap.Health = h
	t.snap.LastErrorCode = lastError
	if h == HealthOK {
		t.snap.SecondsInError = 0
	}
	return t.snap, changed
}

// Tick advances the seconds-in-error counter by one second while the
// device is not healthy. It is a no-op once healthy again. The counter
// saturates at 65535 rather than wrapping.
func (t *Tracker) Tick() Snapshot {
	if t.snap.Health != HealthOK && t.snap.SecondsInError < 65535 {
		t.snap.SecondsInError++
	}
	return t.snap
}
