// Package aircraft owns one aircraft's kinematic state and integrates
// its position on every aircraft-update tick. A single exclusion lock
// serializes the integration step and every controller-commanded
// mutator, and Snapshot hands out value copies so observers never see a
// torn state.
package aircraft

import (
	"sync"
	"time"

	"github.com/l3itisys/ATC-system/pkg/airspace"
	"github.com/l3itisys/ATC-system/pkg/errs"
)

// Status is the aircraft's place in its state machine: Entering ->
// Cruising <-> Holding, Cruising/Holding -> Emergency -> Cruising, any
// -> Exiting (terminal).
type Status int

const (
	Entering Status = iota
	Cruising
	Holding
	Exiting
	Emergency
)

func (s Status) String() string {
	switch s {
	case Entering:
		return "Entering"
	case Cruising:
		return "Cruising"
	case Holding:
		return "Holding"
	case Exiting:
		return "Exiting"
	case Emergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// State is the canonical per-aircraft record, a value type safe to copy
// and hand to readers.
type State struct {
	Callsign   string
	Position   airspace.Position
	Velocity   airspace.Velocity
	Heading    float64
	Status     Status
	TimestampMs int64
	AlertLevel int
}

// Speed returns the horizontal speed implied by Velocity.
func (s State) Speed() float64 { return s.Velocity.HorizontalSpeed() }

// Aircraft owns a single aircraft's mutable State behind one mutex.
type Aircraft struct {
	mu    sync.Mutex
	state State

	// stopRequested is set once integration finds the aircraft outside
	// the airspace; exitConfirmed is set on the following tick, and
	// ShouldStop reports it so the owning runner stops after that
	// confirming tick.
	stopRequested bool
	exitConfirmed bool
}

// New creates an Aircraft at initialPos/initialVel. It fails if
// initialPos lies outside the airspace.
func New(callsign string, initialPos airspace.Position, initialVel airspace.Velocity) (*Aircraft, error) {
	if !airspace.InBounds(initialPos) {
		return nil, errs.Validationf("aircraft.New", "initial position %+v is outside airspace bounds", initialPos)
	}

	return &Aircraft{
		state: State{
			Callsign:    callsign,
			Position:    initialPos,
			Velocity:    initialVel,
			Heading:     initialVel.Heading(),
			Status:      Entering,
			TimestampMs: nowMs(),
		},
	}, nil
}

func nowMs() int64 { return time.Now().UnixMilli() }

// Snapshot returns an atomic value copy of the aircraft's current state.
func (a *Aircraft) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Callsign returns the aircraft's identifier without locking (immutable
// after construction).
func (a *Aircraft) Callsign() string {
	return a.state.Callsign
}

// Position returns a locked read of the current position, satisfying
// the narrow read-only views the radar and violation detector depend on
// instead of importing this package's mutators.
func (a *Aircraft) Position() airspace.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Position
}

// Velocity returns a locked read of the current velocity.
func (a *Aircraft) Velocity() airspace.Velocity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Velocity
}

// TimestampMs returns a locked read of the last update timestamp.
func (a *Aircraft) TimestampMs() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.TimestampMs
}

// UpdateSpeed sets horizontal speed, recomputing (vx, vy) from the
// current heading and preserving vz. Returns false (a no-op) if s is
// out of [MinSpeed, MaxSpeed].
func (a *Aircraft) UpdateSpeed(s float64) bool {
	if s < airspace.MinSpeed || s > airspace.MaxSpeed {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	heading := a.state.Heading
	vz := a.state.Velocity.VZ
	a.state.Velocity = airspace.FromSpeedAndHeading(s, heading, vz)
	a.state.TimestampMs = nowMs()
	return true
}

// UpdateHeading sets heading, recomputing (vx, vy) from the current
// speed and the new heading. Returns false if hDeg is out of [0, 360).
func (a *Aircraft) UpdateHeading(hDeg float64) bool {
	if hDeg < 0 || hDeg >= 360 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	speed := a.state.Velocity.HorizontalSpeed()
	vz := a.state.Velocity.VZ
	a.state.Velocity = airspace.FromSpeedAndHeading(speed, hDeg, vz)
	a.state.Heading = hDeg
	a.state.TimestampMs = nowMs()
	return true
}

// UpdateAltitude sets position.z instantaneously; there is no
// climb-rate envelope limiting how fast altitude can change. Returns
// false if z is out of [ZMin, ZMax].
func (a *Aircraft) UpdateAltitude(z float64) bool {
	if z < airspace.ZMin || z > airspace.ZMax {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Position.Z = z
	a.state.TimestampMs = nowMs()
	return true
}

// DeclareEmergency transitions status to Emergency from Cruising or
// Holding. Returns false if the aircraft is already Exiting.
func (a *Aircraft) DeclareEmergency() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Status == Exiting {
		return false
	}
	a.state.Status = Emergency
	a.state.AlertLevel = 3
	a.state.TimestampMs = nowMs()
	return true
}

// CancelEmergency transitions status back to Cruising. Returns false if
// the aircraft is not currently in Emergency.
func (a *Aircraft) CancelEmergency() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Status != Emergency {
		return false
	}
	a.state.Status = Cruising
	a.state.AlertLevel = 0
	a.state.TimestampMs = nowMs()
	return true
}

// SetHolding toggles between Cruising and Holding; this transition is a
// controller command, not part of the core integration loop.
func (a *Aircraft) SetHolding(hold bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state.Status {
	case Cruising, Holding:
		if hold {
			a.state.Status = Holding
		} else {
			a.state.Status = Cruising
		}
		a.state.TimestampMs = nowMs()
		return true
	default:
		return false
	}
}

// Integrate performs one integration step of duration dt seconds: it
// advances position by velocity*dt, commits the new position if still
// within the airspace (transitioning Entering -> Cruising on the first
// successful integration), or marks the aircraft Exiting if it has left
// the volume. It returns true once integration has confirmed the exit
// for a second tick, at which point the caller's runner should stop.
func (a *Aircraft) Integrate(dt float64) (shouldStop bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Status == Exiting {
		// One further tick after the transition confirms the exit and
		// signals the owning runner to stop.
		a.exitConfirmed = true
		return true
	}

	newPos := airspace.Integrate(a.state.Position, a.state.Velocity, dt)

	if airspace.InBounds(newPos) {
		a.state.Position = newPos
		a.state.Heading = a.state.Velocity.Heading()
		a.state.TimestampMs = nowMs()
		if a.state.Status == Entering {
			a.state.Status = Cruising
		}
		return false
	}

	a.state.Position = newPos
	a.state.Status = Exiting
	a.state.TimestampMs = nowMs()
	a.stopRequested = true
	return false
}

// ShouldStop reports whether the exit has been confirmed and the owning
// runner should stop after this tick.
func (a *Aircraft) ShouldStop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exitConfirmed
}
