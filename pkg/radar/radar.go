// Package radar fuses aircraft ground-truth into noisy tracks with
// quality decay: a primary scan every 4s samples jittered position, a
// secondary interrogation every 1s publishes PositionUpdate messages,
// and quality decays 5/tick for any track silent for more than a
// second.
package radar

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/l3itisys/ATC-system/pkg/airspace"
	"github.com/l3itisys/ATC-system/pkg/bus"
	"github.com/l3itisys/ATC-system/pkg/errs"
)

const (
	MinQuality    = 30
	MaxTrackAge   = 10 * time.Second
	PrimaryScanPeriod   = 4 * time.Second
	SecondaryScanPeriod = 1 * time.Second
	JitterUnits   = 50.0
)

// GroundTruth is the minimal read-only view the tracker needs from an
// owned Aircraft; orchestrator wires *aircraft.Aircraft in via this
// interface so this package does not import aircraft's mutators.
type GroundTruth interface {
	Callsign() string
	Snapshot() GroundTruthState
}

// GroundTruthState is the subset of aircraft.State the radar samples.
// It is a distinct type (rather than importing pkg/aircraft directly)
// so the tracker cannot accidentally depend on mutator-side concerns.
type GroundTruthState struct {
	Position    airspace.Position
	Velocity    airspace.Velocity
	Heading     float64
	Status      string
	TimestampMs int64
	AlertLevel  int
}

// Track is the Radar Tracker's per-callsign fused record.
type Track struct {
	Callsign      string
	State         GroundTruthState
	LastUpdate    time.Time
	Quality       int
	TransponderOK bool
}

// Tracker maintains the track table behind a single tracker-scoped
// exclusion lock; readers obtain snapshots, never the table itself.
type Tracker struct {
	mu            sync.Mutex
	aircraft      map[string]GroundTruth
	tracks        map[string]*Track
	lastPrimary   time.Time
	lastSecondary time.Time
	bus           bus.Bus
	rng           *rand.Rand
}

// New constructs a Tracker that publishes secondary interrogations onto b.
func New(b bus.Bus) *Tracker {
	now := time.Now()
	return &Tracker{
		aircraft:      make(map[string]GroundTruth),
		tracks:        make(map[string]*Track),
		lastPrimary:   now,
		lastSecondary: now,
		bus:           b,
		rng:           rand.New(rand.NewSource(now.UnixNano())),
	}
}

// Add registers an aircraft for tracking.
func (t *Tracker) Add(ac GroundTruth) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aircraft[ac.Callsign()] = ac
}

// Remove deregisters an aircraft and drops its track.
func (t *Tracker) Remove(callsign string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.aircraft, callsign)
	delete(t.tracks, callsign)
}

// Tracks returns a snapshot of every track currently meeting the
// reporting threshold, quality >= MinQuality.
func (t *Tracker) Tracks() []Track {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		if tr.Quality >= MinQuality {
			out = append(out, *tr)
		}
	}
	return out
}

// StateOf returns the fused state for callsign if it is currently
// tracked at reportable quality.
func (t *Tracker) StateOf(callsign string) (GroundTruthState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[callsign]
	if !ok || tr.Quality < MinQuality {
		return GroundTruthState{}, errs.Validationf("radar.StateOf", "not tracked: %s", callsign)
	}
	return tr.State, nil
}

// Execute is the Runner callback: it performs a primary scan and/or a
// secondary interrogation if their respective periods have elapsed,
// decays quality for silent tracks, and prunes stale or low-quality
// tracks. All per-aircraft failures are isolated: one bad sample never
// aborts the scan of the others.
func (t *Tracker) Execute(ctx context.Context) error {
	now := time.Now()

	t.mu.Lock()
	doPrimary := now.Sub(t.lastPrimary) >= PrimaryScanPeriod
	doSecondary := now.Sub(t.lastSecondary) >= SecondaryScanPeriod
	if doPrimary {
		t.lastPrimary = now
	}
	if doSecondary {
		t.lastSecondary = now
	}
	t.mu.Unlock()

	if doPrimary {
		t.primaryScan(now)
	}
	if doSecondary {
		t.secondaryInterrogation(ctx)
	}

	t.decayAndCleanup(now)
	return nil
}

func (t *Tracker) primaryScan(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for callsign, ac := range t.aircraft {
		func() {
			defer func() { _ = recover() }() // one aircraft's sampling failure never aborts the scan

			gs := ac.Snapshot()
			jittered := airspace.Position{
				X: gs.Position.X + t.jitter(),
				Y: gs.Position.Y + t.jitter(),
				Z: gs.Position.Z + t.jitter(),
			}
			if !airspace.InBounds(jittered) {
				return
			}
			gs.Position = jittered

			tr, ok := t.tracks[callsign]
			if !ok {
				tr = &Track{Callsign: callsign}
				t.tracks[callsign] = tr
			}
			tr.State = gs
			tr.LastUpdate = now
			tr.TransponderOK = true
			tr.Quality = min(100, tr.Quality+10)
		}()
	}
}

func (t *Tracker) jitter() float64 {
	return (t.rng.Float64()*2 - 1) * JitterUnits
}

func (t *Tracker) secondaryInterrogation(ctx context.Context) {
	t.mu.Lock()
	tracks := make([]*Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		tracks = append(tracks, tr)
	}
	t.mu.Unlock()

	if t.bus == nil {
		return
	}
	for _, tr := range tracks {
		msg := bus.NewPositionUpdate("radar", bus.PositionUpdatePayload{
			Callsign:    tr.Callsign,
			X:           tr.State.Position.X,
			Y:           tr.State.Position.Y,
			Z:           tr.State.Position.Z,
			VX:          tr.State.Velocity.VX,
			VY:          tr.State.Velocity.VY,
			VZ:          tr.State.Velocity.VZ,
			Heading:     tr.State.Heading,
			Status:      tr.State.Status,
			TimestampMs: tr.State.TimestampMs,
			AlertLevel:  tr.State.AlertLevel,
		})
		_ = t.bus.Send(ctx, msg)
	}
}

func (t *Tracker) decayAndCleanup(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for callsign, tr := range t.tracks {
		age := now.Sub(tr.LastUpdate)
		if age > time.Second {
			tr.Quality = max(0, tr.Quality-5)
		}
		if age > MaxTrackAge || tr.Quality <= 0 {
			delete(t.tracks, callsign)
		}
	}
}
