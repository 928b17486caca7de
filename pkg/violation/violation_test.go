package violation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3itisys/ATC-system/pkg/airspace"
	"github.com/l3itisys/ATC-system/pkg/bus"
)

// fakeAircraft is a minimal, mutable stand-in for *aircraft.Aircraft
// satisfying AircraftRef, letting tests move aircraft without a runner.
type fakeAircraft struct {
	callsign string
	pos      airspace.Position
	vel      airspace.Velocity
	ts       int64
}

func (f *fakeAircraft) Callsign() string            { return f.callsign }
func (f *fakeAircraft) Position() airspace.Position { return f.pos }
func (f *fakeAircraft) Velocity() airspace.Velocity { return f.vel }
func (f *fakeAircraft) TimestampMs() int64           { return f.ts }

func TestCheckPairViolationDetectsBreach(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 20000}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 1000, Y: 0, Z: 20500}}

	info, ok := checkPairViolation(a, b)
	require.True(t, ok)
	assert.Equal(t, "AC1", info.AC1)
	assert.Equal(t, "AC2", info.AC2)
	assert.InDelta(t, 1000, info.H, 1e-9)
	assert.InDelta(t, 500, info.V, 1e-9)
}

func TestCheckPairViolationSafeWhenVerticallySeparated(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 15000}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 1000, Y: 0, Z: 20000}}

	_, ok := checkPairViolation(a, b)
	assert.False(t, ok)
}

func TestPredictHeadOnCollision(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: 200, VY: 0}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 40000, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: -200, VY: 0}}

	pred := predict(a, b)
	assert.InDelta(t, 100, pred.TimeToViolation, 0.5)
	assert.InDelta(t, 0, pred.MinSeparation, 1.0)
	assert.True(t, pred.RequiresImmediateAction)
}

func TestPredictParallelTracksNeverPredictImminent(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 20000}, vel: airspace.Velocity{VX: 200, VY: 0}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 0, Y: 5000, Z: 20000}, vel: airspace.Velocity{VX: 200, VY: 0}}

	pred := predict(a, b)
	assert.Equal(t, 0.0, pred.TimeToViolation, "parallel tracks resolve t*=0 and are classified by current separation only")
	assert.InDelta(t, 5000, pred.MinSeparation, 1e-6)
	assert.False(t, isPredictionOfInterest(pred, airspace.DefaultLookaheadSeconds))
}

func TestPredictDivergingTracksAreNotOfInterest(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: -200, VY: 0}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 1000, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: 200, VY: 0}}

	pred := predict(a, b)
	assert.False(t, isPredictionOfInterest(pred, airspace.DefaultLookaheadSeconds))
}

func TestSeverityBands(t *testing.T) {
	cases := []struct {
		minSep float64
		want   Severity
	}{
		{2999, SeverityImminent},
		{3200, SeverityCritical},
		{4000, SeverityMedium},
		{5500, SeverityEarly},
		{7000, SeverityNone},
	}
	for _, c := range cases {
		got := severityOf(Prediction{MinSeparation: c.minSep})
		assert.Equal(t, c.want, got, "minSep=%v", c.minSep)
	}
}

func TestDetectorCurrentViolationsOrdersCallsignsLexicographically(t *testing.T) {
	d := New(nil, nil)
	d.Add(&fakeAircraft{callsign: "BRAVO", pos: airspace.Position{X: 0, Y: 0, Z: 20000}})
	d.Add(&fakeAircraft{callsign: "ALPHA", pos: airspace.Position{X: 500, Y: 0, Z: 20200}})

	violations := d.CurrentViolations()
	require.Len(t, violations, 1)
	assert.Equal(t, "ALPHA", violations[0].AC1)
	assert.Equal(t, "BRAVO", violations[0].AC2)
}

func TestDetectorPredictedViolationsExcludesCurrentViolations(t *testing.T) {
	d := New(nil, nil)
	d.Add(&fakeAircraft{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 20000}})
	d.Add(&fakeAircraft{callsign: "AC2", pos: airspace.Position{X: 500, Y: 0, Z: 20200}})

	assert.Len(t, d.CurrentViolations(), 1)
	assert.Empty(t, d.PredictedViolations(), "a pair already in violation must not also appear as a prediction")
}

func TestDetectorEmitsAlertThenSuppressesWithinCooldown(t *testing.T) {
	b := bus.NewMemoryBus(16)
	d := New(b, nil)
	d.Add(&fakeAircraft{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 20000}})
	d.Add(&fakeAircraft{callsign: "AC2", pos: airspace.Position{X: 500, Y: 0, Z: 20200}})

	ctx := context.Background()
	require.NoError(t, d.Execute(ctx))

	msg, ok, err := b.Receive(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bus.KindAlert, msg.Kind)

	require.NoError(t, d.Execute(ctx))
	_, ok, err = b.Receive(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "a second alert within the cooldown window must be suppressed")
}

func TestDetectorAdaptsPeriodUnderLoad(t *testing.T) {
	d := New(nil, nil)
	assert.Equal(t, NominalPeriod, d.NextPeriod())

	// A pair whose closest approach ratio is below the immediate
	// threshold forces the loaded period on the next tick.
	d.Add(&fakeAircraft{callsign: "AC1", pos: airspace.Position{X: 0, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: 300, VY: 0}})
	d.Add(&fakeAircraft{callsign: "AC2", pos: airspace.Position{X: 5000, Y: 50000, Z: 20000}, vel: airspace.Velocity{VX: -300, VY: 0}})

	require.NoError(t, d.Execute(context.Background()))
	assert.Equal(t, LoadedPeriod, d.NextPeriod())
}

func TestSetLookaheadClamps(t *testing.T) {
	d := New(nil, nil)
	d.SetLookahead(-5)
	assert.Greater(t, d.lookahead, 0.0)
	d.SetLookahead(airspace.MaxLookaheadSeconds + 100)
	assert.Equal(t, airspace.MaxLookaheadSeconds, d.lookahead)
}

func TestResolutionActionsForProposesAltitudeSplitWhenVerticallyClose(t *testing.T) {
	a := snapshot{callsign: "AC1", pos: airspace.Position{X: 0, Y: 0, Z: 20000}, vel: airspace.Velocity{VX: 200, VY: 0}}
	b := snapshot{callsign: "AC2", pos: airspace.Position{X: 1000, Y: 0, Z: 20500}, vel: airspace.Velocity{VX: 200, VY: 0}}

	actions := resolutionActionsFor(a, b, 10, 1000)
	var sawAltitude bool
	for _, act := range actions {
		if act.Kind == "altitude" {
			sawAltitude = true
			assert.True(t, act.Mandatory, "actions proposed with timeToViolation < 30s must be mandatory")
		}
	}
	assert.True(t, sawAltitude)
}
