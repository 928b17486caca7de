package aircraft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3itisys/ATC-system/pkg/airspace"
)

func newTestAircraft(t *testing.T) *Aircraft {
	t.Helper()
	ac, err := New("AC001", airspace.Position{X: 50000, Y: 50000, Z: 20000}, airspace.Velocity{VX: 200, VY: 0, VZ: 0})
	require.NoError(t, err)
	return ac
}

func TestNewRejectsOutOfBoundsPosition(t *testing.T) {
	_, err := New("AC001", airspace.Position{X: -1, Y: 0, Z: 20000}, airspace.Velocity{})
	assert.Error(t, err)
}

func TestIntegrateEnteringToCruising(t *testing.T) {
	ac := newTestAircraft(t)
	assert.Equal(t, Entering, ac.Snapshot().Status)

	stop := ac.Integrate(1.0)
	assert.False(t, stop)
	assert.Equal(t, Cruising, ac.Snapshot().Status)
	assert.InDelta(t, 50200, ac.Snapshot().Position.X, 1e-6)
}

func TestIntegrateExitsAirspace(t *testing.T) {
	ac, err := New("AC002", airspace.Position{X: airspace.XMax - 50, Y: 50000, Z: 20000}, airspace.Velocity{VX: 200, VY: 0, VZ: 0})
	require.NoError(t, err)

	stop := ac.Integrate(1.0)
	assert.False(t, stop, "first out-of-bounds tick transitions to Exiting but does not yet signal stop")
	assert.Equal(t, Exiting, ac.Snapshot().Status)

	stop = ac.Integrate(1.0)
	assert.True(t, stop, "second tick after Exiting confirms the exit")
}

func TestUpdateSpeedOutOfRangeIsNoop(t *testing.T) {
	ac := newTestAircraft(t)
	before := ac.Snapshot().Velocity
	assert.False(t, ac.UpdateSpeed(airspace.MinSpeed-1))
	assert.Equal(t, before, ac.Snapshot().Velocity)
	assert.True(t, ac.UpdateSpeed(300))
	assert.InDelta(t, 300, ac.Snapshot().Speed(), 1e-6)
}

func TestUpdateHeadingPreservesSpeed(t *testing.T) {
	ac := newTestAircraft(t)
	assert.True(t, ac.UpdateHeading(90))
	s := ac.Snapshot()
	assert.InDelta(t, 200, s.Speed(), 1e-6)
	assert.InDelta(t, 90, s.Heading, 1e-6)
	assert.False(t, ac.UpdateHeading(360))
}

func TestUpdateAltitudeBounds(t *testing.T) {
	ac := newTestAircraft(t)
	assert.False(t, ac.UpdateAltitude(airspace.ZMax+1))
	assert.True(t, ac.UpdateAltitude(18000))
	assert.InDelta(t, 18000, ac.Snapshot().Position.Z, 1e-9)
}

func TestEmergencyLifecycle(t *testing.T) {
	ac := newTestAircraft(t)
	assert.True(t, ac.DeclareEmergency())
	assert.Equal(t, Emergency, ac.Snapshot().Status)
	assert.True(t, ac.DeclareEmergency(), "declaring emergency again while already in emergency is idempotent")

	assert.True(t, ac.CancelEmergency())
	assert.Equal(t, Cruising, ac.Snapshot().Status)
	assert.False(t, ac.CancelEmergency(), "cannot cancel an emergency that is not active")
}

func TestSetHoldingTogglesBetweenCruisingAndHolding(t *testing.T) {
	ac := newTestAircraft(t)
	ac.Integrate(1.0) // Entering -> Cruising
	assert.True(t, ac.SetHolding(true))
	assert.Equal(t, Holding, ac.Snapshot().Status)
	assert.True(t, ac.SetHolding(false))
	assert.Equal(t, Cruising, ac.Snapshot().Status)
}

func TestAircraftRefAccessorsMatchSnapshot(t *testing.T) {
	ac := newTestAircraft(t)
	s := ac.Snapshot()
	assert.Equal(t, s.Position, ac.Position())
	assert.Equal(t, s.Velocity, ac.Velocity())
	assert.Equal(t, s.TimestampMs, ac.TimestampMs())
	assert.Equal(t, "AC001", ac.Callsign())
}
