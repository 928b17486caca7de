package orchestrator

import (
	"github.com/l3itisys/ATC-system/pkg/aircraft"
	"github.com/l3itisys/ATC-system/pkg/radar"
)

// groundTruthAdapter satisfies radar.GroundTruth by projecting
// aircraft.State into radar.GroundTruthState, keeping the radar package
// from importing aircraft's mutators directly.
type groundTruthAdapter struct {
	ac *aircraft.Aircraft
}

func (a groundTruthAdapter) Callsign() string { return a.ac.Callsign() }

func (a groundTruthAdapter) Snapshot() radar.GroundTruthState {
	s := a.ac.Snapshot()
	return radar.GroundTruthState{
		Position:    s.Position,
		Velocity:    s.Velocity,
		Heading:     s.Heading,
		Status:      s.Status.String(),
		TimestampMs: s.TimestampMs,
		AlertLevel:  s.AlertLevel,
	}
}
