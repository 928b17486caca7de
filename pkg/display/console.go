package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/l3itisys/ATC-system/pkg/airspace"
)

// directionSymbols is an 8-point compass rose, indexed by
// ((heading+22.5)/45) % 8.
var directionSymbols = [8]byte{'^', '/', '>', '\\', 'v', '/', '<', '\\'}

func directionSymbol(headingDeg float64) byte {
	idx := int((headingDeg+22.5)/45.0) % 8
	if idx < 0 {
		idx += 8
	}
	return directionSymbols[idx]
}

// ConsoleAircraft is one row the text renderer draws.
type ConsoleAircraft struct {
	Callsign string
	Position airspace.Position
	Speed    float64
	Heading  float64
	Status   string
}

// ConsoleViolation is one active warning or violation the text renderer
// draws beneath the aircraft table.
type ConsoleViolation struct {
	AC1, AC2 string
	Label    string // "VIOLATION", "CRITICAL", "WARNING", "CAUTION"
	HSep     float64
	VSep     float64
}

// RenderConsole writes a full-screen text radar frame to w: clear,
// header, legend, aircraft table, violation table.
func RenderConsole(w io.Writer, aircraft []ConsoleAircraft, violations []ConsoleViolation, now time.Time) {
	fmt.Fprint(w, "\033[2J\033[H")
	fmt.Fprintln(w, "=== Air Traffic Control System ===")
	fmt.Fprintln(w, "Time:", now.Format(time.RFC1123))
	fmt.Fprintln(w, strings.Repeat("-", 70))

	fmt.Fprintln(w, "Flight Levels: UPPERCASE=High(>21k) Normal=Mid(19-21k) lowercase=Low(<19k)")
	fmt.Fprintln(w, "Heading:       ^=N /=NE >=E \\=SE v=S /=SW <=W \\=NW")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	sorted := make([]ConsoleAircraft, len(aircraft))
	copy(sorted, aircraft)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Callsign < sorted[j].Callsign })

	fmt.Fprintf(w, "%-10s %-24s %8s %8s %-10s %s\n", "ID", "POSITION", "SPEED", "HDG", "STATUS", "")
	for _, ac := range sorted {
		label := flightLevelCase(ac.Callsign, ac.Position.Z)
		fmt.Fprintf(w, "%-10s (%8.0f,%8.0f,%6.0f) %8.0f %8.1f %-10s %c\n",
			label, ac.Position.X, ac.Position.Y, ac.Position.Z, ac.Speed, ac.Heading, ac.Status, directionSymbol(ac.Heading))
	}

	fmt.Fprintln(w, strings.Repeat("-", 70))
	if len(violations) == 0 {
		fmt.Fprintln(w, "No active warnings.")
	} else {
		fmt.Fprintln(w, "Active Warnings:")
		for _, v := range violations {
			fmt.Fprintf(w, "  [%s] %s - %s: horizontal %.0f, vertical %.0f\n", v.Label, v.AC1, v.AC2, v.HSep, v.VSep)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 70))
}

// flightLevelCase renders callsign per flight-level band: uppercase
// above 21,000, lowercase below 19,000, as-is between.
func flightLevelCase(callsign string, altitude float64) string {
	switch {
	case altitude > 21000:
		return strings.ToUpper(callsign)
	case altitude < 19000:
		return strings.ToLower(callsign)
	default:
		return callsign
	}
}
