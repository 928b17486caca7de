// Package scenario loads the CSV aircraft-seed file: one aircraft per
// row, rejecting malformed rows individually while the loader keeps
// going.
package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/l3itisys/ATC-system/pkg/airspace"
	"github.com/l3itisys/ATC-system/pkg/errs"
)

// Header is the exact required column order.
var Header = []string{"Time", "ID", "X", "Y", "Z", "SpeedX", "SpeedY", "SpeedZ"}

var callsignPattern = regexp.MustCompile(`^[A-Za-z0-9]{3,10}$`)

// Row is one validated scenario entry.
type Row struct {
	Time     float64
	Callsign string
	Position airspace.Position
	Velocity airspace.Velocity
}

// RowError names a rejected row and why, keeping the rest of the file
// loadable.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Report summarizes a load: the rows that parsed cleanly and every
// rejection. The loader always reports counts and continues rather than
// aborting on the first bad row.
type Report struct {
	Rows     []Row
	Rejected []RowError
}

// Load reads a scenario CSV from r. A malformed header is fatal (the
// file cannot possibly be this format); per-row failures are collected
// into Rejected rather than aborting the load.
func Load(r io.Reader) (Report, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Report{}, errs.Validationf("scenario.Load", "read header: %v", err)
	}
	if !headersMatch(header) {
		return Report{}, errs.Validationf("scenario.Load", "unexpected header %v, want %v", header, Header)
	}

	var report Report
	line := 1
	for {
		line++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Err: err})
			continue
		}

		row, err := parseRow(record)
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Err: err})
			continue
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

func headersMatch(got []string) bool {
	if len(got) != len(Header) {
		return false
	}
	for i, h := range Header {
		if got[i] != h {
			return false
		}
	}
	return true
}

func parseRow(record []string) (Row, error) {
	if len(record) != len(Header) {
		return Row{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(record))
	}

	timeSec, err := strconv.ParseFloat(record[0], 64)
	if err != nil {
		return Row{}, fmt.Errorf("Time: %v", err)
	}

	callsign := record[1]
	if !callsignPattern.MatchString(callsign) {
		return Row{}, fmt.Errorf("ID: %q is not 3-10 alphanumeric characters", callsign)
	}

	vals := make([]float64, 6)
	names := []string{"X", "Y", "Z", "SpeedX", "SpeedY", "SpeedZ"}
	for i, name := range names {
		v, err := strconv.ParseFloat(record[2+i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("%s: %v", name, err)
		}
		vals[i] = v
	}

	pos := airspace.Position{X: vals[0], Y: vals[1], Z: vals[2]}
	if !airspace.InBounds(pos) {
		return Row{}, fmt.Errorf("position %+v is outside airspace bounds", pos)
	}

	vel := airspace.Velocity{VX: vals[3], VY: vals[4], VZ: vals[5]}
	speed := vel.HorizontalSpeed()
	if speed < airspace.MinSpeed || speed > airspace.MaxSpeed {
		return Row{}, fmt.Errorf("horizontal speed %.2f outside [%.0f, %.0f]", speed, airspace.MinSpeed, airspace.MaxSpeed)
	}

	return Row{Time: timeSec, Callsign: callsign, Position: pos, Velocity: vel}, nil
}
