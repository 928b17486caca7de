// Package history periodically writes the airspace's state to an
// append-only log file: one entry per logging tick naming every tracked
// aircraft's position, speed, heading and status, followed by a
// pairwise separation table.
package history

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/l3itisys/ATC-system/pkg/airspace"
)

// AircraftSnapshot is the subset of aircraft.State the logger records.
type AircraftSnapshot struct {
	Callsign    string
	Position    airspace.Position
	Speed       float64
	Heading     float64
	Status      string
	TimestampMs int64
}

// Logger is the periodic history-file writer. A single mutex serializes
// both state updates and file writes, guarding the in-memory snapshot
// and the file handle together.
type Logger struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	path        string
	period      time.Duration
	operational bool
	current     []AircraftSnapshot
	log         zerolog.Logger
}

// New opens filenamePrefix_<timestamp>.log for append and writes the
// header. A failure to open is not fatal: the logger starts
// non-operational and Execute will keep retrying to reopen it. period
// is recorded in the header only; the caller's Runner owns the actual
// tick cadence.
func New(filenamePrefix string, period time.Duration, log zerolog.Logger) *Logger {
	path := fmt.Sprintf("%s_%s.log", filenamePrefix, time.Now().Format("20060102_150405"))
	l := &Logger{path: path, period: period, log: log}
	l.open()
	return l
}

func (l *Logger) open() {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.operational = false
		l.log.Warn().Err(err).Str("path", l.path).Msg("history logger failed to open file")
		return
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	l.operational = true
	l.writeHeader()
	l.log.Info().Str("path", l.path).Msg("history logger initialized")
}

func (l *Logger) writeHeader() {
	fmt.Fprintf(l.writer, "\n=== ATC System History Log ===\n")
	fmt.Fprintf(l.writer, "Started at: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(l.writer, "Logging interval: %dms\n", l.period.Milliseconds())
	fmt.Fprintf(l.writer, "%s\n", strings.Repeat("-", 50))
	l.writer.Flush()
}

// Update replaces the set of aircraft the next tick will record.
func (l *Logger) Update(states []AircraftSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = states
}

// IsOperational reports whether the last write succeeded.
func (l *Logger) IsOperational() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.operational
}

// Execute is the Runner callback: write one state entry, or attempt to
// reopen the file if the previous tick left it non-operational.
func (l *Logger) Execute(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		l.log.Warn().Msg("history logger not operational, attempting to reopen")
		l.open()
		return nil
	}

	if len(l.current) == 0 {
		return nil
	}

	if err := l.writeEntry(l.current); err != nil {
		l.log.Warn().Err(err).Msg("history write failed, will attempt reopen next tick")
		l.operational = false
	}
	return nil
}

func (l *Logger) writeEntry(states []AircraftSnapshot) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.writer, "\n=== Airspace State at %s ===\n", now)
	fmt.Fprintf(l.writer, "Active Aircraft: %d\n\n", len(states))

	sorted := make([]AircraftSnapshot, len(states))
	copy(sorted, states)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Callsign < sorted[j].Callsign })

	for _, s := range sorted {
		fmt.Fprintf(l.writer, "Aircraft ID: %s\n", s.Callsign)
		fmt.Fprintf(l.writer, "Position: (%.2f, %.2f, %.2f)\n", s.Position.X, s.Position.Y, s.Position.Z)
		fmt.Fprintf(l.writer, "Speed: %.2f units/s\n", s.Speed)
		fmt.Fprintf(l.writer, "Heading: %.2f degrees\n", s.Heading)
		fmt.Fprintf(l.writer, "Status: %s\n", s.Status)
		fmt.Fprintf(l.writer, "Timestamp: %d\n\n", s.TimestampMs)
	}

	if len(sorted) > 1 {
		fmt.Fprintf(l.writer, "Separation Analysis:\n")
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				h := airspace.HorizontalSeparation(sorted[i].Position, sorted[j].Position)
				v := airspace.VerticalSeparation(sorted[i].Position, sorted[j].Position)
				fmt.Fprintf(l.writer, "%s - %s: Horizontal: %.2f, Vertical: %.2f\n", sorted[i].Callsign, sorted[j].Callsign, h, v)
			}
		}
	}

	fmt.Fprintf(l.writer, "%s\n", strings.Repeat("-", 80))
	return l.writer.Flush()
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		l.writer.Flush()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
