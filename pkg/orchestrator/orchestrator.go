// Package orchestrator owns every aircraft, the radar tracker, the
// violation detector, and the history/display sinks, and drives the
// system through startup, steady state, and shutdown: load the scenario,
// start every periodic runner, route controller commands, and stop
// everything in reverse priority order within a bounded timeout.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/l3itisys/ATC-system/pkg/aircraft"
	"github.com/l3itisys/ATC-system/pkg/airspace"
	"github.com/l3itisys/ATC-system/pkg/bus"
	"github.com/l3itisys/ATC-system/pkg/console"
	"github.com/l3itisys/ATC-system/pkg/display"
	"github.com/l3itisys/ATC-system/pkg/errs"
	"github.com/l3itisys/ATC-system/pkg/history"
	"github.com/l3itisys/ATC-system/pkg/policy"
	"github.com/l3itisys/ATC-system/pkg/radar"
	"github.com/l3itisys/ATC-system/pkg/runner"
	"github.com/l3itisys/ATC-system/pkg/scenario"
	"github.com/l3itisys/ATC-system/pkg/telemetry"
	"github.com/l3itisys/ATC-system/pkg/violation"
)

const (
	AircraftUpdatePeriod = time.Second
	DisplayPeriod        = 5 * time.Second
	HistoryPeriod        = 30 * time.Second
	OuterLoopPeriod      = 100 * time.Millisecond
	MetricsReportPeriod  = 60 * time.Second
	ShutdownTimeout      = 5 * time.Second
)

// Config configures the orchestrator, loaded from environment variables
// by cmd/atc-sim with getEnv-style fallbacks to sane defaults.
type Config struct {
	ScenarioPath   string
	HistoryPrefix  string
	DisplayConfig  display.Config
	AuditURL       string // optional; empty disables the Postgres audit sink
	OperatorInput  io.Reader
	OperatorOutput io.Writer
}

// Orchestrator is the simulator's top-level owner.
type Orchestrator struct {
	cfg    Config
	log    zerolog.Logger
	metrics *telemetry.Metrics

	bus      bus.Bus
	radar    *radar.Tracker
	detector *violation.Detector
	hist     *history.Logger
	audit    *history.AuditSink
	policy   *policy.Engine
	hub      *display.Hub

	mu       sync.Mutex
	aircraft map[string]*aircraft.Aircraft
	runners  map[string]*runner.Runner

	radarRunner    *runner.Runner
	detectorRunner *runner.Runner
	historyRunner  *runner.Runner

	startedAt time.Time
	stopFlag  atomic.Bool

	updatesProcessed atomic.Int64
	commandsTotal    atomic.Int64
}

// New constructs an Orchestrator and its fixed components. It does not
// start anything; call LoadScenario then Run.
func New(ctx context.Context, cfg Config, b bus.Bus, log zerolog.Logger, metrics *telemetry.Metrics) (*Orchestrator, error) {
	eng, err := policy.New(ctx)
	if err != nil {
		return nil, err
	}

	var audit *history.AuditSink
	if cfg.AuditURL != "" {
		audit, err = history.DialAuditSink(ctx, history.DefaultAuditConfig(cfg.AuditURL))
		if err != nil {
			log.Warn().Err(err).Msg("audit sink unavailable, continuing without it")
			audit = nil
		}
	}

	o := &Orchestrator{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		bus:      b,
		radar:    radar.New(b),
		detector: violation.New(b, metrics),
		hist:     history.New(cfg.HistoryPrefix, HistoryPeriod, log.With().Str("component", "history").Logger()),
		audit:    audit,
		policy:   eng,
		hub:      display.NewHub(log.With().Str("component", "display").Logger()),
		aircraft: make(map[string]*aircraft.Aircraft),
		runners:  make(map[string]*runner.Runner),
	}
	return o, nil
}

// LoadScenario parses path and registers every accepted aircraft with
// the detector, tracker, and history logger. It returns the number
// accepted and the per-row rejections, never erroring on bad rows.
func (o *Orchestrator) LoadScenario(path string) (accepted int, rejected []scenario.RowError, err error) {
	f, ferr := os.Open(path)
	if ferr != nil {
		return 0, nil, errs.Fatalf("orchestrator.LoadScenario", "open %s: %v", path, ferr)
	}
	defer f.Close()

	report, lerr := scenario.Load(f)
	if lerr != nil {
		return 0, nil, lerr
	}

	for _, row := range report.Rows {
		if err := o.addAircraft(row.Callsign, row.Position, row.Velocity); err != nil {
			report.Rejected = append(report.Rejected, scenario.RowError{Err: err})
			continue
		}
		accepted++
	}

	o.log.Info().Int("accepted", accepted).Int("rejected", len(report.Rejected)).Msg("scenario loaded")
	return accepted, report.Rejected, nil
}

func (o *Orchestrator) addAircraft(callsign string, pos airspace.Position, vel airspace.Velocity) error {
	ac, err := aircraft.New(callsign, pos, vel)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if _, exists := o.aircraft[callsign]; exists {
		o.mu.Unlock()
		return errs.Validationf("orchestrator.addAircraft", "duplicate callsign %s", callsign)
	}
	o.aircraft[callsign] = ac
	o.mu.Unlock()

	o.radar.Add(groundTruthAdapter{ac})
	o.detector.Add(ac)

	r := runner.New(
		"aircraft-"+callsign,
		AircraftUpdatePeriod,
		runner.PriorityAircraftUpdate,
		func(ctx context.Context) error { return o.tickAircraft(ac) },
		o.log.With().Str("aircraft", callsign).Logger(),
		o.metrics,
	)
	o.mu.Lock()
	o.runners[callsign] = r
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.ActiveAircraft.Inc()
	}
	return nil
}

func (o *Orchestrator) tickAircraft(ac *aircraft.Aircraft) error {
	shouldStop := ac.Integrate(AircraftUpdatePeriod.Seconds())
	if shouldStop {
		o.retireAircraft(ac.Callsign())
	}
	return nil
}

func (o *Orchestrator) retireAircraft(callsign string) {
	o.mu.Lock()
	r, ok := o.runners[callsign]
	delete(o.runners, callsign)
	delete(o.aircraft, callsign)
	o.mu.Unlock()

	if ok {
		go r.Stop() // Stop blocks until the in-flight tick returns; never call it from inside that tick.
	}
	o.radar.Remove(callsign)
	o.detector.Remove(callsign)
	if o.metrics != nil {
		o.metrics.ActiveAircraft.Dec()
	}
	o.log.Info().Str("aircraft", callsign).Msg("aircraft exited controlled airspace")
}

// AircraftViews satisfies display.AircraftSource.
func (o *Orchestrator) AircraftViews() []display.AircraftView {
	tracks := o.radar.Tracks()
	views := make([]display.AircraftView, 0, len(tracks))
	for _, t := range tracks {
		views = append(views, display.AircraftView{
			Callsign: t.Callsign,
			Position: t.State.Position,
			Speed:    t.State.Velocity.HorizontalSpeed(),
			Heading:  t.State.Heading,
			Status:   t.State.Status,
			Quality:  t.Quality,
		})
	}
	return views
}

// ViolationSummary satisfies display.ViolationSource.
func (o *Orchestrator) ViolationSummary() interface{} {
	return struct {
		Current   []violation.Info       `json:"current"`
		Predicted []violation.Prediction `json:"predicted"`
	}{
		Current:   o.detector.CurrentViolations(),
		Predicted: o.detector.PredictedViolations(),
	}
}

// ApplyCommand authorizes and dispatches one controller command,
// returning a human-readable result message.
func (o *Orchestrator) ApplyCommand(ctx context.Context, cmd console.Command) string {
	o.commandsTotal.Add(1)

	if cmd.Verb == console.VerbHelp {
		return console.HelpText
	}
	if cmd.Verb == console.VerbStatus {
		return o.statusReport(cmd.Arg)
	}
	if cmd.Verb == console.VerbTrack || cmd.Verb == console.VerbExit {
		return "ok"
	}

	o.mu.Lock()
	ac, ok := o.aircraft[cmd.TargetID]
	o.mu.Unlock()
	if !ok {
		return fmt.Sprintf("error: unknown aircraft %q", cmd.TargetID)
	}

	status := ac.Snapshot().Status.String()
	verb := verbString(cmd.Verb)
	if err := o.policy.Authorize(ctx, policy.Input{Verb: verb, TargetStatus: status, OverrideActive: cmd.Override}); err != nil {
		if o.metrics != nil {
			o.metrics.CommandsTotal.WithLabelValues(verb, "denied").Inc()
		}
		o.recordAudit(ctx, cmd, false, err.Error())
		return "error: " + err.Error()
	}

	ok2, msg := o.dispatch(ac, cmd)
	outcome := "applied"
	if !ok2 {
		outcome = "rejected"
	}
	if o.metrics != nil {
		o.metrics.CommandsTotal.WithLabelValues(verb, outcome).Inc()
	}
	o.recordAudit(ctx, cmd, ok2, "")
	return msg
}

func (o *Orchestrator) recordAudit(ctx context.Context, cmd console.Command, allowed bool, reason string) {
	if o.audit == nil {
		return
	}
	params := []string{cmd.TargetID, strconv.FormatFloat(cmd.Value, 'f', -1, 64)}
	_ = o.audit.RecordCommand(ctx, cmd.TargetID, verbString(cmd.Verb), params, allowed, reason)
}

func (o *Orchestrator) dispatch(ac *aircraft.Aircraft, cmd console.Command) (bool, string) {
	switch cmd.Verb {
	case console.VerbAltitude:
		if ac.UpdateAltitude(cmd.Value) {
			return true, "altitude set"
		}
		return false, fmt.Sprintf("error: altitude must be in [%.0f, %.0f]", airspace.ZMin, airspace.ZMax)
	case console.VerbSpeed:
		if ac.UpdateSpeed(cmd.Value) {
			return true, "speed set"
		}
		return false, fmt.Sprintf("error: speed must be in [%.0f, %.0f]", airspace.MinSpeed, airspace.MaxSpeed)
	case console.VerbHeading:
		if ac.UpdateHeading(cmd.Value) {
			return true, "heading set"
		}
		return false, "error: heading must be in [0, 360)"
	case console.VerbEmergency:
		if cmd.Flag {
			if ac.DeclareEmergency() {
				return true, "emergency declared"
			}
			return false, "error: cannot declare emergency for exiting aircraft"
		}
		if ac.CancelEmergency() {
			return true, "emergency cancelled"
		}
		return false, "error: aircraft is not in emergency"
	default:
		return false, "error: unsupported command"
	}
}

func verbString(v console.Verb) string {
	switch v {
	case console.VerbAltitude:
		return "altitude"
	case console.VerbSpeed:
		return "speed"
	case console.VerbHeading:
		return "heading"
	case console.VerbEmergency:
		return "emergency"
	case console.VerbStatus:
		return "status"
	default:
		return "unknown"
	}
}

func (o *Orchestrator) statusReport(targetID string) string {
	if targetID != "" {
		o.mu.Lock()
		ac, ok := o.aircraft[targetID]
		o.mu.Unlock()
		if !ok {
			return fmt.Sprintf("error: unknown aircraft %q", targetID)
		}
		s := ac.Snapshot()
		return fmt.Sprintf("%s: pos=(%.0f,%.0f,%.0f) speed=%.0f heading=%.1f status=%s",
			s.Callsign, s.Position.X, s.Position.Y, s.Position.Z, s.Speed(), s.Heading, s.Status)
	}

	o.mu.Lock()
	active := len(o.aircraft)
	o.mu.Unlock()
	return fmt.Sprintf("active aircraft=%d uptime=%s commands=%d updates=%d",
		active, time.Since(o.startedAt).Round(time.Second), o.commandsTotal.Load(), o.updatesProcessed.Load())
}

// Run starts every periodic runner and the outer loop, and blocks until
// ctx is cancelled or a fatal error occurs.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startedAt = time.Now()

	o.radarRunner = runner.New("radar", radar.SecondaryScanPeriod, runner.PriorityRadar, o.radar.Execute, o.log.With().Str("component", "radar").Logger(), o.metrics)
	o.detectorRunner = runner.New("violation-detector", violation.NominalPeriod, runner.PriorityViolationCheck, o.adaptiveDetectorExecute, o.log.With().Str("component", "violation").Logger(), o.metrics)
	o.historyRunner = runner.New("history", HistoryPeriod, runner.PriorityLogging, o.hist.Execute, o.log.With().Str("component", "history").Logger(), o.metrics)

	g, gCtx := errgroup.WithContext(ctx)

	o.radarRunner.Start(gCtx)
	o.detectorRunner.Start(gCtx)
	o.historyRunner.Start(gCtx)

	o.mu.Lock()
	for _, r := range o.runners {
		r.Start(gCtx)
	}
	o.mu.Unlock()

	g.Go(func() error { o.hub.Run(gCtx); return nil })
	g.Go(func() error {
		return display.Serve(gCtx, o.cfg.DisplayConfig, display.NewRouter(o.cfg.DisplayConfig, o, o, o.hub, o.log))
	})
	g.Go(func() error { return o.outerLoop(gCtx) })
	g.Go(func() error { return o.metricsReportLoop(gCtx) })
	g.Go(func() error { return o.consoleRenderLoop(gCtx) })
	if o.cfg.OperatorInput != nil {
		g.Go(func() error { return o.consoleLoop(gCtx) })
	}

	<-gCtx.Done()
	o.shutdown()
	return g.Wait()
}

// adaptiveDetectorExecute runs one detector tick, then reprograms the
// detector runner's own period per the load-adaptation rule.
func (o *Orchestrator) adaptiveDetectorExecute(ctx context.Context) error {
	if err := o.detector.Execute(ctx); err != nil {
		return err
	}
	o.detectorRunner.SetPeriod(o.detector.NextPeriod())
	return nil
}

func (o *Orchestrator) outerLoop(ctx context.Context) error {
	ticker := time.NewTicker(OuterLoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.drainBus(ctx)
			o.pushSnapshots()
		}
	}
}

func (o *Orchestrator) drainBus(ctx context.Context) {
	if o.bus == nil {
		return
	}
	for {
		msg, ok, err := o.bus.Receive(ctx, 0)
		if err != nil || !ok {
			return
		}
		o.updatesProcessed.Add(1)
		if o.metrics != nil {
			o.metrics.UpdatesProcessed.Inc()
		}
		if msg.Kind == bus.KindCommand && msg.Command != nil {
			o.handleBusCommand(ctx, *msg.Command)
		}
		if msg.Kind == bus.KindAlert && msg.Alert != nil {
			o.hub.PushAlertText(msg.Alert.Description)
			if o.audit != nil {
				_ = o.audit.RecordAlert(ctx, msg.Alert.Level, msg.Alert.Description, time.UnixMilli(msg.Alert.At))
			}
		}
	}
}

func (o *Orchestrator) handleBusCommand(ctx context.Context, payload bus.CommandPayload) {
	cmd := console.Command{Verb: console.Verb(payload.Verb), TargetID: payload.TargetID}
	if len(payload.Params) > 0 {
		if v, err := strconv.ParseFloat(payload.Params[0], 64); err == nil {
			cmd.Value = v
		}
	}
	o.ApplyCommand(ctx, cmd)
}

func (o *Orchestrator) pushSnapshots() {
	o.mu.Lock()
	snaps := make([]aircraft.State, 0, len(o.aircraft))
	for _, ac := range o.aircraft {
		snaps = append(snaps, ac.Snapshot())
	}
	o.mu.Unlock()

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Callsign < snaps[j].Callsign })

	histSnaps := make([]history.AircraftSnapshot, len(snaps))
	views := make([]display.AircraftView, len(snaps))
	for i, s := range snaps {
		histSnaps[i] = history.AircraftSnapshot{
			Callsign: s.Callsign, Position: s.Position, Speed: s.Speed(), Heading: s.Heading,
			Status: s.Status.String(), TimestampMs: s.TimestampMs,
		}
		views[i] = display.AircraftView{Callsign: s.Callsign, Position: s.Position, Speed: s.Speed(), Heading: s.Heading, Status: s.Status.String()}
	}

	o.hist.Update(histSnaps)
	o.hub.PushAircraft(views)
}

// consoleRenderLoop redraws the plain-text radar console at DisplayPeriod.
// It is a no-op if no operator output was configured (e.g. a headless
// deployment).
func (o *Orchestrator) consoleRenderLoop(ctx context.Context) error {
	if o.cfg.OperatorOutput == nil {
		return nil
	}
	ticker := time.NewTicker(DisplayPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.renderConsole()
		}
	}
}

func (o *Orchestrator) renderConsole() {
	o.mu.Lock()
	snaps := make([]aircraft.State, 0, len(o.aircraft))
	for _, ac := range o.aircraft {
		snaps = append(snaps, ac.Snapshot())
	}
	o.mu.Unlock()

	consoleAC := make([]display.ConsoleAircraft, len(snaps))
	for i, s := range snaps {
		consoleAC[i] = display.ConsoleAircraft{
			Callsign: s.Callsign, Position: s.Position, Speed: s.Speed(), Heading: s.Heading, Status: s.Status.String(),
		}
	}

	current := o.detector.CurrentViolations()
	violations := make([]display.ConsoleViolation, 0, len(current))
	for _, v := range current {
		violations = append(violations, display.ConsoleViolation{AC1: v.AC1, AC2: v.AC2, Label: "VIOLATION", HSep: v.H, VSep: v.V})
	}

	display.RenderConsole(o.cfg.OperatorOutput, consoleAC, violations, time.Now())
}

func (o *Orchestrator) metricsReportLoop(ctx context.Context) error {
	ticker := time.NewTicker(MetricsReportPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.mu.Lock()
			active := len(o.aircraft)
			o.mu.Unlock()
			o.log.Info().
				Dur("uptime", time.Since(o.startedAt).Round(time.Second)).
				Int("active_aircraft", active).
				Int64("updates_processed", o.updatesProcessed.Load()).
				Int64("violation_checks", o.detector.ChecksPerformed()).
				Int64("commands_total", o.commandsTotal.Load()).
				Msg("metrics report")
		}
	}
}

func (o *Orchestrator) consoleLoop(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(o.cfg.OperatorInput)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, err := console.Parse(line)
			if err != nil {
				fmt.Fprintln(o.cfg.OperatorOutput, "error:", err)
				continue
			}
			result := o.ApplyCommand(ctx, cmd)
			fmt.Fprintln(o.cfg.OperatorOutput, result)
			if cmd.Verb == console.VerbExit {
				o.stopFlag.Store(true)
				return nil
			}
		}
	}
}

// shutdown stops every runner in reverse priority order, bounded by
// ShutdownTimeout: History -> Detector -> Radar -> Aircraft. The display
// and console goroutines are not runners; they end when ctx is cancelled.
// Runners that exceed the bound are detached and logged rather than
// blocking the process exit.
func (o *Orchestrator) shutdown() {
	o.stopFlag.Store(true)

	stoppers := []struct {
		name string
		stop func()
	}{
		{"history", o.historyRunner.Stop},
		{"violation-detector", o.detectorRunner.Stop},
		{"radar", o.radarRunner.Stop},
	}

	o.mu.Lock()
	for callsign, r := range o.runners {
		stoppers = append(stoppers, struct {
			name string
			stop func()
		}{"aircraft-" + callsign, r.Stop})
	}
	o.mu.Unlock()

	for _, s := range stoppers {
		done := make(chan struct{})
		go func() {
			s.stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(ShutdownTimeout):
			o.log.Warn().Str("runner", s.name).Msg("runner exceeded shutdown timeout, detaching")
		}
	}

	_ = o.hist.Close()
	if o.audit != nil {
		o.audit.Close()
	}
	if o.bus != nil {
		_ = o.bus.Close()
	}
}
