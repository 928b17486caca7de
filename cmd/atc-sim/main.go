// Command atc-sim is the simulator's entrypoint: it loads configuration
// from the environment, wires the message bus, connects the orchestrator
// to its scenario file, and serves the operator console on stdin/stdout
// alongside the HTTP/websocket display surface until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/l3itisys/ATC-system/pkg/bus"
	"github.com/l3itisys/ATC-system/pkg/display"
	"github.com/l3itisys/ATC-system/pkg/orchestrator"
	"github.com/l3itisys/ATC-system/pkg/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := telemetry.NewLogger("atc-sim")
	log.Logger = logger

	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracer(ctx, "atc-sim")
	if err != nil {
		logger.Error().Err(err).Msg("failed to init tracer")
		return 1
	}
	defer shutdownTracer(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	b, err := newBus(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to construct message bus")
		return 1
	}

	metrics := telemetry.NewMetrics()

	orch, err := orchestrator.New(ctx, cfg, b, logger, metrics)
	if err != nil {
		logger.Error().Err(err).Msg("failed to construct orchestrator")
		return 1
	}

	accepted, rejected, err := orch.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.ScenarioPath).Msg("failed to load scenario")
		return 1
	}
	logger.Info().Int("accepted", accepted).Int("rejected", len(rejected)).Msg("scenario loaded")
	for _, r := range rejected {
		logger.Warn().Err(r.Err).Int("line", r.Line).Msg("rejected scenario row")
	}

	if err := orch.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("orchestrator exited with error")
		return 1
	}
	logger.Info().Msg("atc-sim shut down cleanly")
	return 0
}

func loadConfig() orchestrator.Config {
	return orchestrator.Config{
		ScenarioPath:  getEnv("ATC_SCENARIO_FILE", "scenario.csv"),
		HistoryPrefix: getEnv("ATC_HISTORY_PREFIX", "atc_history"),
		AuditURL:      os.Getenv("ATC_AUDIT_URL"),
		DisplayConfig: display.Config{
			Addr:        getEnv("ATC_HTTP_ADDR", "0.0.0.0:8080"),
			CORSOrigins: []string{getEnv("ATC_CORS_ORIGIN", "http://localhost:3000")},
		},
		OperatorInput:  os.Stdin,
		OperatorOutput: os.Stdout,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newBus dials a NATS-backed bus when ATC_NATS_URL is set, falling back
// to the in-process MemoryBus otherwise.
func newBus(ctx context.Context) (bus.Bus, error) {
	url := os.Getenv("ATC_NATS_URL")
	if url == "" {
		return bus.NewMemoryBus(256), nil
	}
	return bus.DialNATS(ctx, url)
}
