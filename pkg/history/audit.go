package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/l3itisys/ATC-system/pkg/errs"
)

// AuditConfig configures the optional Postgres audit sink with just the
// pool knobs an append-only writer actually needs.
type AuditConfig struct {
	URL          string
	MaxConns     int32
	MaxConnLife  time.Duration
	HealthCheck  time.Duration
}

// DefaultAuditConfig sizes a connection pool for a low-volume
// write-only sink.
func DefaultAuditConfig(url string) AuditConfig {
	return AuditConfig{
		URL:         url,
		MaxConns:    5,
		MaxConnLife: time.Hour,
		HealthCheck: time.Minute,
	}
}

// AuditSink is a write-only record of emitted alerts and issued commands
// for external dashboards; it never participates in simulator state, so
// its unavailability is a ResourceError, not a FatalError.
type AuditSink struct {
	pool *pgxpool.Pool
}

// DialAuditSink connects to Postgres and verifies the connection. Callers
// should treat a non-nil error as "run without an audit sink", not as a
// reason to abort startup.
func DialAuditSink(ctx context.Context, cfg AuditConfig) (*AuditSink, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errs.Resourcef("history.DialAuditSink", "parse connection string: %v", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLife
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Resourcef("history.DialAuditSink", "create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Resourcef("history.DialAuditSink", "ping: %v", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &AuditSink{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS atc_alerts (
			id BIGSERIAL PRIMARY KEY,
			emitted_at TIMESTAMPTZ NOT NULL,
			level INT NOT NULL,
			description TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS atc_commands (
			id BIGSERIAL PRIMARY KEY,
			issued_at TIMESTAMPTZ NOT NULL,
			target_id TEXT NOT NULL,
			verb TEXT NOT NULL,
			params TEXT NOT NULL,
			allowed BOOLEAN NOT NULL,
			deny_reason TEXT NOT NULL DEFAULT ''
		);
	`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return errs.Resourcef("history.ensureSchema", "create tables: %v", err)
	}
	return nil
}

// RecordAlert appends one emitted alert.
func (s *AuditSink) RecordAlert(ctx context.Context, level int, description string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO atc_alerts (emitted_at, level, description) VALUES ($1, $2, $3)`,
		at, level, description)
	if err != nil {
		return errs.Resourcef("history.RecordAlert", "insert: %v", err)
	}
	return nil
}

// RecordCommand appends one issued controller command and its policy
// outcome.
func (s *AuditSink) RecordCommand(ctx context.Context, targetID, verb string, params []string, allowed bool, denyReason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO atc_commands (issued_at, target_id, verb, params, allowed, deny_reason) VALUES ($1, $2, $3, $4, $5, $6)`,
		time.Now(), targetID, verb, fmt.Sprint(params), allowed, denyReason)
	if err != nil {
		return errs.Resourcef("history.RecordCommand", "insert: %v", err)
	}
	return nil
}

// Close releases the pool.
func (s *AuditSink) Close() {
	s.pool.Close()
}
