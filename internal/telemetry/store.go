// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package telemetry persists ingested telemetry samples in DuckDB for
// analytical queries.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/ingest"
)

// Config holds DuckDB connection settings.
type Config struct {
	Path      string
	Threads   int
	MaxMemory string
}

// Store is a DuckDB-backed telemetry sample store. It implements
// ingest.BulkWriter.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the DuckDB database at cfg.Path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, maxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// DuckDB is embedded; a single writer connection avoids write
	// contention on the database file.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{
		conn:   conn,
		logger: logger.With().Str("component", "telemetry").Logger(),
	}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.logger.Info().Str("path", cfg.Path).Int("threads", threads).Msg("telemetry store ready")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE SEQUENCE IF NOT EXISTS telemetry_samples_seq;

CREATE TABLE IF NOT EXISTS telemetry_samples (
	id BIGINT PRIMARY KEY DEFAULT nextval('telemetry_samples_seq'),
	session_id VARCHAR NOT NULL,
	cust_id VARCHAR NOT NULL,
	lap INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	speed_kph DOUBLE NOT NULL,
	throttle_pct DOUBLE NOT NULL,
	brake_pct DOUBLE NOT NULL,
	fuel_level_pct DOUBLE NOT NULL,
	steering_angle DOUBLE NOT NULL,
	gear INTEGER NOT NULL,
	rpm DOUBLE NOT NULL,
	track_temp_c DOUBLE NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_samples_session ON telemetry_samples (session_id, cust_id, lap);
CREATE INDEX IF NOT EXISTS idx_samples_recorded ON telemetry_samples (recorded_at);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WriteBatch inserts one batch of samples in a single transaction. The
// batch either lands entirely or is rolled back.
func (s *Store) WriteBatch(ctx context.Context, samples []ingest.Sample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error().Err(rbErr).AnErr("original_error", err).Msg("rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO telemetry_samples (
		session_id, cust_id, lap, recorded_at,
		speed_kph, throttle_pct, brake_pct, fuel_level_pct,
		steering_angle, gear, rpm, track_temp_c
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close statement: %w", closeErr)
		}
	}()

	for i := range samples {
		smp := &samples[i]
		if _, err = stmt.ExecContext(ctx,
			smp.SessionID, smp.CustID, smp.Lap, smp.RecordedAt,
			smp.SpeedKPH, smp.ThrottlePct, smp.BrakePct, smp.FuelLevelPct,
			smp.SteeringAngle, smp.Gear, smp.RPM, smp.TrackTempC,
		); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// SessionSummary aggregates stored samples for one driver in a session.
type SessionSummary struct {
	SessionID   string  `json:"session_id"`
	CustID      string  `json:"cust_id"`
	SampleCount int     `json:"sample_count"`
	Laps        int     `json:"laps"`
	AvgSpeedKPH float64 `json:"avg_speed_kph"`
	MaxSpeedKPH float64 `json:"max_speed_kph"`
	AvgThrottle float64 `json:"avg_throttle"`
	AvgBrake    float64 `json:"avg_brake"`
}

// SessionSummary aggregates the stored samples for one driver in one
// session. A driver without samples yields a zero-count summary.
func (s *Store) SessionSummary(ctx context.Context, sessionID, custID string) (*SessionSummary, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT
		count(*),
		coalesce(count(DISTINCT lap), 0),
		coalesce(avg(speed_kph), 0),
		coalesce(max(speed_kph), 0),
		coalesce(avg(throttle_pct), 0),
		coalesce(avg(brake_pct), 0)
	FROM telemetry_samples
	WHERE session_id = ? AND cust_id = ?`, sessionID, custID)

	summary := &SessionSummary{SessionID: sessionID, CustID: custID}
	if err := row.Scan(
		&summary.SampleCount, &summary.Laps,
		&summary.AvgSpeedKPH, &summary.MaxSpeedKPH,
		&summary.AvgThrottle, &summary.AvgBrake,
	); err != nil {
		return nil, fmt.Errorf("failed to summarize session: %w", err)
	}
	return summary, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close telemetry store: %w", err)
	}
	return nil
}
