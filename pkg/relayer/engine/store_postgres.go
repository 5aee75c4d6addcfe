// Copyright 2025 Certen Protocol
//
// Postgres-backed lifecycle persistence: upsert-by-primary-key rows over
// the lib/pq driver.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
)

// PostgresStore persists PacketLifecycle rows keyed by PacketKey.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against databaseURL and
// verifies it with a ping.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open relayer lifecycle database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping relayer lifecycle database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the packet_lifecycles table if absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS packet_lifecycles (
	source_chain   TEXT NOT NULL,
	source_port    TEXT NOT NULL,
	source_channel TEXT NOT NULL,
	sequence       BIGINT NOT NULL,
	correlation_id TEXT NOT NULL,
	dest_chain     TEXT NOT NULL,
	state          TEXT NOT NULL,
	attempts       INT NOT NULL,
	last_error     TEXT,
	packet_json    JSONB NOT NULL,
	detected_at    TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	next_retry_at  TIMESTAMPTZ,
	PRIMARY KEY (source_chain, source_port, source_channel, sequence)
)`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// Save upserts a lifecycle row by its PacketKey.
func (s *PostgresStore) Save(ctx context.Context, l *PacketLifecycle) error {
	packetJSON, err := json.Marshal(l.Packet)
	if err != nil {
		return fmt.Errorf("marshal packet for %s: %w", l.Key, err)
	}
	const stmt = `
INSERT INTO packet_lifecycles (
	source_chain, source_port, source_channel, sequence, correlation_id, dest_chain,
	state, attempts, last_error, packet_json, detected_at, updated_at, next_retry_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (source_chain, source_port, source_channel, sequence) DO UPDATE SET
	dest_chain = EXCLUDED.dest_chain,
	state = EXCLUDED.state,
	attempts = EXCLUDED.attempts,
	last_error = EXCLUDED.last_error,
	packet_json = EXCLUDED.packet_json,
	updated_at = EXCLUDED.updated_at,
	next_retry_at = EXCLUDED.next_retry_at`
	_, err = s.db.ExecContext(ctx, stmt,
		l.Key.SourceChain, l.Key.SourcePort, l.Key.SourceChannel, l.Key.Sequence, l.CorrelationID, l.DestChain,
		string(l.State), l.Attempts, nullableString(l.LastError), packetJSON, l.DetectedAt, l.UpdatedAt, nullableTime(l.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("upsert lifecycle %s: %w", l.Key, err)
	}
	return nil
}

// Load returns every persisted, non-terminal lifecycle row.
func (s *PostgresStore) Load(ctx context.Context) ([]*PacketLifecycle, error) {
	const stmt = `
SELECT source_chain, source_port, source_channel, sequence, correlation_id, dest_chain,
       state, attempts, last_error, packet_json, detected_at, updated_at, next_retry_at
FROM packet_lifecycles
WHERE state NOT IN ('acknowledged', 'timed_out', 'failed')`
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("load lifecycles: %w", err)
	}
	defer rows.Close()

	var out []*PacketLifecycle
	for rows.Next() {
		l := &PacketLifecycle{}
		var state string
		var lastError sql.NullString
		var packetJSON []byte
		var nextRetryAt sql.NullTime
		if err := rows.Scan(
			&l.Key.SourceChain, &l.Key.SourcePort, &l.Key.SourceChannel, &l.Key.Sequence, &l.CorrelationID, &l.DestChain,
			&state, &l.Attempts, &lastError, &packetJSON, &l.DetectedAt, &l.UpdatedAt, &nextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("scan lifecycle row: %w", err)
		}
		l.State = LifecycleState(state)
		l.LastError = lastError.String
		if nextRetryAt.Valid {
			l.NextRetryAt = nextRetryAt.Time
		}
		var p ibcchannel.Packet
		if err := json.Unmarshal(packetJSON, &p); err != nil {
			return nil, fmt.Errorf("unmarshal packet for %s: %w", l.Key, err)
		}
		l.Packet = p
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
