package graphflow

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresCheckpointSchema = `
CREATE TABLE IF NOT EXISTS graphflow_checkpoints (
	run_id        TEXT NOT NULL,
	checkpoint_id TEXT NOT NULL,
	data          BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, checkpoint_id)
)`

// PostgresCheckpointStore persists checkpoints in a Postgres table. The
// primary key on (run_id, checkpoint_id) rejects re-commits of the same
// checkpoint ID; committed checkpoints are immutable.
type PostgresCheckpointStore struct {
	db *sql.DB
}

// NewPostgresCheckpointStore connects to Postgres and ensures the checkpoint
// table exists.
func NewPostgresCheckpointStore(ctx context.Context, connString string) (*PostgresCheckpointStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	store := &PostgresCheckpointStore{db: db}
	if err := store.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresCheckpointStoreFromDB wraps an existing database handle.
func NewPostgresCheckpointStoreFromDB(ctx context.Context, db *sql.DB) (*PostgresCheckpointStore, error) {
	store := &PostgresCheckpointStore{db: db}
	if err := store.init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresCheckpointStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, postgresCheckpointSchema); err != nil {
		return fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *PostgresCheckpointStore) Close() error {
	return s.db.Close()
}

func (s *PostgresCheckpointStore) SaveCheckpoint(ctx context.Context, runID, checkpointID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graphflow_checkpoints (run_id, checkpoint_id, data) VALUES ($1, $2, $3)`,
		runID, checkpointID, data)
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresCheckpointStore) LoadCheckpoint(ctx context.Context, runID, checkpointID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM graphflow_checkpoints WHERE run_id = $1 AND checkpoint_id = $2`,
		runID, checkpointID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint %s not found for run %s", checkpointID, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return data, nil
}

func (s *PostgresCheckpointStore) ListCheckpoints(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT checkpoint_id FROM graphflow_checkpoints WHERE run_id = $1 ORDER BY created_at, checkpoint_id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresCheckpointStore) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM graphflow_checkpoints WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run checkpoints: %w", err)
	}
	return nil
}
