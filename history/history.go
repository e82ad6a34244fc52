// Package history persists a local log of graph generations so a session
// can show what changed while the terminal was elsewhere. The log lives in
// a SQLite database next to the config file.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id            TEXT PRIMARY KEY,
	app           TEXT NOT NULL,
	generation    INTEGER NOT NULL,
	node_count    INTEGER NOT NULL,
	edge_count    INTEGER NOT NULL,
	changed_nodes TEXT,
	source        TEXT NOT NULL,
	recorded_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_app_time
	ON generations (app, recorded_at DESC);
`

// Record is one logged graph generation.
type Record struct {
	ID           string    `json:"id"`
	App          string    `json:"app"`
	Generation   uint64    `json:"generation"`
	NodeCount    int       `json:"node_count"`
	EdgeCount    int       `json:"edge_count"`
	ChangedNodes []string  `json:"changed_nodes,omitempty"`
	Source       string    `json:"source"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Store handles the generations table.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating the schema if needed.
// WAL mode allows the watch loop to write while a second session reads.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize history schema")
	}
	if logger != nil {
		logger.Debugw("History database opened", "path", path)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSnapshot logs one generation. source names how the generation
// arrived ("fetch", "stream", "patch").
func (s *Store) RecordSnapshot(ctx context.Context, app string, snap *graph.Snapshot, source string) error {
	if snap == nil {
		return errors.New("cannot record nil snapshot")
	}
	if app == "" {
		return errors.New("app name cannot be empty")
	}

	var changed []string
	for id := range snap.ChangedSince() {
		changed = append(changed, id)
	}
	var changedJSON *string
	if len(changed) > 0 {
		data, err := json.Marshal(changed)
		if err != nil {
			return errors.Wrap(err, "failed to marshal changed nodes")
		}
		str := string(data)
		changedJSON = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, app, generation, node_count, edge_count, changed_nodes, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), app, snap.Generation,
		len(snap.Nodes), len(snap.ResolvableEdges()),
		changedJSON, source, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record generation")
	}
	return nil
}

// Recent returns the newest records for an app, most recent first.
func (s *Store) Recent(ctx context.Context, app string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app, generation, node_count, edge_count, changed_nodes, source, recorded_at
		FROM generations
		WHERE app = ?
		ORDER BY recorded_at DESC
		LIMIT ?`, app, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var changedJSON sql.NullString
		var recordedAt string
		if err := rows.Scan(&r.ID, &r.App, &r.Generation, &r.NodeCount, &r.EdgeCount,
			&changedJSON, &r.Source, &recordedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan history record")
		}
		if changedJSON.Valid {
			if err := json.Unmarshal([]byte(changedJSON.String), &r.ChangedNodes); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal changed nodes for record %s", r.ID)
			}
		}
		r.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid recorded_at timestamp for record %s: %s", r.ID, recordedAt)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep records for an app and returns the
// number deleted.
func (s *Store) Prune(ctx context.Context, app string, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.Newf("keep must be >= 0, got %d", keep)
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM generations
		WHERE app = ? AND id NOT IN (
			SELECT id FROM generations WHERE app = ?
			ORDER BY recorded_at DESC LIMIT ?
		)`, app, app, keep)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune history")
	}
	return result.RowsAffected()
}
