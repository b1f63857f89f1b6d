package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/pipeline"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is the stored summary of one analysis.
type Run struct {
	RunID         string                `json:"run_id"`
	Source        string                `json:"source"`
	Engine        string                `json:"engine"`
	Width         int                   `json:"width"`
	Height        int                   `json:"height"`
	TotalFrames   int                   `json:"total_frames"`
	TrackedFrames int                   `json:"tracked_frames"`
	RawPoints     int                   `json:"raw_points"`
	FrameErrors   []pipeline.FrameError `json:"frame_errors,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
	StartedAt     time.Time             `json:"started_at"`
	Duration      time.Duration         `json:"duration_ns"`
}

// RunStore persists analysis runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore on an opened database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// Insert stores a run with its path and raw points in one transaction.
func (s *RunStore) Insert(ctx context.Context, a *pipeline.Analysis) error {
	if a.RunID == "" {
		return fmt.Errorf("insert run: empty run id")
	}
	errsJSON, err := json.Marshal(a.FrameErrors)
	if err != nil {
		return fmt.Errorf("marshal frame errors: %w", err)
	}
	warnJSON, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO barpath_runs (
				run_id, source, engine, width, height, total_frames,
				tracked_frames, raw_points, frame_errors_json, warnings_json,
				started_at, duration_ns
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.RunID, a.Source, a.Engine, a.Width, a.Height, a.TotalFrames,
			len(a.Frames), len(a.Raw), string(errsJSON), string(warnJSON),
			a.StartedAt.UnixNano(), int64(a.Duration),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		pathStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO barpath_path_points (run_id, frame, timestamp_ms, x, y)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare path insert: %w", err)
		}
		defer pathStmt.Close()
		for _, p := range a.Path {
			if _, err := pathStmt.ExecContext(ctx, a.RunID, p.Frame, p.TimestampMs, p.X, p.Y); err != nil {
				return fmt.Errorf("insert path point %d: %w", p.Frame, err)
			}
		}

		rawStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO barpath_raw_points (run_id, frame, timestamp_ms, x, y)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare raw insert: %w", err)
		}
		defer rawStmt.Close()
		for _, p := range a.Raw {
			if _, err := rawStmt.ExecContext(ctx, a.RunID, p.Frame, p.TimestampMs, p.X, p.Y); err != nil {
				return fmt.Errorf("insert raw point: %w", err)
			}
		}

		return tx.Commit()
	})
}

const runColumns = `
	run_id, source, engine, width, height, total_frames, tracked_frames,
	raw_points, frame_errors_json, warnings_json, started_at, duration_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                  Run
		errsJSON, warnJSON sql.NullString
		startedNs, durNs   int64
	)
	if err := row.Scan(&r.RunID, &r.Source, &r.Engine, &r.Width, &r.Height, &r.TotalFrames,
		&r.TrackedFrames, &r.RawPoints, &errsJSON, &warnJSON, &startedNs, &durNs); err != nil {
		return nil, err
	}
	if errsJSON.Valid && errsJSON.String != "" {
		if err := json.Unmarshal([]byte(errsJSON.String), &r.FrameErrors); err != nil {
			return nil, fmt.Errorf("decode frame errors of %s: %w", r.RunID, err)
		}
	}
	if warnJSON.Valid && warnJSON.String != "" {
		if err := json.Unmarshal([]byte(warnJSON.String), &r.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings of %s: %w", r.RunID, err)
		}
	}
	r.StartedAt = time.Unix(0, startedNs).UTC()
	r.Duration = time.Duration(durNs)
	return &r, nil
}

// Get returns the summary of one run.
func (s *RunStore) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM barpath_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// List returns all runs, newest first.
func (s *RunStore) List(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM barpath_runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Path returns the reconstructed path of a run in frame order.
func (s *RunStore) Path(ctx context.Context, runID string) ([]vision.PathPoint, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, timestamp_ms, x, y FROM barpath_path_points
		WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, fmt.Errorf("query path: %w", err)
	}
	defer rows.Close()

	var path []vision.PathPoint
	for rows.Next() {
		var p vision.PathPoint
		if err := rows.Scan(&p.Frame, &p.TimestampMs, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scan path point: %w", err)
		}
		path = append(path, p)
	}
	return path, rows.Err()
}

// Raw returns the raw tracked points of a run ordered by frame.
func (s *RunStore) Raw(ctx context.Context, runID string) ([]vision.TrackedPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, timestamp_ms, x, y FROM barpath_raw_points
		WHERE run_id = ? ORDER BY frame, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query raw points: %w", err)
	}
	defer rows.Close()

	var pts []vision.TrackedPoint
	for rows.Next() {
		var p vision.TrackedPoint
		if err := rows.Scan(&p.Frame, &p.TimestampMs, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scan raw point: %w", err)
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// Delete removes a run and its points.
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		for _, q := range []string{
			`DELETE FROM barpath_raw_points WHERE run_id = ?`,
			`DELETE FROM barpath_path_points WHERE run_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, runID); err != nil {
				return fmt.Errorf("delete points: %w", err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM barpath_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}
