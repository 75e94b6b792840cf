package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/report"
	"github.com/groundsight-data/groundsight/internal/simulate"
)

// ErrRunNotFound reports a run id with no stored row.
var ErrRunNotFound = errors.New("run not found")

// defaultListLimit caps ListRuns when the caller passes no limit.
const defaultListLimit = 50

// RunRecord is one stored run: the scenario snapshot it was launched
// with and the summary statistics over its error column. Point rows
// are stored separately; fetch them with RunPoints.
type RunRecord struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Scenario      json.RawMessage `json:"scenario"`
	Mode          string          `json:"mode"`
	Status        string          `json:"status"`
	PoseCount     int             `json:"pose_count"`
	PointCount    int             `json:"point_count"`
	SkippedPixels int             `json:"skipped_pixels"`
	Stats         report.Stats    `json:"stats"`
	DurationMS    int64           `json:"duration_ms"`
}

// WaypointAggregate is the per-leg error rollup used by the charts.
type WaypointAggregate struct {
	WaypointIndex int     `json:"waypoint_index"`
	Count         int     `json:"count"`
	MeanError     float64 `json:"mean_error_m"`
	MinError      float64 `json:"min_error_m"`
	MaxError      float64 `json:"max_error_m"`
}

// SaveRun stores a completed run and all its point results in a
// single transaction. It implements simulate.Store.
func (db *DB) SaveRun(ctx context.Context, runID string, sc *config.Scenario, res *simulate.Result) error {
	scenarioJSON, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("db: marshal scenario: %w", err)
	}
	st := report.ComputeStats(res.ErrorColumn())

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin save: %w", err)
	}
	defer tx.Rollback()

	createdAt := db.clock.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, scenario, mode, status, pose_count, point_count,
			skipped_pixels, rmse_m, mean_error_m, max_error_m, min_error_m,
			std_dev_m, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, createdAt, string(scenarioJSON), res.Mode, "complete",
		res.PoseCount, len(res.Points), res.SkippedPixels,
		st.RMSE, st.Mean, st.Max, st.Min, st.StdDev,
		res.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("db: insert run: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO point_results (
			run_id, point_index, pixel_x, pixel_y, true_x, true_y, true_z,
			planar_x, planar_y, planar_z, error_2d_m, camera_x, camera_y,
			camera_z, waypoint_index, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare point insert: %w", err)
	}
	defer insert.Close()

	for i, p := range res.Points {
		if _, err := insert.ExecContext(ctx,
			runID, i, p.Pixel.X, p.Pixel.Y,
			p.True.X, p.True.Y, p.True.Z,
			p.Planar.X, p.Planar.Y, p.Planar.Z,
			p.ErrorM,
			p.CameraPos.X, p.CameraPos.Y, p.CameraPos.Z,
			p.WaypointIndex, p.SourceFile,
		); err != nil {
			return fmt.Errorf("db: insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `id, created_at, scenario, mode, status, pose_count,
	point_count, skipped_pixels, rmse_m, mean_error_m, max_error_m,
	min_error_m, std_dev_m, duration_ms`

// GetRun fetches a single run row. Missing ids report ErrRunNotFound.
func (db *DB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db: run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("db: get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first. A limit of
// zero or less applies the default.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("db: list runs: %w", err)
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: list runs: %w", err)
	}
	return runs, nil
}

// RunPoints returns all point results of a run in point order.
func (db *DB) RunPoints(ctx context.Context, runID string) ([]simulate.PointResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT pixel_x, pixel_y, true_x, true_y, true_z, planar_x,
			planar_y, planar_z, error_2d_m, camera_x, camera_y, camera_z,
			waypoint_index, source_file
		FROM point_results WHERE run_id = ? ORDER BY point_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("db: run points %s: %w", runID, err)
	}
	defer rows.Close()

	var points []simulate.PointResult
	for rows.Next() {
		var p simulate.PointResult
		if err := rows.Scan(
			&p.Pixel.X, &p.Pixel.Y,
			&p.True.X, &p.True.Y, &p.True.Z,
			&p.Planar.X, &p.Planar.Y, &p.Planar.Z,
			&p.ErrorM,
			&p.CameraPos.X, &p.CameraPos.Y, &p.CameraPos.Z,
			&p.WaypointIndex, &p.SourceFile,
		); err != nil {
			return nil, fmt.Errorf("db: run points %s: %w", runID, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: run points %s: %w", runID, err)
	}
	return points, nil
}

// WaypointAggregates rolls the error column up per waypoint leg.
func (db *DB) WaypointAggregates(ctx context.Context, runID string) ([]WaypointAggregate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT waypoint_index, COUNT(*), AVG(error_2d_m), MIN(error_2d_m), MAX(error_2d_m)
		FROM point_results WHERE run_id = ?
		GROUP BY waypoint_index ORDER BY waypoint_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("db: waypoint aggregates %s: %w", runID, err)
	}
	defer rows.Close()

	var aggs []WaypointAggregate
	for rows.Next() {
		var a WaypointAggregate
		if err := rows.Scan(&a.WaypointIndex, &a.Count, &a.MeanError, &a.MinError, &a.MaxError); err != nil {
			return nil, fmt.Errorf("db: waypoint aggregates %s: %w", runID, err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: waypoint aggregates %s: %w", runID, err)
	}
	return aggs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		rec       RunRecord
		createdAt string
		scenario  string
	)
	if err := s.Scan(
		&rec.ID, &createdAt, &scenario, &rec.Mode, &rec.Status,
		&rec.PoseCount, &rec.PointCount, &rec.SkippedPixels,
		&rec.Stats.RMSE, &rec.Stats.Mean, &rec.Stats.Max,
		&rec.Stats.Min, &rec.Stats.StdDev, &rec.DurationMS,
	); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = ts
	rec.Scenario = json.RawMessage(scenario)
	rec.Stats.Count = rec.PointCount
	return &rec, nil
}

// The runner persists through this type.
var _ simulate.Store = (*DB)(nil)
