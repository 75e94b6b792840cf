package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/db"
	"github.com/groundsight-data/groundsight/internal/report"
	"github.com/groundsight-data/groundsight/internal/security"
	"github.com/groundsight-data/groundsight/internal/simulate"
	"github.com/groundsight-data/groundsight/internal/version"
)

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "groundsight", "version": %q, "git_sha": %q, "timestamp": "%s"}`,
		version.Version, version.GitSHA, s.clock.Now().UTC().Format(time.RFC3339))
}

// handleStatus returns the runner state snapshot plus process uptime.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.runner == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "no runner configured")
		return
	}

	resp := struct {
		Run           simulate.RunState `json:"run"`
		UptimeSeconds float64           `json:"uptime_seconds"`
		Workers       int               `json:"workers"`
		Version       string            `json:"version"`
	}{
		Run:           s.runner.State(),
		UptimeSeconds: s.clock.Since(s.started).Seconds(),
		Workers:       simulate.Workers(),
		Version:       version.Version,
	}
	json.NewEncoder(w).Encode(resp)
}

// handleRuns lists stored runs on GET and starts a new run on POST.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.startRun(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "no database configured")
		return
	}

	limit := 0 // store default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.RunRecord{}
	}
	json.NewEncoder(w).Encode(runs)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "no runner configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	sc, err := config.Parse(body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The run outlives the request; the runner owns its cancellation.
	runID, err := s.runner.Start(context.Background(), sc)
	if errors.Is(err, simulate.ErrRunInProgress) {
		s.writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": runID, "status": "running"})
}

// handleRunSubtree dispatches /api/runs/{id}[/...] paths.
func (s *Server) handleRunSubtree(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeJSONError(w, http.StatusNotFound, "run id required")
		return
	}
	runID := parts[0]

	switch {
	case len(parts) == 1:
		s.runDetail(w, r, runID)
	case len(parts) == 2 && parts[1] == "results.csv":
		s.runCSV(w, r, runID)
	case len(parts) == 2 && parts[1] == "cancel":
		s.runCancel(w, r, runID)
	case len(parts) == 3 && parts[1] == "charts" && parts[2] == "errors":
		s.runCharts(w, r, runID)
	default:
		s.writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) runDetail(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rec, ok := s.fetchRun(w, r, runID)
	if !ok {
		return
	}

	waypoints, err := s.db.WaypointAggregates(r.Context(), runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to aggregate waypoints: %v", err))
		return
	}

	resp := struct {
		Run       *db.RunRecord          `json:"run"`
		Waypoints []db.WaypointAggregate `json:"waypoints"`
	}{Run: rec, Waypoints: waypoints}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) runCSV(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if _, ok := s.fetchRun(w, r, runID); !ok {
		return
	}

	points, err := s.db.RunPoints(r.Context(), runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load points: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run-%s.csv", security.SanitizeFilename(runID)))
	if err := report.WriteCSV(w, points); err != nil {
		// Headers are gone; nothing left to do but log.
		log.Printf("stream csv for run %s: %v", runID, err)
	}
}

func (s *Server) runCharts(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rec, ok := s.fetchRun(w, r, runID)
	if !ok {
		return
	}
	points, err := s.db.RunPoints(r.Context(), runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load points: %v", err))
		return
	}

	res := &simulate.Result{
		ScenarioName:  scenarioName(rec.Scenario),
		Mode:          rec.Mode,
		PoseCount:     rec.PoseCount,
		SkippedPixels: rec.SkippedPixels,
		Points:        points,
		Duration:      time.Duration(rec.DurationMS) * time.Millisecond,
	}
	page, err := report.ChartPage(res, rec.Stats)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to render charts: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) runCancel(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.runner == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "no runner configured")
		return
	}

	state := s.runner.State()
	if state.Status != simulate.RunStatusRunning || state.RunID != runID {
		s.writeJSONError(w, http.StatusConflict, fmt.Sprintf("run %s is not active", runID))
		return
	}

	s.runner.Cancel()
	json.NewEncoder(w).Encode(map[string]string{"run_id": runID, "status": "cancelling"})
}

// fetchRun loads a run row, writing the error response itself when the
// lookup fails.
func (s *Server) fetchRun(w http.ResponseWriter, r *http.Request, runID string) (*db.RunRecord, bool) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusInternalServerError, "no database configured")
		return nil, false
	}
	rec, err := s.db.GetRun(r.Context(), runID)
	if errors.Is(err, db.ErrRunNotFound) {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return nil, false
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load run: %v", err))
		return nil, false
	}
	return rec, true
}

func scenarioName(raw json.RawMessage) string {
	var sc config.Scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return ""
	}
	return sc.GetName()
}
