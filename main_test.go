package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/camera"
	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/report"
	"github.com/groundsight-data/groundsight/internal/simulate"
)

func smallResult() *simulate.Result {
	return &simulate.Result{
		ScenarioName: "export test",
		Mode:         config.ModeSingle,
		PoseCount:    1,
		Points: []simulate.PointResult{
			{
				Pixel:     camera.Pixel{X: 2000, Y: 1500},
				True:      r3.Vector{X: 300100, Y: 4000100, Z: 120},
				Planar:    r3.Vector{X: 300103, Y: 4000100, Z: 100},
				CameraPos: r3.Vector{X: 300000, Y: 4000000, Z: 1200},
				ErrorM:    3,
			},
			{
				Pixel:     camera.Pixel{X: 100, Y: 200},
				True:      r3.Vector{X: 300200, Y: 4000150, Z: 130},
				Planar:    r3.Vector{X: 300204, Y: 4000153, Z: 100},
				CameraPos: r3.Vector{X: 300000, Y: 4000000, Z: 1200},
				ErrorM:    5,
			},
		},
		Duration: 120 * time.Millisecond,
	}
}

func TestExportArtifacts(t *testing.T) {
	res := smallResult()
	st := report.ComputeStats(res.ErrorColumn())
	dir := filepath.Join(t.TempDir(), "out")

	if err := exportArtifacts(res, st, nil, dir); err != nil {
		t.Fatalf("exportArtifacts: %v", err)
	}

	csvData, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	if err != nil {
		t.Fatalf("read results.csv: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "point_index,") {
		t.Errorf("results.csv missing header, got %q", string(csvData[:40]))
	}
	if lines := strings.Count(strings.TrimSpace(string(csvData)), "\n"); lines != 2 {
		t.Errorf("results.csv newline count = %d, want 2 (header + 2 rows)", lines)
	}

	html, err := os.ReadFile(filepath.Join(dir, "errors.html"))
	if err != nil {
		t.Fatalf("read errors.html: %v", err)
	}
	if !strings.Contains(string(html), "Planar vs True Displacement") {
		t.Error("errors.html missing displacement chart")
	}

	// Without a grid only the scatter plot is written.
	if _, err := os.Stat(filepath.Join(dir, "error_vs_distance.png")); err != nil {
		t.Errorf("error_vs_distance.png not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "terrain_track.png")); err == nil {
		t.Error("terrain_track.png written without a grid")
	}
}

func TestExportArtifactsRejectsEscapingDir(t *testing.T) {
	res := smallResult()
	st := report.ComputeStats(res.ErrorColumn())

	// Outside both the working directory and the temp directory.
	err := exportArtifacts(res, st, nil, "/etc/groundsight-export")
	if err == nil {
		t.Fatal("expected traversal error, got nil")
	}
}
