package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/simulate"
	"github.com/groundsight-data/groundsight/internal/terrain"
)

// rampGrid builds a 10x10 raster with elevation equal to the cell
// index, top-left corner at (0, 800), 8m cells.
func rampGrid(t *testing.T) *terrain.Grid {
	t.Helper()
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	g, err := terrain.NewGrid(data, 10, 10, terrain.NorthUp(8, 0, 800))
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	return g
}

func plotResult() *simulate.Result {
	points := []simulate.PointResult{
		{True: r3.Vector{X: 20, Y: 760}, Planar: r3.Vector{X: 21, Y: 760}, ErrorM: 1, CameraPos: r3.Vector{X: 10, Y: 750, Z: 300}},
		{True: r3.Vector{X: 30, Y: 760}, Planar: r3.Vector{X: 32, Y: 761}, ErrorM: 2.2, CameraPos: r3.Vector{X: 10, Y: 750, Z: 300}},
		{True: r3.Vector{X: 60, Y: 770}, Planar: r3.Vector{X: 61, Y: 769}, ErrorM: 1.4, CameraPos: r3.Vector{X: 50, Y: 750, Z: 300}, WaypointIndex: 1},
	}
	return &simulate.Result{ScenarioName: "plot test", Mode: "trajectory", PoseCount: 2, Points: points}
}

func TestSavePlots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")

	written, err := SavePlots(plotResult(), rampGrid(t), dir)
	if err != nil {
		t.Fatalf("SavePlots failed: %v", err)
	}

	if len(written) != 2 {
		t.Fatalf("expected 2 plot files, got %d", len(written))
	}
	for _, file := range written {
		info, err := os.Stat(file)
		if err != nil {
			t.Errorf("missing plot file %s: %v", file, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot file %s is empty", file)
		}
	}
}

func TestSavePlotsWithoutGrid(t *testing.T) {
	dir := t.TempDir()

	written, err := SavePlots(plotResult(), nil, dir)
	if err != nil {
		t.Fatalf("SavePlots failed: %v", err)
	}

	if len(written) != 1 {
		t.Fatalf("expected only the error plot, got %d files", len(written))
	}
	if filepath.Base(written[0]) != "error_vs_distance.png" {
		t.Errorf("unexpected plot file %s", written[0])
	}
}

func TestCameraTrackCollapsesPoses(t *testing.T) {
	a := r3.Vector{X: 10, Y: 750, Z: 300}
	b := r3.Vector{X: 50, Y: 750, Z: 300}
	points := []simulate.PointResult{
		{CameraPos: a}, {CameraPos: a}, {CameraPos: b}, {CameraPos: a},
	}

	track := cameraTrack(points)

	if len(track) != 3 {
		t.Fatalf("expected 3 track vertices, got %d", len(track))
	}
	if track[0].X != 10 || track[1].X != 50 || track[2].X != 10 {
		t.Errorf("unexpected track order: %+v", track)
	}
}

func TestHeatGridDownsamples(t *testing.T) {
	hg := newHeatGrid(rampGrid(t), 4)

	cols, rows := hg.Dims()
	if cols != 4 || rows != 4 {
		t.Fatalf("Dims = (%d, %d), want (4, 4)", cols, rows)
	}

	// Rows are flipped so Y increases with the row index.
	if hg.Y(0) >= hg.Y(rows-1) {
		t.Errorf("Y not increasing: Y(0)=%v Y(%d)=%v", hg.Y(0), rows-1, hg.Y(rows-1))
	}
	if hg.X(0) >= hg.X(cols-1) {
		t.Errorf("X not increasing: X(0)=%v X(%d)=%v", hg.X(0), cols-1, hg.X(cols-1))
	}

	// The top row of the raster surfaces at the highest Y index.
	if got := hg.Z(0, rows-1); got != 0 {
		t.Errorf("Z(0, %d) = %v, want 0", rows-1, got)
	}
	if got := hg.Z(0, 0); got != 90 {
		t.Errorf("Z(0, 0) = %v, want 90", got)
	}

	if hg.Min() != 0 || hg.Max() != 99 {
		t.Errorf("elevation range = [%v, %v], want [0, 99]", hg.Min(), hg.Max())
	}
}
