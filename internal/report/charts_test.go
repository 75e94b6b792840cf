package report

import (
	"strings"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/simulate"
)

func chartResult() *simulate.Result {
	points := []simulate.PointResult{
		{True: r3.Vector{X: 100, Y: 100}, Planar: r3.Vector{X: 101, Y: 100}, ErrorM: 1.0, WaypointIndex: 0},
		{True: r3.Vector{X: 200, Y: 100}, Planar: r3.Vector{X: 200, Y: 102}, ErrorM: 2.0, WaypointIndex: 0},
		{True: r3.Vector{X: 300, Y: 100}, Planar: r3.Vector{X: 303, Y: 104}, ErrorM: 5.0, WaypointIndex: 1},
	}
	return &simulate.Result{ScenarioName: "chart test", Mode: "trajectory", PoseCount: 3, Points: points}
}

func TestChartPage(t *testing.T) {
	res := chartResult()
	html, err := ChartPage(res, ComputeStats(res.ErrorColumn()))
	if err != nil {
		t.Fatalf("ChartPage failed: %v", err)
	}

	page := string(html)
	for _, want := range []string{
		"Planar vs True Displacement",
		"Error Histogram",
		"Mean Error by Waypoint",
		"chart test",
		echartsAssetsPrefix,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestChartPageEmptyRun(t *testing.T) {
	res := &simulate.Result{ScenarioName: "empty", Mode: "single"}
	html, err := ChartPage(res, ComputeStats(nil))
	if err != nil {
		t.Fatalf("ChartPage failed on empty run: %v", err)
	}
	if len(html) == 0 {
		t.Error("expected a rendered page for an empty run")
	}
}

func TestBinErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		labels, counts := binErrors(nil, 4)
		if labels != nil || counts != nil {
			t.Errorf("expected nil bins, got %v %v", labels, counts)
		}
	})

	t.Run("identical values collapse to one bucket", func(t *testing.T) {
		labels, counts := binErrors([]float64{2.5, 2.5, 2.5}, 4)
		if len(labels) != 1 || len(counts) != 1 {
			t.Fatalf("expected 1 bucket, got %d labels %d counts", len(labels), len(counts))
		}
		if counts[0] != 3 {
			t.Errorf("bucket count = %d, want 3", counts[0])
		}
	})

	t.Run("even spread", func(t *testing.T) {
		errs := make([]float64, 20)
		for i := range errs {
			errs[i] = float64(i)
		}
		labels, counts := binErrors(errs, 4)
		if len(labels) != 4 || len(counts) != 4 {
			t.Fatalf("expected 4 buckets, got %d labels %d counts", len(labels), len(counts))
		}
		total := 0
		for i, c := range counts {
			if c != 5 {
				t.Errorf("bucket %d count = %d, want 5", i, c)
			}
			total += c
		}
		if total != len(errs) {
			t.Errorf("bucket total = %d, want %d", total, len(errs))
		}
	})
}
