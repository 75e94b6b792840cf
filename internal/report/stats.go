// Package report turns a finished simulation run into human-readable
// artifacts: summary statistics over the error column, CSV exports,
// interactive chart pages and static plot images.
package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the 2D georeferencing error column of a run. All
// values are in meters except Count.
type Stats struct {
	Count  int     `json:"count"`
	RMSE   float64 `json:"rmse_m"`
	Mean   float64 `json:"mean_m"`
	Max    float64 `json:"max_m"`
	Min    float64 `json:"min_m"`
	StdDev float64 `json:"std_dev_m"`
}

// ComputeStats reduces the error column to its summary statistics.
// An empty column yields the zero Stats rather than NaNs so that
// empty runs serialise cleanly.
func ComputeStats(errs []float64) Stats {
	if len(errs) == 0 {
		return Stats{}
	}
	return Stats{
		Count:  len(errs),
		RMSE:   floats.Norm(errs, 2) / math.Sqrt(float64(len(errs))),
		Mean:   stat.Mean(errs, nil),
		Max:    floats.Max(errs),
		Min:    floats.Min(errs),
		StdDev: stat.PopStdDev(errs, nil),
	}
}
