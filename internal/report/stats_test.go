package report

import (
	"math"
	"testing"
)

func TestComputeStats(t *testing.T) {
	testCases := []struct {
		name string
		errs []float64
		want Stats
	}{
		{"empty_column", nil, Stats{}},
		{"single_value", []float64{3}, Stats{Count: 1, RMSE: 3, Mean: 3, Max: 3, Min: 3, StdDev: 0}},
		{"two_values", []float64{3, 4}, Stats{Count: 2, RMSE: math.Sqrt(12.5), Mean: 3.5, Max: 4, Min: 3, StdDev: 0.5}},
		{"four_values", []float64{1, 2, 3, 4}, Stats{Count: 4, RMSE: math.Sqrt(7.5), Mean: 2.5, Max: 4, Min: 1, StdDev: math.Sqrt(1.25)}},
		{"identical_values", []float64{2, 2, 2}, Stats{Count: 3, RMSE: 2, Mean: 2, Max: 2, Min: 2, StdDev: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeStats(tc.errs)

			if got.Count != tc.want.Count {
				t.Errorf("Count = %d, want %d", got.Count, tc.want.Count)
			}
			checkClose(t, "RMSE", got.RMSE, tc.want.RMSE)
			checkClose(t, "Mean", got.Mean, tc.want.Mean)
			checkClose(t, "Max", got.Max, tc.want.Max)
			checkClose(t, "Min", got.Min, tc.want.Min)
			checkClose(t, "StdDev", got.StdDev, tc.want.StdDev)
		})
	}
}

func checkClose(t *testing.T, field string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func TestComputeStatsLargeColumn(t *testing.T) {
	errs := make([]float64, 1000)
	for i := range errs {
		errs[i] = float64(i)
	}

	got := ComputeStats(errs)

	if got.Count != 1000 {
		t.Errorf("Count = %d, want 1000", got.Count)
	}
	checkClose(t, "Mean", got.Mean, 499.5)
	checkClose(t, "Min", got.Min, 0)
	checkClose(t, "Max", got.Max, 999)
	// Population stddev of 0..999 is sqrt((1000^2-1)/12).
	checkClose(t, "StdDev", got.StdDev, math.Sqrt((1000*1000-1)/12.0))
}
