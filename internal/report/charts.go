package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/groundsight-data/groundsight/internal/simulate"
)

// echartsAssetsPrefix is where rendered pages load the echarts runtime
// from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisRange is the shared color ramp for error magnitude.
var viridisRange = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

const histogramBins = 20

// ChartPage renders the interactive chart page for a completed run:
// the planar-vs-true displacement scatter, the error histogram and the
// per-waypoint mean error bars, stacked on a single HTML page.
func ChartPage(res *simulate.Result, st Stats) ([]byte, error) {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(
		displacementScatter(res, st),
		errorHistogram(res.ErrorColumn()),
		waypointMeanBars(res.Points),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("report: render chart page: %w", err)
	}
	return buf.Bytes(), nil
}

// displacementScatter plots each detection's planar position relative
// to its true position, colored by error magnitude. A perfect flat
// scene collapses onto the origin.
func displacementScatter(res *simulate.Result, st Stats) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(res.Points))
	maxAbs := 0.0
	for _, p := range res.Points {
		dx := p.Planar.X - p.True.X
		dy := p.Planar.Y - p.True.Y
		if math.Abs(dx) > maxAbs {
			maxAbs = math.Abs(dx)
		}
		if math.Abs(dy) > maxAbs {
			maxAbs = math.Abs(dy)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{dx, dy, p.ErrorM}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	maxErr := st.Max
	if maxErr == 0 {
		maxErr = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Georeferencing Errors", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Planar vs True Displacement", Subtitle: fmt.Sprintf("scenario=%s points=%d rmse=%.2fm", res.ScenarioName, st.Count, st.RMSE)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "East offset (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "North offset (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxErr),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisRange},
		}),
	)

	scatter.AddSeries("displacement", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter
}

// errorHistogram buckets the error column into fixed-width bins.
func errorHistogram(errs []float64) *charts.Bar {
	labels, counts := binErrors(errs, histogramBins)

	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Error Histogram", Subtitle: fmt.Sprintf("%d points", len(errs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Error (m)", NameLocation: "middle", NameGap: 35}),
	)
	bar.SetXAxis(labels).
		AddSeries("points", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// binErrors splits the error column into up to bins equal-width
// buckets over [min, max]. A degenerate column where every value is
// identical collapses to a single bucket.
func binErrors(errs []float64, bins int) (labels []string, counts []int) {
	if len(errs) == 0 {
		return nil, nil
	}
	lo, hi := errs[0], errs[0]
	for _, e := range errs[1:] {
		if e < lo {
			lo = e
		}
		if e > hi {
			hi = e
		}
	}
	if hi == lo {
		return []string{fmt.Sprintf("%.2f", lo)}, []int{len(errs)}
	}

	width := (hi - lo) / float64(bins)
	counts = make([]int, bins)
	for _, e := range errs {
		idx := int((e - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	labels = make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", lo+(float64(i)+0.5)*width)
	}
	return labels, counts
}

// waypointMeanBars shows the mean error per trajectory leg, keyed by
// the waypoint index each pose was captured on.
func waypointMeanBars(points []simulate.PointResult) *charts.Bar {
	byWaypoint := make(map[int][]float64)
	for _, p := range points {
		byWaypoint[p.WaypointIndex] = append(byWaypoint[p.WaypointIndex], p.ErrorM)
	}

	indices := make([]int, 0, len(byWaypoint))
	for wp := range byWaypoint {
		indices = append(indices, wp)
	}
	sort.Ints(indices)

	x := make([]string, len(indices))
	y := make([]opts.BarData, len(indices))
	for i, wp := range indices {
		x[i] = fmt.Sprintf("wp %d", wp)
		y[i] = opts.BarData{Value: stat.Mean(byWaypoint[wp], nil)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Mean Error by Waypoint", Subtitle: fmt.Sprintf("%d legs", len(indices))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean error (m)"}),
	)
	bar.SetXAxis(x).
		AddSeries("mean error", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
