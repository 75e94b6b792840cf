package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/groundsight-data/groundsight/internal/simulate"
	"github.com/groundsight-data/groundsight/internal/terrain"
)

// heatmapMaxCells caps the number of heatmap cells per axis so large
// rasters downsample by stride instead of drawing millions of
// rectangles.
const heatmapMaxCells = 400

// SavePlots writes the static plot images for a run into dir and
// returns the paths written: the error-vs-distance scatter and, when
// a grid is supplied, the terrain heatmap with the camera track
// overlaid.
func SavePlots(res *simulate.Result, grid *terrain.Grid, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("report: create plot dir: %w", err)
	}

	var written []string

	p, err := errorDistancePlot(res.Points)
	if err != nil {
		return written, err
	}
	file := filepath.Join(dir, "error_vs_distance.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return written, fmt.Errorf("report: save error plot: %w", err)
	}
	written = append(written, file)

	if grid == nil {
		return written, nil
	}

	p, err = terrainTrackPlot(res, grid)
	if err != nil {
		return written, err
	}
	file = filepath.Join(dir, "terrain_track.png")
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return written, fmt.Errorf("report: save terrain plot: %w", err)
	}
	written = append(written, file)

	return written, nil
}

// errorDistancePlot scatters each point's 2D error against the
// horizontal distance from its camera, the main driver of planar
// error on sloped ground.
func errorDistancePlot(points []simulate.PointResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Error vs Ground Distance"
	p.X.Label.Text = "Ground distance (m)"
	p.Y.Label.Text = "2D error (m)"

	pts := make(plotter.XYs, 0, len(points))
	for _, pr := range points {
		dist := math.Hypot(pr.True.X-pr.CameraPos.X, pr.True.Y-pr.CameraPos.Y)
		pts = append(pts, plotter.XY{X: dist, Y: pr.ErrorM})
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("report: error scatter: %w", err)
	}
	s.GlyphStyle.Color = color.RGBA{R: 31, G: 158, B: 137, A: 255}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	return p, nil
}

// terrainTrackPlot draws the elevation raster as a heatmap with the
// camera capture positions joined into a track on top.
func terrainTrackPlot(res *simulate.Result, grid *terrain.Grid) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Terrain and Camera Track"
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"

	p.Add(plotter.NewHeatMap(newHeatGrid(grid, heatmapMaxCells), palette.Heat(12, 1)))

	track := cameraTrack(res.Points)
	if len(track) > 0 {
		line, err := plotter.NewLine(track)
		if err != nil {
			return nil, fmt.Errorf("report: track line: %w", err)
		}
		line.Color = color.White
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("camera track", line)
		p.Legend.Top = true
	}

	return p, nil
}

// cameraTrack lists the distinct capture positions in pose order.
// Points sharing a pose repeat the same camera, so consecutive
// duplicates collapse to one vertex.
func cameraTrack(points []simulate.PointResult) plotter.XYs {
	var track plotter.XYs
	for _, pr := range points {
		xy := plotter.XY{X: pr.CameraPos.X, Y: pr.CameraPos.Y}
		if n := len(track); n > 0 && track[n-1] == xy {
			continue
		}
		track = append(track, xy)
	}
	return track
}

// heatGrid presents an elevation raster to the heatmap plotter,
// downsampled by a stride and flipped so rows run south to north as
// the plotter expects.
type heatGrid struct {
	g          *terrain.Grid
	stride     int
	cols, rows int
}

func newHeatGrid(g *terrain.Grid, maxCells int) heatGrid {
	larger := g.Width()
	if g.Height() > larger {
		larger = g.Height()
	}
	stride := 1
	if larger > maxCells {
		stride = int(math.Ceil(float64(larger) / float64(maxCells)))
	}
	return heatGrid{
		g:      g,
		stride: stride,
		cols:   (g.Width() + stride - 1) / stride,
		rows:   (g.Height() + stride - 1) / stride,
	}
}

func (h heatGrid) Dims() (c, r int) { return h.cols, h.rows }

func (h heatGrid) X(c int) float64 {
	x, _ := h.g.Transform().Apply(float64(c*h.stride), 0)
	return x
}

func (h heatGrid) Y(r int) float64 {
	_, y := h.g.Transform().Apply(0, float64((h.rows-1-r)*h.stride))
	return y
}

// Z samples the raster at the cell's world position. Voids render as
// the terrain floor so the palette lookup always has a finite value.
func (h heatGrid) Z(c, r int) float64 {
	x, y := h.g.Transform().Apply(float64(c*h.stride), float64((h.rows-1-r)*h.stride))
	elev, ok := h.g.ElevationAt(x, y)
	if !ok {
		return h.g.MinElevation()
	}
	return elev
}

// Min and Max hand the plotter the raster's elevation range directly.
func (h heatGrid) Min() float64 { return h.g.MinElevation() }
func (h heatGrid) Max() float64 { return h.g.MaxElevation() }
