package terrain

import (
	"fmt"
	"math"
)

// Transform maps fractional grid indices to world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For a north-up grid B and D are zero, A is the cell width, E is the
// negative cell height, and (C, F) is the world position of the
// top-left corner. This is the usual six-parameter geospatial affine
// layout.
type Transform struct {
	A, B, C, D, E, F float64
}

// NorthUp builds the transform for an axis-aligned grid whose top-left
// corner sits at (originX, originY) with square cells of the given
// resolution in meters.
func NorthUp(resolution, originX, originY float64) Transform {
	return Transform{A: resolution, B: 0, C: originX, D: 0, E: -resolution, F: originY}
}

// Apply converts fractional (col, row) indices to world (x, y).
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// invert returns the inverse affine mapping world (x, y) back to
// fractional (col, row). Fails when the linear part is singular.
func (t Transform) invert() (Transform, error) {
	det := t.A*t.E - t.B*t.D
	if math.Abs(det) < 1e-12 {
		return Transform{}, fmt.Errorf("terrain: transform is not invertible (det=%g)", det)
	}
	inv := Transform{
		A: t.E / det,
		B: -t.B / det,
		D: -t.D / det,
		E: t.A / det,
	}
	inv.C = -(inv.A*t.C + inv.B*t.F)
	inv.F = -(inv.D*t.C + inv.E*t.F)
	return inv, nil
}

// Bounds is the axis-aligned world extent of a grid.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether (x, y) lies inside the extent. Both edges
// are inclusive so rays grazing the boundary still resolve.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Width returns the east-west extent in world units.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the north-south extent in world units.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Grid is a row-major elevation raster with an affine grid-to-world
// mapping. Row 0 is the northern edge. Cells may hold NaN for voids;
// lookups that touch a void report a miss instead of interpolating
// through it.
type Grid struct {
	data      []float64
	width     int
	height    int
	transform Transform
	inverse   Transform
	bounds    Bounds
	minElev   float64
	maxElev   float64
}

// NewGrid wraps row-major elevation data (len = width*height) with its
// affine transform. Fails on empty or mis-sized data, a singular
// transform, or a raster with no finite cells.
func NewGrid(data []float64, width, height int, t Transform) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("terrain: invalid grid size %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("terrain: data length %d does not match %dx%d grid", len(data), width, height)
	}
	inv, err := t.invert()
	if err != nil {
		return nil, err
	}

	minElev := math.Inf(1)
	maxElev := math.Inf(-1)
	finite := 0
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		finite++
		if v < minElev {
			minElev = v
		}
		if v > maxElev {
			maxElev = v
		}
	}
	if finite == 0 {
		return nil, fmt.Errorf("terrain: grid has no finite elevation cells")
	}

	g := &Grid{
		data:      data,
		width:     width,
		height:    height,
		transform: t,
		inverse:   inv,
		minElev:   minElev,
		maxElev:   maxElev,
	}
	g.bounds = g.computeBounds()
	return g, nil
}

// computeBounds evaluates the transform at the four grid corners so
// rotated transforms still get a correct axis-aligned extent.
func (g *Grid) computeBounds() Bounds {
	w := float64(g.width)
	h := float64(g.height)
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		x, y := g.transform.Apply(c[0], c[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}
	b := Bounds{MinX: xs[0], MaxX: xs[0], MinY: ys[0], MaxY: ys[0]}
	for i := 1; i < 4; i++ {
		b.MinX = math.Min(b.MinX, xs[i])
		b.MaxX = math.Max(b.MaxX, xs[i])
		b.MinY = math.Min(b.MinY, ys[i])
		b.MaxY = math.Max(b.MaxY, ys[i])
	}
	return b
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Transform returns the grid-to-world affine mapping.
func (g *Grid) Transform() Transform { return g.transform }

// Bounds returns the world-coordinate extent of the grid.
func (g *Grid) Bounds() Bounds { return g.bounds }

// MinElevation returns the lowest finite cell value in meters.
func (g *Grid) MinElevation() float64 { return g.minElev }

// MaxElevation returns the highest finite cell value in meters.
func (g *Grid) MaxElevation() float64 { return g.maxElev }

// Resolution returns the planar cell size in meters, taken as the
// larger of the column and row spacing so march step sizing stays
// conservative on anisotropic grids.
func (g *Grid) Resolution() float64 {
	return math.Max(math.Abs(g.transform.A), math.Abs(g.transform.E))
}

// at returns the raw cell value without range checks.
func (g *Grid) at(row, col int) float64 {
	return g.data[row*g.width+col]
}

// ElevationAt samples the terrain at world (x, y) using bilinear
// interpolation over the four surrounding cells. The second return is
// false outside the grid extent or when any contributing cell is a
// void.
func (g *Grid) ElevationAt(x, y float64) (float64, bool) {
	if !g.bounds.Contains(x, y) {
		return 0, false
	}

	col := g.inverse.A*x + g.inverse.B*y + g.inverse.C
	row := g.inverse.D*x + g.inverse.E*y + g.inverse.F

	// Clamp so points on the far edges interpolate from the last cells
	// instead of reading past the raster.
	col = clamp(col, 0, float64(g.width-1))
	row = clamp(row, 0, float64(g.height-1))

	c0 := int(math.Floor(col))
	r0 := int(math.Floor(row))
	c1 := min(c0+1, g.width-1)
	r1 := min(r0+1, g.height-1)
	fc := col - float64(c0)
	fr := row - float64(r0)

	v00 := g.at(r0, c0)
	v01 := g.at(r0, c1)
	v10 := g.at(r1, c0)
	v11 := g.at(r1, c1)

	top := v00*(1-fc) + v01*fc
	bottom := v10*(1-fc) + v11*fc
	elev := top*(1-fr) + bottom*fr
	if math.IsNaN(elev) {
		return 0, false
	}
	return elev, true
}

// ElevationBatch samples many (x, y) points at once. Misses are
// reported as NaN so callers can keep positional correspondence with
// the input slice.
func (g *Grid) ElevationBatch(points [][2]float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		elev, ok := g.ElevationAt(p[0], p[1])
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = elev
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
