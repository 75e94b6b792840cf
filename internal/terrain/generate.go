package terrain

import (
	"fmt"
	"math"
	"math/rand"
)

// SlopeOptions configures GenerateSlope. Zero-valued fields take the
// defaults listed on each field.
type SlopeOptions struct {
	Width      int     // columns, default 8000
	Height     int     // rows, default 8000
	Resolution float64 // cell size in meters, default 1.0

	// World position of the north-west corner. Defaults put the grid in
	// a UTM-like frame at (300000, 4000000).
	OriginX float64
	OriginY float64

	SlopeDeg      float64 // uphill gradient toward north, default 15
	BaseElevation float64 // elevation at the southern edge, default 100
}

func (o SlopeOptions) withDefaults() SlopeOptions {
	if o.Width == 0 {
		o.Width = 8000
	}
	if o.Height == 0 {
		o.Height = 8000
	}
	if o.Resolution == 0 {
		o.Resolution = 1.0
	}
	if o.OriginX == 0 {
		o.OriginX = 300000
	}
	if o.OriginY == 0 {
		o.OriginY = 4000000
	}
	if o.SlopeDeg == 0 {
		o.SlopeDeg = 15.0
	}
	if o.BaseElevation == 0 {
		o.BaseElevation = 100.0
	}
	return o
}

// GenerateSlope builds a uniform south-to-north incline. Elevation is
// BaseElevation at the southern edge and rises by height*resolution*
// tan(slope) at the northern edge. Useful as a scene where planar
// projection error grows predictably with distance from nadir.
func GenerateSlope(opts SlopeOptions) (*Grid, error) {
	o := opts.withDefaults()
	if o.Width < 0 || o.Height < 0 {
		return nil, fmt.Errorf("terrain: negative slope grid size %dx%d", opts.Width, opts.Height)
	}
	if o.SlopeDeg <= -90 || o.SlopeDeg >= 90 {
		return nil, fmt.Errorf("terrain: slope angle %.1f° out of range", o.SlopeDeg)
	}

	totalRise := float64(o.Height) * o.Resolution * math.Tan(o.SlopeDeg*math.Pi/180)
	denom := float64(o.Height - 1)
	if denom < 1 {
		denom = 1
	}

	data := make([]float64, o.Width*o.Height)
	for row := 0; row < o.Height; row++ {
		// Row 0 is the northern, uphill edge.
		elev := o.BaseElevation + totalRise*(1-float64(row)/denom)
		base := row * o.Width
		for col := 0; col < o.Width; col++ {
			data[base+col] = elev
		}
	}
	return NewGrid(data, o.Width, o.Height, NorthUp(o.Resolution, o.OriginX, o.OriginY))
}

// HillsOptions configures GenerateHills. Zero-valued fields take the
// defaults listed on each field.
type HillsOptions struct {
	SizeKm     float64 // square side length, default 20
	Resolution float64 // cell size in meters, default 2

	BaseElevation float64 // valley-floor elevation, default 500
	Relief        float64 // peak-to-base amplitude budget, default 1500

	Seed int64 // default 42; identical seeds reproduce identical terrain

	// OriginX defaults to 300000. OriginY is the northern edge and
	// defaults to 4000000 plus the terrain size, so the southern edge
	// lands on 4000000 regardless of SizeKm.
	OriginX float64
	OriginY float64
}

func (o HillsOptions) withDefaults() HillsOptions {
	if o.SizeKm == 0 {
		o.SizeKm = 20
	}
	if o.Resolution == 0 {
		o.Resolution = 2
	}
	if o.BaseElevation == 0 {
		o.BaseElevation = 500
	}
	if o.Relief == 0 {
		o.Relief = 1500
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.OriginX == 0 {
		o.OriginX = 300000
	}
	if o.OriginY == 0 {
		o.OriginY = 4000000 + o.SizeKm*1000
	}
	return o
}

// gaussianFeature is one elliptical bump (or depression) added to the
// hills raster.
type gaussianFeature struct {
	amp, cx, cy, sx, sy float64
}

// featureClass describes a family of bumps at one geological scale.
// Amplitudes and footprint sigmas are drawn uniformly per feature;
// sigma ranges are fractions of the grid side.
type featureClass struct {
	count            int
	minAmp, maxAmp   float64
	minSigR, maxSigR float64
}

// GenerateHills builds mountainous synthetic terrain from layered
// Gaussian bumps (ranges, peaks, hills, valleys), roughened with value
// noise and smoothed with a small Gaussian blur. Output is
// deterministic for a given options struct.
func GenerateHills(opts HillsOptions) (*Grid, error) {
	o := opts.withDefaults()
	if o.SizeKm < 0 || o.Resolution < 0 {
		return nil, fmt.Errorf("terrain: invalid hills size %.1fkm at %.1fm", opts.SizeKm, opts.Resolution)
	}
	size := int(o.SizeKm * 1000 / o.Resolution)
	if size < 2 {
		return nil, fmt.Errorf("terrain: hills grid %dpx too small, want >= 2", size)
	}

	rng := rand.New(rand.NewSource(o.Seed))
	fs := float64(size)
	classes := []featureClass{
		{count: 10, minAmp: 0.7 * o.Relief, maxAmp: 1.0 * o.Relief, minSigR: 0.15, maxSigR: 0.25},  // main ranges
		{count: 30, minAmp: 0.3 * o.Relief, maxAmp: 0.6 * o.Relief, minSigR: 0.05, maxSigR: 0.12},  // secondary peaks
		{count: 100, minAmp: 0.05 * o.Relief, maxAmp: 0.25 * o.Relief, minSigR: 0.02, maxSigR: 0.06}, // hills
		{count: 25, minAmp: -0.4 * o.Relief, maxAmp: -0.1 * o.Relief, minSigR: 0.04, maxSigR: 0.10}, // valleys
	}

	data := make([]float64, size*size)
	for i := range data {
		data[i] = o.BaseElevation
	}
	for _, class := range classes {
		for i := 0; i < class.count; i++ {
			f := gaussianFeature{
				amp: uniform(rng, class.minAmp, class.maxAmp),
				cx:  uniform(rng, 0, fs),
				cy:  uniform(rng, 0, fs),
				sx:  uniform(rng, class.minSigR*fs, class.maxSigR*fs),
			}
			f.sy = f.sx * uniform(rng, 0.7, 1.3)
			addFeature(data, size, f)
		}
	}

	// Low-frequency roughness so slopes are not perfectly smooth.
	noise := valueNoise(rng, size, 64)
	for i := range data {
		data[i] += (noise[i] - 0.5) * 0.05 * o.Relief
	}
	gaussianBlur(data, size, size, 2.0)

	return NewGrid(data, size, size, NorthUp(o.Resolution, o.OriginX, o.OriginY))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// addFeature accumulates one elliptical Gaussian into the raster. Only
// cells within 4 sigma contribute anything visible, so the loop is
// clipped to that window.
func addFeature(data []float64, size int, f gaussianFeature) {
	c0 := max(0, int(f.cx-4*f.sx))
	c1 := min(size-1, int(f.cx+4*f.sx)+1)
	r0 := max(0, int(f.cy-4*f.sy))
	r1 := min(size-1, int(f.cy+4*f.sy)+1)
	twoSx2 := 2 * f.sx * f.sx
	twoSy2 := 2 * f.sy * f.sy
	for row := r0; row <= r1; row++ {
		dy := float64(row) - f.cy
		ey := dy * dy / twoSy2
		base := row * size
		for col := c0; col <= c1; col++ {
			dx := float64(col) - f.cx
			data[base+col] += f.amp * math.Exp(-(dx*dx/twoSx2 + ey))
		}
	}
}

// valueNoise builds a [0,1]-normalized noise field by smoothly
// interpolating a coarse lattice of random values. lattice is the
// number of lattice cells along each axis.
func valueNoise(rng *rand.Rand, size, lattice int) []float64 {
	n := lattice + 1
	grid := make([]float64, n*n)
	for i := range grid {
		grid[i] = rng.Float64()
	}

	out := make([]float64, size*size)
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	scale := float64(lattice) / float64(size)
	for row := 0; row < size; row++ {
		sy := float64(row) * scale
		iy := int(sy)
		fy := fade(sy - float64(iy))
		for col := 0; col < size; col++ {
			sx := float64(col) * scale
			ix := int(sx)
			fx := fade(sx - float64(ix))

			v00 := grid[iy*n+ix]
			v01 := grid[iy*n+ix+1]
			v10 := grid[(iy+1)*n+ix]
			v11 := grid[(iy+1)*n+ix+1]
			top := v00*(1-fx) + v01*fx
			bottom := v10*(1-fx) + v11*fx
			v := top*(1-fy) + bottom*fy

			out[row*size+col] = v
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
	}
	span := maxV - minV
	if span <= 0 {
		return out
	}
	for i := range out {
		out[i] = (out[i] - minV) / span
	}
	return out
}

// fade is the quintic smoothstep 6t^5-15t^4+10t^3, zero slope at both
// ends so lattice seams stay invisible.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

// gaussianBlur smooths the raster in place with a separable kernel.
func gaussianBlur(data []float64, width, height int, sigma float64) {
	if sigma <= 0 {
		return
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([]float64, len(data))
	// Horizontal pass, clamped at the edges.
	for row := 0; row < height; row++ {
		base := row * width
		for col := 0; col < width; col++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				c := clampInt(col+k, 0, width-1)
				acc += data[base+c] * kernel[k+radius]
			}
			tmp[base+col] = acc
		}
	}
	// Vertical pass.
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				r := clampInt(row+k, 0, height-1)
				acc += tmp[r*width+col] * kernel[k+radius]
			}
			data[row*width+col] = acc
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
