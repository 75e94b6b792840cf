package georef

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/camera"
	"github.com/groundsight-data/groundsight/internal/monitoring"
)

// planarRayEps rejects rays too parallel to the reference plane to
// intersect it meaningfully.
const planarRayEps = 1e-9

// ReferenceMode selects how the flat reference plane's elevation is
// chosen for planar projection.
type ReferenceMode string

const (
	// ReferenceCustom uses a caller-supplied elevation.
	ReferenceCustom ReferenceMode = "custom"
	// ReferenceCameraNadir samples the terrain directly beneath the
	// camera.
	ReferenceCameraNadir ReferenceMode = "camera_nadir"
)

// ErrorSample is one pixel's planar-versus-terrain comparison. Error2D
// is the horizontal distance in meters between where the pixel really
// lands and where a flat-plane projection puts it.
type ErrorSample struct {
	True    r3.Vector
	Planar  r3.Vector
	Error2D float64
}

// Engine composes a camera-independent elevation field with march
// parameters. One engine serves any number of cameras and goroutines.
type Engine struct {
	field  ElevationField
	params MarchParams
}

// NewEngine wraps an elevation field. params may be zero for derived
// defaults.
func NewEngine(field ElevationField, params MarchParams) (*Engine, error) {
	if field == nil {
		return nil, fmt.Errorf("georef: nil elevation field")
	}
	return &Engine{field: field, params: params}, nil
}

// Field returns the engine's elevation field.
func (e *Engine) Field() ElevationField { return e.field }

// GeoreferencePoint answers where a pixel's viewing ray first strikes
// the terrain surface.
func (e *Engine) GeoreferencePoint(cam *camera.Camera, px camera.Pixel) (r3.Vector, bool) {
	origin, dir := cam.PixelRay(px)
	return IntersectRay(origin, dir, e.field, e.params)
}

// PlanarPoint answers where the same ray lands on the horizontal plane
// z = refElev, the "flat earth" approximation. Fails for rays that are
// near-parallel to the plane or whose plane crossing lies behind the
// camera.
func (e *Engine) PlanarPoint(cam *camera.Camera, px camera.Pixel, refElev float64) (r3.Vector, bool) {
	origin, dir := cam.PixelRay(px)
	if math.Abs(dir.Z) < planarRayEps {
		return r3.Vector{}, false
	}
	t := (refElev - origin.Z) / dir.Z
	if t < 0 {
		return r3.Vector{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

// ErrorAt georeferences one pixel both ways and measures the
// horizontal divergence. Fails when either projection fails.
func (e *Engine) ErrorAt(cam *camera.Camera, px camera.Pixel, refElev float64) (ErrorSample, bool) {
	truePt, ok := e.GeoreferencePoint(cam, px)
	if !ok {
		return ErrorSample{}, false
	}
	planar, ok := e.PlanarPoint(cam, px, refElev)
	if !ok {
		return ErrorSample{}, false
	}
	return ErrorSample{
		True:    truePt,
		Planar:  planar,
		Error2D: math.Hypot(truePt.X-planar.X, truePt.Y-planar.Y),
	}, true
}

// ReferenceElevation resolves the reference plane height for a camera.
// In nadir mode the terrain directly below the camera is sampled, with
// 0 as the fallback when that ray misses the field entirely.
func (e *Engine) ReferenceElevation(cam *camera.Camera, mode ReferenceMode, custom float64) float64 {
	if mode != ReferenceCameraNadir {
		return custom
	}
	pos := cam.Position()
	if pt, ok := IntersectRay(pos, r3.Vector{Z: -1}, e.field, e.params); ok {
		return pt.Z
	}
	monitoring.Logf("georef: nadir ray from (%.1f, %.1f) missed terrain, reference plane at 0m", pos.X, pos.Y)
	return 0
}
