package georef

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// defaultStepFactor sizes the coarse march step as a multiple of
	// the elevation field's cell size. Larger steps risk skipping
	// narrow ridges; the bisection phase only refines within the final
	// step interval.
	defaultStepFactor = 5.0

	// minMarchSteps is the floor on the derived step budget so short
	// vertical estimates still cover obliquely stretched rays.
	minMarchSteps   = 1000
	marchStepMargin = 100

	bisectMaxIter = 10
	// bisectTolM is the convergence tolerance between the ray point
	// and the terrain surface, in meters.
	bisectTolM = 0.1
)

// ElevationField is the terrain lookup surface the intersector marches
// against. ElevationAt reports false outside the field or over voids.
// Implementations must be safe for concurrent readers.
type ElevationField interface {
	ElevationAt(x, y float64) (float64, bool)
	Resolution() float64
	MinElevation() float64
}

// MarchParams tune the coarse march. The zero value derives both knobs
// from the field: step = 5x cell size, and a step budget computed from
// the ray's vertical extent with a floor of 1000.
type MarchParams struct {
	StepSize float64
	MaxSteps int
}

// IntersectRay walks a ray from origin along dir until it first dips
// below the terrain surface, then refines the crossing by bisection.
// dir need not be unit length; it is normalized here. Returns false
// for rays that cannot hit terrain (horizontal or upward, origin at or
// below the lowest terrain sample), rays that leave the field, and
// marches that exhaust their step budget.
func IntersectRay(origin, dir r3.Vector, field ElevationField, params MarchParams) (r3.Vector, bool) {
	if dir.Z >= 0 {
		return r3.Vector{}, false
	}
	dir = dir.Normalize()

	vertical := origin.Z - field.MinElevation()
	if vertical <= 0 {
		return r3.Vector{}, false
	}

	step := params.StepSize
	if step <= 0 {
		step = defaultStepFactor * field.Resolution()
	}
	maxSteps := params.MaxSteps
	if maxSteps <= 0 {
		// Path length until the ray reaches the lowest possible
		// terrain, stretched by obliqueness.
		estimate := vertical / math.Abs(dir.Z)
		maxSteps = int(estimate/step) + marchStepMargin
		if maxSteps < minMarchSteps {
			maxSteps = minMarchSteps
		}
	}

	current := origin
	var prev r3.Vector
	havePrev := false
	for i := 0; i < maxSteps; i++ {
		current = current.Add(dir.Mul(step))
		elev, ok := field.ElevationAt(current.X, current.Y)
		if !ok {
			// Left the field (or crossed a void) before hitting ground.
			return r3.Vector{}, false
		}
		if current.Z <= elev {
			if !havePrev {
				// Crossed within the very first step; no bracket to
				// refine, so snap to the terrain surface here.
				return r3.Vector{X: current.X, Y: current.Y, Z: elev}, true
			}
			return bisect(prev, current, field), true
		}
		prev = current
		havePrev = true
	}
	return r3.Vector{}, false
}

// bisect narrows the crossing between an above-terrain point and an
// at-or-below-terrain point. If the tolerance is not met within the
// iteration budget the midpoint estimate is returned anyway; by then
// the interval is ~1/1000 of the march step and the answer is close
// enough for error statistics.
func bisect(above, below r3.Vector, field ElevationField) r3.Vector {
	for i := 0; i < bisectMaxIter; i++ {
		mid := above.Add(below).Mul(0.5)
		elev, ok := field.ElevationAt(mid.X, mid.Y)
		if !ok {
			break
		}
		if math.Abs(mid.Z-elev) < bisectTolM {
			return r3.Vector{X: mid.X, Y: mid.Y, Z: elev}
		}
		if mid.Z > elev {
			above = mid
		} else {
			below = mid
		}
	}

	final := above.Add(below).Mul(0.5)
	if elev, ok := field.ElevationAt(final.X, final.Y); ok {
		return r3.Vector{X: final.X, Y: final.Y, Z: elev}
	}
	return final
}
