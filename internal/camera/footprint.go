package camera

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/monitoring"
)

// Footprint is the quadrilateral where the sensor corners meet a
// horizontal ground plane. Corners run top-left, top-right,
// bottom-right, bottom-left in sensor order; Radius is the mean
// distance of the corners from their XY centroid.
type Footprint struct {
	Corners [4]r3.Vector
	Radius  float64
}

// GroundCoverage intersects the four corner rays with the plane
// z = groundElev. It fails when the camera sits at or below the plane
// or when any corner ray never reaches it (horizontal or upward rays,
// as with extreme oblique attitudes).
func (c *Camera) GroundCoverage(groundElev float64) (Footprint, bool) {
	height := c.pos.Z - groundElev
	if height <= 0 {
		monitoring.Logf("camera: cannot compute coverage, camera z %.1fm is at or below ground %.1fm", c.pos.Z, groundElev)
		return Footprint{}, false
	}

	corners := [4]Pixel{
		{X: 0, Y: 0},
		{X: c.intr.SensorWidth - 1, Y: 0},
		{X: c.intr.SensorWidth - 1, Y: c.intr.SensorHeight - 1},
		{X: 0, Y: c.intr.SensorHeight - 1},
	}

	var fp Footprint
	hit := 0
	for i, px := range corners {
		origin, dir := c.PixelRay(px)
		if math.Abs(dir.Z) < degenerateRayEps {
			continue
		}
		t := (groundElev - origin.Z) / dir.Z
		if t < 0 {
			continue
		}
		fp.Corners[i] = origin.Add(dir.Mul(t))
		hit++
	}
	if hit != 4 {
		monitoring.Logf("camera: only %d of 4 corner rays reach ground plane %.1fm", hit, groundElev)
		return Footprint{}, false
	}

	var mx, my float64
	for _, p := range fp.Corners {
		mx += p.X
		my += p.Y
	}
	mx /= 4
	my /= 4
	for _, p := range fp.Corners {
		fp.Radius += math.Hypot(p.X-mx, p.Y-my)
	}
	fp.Radius /= 4
	return fp, true
}
