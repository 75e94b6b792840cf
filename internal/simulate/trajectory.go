package simulate

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/camera"
	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/monitoring"
	"github.com/groundsight-data/groundsight/internal/terrain"
)

// Waypoint legs shorter than this are treated as duplicate points.
const minSegmentLength = 1e-6

// pathSegment is one usable leg of the waypoint polyline.
type pathSegment struct {
	startX, startY float64
	dirX, dirY     float64 // unit direction
	length         float64
	waypoint       int // index of the leg's starting waypoint
}

// buildSegments drops degenerate legs and accumulates path length.
func buildSegments(waypoints [][2]float64) ([]pathSegment, float64) {
	var segs []pathSegment
	total := 0.0
	for i := 0; i+1 < len(waypoints); i++ {
		dx := waypoints[i+1][0] - waypoints[i][0]
		dy := waypoints[i+1][1] - waypoints[i][1]
		length := math.Hypot(dx, dy)
		if length < minSegmentLength {
			continue
		}
		segs = append(segs, pathSegment{
			startX:   waypoints[i][0],
			startY:   waypoints[i][1],
			dirX:     dx / length,
			dirY:     dy / length,
			length:   length,
			waypoint: i,
		})
		total += length
	}
	return segs, total
}

// capturePoint is a camera location along the path before terrain
// lookup: ground XY, flight direction, and the leg it sits on.
type capturePoint struct {
	x, y       float64
	dirX, dirY float64
	waypoint   int
}

// layoutCaptures spaces capture points one photo interval apart along
// the path, clamping the last one to the path end.
func layoutCaptures(segs []pathSegment, total, interval float64) []capturePoint {
	count := 1
	if total >= interval {
		count = int(total/interval) + 1
	}
	captures := make([]capturePoint, 0, count)
	for i := 0; i < count; i++ {
		rem := math.Min(float64(i)*interval, total)
		for j, seg := range segs {
			if rem <= seg.length || j == len(segs)-1 {
				t := math.Min(rem, seg.length)
				captures = append(captures, capturePoint{
					x:        seg.startX + seg.dirX*t,
					y:        seg.startY + seg.dirY*t,
					dirX:     seg.dirX,
					dirY:     seg.dirY,
					waypoint: seg.waypoint,
				})
				break
			}
			rem -= seg.length
		}
	}
	return captures
}

// trajectoryPoses lays out capture positions along the waypoint path
// and places a camera a fixed height above ground at each. Positions
// that fall off the terrain are skipped.
func trajectoryPoses(sc *config.Scenario, grid *terrain.Grid, intr camera.Intrinsics) ([]Pose, error) {
	if sc.Trajectory == nil || len(sc.Trajectory.Waypoints) < 2 {
		return nil, fmt.Errorf("simulate: trajectory mode needs at least 2 waypoints")
	}
	segs, total := buildSegments(sc.Trajectory.Waypoints)
	if len(segs) == 0 {
		return nil, fmt.Errorf("simulate: trajectory has no usable legs, all waypoints coincide")
	}

	captures := layoutCaptures(segs, total, sc.GetPhotoIntervalM())

	// One batched terrain query covers every capture position.
	under := make([][2]float64, len(captures))
	for i, c := range captures {
		under[i] = [2]float64{c.x, c.y}
	}
	ground := grid.ElevationBatch(under)

	agl := sc.GetAltitudeAGLM()
	roll, pitch, yawCfg := sc.GetTrajectoryAttitude()

	poses := make([]Pose, 0, len(captures))
	for i, c := range captures {
		if math.IsNaN(ground[i]) {
			monitoring.Logf("simulate: capture %d at (%.1f, %.1f) is off the terrain, skipped", i, c.x, c.y)
			continue
		}
		yaw := yawCfg.Deg
		if yawCfg.Auto {
			// Aim the oblique view along the flight direction. Yaw is
			// measured from +X toward +Y, matching camera.Extrinsics.
			yaw = math.Atan2(c.dirY, c.dirX) * 180 / math.Pi
		}
		cam, err := camera.New(intr, camera.Extrinsics{
			Position: r3.Vector{X: c.x, Y: c.y, Z: ground[i] + agl},
			RollDeg:  roll,
			PitchDeg: pitch,
			YawDeg:   yaw,
		})
		if err != nil {
			return nil, fmt.Errorf("simulate: capture %d: %w", i, err)
		}
		poses = append(poses, Pose{Camera: cam, WaypointIndex: c.waypoint})
	}
	if len(poses) == 0 {
		return nil, fmt.Errorf("simulate: every capture position is off the terrain")
	}
	return poses, nil
}
