package simulate

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/camera"
)

// PointResult pairs one detection pixel's true ground position with
// its flat-plane estimate.
type PointResult struct {
	Pixel         camera.Pixel `json:"pixel"`
	True          r3.Vector    `json:"true"`
	Planar        r3.Vector    `json:"planar"`
	ErrorM        float64      `json:"error_m"`
	CameraPos     r3.Vector    `json:"camera_pos"`
	WaypointIndex int          `json:"waypoint_index"`
	SourceFile    string       `json:"source_file,omitempty"`
}

// Result is the complete output of one run.
type Result struct {
	ScenarioName  string        `json:"scenario_name"`
	Mode          string        `json:"mode"`
	PoseCount     int           `json:"pose_count"`
	SkippedPixels int           `json:"skipped_pixels"`
	Points        []PointResult `json:"points"`
	Duration      time.Duration `json:"duration"`
}

// ErrorColumn extracts the per-point 2D errors, the column all
// summary statistics are computed over.
func (r *Result) ErrorColumn() []float64 {
	errs := make([]float64, len(r.Points))
	for i, p := range r.Points {
		errs[i] = p.ErrorM
	}
	return errs
}

// Workers is the pose worker pool size: one per CPU, leaving a core
// for the serving path.
func Workers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Progress receives pose completion updates during a run. May be nil.
type Progress func(done, total int)

// poseOutput is one pose's evaluated points plus the pixels dropped
// for geometry failures.
type poseOutput struct {
	points  []PointResult
	skipped int
}

// Run evaluates a built scene. Poses are spread over a bounded worker
// pool sharing the stateless engine; outputs are merged in pose order
// regardless of which worker finished first.
func Run(ctx context.Context, scene *Scene, progress Progress) (*Result, error) {
	start := time.Now()
	outputs := make([]poseOutput, len(scene.Poses))

	workers := Workers()
	if workers > len(scene.Poses) {
		workers = len(scene.Poses)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outputs[idx] = evaluatePose(scene, scene.Poses[idx])
				n := done.Add(1)
				if progress != nil {
					progress(int(n), len(scene.Poses))
				}
			}
		}()
	}

feed:
	for i := range scene.Poses {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulate: run canceled: %w", err)
	}

	res := &Result{
		ScenarioName: scene.Name,
		Mode:         scene.Mode,
		PoseCount:    len(scene.Poses),
	}
	for _, out := range outputs {
		res.Points = append(res.Points, out.points...)
		res.SkippedPixels += out.skipped
	}
	res.Duration = time.Since(start)
	return res, nil
}

// evaluatePose georeferences every pixel of one pose. The reference
// elevation is resolved once per pose, not per pixel.
func evaluatePose(scene *Scene, pose Pose) poseOutput {
	refElev := scene.Engine.ReferenceElevation(pose.Camera, scene.RefMode, scene.RefElev)
	out := poseOutput{points: make([]PointResult, 0, len(pose.Pixels))}
	for _, px := range pose.Pixels {
		sample, ok := scene.Engine.ErrorAt(pose.Camera, px, refElev)
		if !ok {
			out.skipped++
			continue
		}
		out.points = append(out.points, PointResult{
			Pixel:         px,
			True:          sample.True,
			Planar:        sample.Planar,
			ErrorM:        sample.Error2D,
			CameraPos:     pose.Camera.Position(),
			WaypointIndex: pose.WaypointIndex,
			SourceFile:    pose.SourceFile,
		})
	}
	return out
}
