// Package simulate expands a scenario file into camera poses over
// terrain and measures, for every configured detection pixel, the gap
// between true ray/terrain georeferencing and the flat-plane shortcut.
package simulate

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/golang/geo/r3"

	"github.com/groundsight-data/groundsight/internal/camera"
	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/detect"
	"github.com/groundsight-data/groundsight/internal/georef"
	"github.com/groundsight-data/groundsight/internal/terrain"
)

// Pose is one camera exposure: the camera, the waypoint leg it was
// captured on, and the detection pixels evaluated in its frame.
type Pose struct {
	Camera        *camera.Camera
	WaypointIndex int
	SourceFile    string
	Pixels        []camera.Pixel
}

// Scene is a fully built simulation world, ready to run. The engine
// is stateless, so one Scene may be evaluated from many goroutines.
type Scene struct {
	Name string
	Mode string

	Grid   *terrain.Grid
	Engine *georef.Engine
	Poses  []Pose

	RefMode georef.ReferenceMode
	RefElev float64
}

// BuildScene resolves a scenario into terrain, engine and poses.
func BuildScene(sc *config.Scenario) (*Scene, error) {
	grid, err := BuildTerrain(sc)
	if err != nil {
		return nil, err
	}
	engine, err := georef.NewEngine(grid, georef.MarchParams{})
	if err != nil {
		return nil, err
	}

	intr := Intrinsics(sc)
	var poses []Pose
	switch sc.GetMode() {
	case config.ModeTrajectory:
		poses, err = trajectoryPoses(sc, grid, intr)
	default:
		poses, err = singlePose(sc, intr)
	}
	if err != nil {
		return nil, err
	}
	if err := attachPixels(sc, poses); err != nil {
		return nil, err
	}

	return &Scene{
		Name:    sc.GetName(),
		Mode:    sc.GetMode(),
		Grid:    grid,
		Engine:  engine,
		Poses:   poses,
		RefMode: georef.ReferenceMode(sc.GetReferenceMode()),
		RefElev: sc.GetReferenceElevationM(),
	}, nil
}

// BuildTerrain resolves the scenario's elevation source.
func BuildTerrain(sc *config.Scenario) (*terrain.Grid, error) {
	sizePx := int(sc.GetTerrainSizeKm() * 1000 / sc.GetTerrainResolutionM())
	switch src := sc.GetTerrainSource(); src {
	case config.TerrainSlope:
		return terrain.GenerateSlope(terrain.SlopeOptions{
			Width:         sizePx,
			Height:        sizePx,
			Resolution:    sc.GetTerrainResolutionM(),
			SlopeDeg:      sc.GetSlopeDeg(),
			BaseElevation: sc.GetBaseElevationM(),
		})
	case config.TerrainHills:
		return terrain.GenerateHills(terrain.HillsOptions{
			SizeKm:        sc.GetTerrainSizeKm(),
			Resolution:    sc.GetTerrainResolutionM(),
			BaseElevation: sc.GetBaseElevationM(),
			Relief:        sc.GetHillsReliefM(),
			Seed:          sc.GetHillsSeed(),
		})
	case config.TerrainFile:
		return terrain.LoadASCIIGrid(sc.GetTerrainPath())
	default:
		return nil, fmt.Errorf("simulate: unknown terrain source %q", src)
	}
}

// Intrinsics converts the scenario camera block.
func Intrinsics(sc *config.Scenario) camera.Intrinsics {
	intr := camera.Intrinsics{
		FocalLengthPx: sc.GetFocalLengthPx(),
		SensorWidth:   sc.GetSensorWidthPx(),
		SensorHeight:  sc.GetSensorHeightPx(),
	}
	if pp := sc.GetPrincipalPointPx(); pp != nil {
		intr.PrincipalPoint = &camera.Pixel{X: pp[0], Y: pp[1]}
	}
	return intr
}

func singlePose(sc *config.Scenario, intr camera.Intrinsics) ([]Pose, error) {
	pos := sc.GetSinglePosition()
	roll, pitch, yaw := sc.GetSingleAttitude()
	cam, err := camera.New(intr, camera.Extrinsics{
		Position: r3.Vector{X: pos[0], Y: pos[1], Z: pos[2]},
		RollDeg:  roll,
		PitchDeg: pitch,
		YawDeg:   yaw,
	})
	if err != nil {
		return nil, err
	}
	return []Pose{{Camera: cam}}, nil
}

// attachPixels resolves the detection input and assigns pixels to
// every pose. Without a label source each pose georeferences its
// principal point. Each label file is loaded and sampled once, so a
// file shared between poses contributes identical pixels to each.
func attachPixels(sc *config.Scenario, poses []Pose) error {
	labelDir := sc.GetLabelDir()
	if labelDir == "" {
		for i := range poses {
			poses[i].Pixels = []camera.Pixel{poses[i].Camera.PrincipalPoint()}
		}
		return nil
	}

	files, err := detect.ListLabels(labelDir)
	if err != nil {
		return err
	}
	imgW, imgH := sc.GetImageSizePx()
	var rng *rand.Rand
	if sc.GetRandomSample() {
		rng = rand.New(rand.NewSource(sc.GetSampleSeed()))
	}

	cache := make(map[string][]camera.Pixel, len(files))
	pixelsFor := func(path string) ([]camera.Pixel, error) {
		if px, ok := cache[path]; ok {
			return px, nil
		}
		dets, err := detect.LoadFile(path, imgW, imgH)
		if err != nil {
			return nil, err
		}
		px := detect.Select(dets, sc.GetMaxPerPose(), sc.GetRandomSample(), rng)
		cache[path] = px
		return px, nil
	}

	cycle := sc.GetAssociation() == config.AssociationCycle
	for i := range poses {
		path := files[0]
		if cycle {
			path = files[i%len(files)]
		}
		px, err := pixelsFor(path)
		if err != nil {
			return err
		}
		poses[i].Pixels = px
		poses[i].SourceFile = filepath.Base(path)
	}
	return nil
}
