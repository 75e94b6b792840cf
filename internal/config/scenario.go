// Package config defines the JSON scenario file that drives a
// simulation run: terrain source, camera parameters, capture mode
// (single pose or trajectory), reference surface and detection input.
//
// All fields are pointers so that an absent field is distinguishable
// from an explicit zero. Partial scenario files are safe: the Get*
// accessors apply defaults for anything left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Capture modes.
const (
	ModeSingle     = "single"
	ModeTrajectory = "trajectory"
)

// Terrain sources.
const (
	TerrainSlope = "slope"
	TerrainHills = "hills"
	TerrainFile  = "file"
)

// Detection association modes.
const (
	AssociationFixed = "fixed"
	AssociationCycle = "cycle"
)

// Reference surface modes.
const (
	ReferenceCustom      = "custom"
	ReferenceCameraNadir = "camera_nadir"
)

// Scenario is the root of a scenario file. Every section is optional;
// an empty Scenario describes a single oblique capture over the
// default slope terrain.
type Scenario struct {
	Name *string `json:"name,omitempty"`

	// Mode selects "single" or "trajectory". Default "single".
	Mode *string `json:"mode,omitempty"`

	Terrain    *TerrainConfig    `json:"terrain,omitempty"`
	Camera     *CameraConfig     `json:"camera,omitempty"`
	Single     *SingleConfig     `json:"single,omitempty"`
	Trajectory *TrajectoryConfig `json:"trajectory,omitempty"`
	Reference  *ReferenceConfig  `json:"reference,omitempty"`
	Detections *DetectionsConfig `json:"detections,omitempty"`
}

// TerrainConfig selects the elevation source. Source "file" reads an
// ESRI ASCII grid from Path; "slope" and "hills" generate synthetic
// terrain from the remaining fields.
type TerrainConfig struct {
	Source *string `json:"source,omitempty"`
	Path   *string `json:"path,omitempty"`

	// Slope terrain. A slope_deg of 0 falls back to the default.
	SlopeDeg *float64 `json:"slope_deg,omitempty"`

	// Hills terrain.
	ReliefM *float64 `json:"relief_m,omitempty"`
	Seed    *int64   `json:"seed,omitempty"`

	// Shared by both synthetic sources.
	SizeKm         *float64 `json:"size_km,omitempty"`
	ResolutionM    *float64 `json:"resolution_m,omitempty"`
	BaseElevationM *float64 `json:"base_elevation_m,omitempty"`
}

// CameraConfig holds the interior orientation in pixel units.
type CameraConfig struct {
	FocalLengthPx    *float64    `json:"focal_length_px,omitempty"`
	SensorWidthPx    *float64    `json:"sensor_width_px,omitempty"`
	SensorHeightPx   *float64    `json:"sensor_height_px,omitempty"`
	PrincipalPointPx *[2]float64 `json:"principal_point_px,omitempty"`
}

// SingleConfig is one camera pose: world position in meters and
// attitude in degrees.
type SingleConfig struct {
	Position *[3]float64 `json:"position,omitempty"`
	RollDeg  *float64    `json:"roll_deg,omitempty"`
	PitchDeg *float64    `json:"pitch_deg,omitempty"`
	YawDeg   *float64    `json:"yaw_deg,omitempty"`
}

// TrajectoryConfig is a waypoint flight: the aircraft follows the
// polyline at a constant height above ground, capturing a frame every
// PhotoIntervalM meters along the path.
type TrajectoryConfig struct {
	// Waypoints are world XY coordinates in meters. At least two are
	// required.
	Waypoints [][2]float64 `json:"waypoints,omitempty"`

	AltitudeAGLM   *float64 `json:"altitude_agl_m,omitempty"`
	PhotoIntervalM *float64 `json:"photo_interval_m,omitempty"`

	RollDeg  *float64 `json:"roll_deg,omitempty"`
	PitchDeg *float64 `json:"pitch_deg,omitempty"`
	// Yaw is a fixed yaw angle in degrees, or "auto" to aim the view
	// along the flight direction. Default auto.
	Yaw *Yaw `json:"yaw,omitempty"`
}

// ReferenceConfig picks the flat reference surface the planar
// projection uses: a fixed custom elevation, or the terrain height
// directly below each camera.
type ReferenceConfig struct {
	Mode       *string  `json:"mode,omitempty"`
	ElevationM *float64 `json:"elevation_m,omitempty"`
}

// DetectionsConfig points at YOLO label files supplying the pixels to
// georeference. With no label directory the principal point is used as
// a single synthetic detection per frame.
type DetectionsConfig struct {
	LabelDir      *string `json:"label_dir,omitempty"`
	ImageWidthPx  *int    `json:"image_width_px,omitempty"`
	ImageHeightPx *int    `json:"image_height_px,omitempty"`
	MaxPerPose    *int    `json:"max_per_pose,omitempty"`
	RandomSample  *bool   `json:"random_sample,omitempty"`
	SampleSeed    *int64  `json:"sample_seed,omitempty"`

	// Association maps label files onto poses: "fixed" reuses the
	// first file everywhere, "cycle" walks the files round-robin.
	Association *string `json:"association,omitempty"`
}

// Yaw is a heading that is either a fixed angle in degrees or the
// literal JSON string "auto", meaning follow the flight direction.
type Yaw struct {
	Auto bool
	Deg  float64
}

// UnmarshalJSON accepts a JSON number or the string "auto".
func (y *Yaw) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "auto" {
			return fmt.Errorf("yaw must be a number or \"auto\", got %q", s)
		}
		*y = Yaw{Auto: true}
		return nil
	}
	var deg float64
	if err := json.Unmarshal(data, &deg); err != nil {
		return fmt.Errorf("yaw must be a number or \"auto\": %w", err)
	}
	*y = Yaw{Deg: deg}
	return nil
}

// MarshalJSON renders "auto" or the angle.
func (y Yaw) MarshalJSON() ([]byte, error) {
	if y.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(y.Deg)
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// Load reads a scenario from a JSON file. The file must have a .json
// extension and be under the max file size. Fields omitted from the
// JSON keep their defaults, so partial scenarios are safe.
func Load(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scenario file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("scenario file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario from raw JSON.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := json.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

// Save writes the scenario as indented JSON.
func (s *Scenario) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}
	return nil
}

// Validate checks every set field and reports all problems at once.
func (s *Scenario) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode := s.GetMode(); mode {
	case ModeSingle, ModeTrajectory:
	default:
		bad("mode must be %q or %q, got %q", ModeSingle, ModeTrajectory, mode)
	}

	if t := s.Terrain; t != nil {
		switch src := s.GetTerrainSource(); src {
		case TerrainSlope, TerrainHills:
		case TerrainFile:
			if t.Path == nil || *t.Path == "" {
				bad("terrain.path is required when terrain.source is %q", TerrainFile)
			}
		default:
			bad("terrain.source must be %q, %q or %q, got %q", TerrainSlope, TerrainHills, TerrainFile, src)
		}
		if t.SlopeDeg != nil && (*t.SlopeDeg <= -90 || *t.SlopeDeg >= 90) {
			bad("terrain.slope_deg must be between -90 and 90 exclusive, got %g", *t.SlopeDeg)
		}
		if t.SizeKm != nil && *t.SizeKm <= 0 {
			bad("terrain.size_km must be positive, got %g", *t.SizeKm)
		}
		if t.ResolutionM != nil && *t.ResolutionM <= 0 {
			bad("terrain.resolution_m must be positive, got %g", *t.ResolutionM)
		}
		if t.ReliefM != nil && *t.ReliefM <= 0 {
			bad("terrain.relief_m must be positive, got %g", *t.ReliefM)
		}
	}

	if c := s.Camera; c != nil {
		if c.FocalLengthPx != nil && *c.FocalLengthPx <= 0 {
			bad("camera.focal_length_px must be positive, got %g", *c.FocalLengthPx)
		}
		if c.SensorWidthPx != nil && *c.SensorWidthPx <= 0 {
			bad("camera.sensor_width_px must be positive, got %g", *c.SensorWidthPx)
		}
		if c.SensorHeightPx != nil && *c.SensorHeightPx <= 0 {
			bad("camera.sensor_height_px must be positive, got %g", *c.SensorHeightPx)
		}
	}

	if s.GetMode() == ModeTrajectory {
		t := s.Trajectory
		if t == nil {
			bad("trajectory section is required when mode is %q", ModeTrajectory)
		} else {
			if len(t.Waypoints) < 2 {
				bad("trajectory.waypoints needs at least 2 points, got %d", len(t.Waypoints))
			}
			if t.AltitudeAGLM != nil && *t.AltitudeAGLM <= 0 {
				bad("trajectory.altitude_agl_m must be positive, got %g", *t.AltitudeAGLM)
			}
			if t.PhotoIntervalM != nil && *t.PhotoIntervalM <= 0 {
				bad("trajectory.photo_interval_m must be positive, got %g", *t.PhotoIntervalM)
			}
		}
	}

	if r := s.Reference; r != nil && r.Mode != nil {
		switch *r.Mode {
		case ReferenceCustom, ReferenceCameraNadir:
		default:
			bad("reference.mode must be %q or %q, got %q", ReferenceCustom, ReferenceCameraNadir, *r.Mode)
		}
	}

	if d := s.Detections; d != nil {
		if d.MaxPerPose != nil && *d.MaxPerPose < 1 {
			bad("detections.max_per_pose must be at least 1, got %d", *d.MaxPerPose)
		}
		if d.ImageWidthPx != nil && *d.ImageWidthPx <= 0 {
			bad("detections.image_width_px must be positive, got %d", *d.ImageWidthPx)
		}
		if d.ImageHeightPx != nil && *d.ImageHeightPx <= 0 {
			bad("detections.image_height_px must be positive, got %d", *d.ImageHeightPx)
		}
		if d.Association != nil {
			switch *d.Association {
			case AssociationFixed, AssociationCycle:
			default:
				bad("detections.association must be %q or %q, got %q", AssociationFixed, AssociationCycle, *d.Association)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// GetName returns the scenario name or a placeholder.
func (s *Scenario) GetName() string {
	if s.Name == nil || *s.Name == "" {
		return "unnamed scenario"
	}
	return *s.Name
}

// GetMode returns the capture mode or the default.
func (s *Scenario) GetMode() string {
	if s.Mode == nil || *s.Mode == "" {
		return ModeSingle // default
	}
	return *s.Mode
}

// GetTerrainSource returns the terrain source or the default.
func (s *Scenario) GetTerrainSource() string {
	if s.Terrain == nil || s.Terrain.Source == nil || *s.Terrain.Source == "" {
		return TerrainSlope // default
	}
	return *s.Terrain.Source
}

// GetTerrainPath returns the ASCII grid path for file terrain.
func (s *Scenario) GetTerrainPath() string {
	if s.Terrain == nil || s.Terrain.Path == nil {
		return ""
	}
	return *s.Terrain.Path
}

// GetSlopeDeg returns the slope angle or the default.
func (s *Scenario) GetSlopeDeg() float64 {
	if s.Terrain == nil || s.Terrain.SlopeDeg == nil {
		return 15.0 // default
	}
	return *s.Terrain.SlopeDeg
}

// GetTerrainSizeKm returns the synthetic terrain side length. The
// default differs by source: slope grids are 8 km, hills 20 km.
func (s *Scenario) GetTerrainSizeKm() float64 {
	if s.Terrain != nil && s.Terrain.SizeKm != nil {
		return *s.Terrain.SizeKm
	}
	if s.GetTerrainSource() == TerrainHills {
		return 20.0 // default
	}
	return 8.0 // default
}

// GetTerrainResolutionM returns the synthetic terrain cell size. The
// default differs by source: slope grids at 1 m, hills at 2 m.
func (s *Scenario) GetTerrainResolutionM() float64 {
	if s.Terrain != nil && s.Terrain.ResolutionM != nil {
		return *s.Terrain.ResolutionM
	}
	if s.GetTerrainSource() == TerrainHills {
		return 2.0 // default
	}
	return 1.0 // default
}

// GetHillsReliefM returns the hills relief or the default.
func (s *Scenario) GetHillsReliefM() float64 {
	if s.Terrain == nil || s.Terrain.ReliefM == nil {
		return 1500.0 // default
	}
	return *s.Terrain.ReliefM
}

// GetHillsSeed returns the hills RNG seed or the default.
func (s *Scenario) GetHillsSeed() int64 {
	if s.Terrain == nil || s.Terrain.Seed == nil {
		return 42 // default
	}
	return *s.Terrain.Seed
}

// GetBaseElevationM returns the synthetic terrain base elevation. The
// default differs by source: slope terrain starts at 100 m, hills
// valleys sit at 500 m.
func (s *Scenario) GetBaseElevationM() float64 {
	if s.Terrain != nil && s.Terrain.BaseElevationM != nil {
		return *s.Terrain.BaseElevationM
	}
	if s.GetTerrainSource() == TerrainHills {
		return 500.0 // default
	}
	return 100.0 // default
}

// GetFocalLengthPx returns the focal length or the default.
func (s *Scenario) GetFocalLengthPx() float64 {
	if s.Camera == nil || s.Camera.FocalLengthPx == nil {
		return 4000.0 // default
	}
	return *s.Camera.FocalLengthPx
}

// GetSensorWidthPx returns the sensor width or the default.
func (s *Scenario) GetSensorWidthPx() float64 {
	if s.Camera == nil || s.Camera.SensorWidthPx == nil {
		return 4000.0 // default
	}
	return *s.Camera.SensorWidthPx
}

// GetSensorHeightPx returns the sensor height or the default.
func (s *Scenario) GetSensorHeightPx() float64 {
	if s.Camera == nil || s.Camera.SensorHeightPx == nil {
		return 3000.0 // default
	}
	return *s.Camera.SensorHeightPx
}

// GetPrincipalPointPx returns the principal point override, or nil for
// the sensor center.
func (s *Scenario) GetPrincipalPointPx() *[2]float64 {
	if s.Camera == nil {
		return nil
	}
	return s.Camera.PrincipalPointPx
}

// GetSinglePosition returns the single-mode camera position or the
// default, a point 2400 m over the default slope terrain.
func (s *Scenario) GetSinglePosition() [3]float64 {
	if s.Single == nil || s.Single.Position == nil {
		return [3]float64{302500, 3997500, 2500} // default
	}
	return *s.Single.Position
}

// GetSingleAttitude returns the single-mode roll, pitch and yaw in
// degrees, defaulting to an oblique northeast-looking view.
func (s *Scenario) GetSingleAttitude() (roll, pitch, yaw float64) {
	roll, pitch, yaw = 0, -30, 45 // defaults
	if s.Single == nil {
		return roll, pitch, yaw
	}
	if s.Single.RollDeg != nil {
		roll = *s.Single.RollDeg
	}
	if s.Single.PitchDeg != nil {
		pitch = *s.Single.PitchDeg
	}
	if s.Single.YawDeg != nil {
		yaw = *s.Single.YawDeg
	}
	return roll, pitch, yaw
}

// GetAltitudeAGLM returns the trajectory flight height or the default.
func (s *Scenario) GetAltitudeAGLM() float64 {
	if s.Trajectory == nil || s.Trajectory.AltitudeAGLM == nil {
		return 1200.0 // default
	}
	return *s.Trajectory.AltitudeAGLM
}

// GetPhotoIntervalM returns the along-track capture spacing or the
// default.
func (s *Scenario) GetPhotoIntervalM() float64 {
	if s.Trajectory == nil || s.Trajectory.PhotoIntervalM == nil {
		return 500.0 // default
	}
	return *s.Trajectory.PhotoIntervalM
}

// GetTrajectoryAttitude returns the trajectory roll and pitch in
// degrees plus the yaw setting, defaulting to a forward-tipped camera
// with automatic heading.
func (s *Scenario) GetTrajectoryAttitude() (roll, pitch float64, yaw Yaw) {
	roll, pitch, yaw = 0, -30, Yaw{Auto: true} // defaults
	if s.Trajectory == nil {
		return roll, pitch, yaw
	}
	if s.Trajectory.RollDeg != nil {
		roll = *s.Trajectory.RollDeg
	}
	if s.Trajectory.PitchDeg != nil {
		pitch = *s.Trajectory.PitchDeg
	}
	if s.Trajectory.Yaw != nil {
		yaw = *s.Trajectory.Yaw
	}
	return roll, pitch, yaw
}

// GetReferenceMode returns the reference surface mode or the default.
func (s *Scenario) GetReferenceMode() string {
	if s.Reference == nil || s.Reference.Mode == nil || *s.Reference.Mode == "" {
		return ReferenceCameraNadir // default
	}
	return *s.Reference.Mode
}

// GetReferenceElevationM returns the custom reference elevation.
func (s *Scenario) GetReferenceElevationM() float64 {
	if s.Reference == nil || s.Reference.ElevationM == nil {
		return 0
	}
	return *s.Reference.ElevationM
}

// GetLabelDir returns the detection label directory, empty when
// detections are synthetic.
func (s *Scenario) GetLabelDir() string {
	if s.Detections == nil || s.Detections.LabelDir == nil {
		return ""
	}
	return *s.Detections.LabelDir
}

// GetImageSizePx returns the label image dimensions, defaulting to
// the sensor size so normalized labels map onto the full frame.
func (s *Scenario) GetImageSizePx() (width, height int) {
	width = int(s.GetSensorWidthPx())
	height = int(s.GetSensorHeightPx())
	if s.Detections != nil && s.Detections.ImageWidthPx != nil {
		width = *s.Detections.ImageWidthPx
	}
	if s.Detections != nil && s.Detections.ImageHeightPx != nil {
		height = *s.Detections.ImageHeightPx
	}
	return width, height
}

// GetMaxPerPose returns the per-pose detection cap or the default.
func (s *Scenario) GetMaxPerPose() int {
	if s.Detections == nil || s.Detections.MaxPerPose == nil {
		return 50 // default
	}
	return *s.Detections.MaxPerPose
}

// GetRandomSample reports whether detections over the cap are sampled
// randomly rather than truncated.
func (s *Scenario) GetRandomSample() bool {
	if s.Detections == nil || s.Detections.RandomSample == nil {
		return false // default: keep the first N
	}
	return *s.Detections.RandomSample
}

// GetSampleSeed returns the sampling RNG seed or the default.
func (s *Scenario) GetSampleSeed() int64 {
	if s.Detections == nil || s.Detections.SampleSeed == nil {
		return 1 // default
	}
	return *s.Detections.SampleSeed
}

// GetAssociation returns the label-to-pose association mode or the
// default.
func (s *Scenario) GetAssociation() string {
	if s.Detections == nil || s.Detections.Association == nil || *s.Detections.Association == "" {
		return AssociationFixed // default
	}
	return *s.Detections.Association
}
