package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetterDefaults(t *testing.T) {
	// An empty scenario describes the default single oblique capture.
	sc := &Scenario{}

	if sc.GetMode() != ModeSingle {
		t.Errorf("GetMode() = %q, want %q", sc.GetMode(), ModeSingle)
	}
	if sc.GetTerrainSource() != TerrainSlope {
		t.Errorf("GetTerrainSource() = %q, want %q", sc.GetTerrainSource(), TerrainSlope)
	}
	if sc.GetSlopeDeg() != 15.0 {
		t.Errorf("GetSlopeDeg() = %g, want 15", sc.GetSlopeDeg())
	}
	if sc.GetBaseElevationM() != 100.0 {
		t.Errorf("GetBaseElevationM() = %g, want 100", sc.GetBaseElevationM())
	}
	if sc.GetFocalLengthPx() != 4000.0 {
		t.Errorf("GetFocalLengthPx() = %g, want 4000", sc.GetFocalLengthPx())
	}
	if sc.GetSensorWidthPx() != 4000.0 || sc.GetSensorHeightPx() != 3000.0 {
		t.Errorf("sensor = %gx%g, want 4000x3000", sc.GetSensorWidthPx(), sc.GetSensorHeightPx())
	}
	if sc.GetPrincipalPointPx() != nil {
		t.Errorf("GetPrincipalPointPx() = %v, want nil", sc.GetPrincipalPointPx())
	}

	pos := sc.GetSinglePosition()
	if pos != [3]float64{302500, 3997500, 2500} {
		t.Errorf("GetSinglePosition() = %v", pos)
	}
	roll, pitch, yaw := sc.GetSingleAttitude()
	if roll != 0 || pitch != -30 || yaw != 45 {
		t.Errorf("GetSingleAttitude() = %g/%g/%g, want 0/-30/45", roll, pitch, yaw)
	}

	if sc.GetAltitudeAGLM() != 1200.0 {
		t.Errorf("GetAltitudeAGLM() = %g, want 1200", sc.GetAltitudeAGLM())
	}
	if sc.GetPhotoIntervalM() != 500.0 {
		t.Errorf("GetPhotoIntervalM() = %g, want 500", sc.GetPhotoIntervalM())
	}
	_, _, trajYaw := sc.GetTrajectoryAttitude()
	if !trajYaw.Auto {
		t.Errorf("trajectory yaw = %+v, want auto", trajYaw)
	}

	if sc.GetReferenceMode() != ReferenceCameraNadir {
		t.Errorf("GetReferenceMode() = %q, want %q", sc.GetReferenceMode(), ReferenceCameraNadir)
	}
	if sc.GetMaxPerPose() != 50 {
		t.Errorf("GetMaxPerPose() = %d, want 50", sc.GetMaxPerPose())
	}
	if sc.GetRandomSample() {
		t.Error("GetRandomSample() = true, want false")
	}
	if sc.GetAssociation() != AssociationFixed {
		t.Errorf("GetAssociation() = %q, want %q", sc.GetAssociation(), AssociationFixed)
	}

	w, h := sc.GetImageSizePx()
	if w != 4000 || h != 3000 {
		t.Errorf("GetImageSizePx() = %dx%d, want sensor size 4000x3000", w, h)
	}
}

func TestHillsDefaultsDifferFromSlope(t *testing.T) {
	slope := &Scenario{}
	hills := &Scenario{Terrain: &TerrainConfig{Source: ptrString(TerrainHills)}}

	if slope.GetBaseElevationM() != 100.0 || hills.GetBaseElevationM() != 500.0 {
		t.Errorf("base elevation = %g/%g, want 100/500", slope.GetBaseElevationM(), hills.GetBaseElevationM())
	}
	if slope.GetTerrainSizeKm() != 8.0 || hills.GetTerrainSizeKm() != 20.0 {
		t.Errorf("size = %g/%g km, want 8/20", slope.GetTerrainSizeKm(), hills.GetTerrainSizeKm())
	}
	if slope.GetTerrainResolutionM() != 1.0 || hills.GetTerrainResolutionM() != 2.0 {
		t.Errorf("resolution = %g/%g m, want 1/2", slope.GetTerrainResolutionM(), hills.GetTerrainResolutionM())
	}
}

func TestLoadPartialScenario(t *testing.T) {
	// Partial scenario: only override the pitch; everything else keeps
	// defaults.
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "single": {"pitch_deg": -45}
}`
	if err := os.WriteFile(path, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test scenario: %v", err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load partial scenario: %v", err)
	}

	_, pitch, yaw := sc.GetSingleAttitude()
	if pitch != -45 {
		t.Errorf("pitch = %g, want overridden -45", pitch)
	}
	if yaw != 45 {
		t.Errorf("yaw = %g, want default 45", yaw)
	}
	if sc.GetFocalLengthPx() != 4000 {
		t.Errorf("focal = %g, want default 4000", sc.GetFocalLengthPx())
	}
}

func TestLoadTrajectoryScenario(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "traj.json")

	trajJSON := `{
  "mode": "trajectory",
  "terrain": {"source": "hills", "seed": 7},
  "trajectory": {
    "waypoints": [[302000, 4008000], [308000, 4008000]],
    "altitude_agl_m": 800,
    "yaw": "auto"
  }
}`
	if err := os.WriteFile(path, []byte(trajJSON), 0644); err != nil {
		t.Fatalf("Failed to write test scenario: %v", err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load trajectory scenario: %v", err)
	}

	if sc.GetMode() != ModeTrajectory {
		t.Errorf("mode = %q, want trajectory", sc.GetMode())
	}
	if sc.GetHillsSeed() != 7 {
		t.Errorf("seed = %d, want 7", sc.GetHillsSeed())
	}
	if sc.GetAltitudeAGLM() != 800 {
		t.Errorf("AGL = %g, want 800", sc.GetAltitudeAGLM())
	}
	if got := len(sc.Trajectory.Waypoints); got != 2 {
		t.Errorf("waypoints = %d, want 2", got)
	}
	_, _, yaw := sc.GetTrajectoryAttitude()
	if !yaw.Auto {
		t.Errorf("yaw = %+v, want auto", yaw)
	}
}

func TestYawJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    Yaw
		wantErr bool
	}{
		{name: "auto", json: `"auto"`, want: Yaw{Auto: true}},
		{name: "number", json: `90`, want: Yaw{Deg: 90}},
		{name: "negative number", json: `-45.5`, want: Yaw{Deg: -45.5}},
		{name: "other string", json: `"north"`, wantErr: true},
		{name: "object", json: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var y Yaw
			err := y.UnmarshalJSON([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON(%s) error = %v, wantErr %v", tt.json, err, tt.wantErr)
			}
			if !tt.wantErr && y != tt.want {
				t.Errorf("UnmarshalJSON(%s) = %+v, want %+v", tt.json, y, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sc      *Scenario
		wantErr bool
	}{
		{
			name:    "empty scenario is valid",
			sc:      &Scenario{},
			wantErr: false,
		},
		{
			name:    "example scenario is valid",
			sc:      ExampleScenario(),
			wantErr: false,
		},
		{
			name:    "unknown mode",
			sc:      &Scenario{Mode: ptrString("orbit")},
			wantErr: true,
		},
		{
			name:    "unknown terrain source",
			sc:      &Scenario{Terrain: &TerrainConfig{Source: ptrString("mars")}},
			wantErr: true,
		},
		{
			name:    "file terrain without path",
			sc:      &Scenario{Terrain: &TerrainConfig{Source: ptrString(TerrainFile)}},
			wantErr: true,
		},
		{
			name:    "negative focal length",
			sc:      &Scenario{Camera: &CameraConfig{FocalLengthPx: ptrFloat64(-1)}},
			wantErr: true,
		},
		{
			name:    "trajectory mode without trajectory section",
			sc:      &Scenario{Mode: ptrString(ModeTrajectory)},
			wantErr: true,
		},
		{
			name: "trajectory with one waypoint",
			sc: &Scenario{
				Mode:       ptrString(ModeTrajectory),
				Trajectory: &TrajectoryConfig{Waypoints: [][2]float64{{0, 0}}},
			},
			wantErr: true,
		},
		{
			name: "trajectory with zero interval",
			sc: &Scenario{
				Mode: ptrString(ModeTrajectory),
				Trajectory: &TrajectoryConfig{
					Waypoints:      [][2]float64{{0, 0}, {1000, 0}},
					PhotoIntervalM: ptrFloat64(0),
				},
			},
			wantErr: true,
		},
		{
			name:    "unknown reference mode",
			sc:      &Scenario{Reference: &ReferenceConfig{Mode: ptrString("geoid")}},
			wantErr: true,
		},
		{
			name:    "zero max per pose",
			sc:      &Scenario{Detections: &DetectionsConfig{MaxPerPose: ptrInt(0)}},
			wantErr: true,
		},
		{
			name:    "unknown association",
			sc:      &Scenario{Detections: &DetectionsConfig{Association: ptrString("zip")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAccumulates(t *testing.T) {
	sc := &Scenario{
		Mode:    ptrString("orbit"),
		Terrain: &TerrainConfig{Source: ptrString("mars")},
	}
	err := sc.Validate()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	for _, want := range []string{"mode", "terrain.source"} {
		if !containsStr(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func containsStr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "roundtrip.json")

	orig := ExampleScenario()
	if err := orig.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.GetName() != orig.GetName() {
		t.Errorf("name = %q, want %q", loaded.GetName(), orig.GetName())
	}
	if loaded.GetMode() != ModeTrajectory {
		t.Errorf("mode = %q, want trajectory", loaded.GetMode())
	}
	if got, want := len(loaded.Trajectory.Waypoints), len(orig.Trajectory.Waypoints); got != want {
		t.Errorf("waypoints = %d, want %d", got, want)
	}
	_, _, yaw := loaded.GetTrajectoryAttitude()
	if !yaw.Auto {
		t.Errorf("yaw lost auto flag through round trip: %+v", yaw)
	}
	if loaded.GetHillsSeed() != 42 {
		t.Errorf("seed = %d, want 42", loaded.GetHillsSeed())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/path/to/scenario.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	_, err := Load("/some/path/scenario.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(path, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "invalid.json")

	invalidJSON := `{
  "mode": "single"
`
	if err := os.WriteFile(path, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test scenario: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}
