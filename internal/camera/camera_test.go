package camera

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

func vecClose(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// nadirCamera looks straight down from 600m over the origin-adjacent
// test scene: f=1000px, 1000x1000 sensor.
func nadirCamera(t *testing.T) *Camera {
	t.Helper()
	c, err := New(
		Intrinsics{FocalLengthPx: 1000, SensorWidth: 1000, SensorHeight: 1000},
		Extrinsics{Position: r3.Vector{X: 500, Y: 500, Z: 600}, PitchDeg: -90},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		intr Intrinsics
	}{
		{"zero focal", Intrinsics{FocalLengthPx: 0, SensorWidth: 100, SensorHeight: 100}},
		{"negative focal", Intrinsics{FocalLengthPx: -10, SensorWidth: 100, SensorHeight: 100}},
		{"zero width", Intrinsics{FocalLengthPx: 10, SensorWidth: 0, SensorHeight: 100}},
		{"negative height", Intrinsics{FocalLengthPx: 10, SensorWidth: 100, SensorHeight: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.intr, Extrinsics{}); err == nil {
				t.Errorf("New(%s) succeeded, want error", tt.name)
			}
		})
	}
}

func TestPrincipalPointDefaultsToCenter(t *testing.T) {
	c := nadirCamera(t)
	if pp := c.PrincipalPoint(); pp.X != 500 || pp.Y != 500 {
		t.Errorf("PrincipalPoint() = %+v, want (500, 500)", pp)
	}

	custom, err := New(
		Intrinsics{FocalLengthPx: 1000, SensorWidth: 1000, SensorHeight: 1000, PrincipalPoint: &Pixel{X: 480, Y: 520}},
		Extrinsics{PitchDeg: -90},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if pp := custom.PrincipalPoint(); pp.X != 480 || pp.Y != 520 {
		t.Errorf("PrincipalPoint() = %+v, want (480, 520)", pp)
	}
	// The ray through the custom principal point is the optical axis.
	_, dir := custom.PixelRay(Pixel{X: 480, Y: 520})
	if !vecClose(dir, r3.Vector{Z: -1}, 1e-12) {
		t.Errorf("principal ray = %+v, want (0, 0, -1)", dir)
	}
}

func TestEulerRotationOrthonormal(t *testing.T) {
	attitudes := [][3]float64{
		{0, 0, 0},
		{0, -30, 45},
		{5, -35, 120},
		{-170, 80, -300},
	}
	for _, a := range attitudes {
		r := eulerRotation(a[0], a[1], a[2])

		var rrt mat.Dense
		rrt.Mul(r, r.T())
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(rrt.At(i, j)-want) > 1e-12 {
					t.Errorf("attitude %v: (R*R^T)[%d,%d] = %g, want %g", a, i, j, rrt.At(i, j), want)
				}
			}
		}
		if det := mat.Det(r); math.Abs(det-1) > 1e-12 {
			t.Errorf("attitude %v: det(R) = %g, want 1", a, det)
		}
	}
}

func TestPixelRayNadir(t *testing.T) {
	c := nadirCamera(t)

	origin, dir := c.PixelRay(Pixel{X: 500, Y: 500})
	if origin != c.Position() {
		t.Errorf("ray origin = %+v, want camera position", origin)
	}
	if !vecClose(dir, r3.Vector{Z: -1}, 1e-12) {
		t.Errorf("center ray = %+v, want (0, 0, -1)", dir)
	}

	// Right of center looks east, below center looks toward +Y.
	_, east := c.PixelRay(Pixel{X: 600, Y: 500})
	if east.X <= 0 || east.Y != 0 || east.Z >= 0 {
		t.Errorf("east ray = %+v, want +X, 0, -Z", east)
	}
	_, south := c.PixelRay(Pixel{X: 500, Y: 600})
	if south.Y <= 0 || south.X != 0 {
		t.Errorf("below-center ray = %+v, want +Y", south)
	}

	if n := east.Norm(); math.Abs(n-1) > 1e-12 {
		t.Errorf("direction norm = %g, want 1", n)
	}
}

func TestPixelRayOblique(t *testing.T) {
	tests := []struct {
		name       string
		pitch, yaw float64
		wantCenter r3.Vector
	}{
		{"pitch -90 looks straight down", -90, 0, r3.Vector{X: 0, Y: 0, Z: -1}},
		{"pitch -30 sits 30 below the horizon", -30, 0, r3.Vector{X: math.Sqrt(3) / 2, Y: 0, Z: -0.5}},
		{"pitch -60 steepens toward nadir", -60, 0, r3.Vector{X: 0.5, Y: 0, Z: -math.Sqrt(3) / 2}},
		{"yaw 90 swings to +Y", -30, 90, r3.Vector{X: 0, Y: math.Sqrt(3) / 2, Z: -0.5}},
		{"pitch 0 sits on the horizon", 0, 0, r3.Vector{X: 1, Y: 0, Z: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(
				Intrinsics{FocalLengthPx: 1000, SensorWidth: 1000, SensorHeight: 1000},
				Extrinsics{Position: r3.Vector{Z: 1000}, PitchDeg: tt.pitch, YawDeg: tt.yaw},
			)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, dir := c.PixelRay(Pixel{X: 500, Y: 500})
			if !vecClose(dir, tt.wantCenter, 1e-12) {
				t.Errorf("center ray = %+v, want %+v", dir, tt.wantCenter)
			}
		})
	}
}

func TestProjectRoundTrip(t *testing.T) {
	c, err := New(
		Intrinsics{FocalLengthPx: 2800, SensorWidth: 4000, SensorHeight: 3000},
		Extrinsics{
			Position: r3.Vector{X: 1000, Y: 2000, Z: 1500},
			RollDeg:  5, PitchDeg: -35, YawDeg: 120,
		},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pixels := []Pixel{
		{X: 2000, Y: 1500},
		{X: 17, Y: 23},
		{X: 3980.5, Y: 2990.25},
		{X: 333, Y: 2222},
	}
	for _, px := range pixels {
		origin, dir := c.PixelRay(px)
		point := origin.Add(dir.Mul(800))
		got, ok := c.Project(point)
		if !ok {
			t.Fatalf("Project lost pixel %+v", px)
		}
		if math.Abs(got.X-px.X) > 1e-6 || math.Abs(got.Y-px.Y) > 1e-6 {
			t.Errorf("round trip %+v -> %+v", px, got)
		}
	}
}

func TestWorldToCameraBatch(t *testing.T) {
	c := nadirCamera(t)

	// Looking straight down, camera-frame Z is depth below the lens
	// and the Y axis flips relative to world north.
	points := []r3.Vector{
		{X: 500, Y: 500, Z: 100},
		{X: 510, Y: 480, Z: 100},
		{X: 500, Y: 500, Z: 700},
	}
	want := []r3.Vector{
		{X: 0, Y: 0, Z: 500},
		{X: 10, Y: 20, Z: 500},
		{X: 0, Y: 0, Z: -100},
	}
	got := c.WorldToCameraBatch(points)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !vecClose(got[i], want[i], 1e-9) {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if res := c.WorldToCameraBatch(nil); res != nil {
		t.Errorf("empty batch = %v, want nil", res)
	}
}

func TestProjectBatchVisibility(t *testing.T) {
	c := nadirCamera(t)
	points := []r3.Vector{
		{X: 550, Y: 500, Z: 100}, // visible, east of nadir
		{X: 500, Y: 500, Z: 700}, // above the camera
		{X: 9999, Y: 500, Z: 100}, // far outside the sensor
	}
	pixels, visible := c.ProjectBatch(points)
	if !visible[0] || visible[1] || visible[2] {
		t.Fatalf("visibility = %v, want [true false false]", visible)
	}
	if math.Abs(pixels[0].X-600) > 1e-9 || math.Abs(pixels[0].Y-500) > 1e-9 {
		t.Errorf("pixel[0] = %+v, want (600, 500)", pixels[0])
	}
	// Invisible entries keep zero coordinates.
	if pixels[1] != (Pixel{}) || pixels[2] != (Pixel{}) {
		t.Errorf("invisible pixels = %+v, %+v, want zero", pixels[1], pixels[2])
	}

	if _, ok := c.Project(points[1]); ok {
		t.Error("Project above camera should fail")
	}
}

func TestGroundCoverageNadir(t *testing.T) {
	c := nadirCamera(t)
	fp, ok := c.GroundCoverage(100)
	if !ok {
		t.Fatal("GroundCoverage failed over flat ground")
	}

	want := [4]r3.Vector{
		{X: 250, Y: 250, Z: 100},     // top-left pixel
		{X: 749.5, Y: 250, Z: 100},   // top-right
		{X: 749.5, Y: 749.5, Z: 100}, // bottom-right
		{X: 250, Y: 749.5, Z: 100},   // bottom-left
	}
	for i, corner := range fp.Corners {
		if !vecClose(corner, want[i], 1e-9) {
			t.Errorf("corner %d = %+v, want %+v", i, corner, want[i])
		}
	}

	wantRadius := 249.75 * math.Sqrt2
	if math.Abs(fp.Radius-wantRadius) > 1e-9 {
		t.Errorf("radius = %g, want %g", fp.Radius, wantRadius)
	}
}

func TestGroundCoverageFailures(t *testing.T) {
	t.Run("camera below plane", func(t *testing.T) {
		c := nadirCamera(t)
		if _, ok := c.GroundCoverage(600); ok {
			t.Error("coverage at camera altitude should fail")
		}
		if _, ok := c.GroundCoverage(700); ok {
			t.Error("coverage above camera should fail")
		}
	})

	t.Run("corner rays miss the plane", func(t *testing.T) {
		// At pitch 0 the optical axis is horizontal, so half the
		// corner rays point skyward.
		c, err := New(
			Intrinsics{FocalLengthPx: 1000, SensorWidth: 1000, SensorHeight: 1000},
			Extrinsics{Position: r3.Vector{Z: 600}, PitchDeg: 0},
		)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, ok := c.GroundCoverage(100); ok {
			t.Error("horizon-facing coverage should fail")
		}
	})
}
