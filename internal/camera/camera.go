package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// degenerateRayEps guards against zero-length direction vectors after
// rotation.
const degenerateRayEps = 1e-9

// Pixel is an image coordinate. X runs right, Y runs down, both in
// pixels from the top-left corner.
type Pixel struct {
	X float64
	Y float64
}

// Intrinsics are the interior parameters of the frame camera. All
// values are in pixels. A nil PrincipalPoint means the sensor center.
type Intrinsics struct {
	FocalLengthPx  float64
	SensorWidth    float64
	SensorHeight   float64
	PrincipalPoint *Pixel
}

// Extrinsics place the camera in the world frame. Attitude is applied
// as yaw about +Z, then pitch about +Y, then roll about +X, all in
// degrees. Pitch is measured from the horizon: -90 looks straight
// down, 0 looks at the horizon. At zero yaw the view faces +X, and
// positive yaw swings it toward +Y.
type Extrinsics struct {
	Position r3.Vector
	RollDeg  float64
	PitchDeg float64
	YawDeg   float64
}

// Camera is an immutable pinhole camera ready for ray casting and
// projection. Build one with New.
type Camera struct {
	intr       Intrinsics
	pos        r3.Vector
	cx, cy     float64
	camToWorld *mat.Dense
	worldToCam mat.Matrix
}

// New validates the parameters and precomputes both rotation
// directions. Fails on non-positive focal length or sensor dimensions.
func New(intr Intrinsics, extr Extrinsics) (*Camera, error) {
	if intr.FocalLengthPx <= 0 {
		return nil, fmt.Errorf("camera: focal length %.3fpx must be positive", intr.FocalLengthPx)
	}
	if intr.SensorWidth <= 0 || intr.SensorHeight <= 0 {
		return nil, fmt.Errorf("camera: sensor %gx%gpx must be positive", intr.SensorWidth, intr.SensorHeight)
	}

	cx := intr.SensorWidth / 2
	cy := intr.SensorHeight / 2
	if intr.PrincipalPoint != nil {
		cx = intr.PrincipalPoint.X
		cy = intr.PrincipalPoint.Y
	}

	rot := eulerRotation(extr.RollDeg, extr.PitchDeg, extr.YawDeg)
	return &Camera{
		intr:       intr,
		pos:        extr.Position,
		cx:         cx,
		cy:         cy,
		camToWorld: rot,
		worldToCam: rot.T(),
	}, nil
}

// eulerRotation builds the camera-to-world rotation for the given
// attitude. The yaw-pitch-roll product is composed with a basis flip
// (Y and Z negated) that maps the image frame, whose Z axis looks out
// of the lens, onto the world frame, whose Z axis points up. Pitch is
// offset so that it reads as elevation from the horizon: at -90 only
// the flip remains and the camera looks straight down.
func eulerRotation(rollDeg, pitchDeg, yawDeg float64) *mat.Dense {
	roll := rollDeg * math.Pi / 180
	pitch := -(90 + pitchDeg) * math.Pi / 180
	yaw := yawDeg * math.Pi / 180

	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})
	nadir := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, -1, 0,
		0, 0, -1,
	})

	var zy, user, r mat.Dense
	zy.Mul(rz, ry)
	user.Mul(&zy, rx)
	r.Mul(&user, nadir)
	return &r
}

// rotate applies a 3x3 rotation to a vector.
func rotate(m mat.Matrix, v r3.Vector) r3.Vector {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Position returns the camera center in world coordinates.
func (c *Camera) Position() r3.Vector { return c.pos }

// PrincipalPoint returns the effective principal point in pixels.
func (c *Camera) PrincipalPoint() Pixel { return Pixel{X: c.cx, Y: c.cy} }

// SensorSize returns the sensor extent in pixels.
func (c *Camera) SensorSize() (width, height float64) {
	return c.intr.SensorWidth, c.intr.SensorHeight
}

// PixelRay casts the viewing ray through a pixel. The origin is the
// camera center and the direction is a world-frame unit vector. Pixels
// outside the sensor are allowed; they simply extend the image plane.
// A degenerate rotation result falls back to straight down.
func (c *Camera) PixelRay(p Pixel) (origin, dir r3.Vector) {
	// Image-frame vector to the pixel on the focal plane. Sensor Y
	// grows downward, image-frame Y grows upward.
	v := r3.Vector{X: p.X - c.cx, Y: c.cy - p.Y, Z: c.intr.FocalLengthPx}
	world := rotate(c.camToWorld, v)
	if world.Norm() < degenerateRayEps {
		return c.pos, r3.Vector{X: 0, Y: 0, Z: -1}
	}
	return c.pos, world.Normalize()
}

// WorldToCameraBatch transforms world points into the camera frame:
// translate by the camera position, then rotate by the inverse
// attitude. The whole batch goes through one matrix product. In the
// camera frame Z grows along the view direction, so Z <= 0 means
// behind the camera.
func (c *Camera) WorldToCameraBatch(points []r3.Vector) []r3.Vector {
	if len(points) == 0 {
		return nil
	}
	cols := mat.NewDense(3, len(points), nil)
	for i, p := range points {
		cols.Set(0, i, p.X-c.pos.X)
		cols.Set(1, i, p.Y-c.pos.Y)
		cols.Set(2, i, p.Z-c.pos.Z)
	}
	var out mat.Dense
	out.Mul(c.worldToCam, cols)

	res := make([]r3.Vector, len(points))
	for i := range res {
		res[i] = r3.Vector{X: out.At(0, i), Y: out.At(1, i), Z: out.At(2, i)}
	}
	return res
}

// ProjectBatch maps world points onto the sensor. The bool slice marks
// which points are visible: in front of the camera and inside the
// sensor bounds. Invisible points keep a zero Pixel.
func (c *Camera) ProjectBatch(points []r3.Vector) ([]Pixel, []bool) {
	pixels := make([]Pixel, len(points))
	visible := make([]bool, len(points))
	for i, cam := range c.WorldToCameraBatch(points) {
		if cam.Z <= 0 {
			continue
		}
		x := c.intr.FocalLengthPx*cam.X/cam.Z + c.cx
		y := c.cy - c.intr.FocalLengthPx*cam.Y/cam.Z
		if x < 0 || x >= c.intr.SensorWidth || y < 0 || y >= c.intr.SensorHeight {
			continue
		}
		pixels[i] = Pixel{X: x, Y: y}
		visible[i] = true
	}
	return pixels, visible
}

// Project maps a single world point onto the sensor.
func (c *Camera) Project(p r3.Vector) (Pixel, bool) {
	pixels, visible := c.ProjectBatch([]r3.Vector{p})
	if !visible[0] {
		return Pixel{}, false
	}
	return pixels[0], true
}
