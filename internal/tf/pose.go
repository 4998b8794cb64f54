package tf

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// slerpDotThreshold is the quaternion dot product above which slerp falls
// back to normalized linear interpolation.
const slerpDotThreshold = 0.9995

// Pose is a rigid transform: a rotation followed by a translation.
// A Pose stored on a Sample maps points in the child frame into the parent
// frame. Rotation is expected to be a unit quaternion; other values are
// carried through unchanged.
type Pose struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// IdentityPose returns the pose that leaves every point unchanged.
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPose builds a pose from a translation and an x,y,z,w quaternion, the
// order used by geometry messages.
func NewPose(x, y, z, qx, qy, qz, qw float64) Pose {
	return Pose{
		Translation: r3.Vec{X: x, Y: y, Z: z},
		Rotation:    quat.Number{Real: qw, Imag: qx, Jmag: qy, Kmag: qz},
	}
}

// Apply transforms point p by the pose.
func (p Pose) Apply(v r3.Vec) r3.Vec {
	return r3.Add(r3.Rotation(p.Rotation).Rotate(v), p.Translation)
}

// Inverse returns the pose mapping parent-frame points back into the child
// frame.
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.Rotation)
	return Pose{
		Translation: r3.Scale(-1, r3.Rotation(inv).Rotate(p.Translation)),
		Rotation:    inv,
	}
}

// Compose returns a∘b: the pose that applies b first and then a. If b maps
// C into B and a maps B into A, the result maps C into A.
func Compose(a, b Pose) Pose {
	return Pose{
		Translation: a.Apply(b.Translation),
		Rotation:    quat.Mul(a.Rotation, b.Rotation),
	}
}

// Interpolate blends a toward b by fraction f in [0,1]. Translation is
// linear; rotation uses spherical interpolation along the shortest arc.
func Interpolate(a, b Pose, f float64) Pose {
	return Pose{
		Translation: r3.Add(r3.Scale(1-f, a.Translation), r3.Scale(f, b.Translation)),
		Rotation:    slerp(a.Rotation, b.Rotation, f),
	}
}

func slerp(a, b quat.Number, f float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}
	if dot > slerpDotThreshold {
		return normalize(quat.Add(quat.Scale(1-f, a), quat.Scale(f, b)))
	}
	theta0 := math.Acos(dot)
	theta := theta0 * f
	sinTheta0 := math.Sin(theta0)
	s0 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return quat.Add(quat.Scale(s0, a), quat.Scale(s1, b))
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return q
	}
	return quat.Scale(1/n, q)
}

// Mat4 returns the pose as a homogeneous matrix for renderer consumers.
func (p Pose) Mat4() mgl64.Mat4 {
	q := mgl64.Quat{
		W: p.Rotation.Real,
		V: mgl64.Vec3{p.Rotation.Imag, p.Rotation.Jmag, p.Rotation.Kmag},
	}
	t := mgl64.Translate3D(p.Translation.X, p.Translation.Y, p.Translation.Z)
	return t.Mul4(q.Mat4())
}

// RowMajor returns the pose as a 4x4 row-major matrix
// (m00,m01,m02,m03, m10,...), the layout used by point-cloud transforms.
func (p Pose) RowMajor() [16]float64 {
	m := p.Mat4()
	var out [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m.At(r, c)
		}
	}
	return out
}

// Equal reports whether two poses are bit-for-bit equal.
func (p Pose) Equal(o Pose) bool {
	return p.Translation == o.Translation && p.Rotation == o.Rotation
}

// ApproxEqual reports whether two poses agree within eps on every
// component. Quaternions q and -q are treated as the same rotation.
func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	d := r3.Sub(p.Translation, o.Translation)
	if math.Abs(d.X) > eps || math.Abs(d.Y) > eps || math.Abs(d.Z) > eps {
		return false
	}
	return quatApproxEqual(p.Rotation, o.Rotation, eps) ||
		quatApproxEqual(p.Rotation, quat.Scale(-1, o.Rotation), eps)
}

func quatApproxEqual(a, b quat.Number, eps float64) bool {
	return math.Abs(a.Real-b.Real) <= eps &&
		math.Abs(a.Imag-b.Imag) <= eps &&
		math.Abs(a.Jmag-b.Jmag) <= eps &&
		math.Abs(a.Kmag-b.Kmag) <= eps
}
