package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neillrobson/csc562-final/internal/engine"
)

// Per-draw steps through the random field, in texels. They are coprime
// with any power of two size so a pixel does not revisit a texel soon.
const (
	stepUniformX, stepUniformY = 773, 419
	stepCircleX, stepCircleY   = 331, 181
	stepSphereX, stepSphereY   = 421, 743
)

// sampler walks the random field from a per-pixel starting texel, the way
// the sample shader does with its lookup coordinate.
type sampler struct {
	f    *engine.RandomField
	x, y int
}

func (s *sampler) uniform() mgl32.Vec2 {
	v := s.f.UniformAt(s.x, s.y)
	s.x, s.y = s.x+stepUniformX, s.y+stepUniformY
	return v
}

func (s *sampler) circle() mgl32.Vec2 {
	v := s.f.CircleAt(s.x, s.y)
	s.x, s.y = s.x+stepCircleX, s.y+stepCircleY
	return v
}

func (s *sampler) sphere() mgl32.Vec3 {
	v := s.f.SphereAt(s.x, s.y)
	s.x, s.y = s.x+stepSphereX, s.y+stepSphereY
	return v
}

func reflect(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// cosineDirection maps a uniform pair to a cosine-weighted direction on the
// hemisphere around normal.
func cosineDirection(normal mgl32.Vec3, u mgl32.Vec2) mgl32.Vec3 {
	phi := 2 * math.Pi * float64(u[0])
	cosTheta := float32(math.Sqrt(float64(u[1])))
	sinTheta := float32(math.Sqrt(1 - float64(u[1])))
	s, c := math.Sincos(phi)

	// Orthonormal basis around the normal.
	a := mgl32.Vec3{1, 0, 0}
	if abs32(normal[0]) > 0.9 {
		a = mgl32.Vec3{0, 1, 0}
	}
	w := normal
	v := w.Cross(a).Normalize()
	uu := v.Cross(w)

	return uu.Mul(sinTheta * float32(c)).
		Add(v.Mul(sinTheta * float32(s))).
		Add(w.Mul(cosTheta))
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
