package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// degenerateEpsilon bounds the length below which a view direction or the
// cross product of up and view direction is treated as zero.
const degenerateEpsilon = 1e-6

// BuildTransform returns the matrix taking camera-space ray directions to
// world space. Camera -Z maps to the normalized view direction center-eye and
// camera +Y maps to up re-orthogonalized against it; the columns are
// right, up and back (the negated view direction).
//
// If eye and center coincide, ok is false and the identity is returned. If up
// is parallel to the view direction, ok is false and the image-plane up is
// taken from the world axis least aligned with the view direction instead.
func BuildTransform(eye, center, up mgl32.Vec3) (m mgl32.Mat4, ok bool) {
	forward := center.Sub(eye)
	fl := forward.Len()
	if fl < degenerateEpsilon || isNaN3(forward) {
		return mgl32.Ident4(), false
	}
	back := forward.Mul(-1 / fl)

	ok = true
	right := up.Cross(back)
	ul := up.Len()
	if ul < degenerateEpsilon || isNaN3(up) || right.Len() < degenerateEpsilon*ul {
		ok = false
		right = fallbackUp(back).Cross(back)
	}
	right = right.Normalize()
	camUp := back.Cross(right)

	return mgl32.Mat4FromCols(
		right.Vec4(0),
		camUp.Vec4(0),
		back.Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	), ok
}

// fallbackUp picks the world axis with the smallest component along dir.
func fallbackUp(dir mgl32.Vec3) mgl32.Vec3 {
	ax, ay, az := abs32(dir[0]), abs32(dir[1]), abs32(dir[2])
	switch {
	case ay <= ax && ay <= az:
		return mgl32.Vec3{0, 1, 0}
	case az <= ax:
		return mgl32.Vec3{0, 0, 1}
	default:
		return mgl32.Vec3{1, 0, 0}
	}
}

func abs32(x float32) float32 { return float32(math.Abs(float64(x))) }

func isNaN3(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}
