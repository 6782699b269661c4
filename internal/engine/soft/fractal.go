package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	hitEpsilon = 0.0005
	maxDist    = 10
	bailout    = 2
)

type ray struct {
	orig mgl32.Vec3
	dir  mgl32.Vec3
}

func (r ray) at(t float32) mgl32.Vec3 { return r.orig.Add(r.dir.Mul(t)) }

type hitRecord struct {
	p      mgl32.Vec3
	normal mgl32.Vec3
	t      float32
	steps  int
}

// distanceFunc estimates the distance from p to the fractal surface.
type distanceFunc func(p mgl32.Vec3, iterations int) float64

// mandelbulbPolynomial is the power 8 bulb in its polynomial form. The
// arithmetic runs in float64: the k3^7 term underflows float32 near the axis.
func mandelbulbPolynomial(p mgl32.Vec3, iterations int) float64 {
	px, py, pz := float64(p[0]), float64(p[1]), float64(p[2])
	x, y, z := px, py, pz
	m := x*x + y*y + z*z
	dz := 1.0
	for i := 0; i < iterations; i++ {
		dz = 8*math.Pow(m, 3.5)*dz + 1

		x2, y2, z2 := x*x, y*y, z*z
		x4, y4, z4 := x2*x2, y2*y2, z2*z2

		k3 := x2 + z2
		k2 := 1 / math.Sqrt(k3*k3*k3*k3*k3*k3*k3)
		k1 := x4 + y4 + z4 - 6*y2*z2 - 6*x2*y2 + 2*z2*x2
		k4 := x2 - y2 + z2

		nx := px + 64*x*y*z*(x2-z2)*k4*(x4-6*x2*z2+z4)*k1*k2
		ny := py - 16*y2*k3*k4*k4 + k1*k1
		nz := pz - 8*y*k4*(x4*x4-28*x4*x2*z2+70*x4*z4-28*x2*z2*z4+z4*z4)*k1*k2
		x, y, z = nx, ny, nz

		m = x*x + y*y + z*z
		if m > bailout*bailout {
			break
		}
	}
	return 0.25 * math.Log(m) * math.Sqrt(m) / dz
}

// mandelbulbTrig is the power 8 bulb in spherical coordinates.
func mandelbulbTrig(p mgl32.Vec3, iterations int) float64 {
	px, py, pz := float64(p[0]), float64(p[1]), float64(p[2])
	x, y, z := px, py, pz
	dr := 1.0
	r := math.Sqrt(x*x + y*y + z*z)
	for i := 0; i < iterations && r <= bailout; i++ {
		theta := math.Acos(math.Max(-1, math.Min(1, y/r))) * 8
		phi := math.Atan2(x, z) * 8
		dr = 8*math.Pow(r, 7)*dr + 1
		zr := math.Pow(r, 8)
		st, ct := math.Sincos(theta)
		sp, cp := math.Sincos(phi)
		x, y, z = zr*st*sp+px, zr*ct+py, zr*st*cp+pz
		r = math.Sqrt(x*x + y*y + z*z)
	}
	return 0.5 * math.Log(r) * r / dr
}

// march steps along r by the distance estimate until it lands within
// hitEpsilon of the surface, leaves maxDist, or runs out of steps.
func (k *kernel) march(r ray, rec *hitRecord) bool {
	var t float32
	for i := 0; i < k.marchSteps; i++ {
		p := r.at(t)
		d := float32(k.de(p, k.iterations))
		if d < hitEpsilon {
			rec.p, rec.t, rec.steps = p, t, i
			rec.normal = k.normalAt(p)
			return true
		}
		t += d
		if t > maxDist {
			break
		}
	}
	return false
}

func (k *kernel) normalAt(p mgl32.Vec3) mgl32.Vec3 {
	var n mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		var e mgl32.Vec3
		e[axis] = hitEpsilon
		n[axis] = float32(k.de(p.Add(e), k.iterations) - k.de(p.Sub(e), k.iterations))
	}
	if n.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}
