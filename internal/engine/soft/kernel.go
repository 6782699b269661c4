package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/scene"
)

// focal is the distance of the image plane in camera space; the shorter
// image side spans [-1, 1].
const focal = 2

// kernel is the CPU rendition of the sample program for one pass.
type kernel struct {
	de         distanceFunc
	iterations int
	marchSteps int
	bounces    int
	global     bool
	direct     bool
	mat        surface
	sky        sky
}

func newKernel(u *engine.SampleUniforms) *kernel {
	k := &kernel{
		de:         mandelbulbPolynomial,
		iterations: int(u.Ints[scene.ParamZFunctionIterations]),
		marchSteps: int(u.Ints[scene.ParamRayMarchIterations]),
		bounces:    int(u.Ints[scene.ParamBounces]),
		global:     u.Ints[scene.ParamShadingType] != 0,
		direct:     u.Ints[scene.ParamUseDirectLighting] != 0,
		mat: surface{
			albedo:     albedo,
			roughness:  u.Floats[scene.ParamRoughness],
			cosineBias: u.Ints[scene.ParamUseCosineBias] != 0,
		},
		sky: newSky(u),
	}
	if u.Ints[scene.ParamZFunctionType] != 0 {
		k.de = mandelbulbTrig
	}
	return k
}

func (k *kernel) radiance(r ray, smp *sampler) mgl32.Vec3 {
	if k.global {
		return k.pathTrace(r, smp)
	}
	return k.blinnPhong(r)
}

func (k *kernel) blinnPhong(r ray) mgl32.Vec3 {
	var rec hitRecord
	if !k.march(r, &rec) {
		return k.sky.at(r.dir, true)
	}
	l := k.sky.light
	h := l.Sub(r.dir).Normalize()
	vis := k.shadow(&rec, l)
	rough := k.mat.roughness
	shininess := 128 + (4-128)*float64(rough)
	diff := max(rec.normal.Dot(l), 0)
	spec := float32(math.Pow(float64(max(rec.normal.Dot(h), 0)), shininess))
	ambient := k.sky.at(rec.normal, false).Mul(0.1)

	c := mul3(k.mat.albedo, ambient.Add(splat(vis*diff*k.sky.sun)))
	return c.Add(splat(vis * spec * k.sky.sun * (1 - rough)))
}

func (k *kernel) pathTrace(r ray, smp *sampler) mgl32.Vec3 {
	var radiance mgl32.Vec3
	throughput := mgl32.Vec3{1, 1, 1}
	for b := 0; b < k.bounces; b++ {
		var rec hitRecord
		if !k.march(r, &rec) {
			return radiance.Add(mul3(throughput, k.sky.at(r.dir, !k.direct || b == 0)))
		}
		if k.direct {
			l := k.sky.light.Add(smp.sphere().Mul(k.sky.radius)).Normalize()
			if diff := rec.normal.Dot(l); diff > 0 {
				e := mul3(throughput, k.mat.albedo).Mul(diff * k.sky.sun * k.shadow(&rec, l))
				radiance = radiance.Add(e)
			}
		}
		dir, weight := k.mat.scatter(r.dir, &rec, smp)
		throughput = mul3(throughput, weight)
		r = ray{orig: rec.p.Add(rec.normal.Mul(4 * hitEpsilon)), dir: dir}
	}
	return radiance
}

// shadow is 1 when l is unobstructed from rec, 0 otherwise.
func (k *kernel) shadow(rec *hitRecord, l mgl32.Vec3) float32 {
	var tmp hitRecord
	if k.march(ray{orig: rec.p.Add(rec.normal.Mul(4 * hitEpsilon)), dir: l}, &tmp) {
		return 0
	}
	return 1
}

// sky is the background model shared with the sample shader: white or a
// horizon to zenith gradient, plus a sun disk around the light direction.
type sky struct {
	colored  bool
	horizon  mgl32.Vec3
	zenith   mgl32.Vec3
	exponent float64
	light    mgl32.Vec3
	radius   float32
	cosSun   float32
	sun      float32
}

func newSky(u *engine.SampleUniforms) sky {
	theta := float64(u.Floats[scene.ParamLightTheta])
	phi := float64(u.Floats[scene.ParamLightPhi])
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)

	s := sky{
		colored: u.Ints[scene.ParamBackgroundType] != 0,
		horizon: u.Colors[scene.ParamSkyColorHorizon],
		zenith:  u.Colors[scene.ParamSkyColorZenith],
		light:   mgl32.Vec3{float32(st * cp), float32(ct), float32(st * sp)},
		radius:  u.Floats[scene.ParamLightRadius],
		sun:     u.Floats[scene.ParamLightIntensity],
		cosSun:  2, // no sun disk
	}
	if t := float64(u.Floats[scene.ParamSkyTurbidity]); t > 0 {
		s.exponent = 1 / t
	} else {
		s.exponent = 1
	}
	if s.radius > 0 {
		s.cosSun = float32(math.Cos(float64(s.radius)))
	}
	return s
}

// at returns the background radiance seen along the unit direction dir.
func (s *sky) at(dir mgl32.Vec3, withSun bool) mgl32.Vec3 {
	c := mgl32.Vec3{1, 1, 1}
	if s.colored {
		h := math.Max(0, math.Min(1, float64(dir[1])))
		t := float32(math.Pow(h, s.exponent))
		c = s.horizon.Mul(1 - t).Add(s.zenith.Mul(t))
	}
	if withSun && dir.Dot(s.light) >= s.cosSun {
		c = c.Add(splat(s.sun))
	}
	return c
}

// rayDir maps the continuous pixel position (px, py), with py measured from
// the bottom row, to a world-space direction.
func rayDir(m mgl32.Mat4, px, py, width, height float32) mgl32.Vec3 {
	half := 0.5 * min(width, height)
	cam := mgl32.Vec4{(px - 0.5*width) / half, (py - 0.5*height) / half, -focal, 0}
	return m.Mul4x1(cam).Vec3().Normalize()
}

func mul3(a, b mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]} }
func splat(v float32) mgl32.Vec3      { return mgl32.Vec3{v, v, v} }
