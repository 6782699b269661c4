package soft

import "github.com/go-gl/mathgl/mgl32"

// albedo of the fractal surface, shared with the sample shader.
var albedo = mgl32.Vec3{0.85, 0.75, 0.65}

// surface is the single material of the fractal: a diffuse lobe blended with
// a mirror reflection by roughness.
type surface struct {
	albedo     mgl32.Vec3
	roughness  float32
	cosineBias bool
}

// scatter picks the next path direction at rec and returns it with the
// throughput weight of the bounce.
func (m surface) scatter(in mgl32.Vec3, rec *hitRecord, smp *sampler) (mgl32.Vec3, mgl32.Vec3) {
	var diffuse, weight mgl32.Vec3
	if m.cosineBias {
		diffuse = cosineDirection(rec.normal, smp.uniform())
		weight = m.albedo
	} else {
		diffuse = smp.sphere()
		if diffuse.Dot(rec.normal) < 0 {
			diffuse = diffuse.Mul(-1)
		}
		weight = m.albedo.Mul(2 * diffuse.Dot(rec.normal))
	}

	reflected := reflect(in, rec.normal)
	dir := reflected.Mul(1 - m.roughness).Add(diffuse.Mul(m.roughness))
	if dir.Len() < 1e-6 || dir.Dot(rec.normal) <= 0 {
		return diffuse, weight
	}
	return dir.Normalize(), weight
}
