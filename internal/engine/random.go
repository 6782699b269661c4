package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// DefaultRandSize is the side length of the random field textures.
const DefaultRandSize = 1024

// randSource is a lightweight wrapper around math/rand.Rand.
// It is not safe for concurrent use, so each goroutine must have its own instance.
type randSource struct {
	r *rand.Rand
}

var seedCounter atomic.Int64

func newRandSource() *randSource {
	seed := time.Now().UnixNano() + seedCounter.Add(1)*0x9E3779B9
	return &randSource{
		r: rand.New(rand.NewSource(seed)),
	}
}

func (rs *randSource) Float64() float64 {
	return rs.r.Float64()
}

// Float32 returns a value in [0, 1).
func (rs *randSource) Float32() float32 {
	return rs.r.Float32()
}

// RandomField is the set of lookup tables the sample program uses instead of
// generating random numbers per pixel. Each table is Size x Size texels,
// row-major, tightly packed. The field is immutable once generated.
type RandomField struct {
	Size int

	// Uniform holds two independent values in [0, 1) per texel.
	Uniform []float32
	// Circle holds one unit vector uniformly distributed on the circle per texel.
	Circle []float32
	// Sphere holds one unit vector uniformly distributed on the sphere per texel.
	Sphere []float32
}

// GenerateRandomField fills a new field of side length size. The three
// tables are generated concurrently, each from its own time-seeded source.
func GenerateRandomField(size int) (*RandomField, error) {
	if size <= 0 {
		return nil, fmt.Errorf("random field size %d: %w", size, ErrInvalidSize)
	}
	n := size * size
	f := &RandomField{
		Size:    size,
		Uniform: make([]float32, n*2),
		Circle:  make([]float32, n*2),
		Sphere:  make([]float32, n*3),
	}

	var g errgroup.Group
	g.Go(func() error {
		fillUniform(f.Uniform, newRandSource())
		return nil
	})
	g.Go(func() error {
		fillCircle(f.Circle, newRandSource())
		return nil
	})
	g.Go(func() error {
		fillSphere(f.Sphere, newRandSource())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

func fillUniform(dst []float32, rng *randSource) {
	for i := range dst {
		dst[i] = rng.Float32()
	}
}

// fillCircle draws a uniform angle; the resulting points are uniform on the
// unit circle.
func fillCircle(dst []float32, rng *randSource) {
	for i := 0; i+1 < len(dst); i += 2 {
		phi := 2 * math.Pi * rng.Float64()
		s, c := math.Sincos(phi)
		dst[i] = float32(c)
		dst[i+1] = float32(s)
	}
}

// fillSphere uses Archimedes' hat-box theorem: z uniform in [-1, 1] and an
// independent uniform azimuth give a uniform point on the sphere.
func fillSphere(dst []float32, rng *randSource) {
	for i := 0; i+2 < len(dst); i += 3 {
		z := 2*rng.Float64() - 1
		r := math.Sqrt(math.Max(0, 1-z*z))
		phi := 2 * math.Pi * rng.Float64()
		s, c := math.Sincos(phi)
		dst[i] = float32(r * c)
		dst[i+1] = float32(r * s)
		dst[i+2] = float32(z)
	}
}

// index wraps (x, y) into the field, matching REPEAT texture addressing.
func (f *RandomField) index(x, y int) int {
	x %= f.Size
	if x < 0 {
		x += f.Size
	}
	y %= f.Size
	if y < 0 {
		y += f.Size
	}
	return y*f.Size + x
}

// UniformAt returns the uniform pair at (x, y), wrapping around the edges.
func (f *RandomField) UniformAt(x, y int) mgl32.Vec2 {
	i := f.index(x, y) * 2
	return mgl32.Vec2{f.Uniform[i], f.Uniform[i+1]}
}

// CircleAt returns the unit circle direction at (x, y), wrapping around the edges.
func (f *RandomField) CircleAt(x, y int) mgl32.Vec2 {
	i := f.index(x, y) * 2
	return mgl32.Vec2{f.Circle[i], f.Circle[i+1]}
}

// SphereAt returns the unit sphere direction at (x, y), wrapping around the edges.
func (f *RandomField) SphereAt(x, y int) mgl32.Vec3 {
	i := f.index(x, y) * 3
	return mgl32.Vec3{f.Sphere[i], f.Sphere[i+1], f.Sphere[i+2]}
}
