// Package soft implements engine.Device on the CPU. Its kernel mirrors the
// sample shader: the same distance estimators, shading models and background,
// driven by the same random field.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/neillrobson/csc562-final/internal/engine"
)

// DefaultMaxPixels bounds the size of one target.
const DefaultMaxPixels = 4096 * 4096

var (
	// ErrTooLarge is returned when a target would exceed the pixel limit.
	ErrTooLarge = errors.New("target exceeds pixel limit")
	// ErrNoField is the panic value of Sample before UploadRandomField.
	ErrNoField = errors.New("random field not uploaded")
)

// Options tune a Device. The zero value is usable.
type Options struct {
	// MaxPixels caps width*height of each target (DefaultMaxPixels if 0).
	MaxPixels int
	// Workers caps the number of concurrent row bands (GOMAXPROCS if 0).
	Workers int
}

// Device is a CPU engine.Device. Display output is kept in an *image.RGBA
// available through Surface.
type Device struct {
	maxPixels int
	workers   int
	field     *engine.RandomField
	surface   *image.RGBA
}

// target holds a running RGBA sum per pixel, rows top to bottom.
type target struct {
	width  int
	height int
	pix    []float32
}

func (t *target) Size() (int, int) { return t.width, t.height }

// New returns a Device with no random field uploaded.
func New(opts Options) *Device {
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Device{maxPixels: opts.MaxPixels, workers: opts.Workers}
}

// AllocTargets creates two cleared targets.
func (d *Device) AllocTargets(width, height int) ([2]engine.Target, error) {
	if width <= 0 || height <= 0 {
		return [2]engine.Target{}, fmt.Errorf("%dx%d: %w", width, height, engine.ErrInvalidSize)
	}
	if width*height > d.maxPixels {
		return [2]engine.Target{}, fmt.Errorf("%dx%d (limit %d pixels): %w", width, height, d.maxPixels, ErrTooLarge)
	}
	var out [2]engine.Target
	for i := range out {
		t := &target{width: width, height: height, pix: make([]float32, width*height*4)}
		d.Clear(t)
		out[i] = t
	}
	return out, nil
}

// ReleaseTargets drops the pixel storage of both targets.
func (d *Device) ReleaseTargets(targets [2]engine.Target) {
	for _, t := range targets {
		if t, ok := t.(*target); ok {
			t.pix = nil
		}
	}
}

// Clear zeroes t.
func (d *Device) Clear(t engine.Target) {
	clear(t.(*target).pix)
}

// UploadRandomField keeps a reference to f; the field is immutable.
func (d *Device) UploadRandomField(f *engine.RandomField) error {
	if f == nil || f.Size <= 0 {
		return fmt.Errorf("upload random field: %w", engine.ErrInvalidSize)
	}
	d.field = f
	return nil
}

// Sample writes src plus one new radiance sample per pixel into dst. The
// alpha channel counts samples.
func (d *Device) Sample(u *engine.SampleUniforms, src, dst engine.Target) {
	s, t := src.(*target), dst.(*target)
	if d.field == nil {
		panic(ErrNoField)
	}
	k := newKernel(u)
	w, h := t.width, t.height
	fw, fh := float32(w), float32(h)
	ox := int(u.Rand[0] * float32(d.field.Size))
	oy := int(u.Rand[1] * float32(d.field.Size))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, band := range bands(h, d.workers) {
		g.Go(func() error {
			for y := band[0]; y < band[1]; y++ {
				// GL rows count from the bottom.
				fy := h - 1 - y
				for x := 0; x < w; x++ {
					smp := sampler{f: d.field, x: x + ox, y: fy + oy}
					j := smp.circle().Mul(0.5 * float32(math.Sqrt(float64(smp.uniform()[0]))))
					dir := rayDir(u.TargetTransform, float32(x)+0.5+j[0], float32(fy)+0.5+j[1], fw, fh)
					c := k.radiance(ray{orig: u.Eye, dir: dir}, &smp)
					i := (y*w + x) * 4
					t.pix[i] = s.pix[i] + c[0]
					t.pix[i+1] = s.pix[i+1] + c[1]
					t.pix[i+2] = s.pix[i+2] + c[2]
					t.pix[i+3] = s.pix[i+3] + 1
				}
			}
			return nil
		})
	}
	// Bands only write their own rows and never fail.
	g.Wait()
}

// Display normalizes src by NumPings into the surface. A zero count shows
// black.
func (d *Device) Display(u *engine.DisplayUniforms, src engine.Target) {
	s := src.(*target)
	if d.surface == nil || d.surface.Rect.Dx() != s.width || d.surface.Rect.Dy() != s.height {
		d.surface = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			var c mgl32.Vec3
			if u.NumPings > 0 {
				i := (y*s.width + x) * 4
				c = mgl32.Vec3{s.pix[i], s.pix[i+1], s.pix[i+2]}.Mul(1 / float32(u.NumPings))
			}
			d.surface.SetRGBA(x, y, color.RGBA{
				R: toByte(c[0], u.GammaCorrection != 0),
				G: toByte(c[1], u.GammaCorrection != 0),
				B: toByte(c[2], u.GammaCorrection != 0),
				A: 255,
			})
		}
	}
}

// Surface returns the output of the last Display call, nil before it.
func (d *Device) Surface() *image.RGBA { return d.surface }

// Pixel returns the running sum stored at (x, y) of t.
func (d *Device) Pixel(t engine.Target, x, y int) mgl32.Vec4 {
	tg := t.(*target)
	i := (y*tg.width + x) * 4
	return mgl32.Vec4{tg.pix[i], tg.pix[i+1], tg.pix[i+2], tg.pix[i+3]}
}

func toByte(v float32, gamma bool) uint8 {
	if v <= 0 {
		return 0
	}
	f := float64(v)
	if gamma {
		f = math.Pow(f, 1/2.2)
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}

// bands splits [0, n) into at most k contiguous ranges.
func bands(n, k int) [][2]int {
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	out := make([][2]int, 0, k)
	step := (n + k - 1) / k
	for lo := 0; lo < n; lo += step {
		out = append(out, [2]int{lo, min(lo+step, n)})
	}
	return out
}
