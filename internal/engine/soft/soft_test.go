package soft

import (
	"errors"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/scene"
)

var approx = cmpopts.EquateApprox(0, 1e-4)

// awayState looks from outside the bulb straight away from it, so every ray
// sees only the background.
func awayState(t *testing.T, sets map[string]scene.Value) *scene.State {
	t.Helper()
	st := scene.NewState()
	st.Camera.Center = mgl32.Vec3{0, 0, 4}
	for name, v := range sets {
		if _, err := st.Params.Set(name, v); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return st
}

func newRenderer(t *testing.T, dev *Device, st *scene.State) *engine.Renderer {
	t.Helper()
	r, err := engine.New(dev, st, engine.Options{RandSize: 16})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestWhiteBackgroundAccumulates(t *testing.T) {
	dev := New(Options{Workers: 3})
	st := awayState(t, map[string]scene.Value{
		scene.ParamResolution:     scene.Int(16),
		scene.ParamBackgroundType: scene.Enum(0),
		scene.ParamLightIntensity: scene.Float(0),
	})
	r := newRenderer(t, dev, st)
	for i := 0; i < 5; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	src := r.Accum().Source()
	for _, p := range [][2]int{{0, 0}, {7, 9}, {15, 15}} {
		got := dev.Pixel(src, p[0], p[1])
		if diff := cmp.Diff(got, mgl32.Vec4{5, 5, 5, 5}, approx); diff != "" {
			t.Errorf("pixel %v mismatch (-got +want)\n%s", p, diff)
		}
	}
	img := dev.Surface()
	if img == nil || img.Bounds().Dx() != 16 {
		t.Fatalf("surface = %v", img)
	}
	if got := img.RGBAAt(3, 3); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("displayed pixel = %v, want white", got)
	}
}

func TestGradientBackground(t *testing.T) {
	dev := New(Options{})
	st := awayState(t, map[string]scene.Value{
		scene.ParamResolution:      scene.Int(16),
		scene.ParamBackgroundType:  scene.Enum(1),
		scene.ParamLightIntensity:  scene.Float(0),
		scene.ParamSkyColorHorizon: scene.RGB(0.5, 0.25, 0),
		scene.ParamSkyColorZenith:  scene.RGB(0.5, 0.25, 0),
		scene.ParamGammaCorrection: scene.Bool(false),
	})
	r := newRenderer(t, dev, st)
	for i := 0; i < 2; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	got := dev.Pixel(r.Accum().Source(), 8, 8)
	if diff := cmp.Diff(got, mgl32.Vec4{1, 0.5, 0, 2}, approx); diff != "" {
		t.Errorf("pixel mismatch (-got +want)\n%s", diff)
	}
	if c := dev.Surface().RGBAAt(8, 8); c.R != 128 || c.G != 64 || c.B != 0 {
		t.Errorf("displayed pixel = %v, want (128, 64, 0)", c)
	}
}

func TestFractalIsHit(t *testing.T) {
	dev := New(Options{})
	st := scene.NewState()
	for name, v := range map[string]scene.Value{
		scene.ParamResolution:         scene.Int(16),
		scene.ParamZFunctionType:      scene.Enum(1),
		scene.ParamBackgroundType:     scene.Enum(0),
		scene.ParamLightIntensity:     scene.Float(0),
		scene.ParamRayMarchIterations: scene.Int(128),
	} {
		if _, err := st.Params.Set(name, v); err != nil {
			t.Fatal(err)
		}
	}
	r := newRenderer(t, dev, st)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	center := dev.Pixel(r.Accum().Source(), 8, 8)
	// Unlit surface reflects only a tenth of the white ambient.
	if center[0] > 0.5 {
		t.Errorf("center pixel = %v, want the dark surface", center)
	}
	corner := dev.Pixel(r.Accum().Source(), 0, 0)
	if diff := cmp.Diff(corner, mgl32.Vec4{1, 1, 1, 1}, approx); diff != "" {
		t.Errorf("corner pixel mismatch (-got +want)\n%s", diff)
	}
}

func TestDisplayZeroPingsIsBlack(t *testing.T) {
	dev := New(Options{})
	ts, err := dev.AllocTargets(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	dev.Display(&engine.DisplayUniforms{NumPings: 0, GammaCorrection: 1}, ts[0])
	if c := dev.Surface().RGBAAt(1, 1); c != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel = %v, want opaque black", c)
	}
}

func TestAllocTargetsLimits(t *testing.T) {
	dev := New(Options{MaxPixels: 100})
	if _, err := dev.AllocTargets(11, 10); !errors.Is(err, ErrTooLarge) {
		t.Errorf("11x10: %v, want ErrTooLarge", err)
	}
	if _, err := dev.AllocTargets(0, 10); !errors.Is(err, engine.ErrInvalidSize) {
		t.Errorf("0x10: %v, want ErrInvalidSize", err)
	}
	ts, err := dev.AllocTargets(10, 10)
	if err != nil {
		t.Fatalf("10x10: %v", err)
	}
	if w, h := ts[1].Size(); w != 10 || h != 10 {
		t.Errorf("Size = %dx%d", w, h)
	}
}

func TestSampleWithoutFieldPanics(t *testing.T) {
	dev := New(Options{})
	ts, err := dev.AllocTargets(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if r := recover(); r != ErrNoField {
			t.Errorf("recovered %v, want ErrNoField", r)
		}
	}()
	dev.Sample(&engine.SampleUniforms{TargetTransform: mgl32.Ident4()}, ts[0], ts[1])
}

func TestRayDir(t *testing.T) {
	got := rayDir(mgl32.Ident4(), 8, 8, 16, 16)
	if diff := cmp.Diff(got, mgl32.Vec3{0, 0, -1}, approx); diff != "" {
		t.Errorf("center ray mismatch (-got +want)\n%s", diff)
	}
	right := rayDir(mgl32.Ident4(), 16, 8, 16, 16)
	if right[0] <= 0 {
		t.Errorf("right edge ray = %v, want +x", right)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		n, k int
		want [][2]int
	}{
		{10, 3, [][2]int{{0, 4}, {4, 8}, {8, 10}}},
		{2, 8, [][2]int{{0, 1}, {1, 2}}},
		{5, 0, [][2]int{{0, 5}}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(bands(tc.n, tc.k), tc.want); diff != "" {
			t.Errorf("bands(%d, %d) mismatch (-got +want)\n%s", tc.n, tc.k, diff)
		}
	}
}

func TestCosineDirectionStaysInHemisphere(t *testing.T) {
	f, err := engine.GenerateRandomField(8)
	if err != nil {
		t.Fatal(err)
	}
	smp := sampler{f: f}
	n := mgl32.Vec3{0.6, 0.8, 0}
	for i := 0; i < 64; i++ {
		d := cosineDirection(n, smp.uniform())
		if d.Dot(n) < -1e-6 {
			t.Fatalf("direction %v below the surface", d)
		}
		if l := d.Len(); l < 1-1e-4 || l > 1+1e-4 {
			t.Fatalf("direction length = %v", l)
		}
	}
}
