package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neillrobson/csc562-final/internal/scene"
)

func newTestRenderer(t *testing.T, dev *fakeDevice) *Renderer {
	t.Helper()
	st := scene.NewState()
	if _, err := st.Params.Set(scene.ParamResolution, scene.Int(16)); err != nil {
		t.Fatal(err)
	}
	r, err := New(dev, st, Options{RandSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestNewUploadsFieldAndAllocates(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if dev.field == nil || dev.field.Size != 8 {
		t.Fatalf("random field not uploaded: %+v", dev.field)
	}
	if w, h := r.Size(); w != 16 || h != 16 {
		t.Errorf("Size = %dx%d, want 16x16", w, h)
	}
	if r.SampleCount() != 0 {
		t.Errorf("SampleCount = %d, want 0", r.SampleCount())
	}
}

func TestNewErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := New(nil, nil, Options{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("nil device: %v", err)
	}

	dev := newFakeDevice()
	dev.uploadErr = boom
	if _, err := New(dev, nil, Options{RandSize: 4}); !errors.Is(err, boom) {
		t.Errorf("upload failure: %v, want %v", err, boom)
	}

	dev = newFakeDevice()
	dev.allocErr = boom
	if _, err := New(dev, nil, Options{RandSize: 4}); !errors.Is(err, boom) {
		t.Errorf("alloc failure: %v, want %v", err, boom)
	}
}

func TestSampleAfterReset(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	r.ResetSampler()
	before := r.ActiveIndex()
	if err := r.Sample(); err != nil {
		t.Fatal(err)
	}
	if r.SampleCount() != 1 {
		t.Errorf("SampleCount = %d, want 1", r.SampleCount())
	}
	if r.ActiveIndex() == before {
		t.Errorf("ActiveIndex did not flip")
	}
}

func TestResetViewThenThreeTicks(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	r.Events().Push(ResetView{})
	before := r.ActiveIndex()
	for i := 0; i < 3; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if r.SampleCount() != 3 {
		t.Errorf("SampleCount = %d, want 3", r.SampleCount())
	}
	if r.ActiveIndex() == before {
		t.Errorf("ActiveIndex after an odd number of passes = %d, want flipped", r.ActiveIndex())
	}
}

func TestTickPingPongs(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	dev.resetCalls()
	for i := 0; i < 3; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	a, b := id(r.Accum().Source()), id(r.Accum().Destination())
	// Three frames starting from the pre-flip orientation.
	want := []call{
		{op: "sample", src: b, dst: a},
		{op: "display", src: a, pings: 1},
		{op: "sample", src: a, dst: b},
		{op: "display", src: b, pings: 2},
		{op: "sample", src: b, dst: a},
		{op: "display", src: a, pings: 3},
	}
	if diff := cmp.Diff(dev.calls, want, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("calls mismatch (-got +want)\n%s", diff)
	}
}

func TestMutationResetsBeforeNextSample(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	for i := 0; i < 4; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	r.Events().Push(SetParam{Name: scene.ParamRoughness, Value: scene.Float(0.9)})
	r.Events().Push(CameraKey{Key: KeyForward})
	dev.resetCalls()

	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(dev.ops(), []string{"clear", "clear", "sample", "display"}); diff != "" {
		t.Errorf("ops mismatch (-got +want)\n%s", diff)
	}
	if r.SampleCount() != 1 || dev.lastDisplay.NumPings != 1 {
		t.Errorf("count=%d pings=%d, want 1", r.SampleCount(), dev.lastDisplay.NumPings)
	}
	if got := dev.lastSample.Floats[scene.ParamRoughness]; got != 0.9 {
		t.Errorf("roughness uniform = %v, want 0.9", got)
	}
	if got := r.State().Camera.Eye[2]; got >= 3 {
		t.Errorf("eye z = %v, want moved forward", got)
	}
}

func TestGammaDoesNotReset(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	for i := 0; i < 2; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	r.Events().Push(SetParam{Name: scene.ParamGammaCorrection, Value: scene.Bool(false)})
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if r.SampleCount() != 3 {
		t.Errorf("SampleCount = %d, want 3", r.SampleCount())
	}
	if dev.lastDisplay.GammaCorrection != 0 {
		t.Errorf("GammaCorrection = %d, want 0", dev.lastDisplay.GammaCorrection)
	}
}

func TestResolutionEventResizes(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	r.Events().Push(SetParam{Name: scene.ParamResolution, Value: scene.Int(32)})
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if w, h := r.Size(); w != 32 || h != 32 {
		t.Errorf("Size = %dx%d, want 32x32", w, h)
	}
	if r.SampleCount() != 1 {
		t.Errorf("SampleCount = %d, want 1", r.SampleCount())
	}
	if dev.lastSample.ViewportWidth != 32 || dev.lastSample.ViewportHeight != 32 {
		t.Errorf("viewport = %dx%d, want 32x32", dev.lastSample.ViewportWidth, dev.lastSample.ViewportHeight)
	}
}

func TestResizeFailureIsReported(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("out of memory")
	dev.allocErr = boom
	r.Events().Push(SetParam{Name: scene.ParamResolution, Value: scene.Int(4096)})
	if err := r.Tick(); !errors.Is(err, boom) {
		t.Fatalf("Tick = %v, want %v", err, boom)
	}
	if w, h := r.Size(); w != 16 || h != 16 {
		t.Errorf("Size = %dx%d after failed resize, want 16x16", w, h)
	}
	if got := r.State().Params.Int(scene.ParamResolution); got != 16 {
		t.Errorf("resolution = %d after failed resize, want 16", got)
	}
}

func TestFailedResizeInvalidatesBatchedChanges(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	for i := 0; i < 3; i++ {
		if err := r.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	dev.allocErr = errors.New("oom")
	r.Events().Push(SetParam{Name: scene.ParamRoughness, Value: scene.Float(0.9)})
	r.Events().Push(SetParam{Name: scene.ParamResolution, Value: scene.Int(64)})
	if err := r.Tick(); err == nil {
		t.Fatal("Tick succeeded with a failing allocation")
	}
	if got := r.State().Params.Float(scene.ParamRoughness); got != 0.9 {
		t.Fatalf("roughness = %v, want 0.9", got)
	}
	if got := r.Accum().State(); got != Invalidated {
		t.Errorf("accumulation state = %v, want %v", got, Invalidated)
	}

	dev.allocErr = nil
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	if r.SampleCount() != 1 {
		t.Errorf("SampleCount = %d, want 1 after the stale sum is discarded", r.SampleCount())
	}
	if w, h := r.Size(); w != 16 || h != 16 {
		t.Errorf("Size = %dx%d, want 16x16", w, h)
	}
}

func TestRejectedEventIsDropped(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	r.Events().Push(SetParam{Name: "fogDensity", Value: scene.Float(1)})
	if err := r.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if r.SampleCount() != 2 {
		t.Errorf("SampleCount = %d, want 2", r.SampleCount())
	}
}

func TestInvalidatedBuffersResetBeforeSample(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Tick(); err != nil {
		t.Fatal(err)
	}
	r.Accum().Invalidate()
	dev.resetCalls()
	if err := r.Sample(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(dev.ops(), []string{"clear", "clear", "sample"}); diff != "" {
		t.Errorf("ops mismatch (-got +want)\n%s", diff)
	}
}

func TestSampleUniforms(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	if err := r.Sample(); err != nil {
		t.Fatal(err)
	}
	u := dev.lastSample
	if u.Eye != scene.DefaultEye {
		t.Errorf("Eye = %v, want %v", u.Eye, scene.DefaultEye)
	}
	for _, c := range u.Rand {
		if c < 0 || c >= 1 {
			t.Errorf("Rand = %v, want components in [0, 1)", u.Rand)
		}
	}
	wantInts := map[string]int32{
		scene.ParamZFunctionType:       0,
		scene.ParamShadingType:         0,
		scene.ParamBackgroundType:      1,
		scene.ParamZFunctionIterations: 10,
		scene.ParamRayMarchIterations:  100,
		scene.ParamBounces:             3,
		scene.ParamUseCosineBias:       1,
		scene.ParamUseDirectLighting:   0,
	}
	if diff := cmp.Diff(u.Ints, wantInts); diff != "" {
		t.Errorf("Ints mismatch (-got +want)\n%s", diff)
	}
	for _, name := range []string{scene.ParamResolution, scene.ParamGammaCorrection} {
		if _, ok := u.Ints[name]; ok {
			t.Errorf("%s passed to the sample program", name)
		}
	}
	if len(u.Floats) != 6 || len(u.Colors) != 2 {
		t.Errorf("got %d floats and %d colors, want 6 and 2", len(u.Floats), len(u.Colors))
	}
	if diff := cmp.Diff(u.Colors[scene.ParamSkyColorZenith], scene.DefaultParams().Color(scene.ParamSkyColorZenith)); diff != "" {
		t.Errorf("zenith mismatch (-got +want)\n%s", diff)
	}
}

func TestDegenerateCameraStillSamples(t *testing.T) {
	dev := newFakeDevice()
	r := newTestRenderer(t, dev)
	r.State().Camera.Center = r.State().Camera.Eye
	for i := 0; i < 2; i++ {
		if err := r.Sample(); err != nil {
			t.Fatal(err)
		}
	}
	if r.SampleCount() != 2 {
		t.Errorf("SampleCount = %d, want 2", r.SampleCount())
	}
}
