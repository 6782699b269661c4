package engine

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/glog"

	"github.com/neillrobson/csc562-final/internal/scene"
)

// ErrNoDevice is returned by New when no device is supplied.
var ErrNoDevice = errors.New("no render device")

// Options tune a Renderer. The zero value is usable.
type Options struct {
	// RandSize is the side length of the random field (DefaultRandSize if 0).
	RandSize int
	// Events is the inbox to drain each frame. A new queue is created if nil.
	Events *EventQueue
}

// Renderer drives the progressive accumulation: once per frame one sample
// pass adds a sample into the ping-pong pair, then one display pass shows
// the average. All methods must be called from the render goroutine; other
// goroutines talk to it through Events.
type Renderer struct {
	dev    Device
	state  *scene.State
	accum  *AccumBuffers
	field  *RandomField
	rng    *randSource
	events *EventQueue

	degenerate bool
}

// New generates and uploads the random field and allocates the accumulation
// buffers at the resolution held in state.
func New(dev Device, state *scene.State, opts Options) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if state == nil {
		state = scene.NewState()
	}
	size := opts.RandSize
	if size == 0 {
		size = DefaultRandSize
	}
	events := opts.Events
	if events == nil {
		events = new(EventQueue)
	}

	field, err := GenerateRandomField(size)
	if err != nil {
		return nil, fmt.Errorf("generate random field: %w", err)
	}
	if err := dev.UploadRandomField(field); err != nil {
		return nil, fmt.Errorf("upload random field: %w", err)
	}

	res := state.Params.Int(scene.ParamResolution)
	accum, err := NewAccumBuffers(dev, res, res)
	if err != nil {
		return nil, fmt.Errorf("allocate accumulation buffers: %w", err)
	}
	glog.Infof("renderer: %dx%d accumulation buffers, %d^2 random field", res, res, size)

	return &Renderer{
		dev:    dev,
		state:  state,
		accum:  accum,
		field:  field,
		rng:    newRandSource(),
		events: events,
	}, nil
}

// Events is the inbox for collaborator input. It is safe for concurrent use.
func (r *Renderer) Events() *EventQueue { return r.events }

// State returns the current state. It is replaced by each applied event, so
// callers must not keep it across frames.
func (r *Renderer) State() *scene.State { return r.state }

// Field returns the random field shared with the device.
func (r *Renderer) Field() *RandomField { return r.field }

func (r *Renderer) SampleCount() int { return r.accum.SampleCount() }
func (r *Renderer) ActiveIndex() int { return r.accum.ActiveIndex() }
func (r *Renderer) Size() (int, int) { return r.accum.Size() }

// Accum exposes the buffer pair for inspection.
func (r *Renderer) Accum() *AccumBuffers { return r.accum }

// ResetSampler discards all accumulated samples.
func (r *Renderer) ResetSampler() {
	r.accum.Reset()
}

// Resize reallocates the accumulation buffers at width x height and clears
// them. On error the old buffers stay in place.
func (r *Renderer) Resize(width, height int) error {
	if err := r.accum.Resize(width, height); err != nil {
		return err
	}
	glog.V(1).Infof("renderer: resized to %dx%d", width, height)
	return nil
}

// Apply runs ev through Reduce immediately and acts on the resulting effect.
func (r *Renderer) Apply(ev Event) error {
	return r.apply([]Event{ev})
}

// Tick renders one frame: pending events, one sample pass, one display pass.
// It returns an error only when a resize fails.
func (r *Renderer) Tick() error {
	if err := r.Sample(); err != nil {
		return err
	}
	r.Display()
	return nil
}

// Sample applies pending events and submits one sample pass. Any reset the
// events require happens before the pass is issued.
func (r *Renderer) Sample() error {
	if err := r.apply(r.events.Drain()); err != nil {
		return err
	}
	if r.accum.State() == Invalidated {
		r.accum.Reset()
	}

	cam := r.state.Camera
	view, ok := BuildTransform(cam.Eye, cam.Center, cam.Up)
	if !ok && !r.degenerate {
		glog.Warningf("renderer: degenerate camera basis (eye=%v center=%v up=%v), using fallback", cam.Eye, cam.Center, cam.Up)
	}
	r.degenerate = !ok

	u := r.sampleUniforms(view)
	r.dev.Sample(u, r.accum.Source(), r.accum.Destination())
	r.accum.Advance()
	return nil
}

// Display submits the display pass for the buffer written by the last
// sample pass.
func (r *Renderer) Display() {
	u := &DisplayUniforms{
		NumPings:        int32(r.accum.SampleCount()),
		GammaCorrection: boolInt(r.state.Params.Bool(scene.ParamGammaCorrection)),
	}
	r.dev.Display(u, r.accum.Source())
}

// Close releases the accumulation buffers.
func (r *Renderer) Close() {
	r.accum.Release()
}

func (r *Renderer) apply(events []Event) error {
	var eff Effect
	for _, ev := range events {
		next, e, err := Reduce(*r.state, ev)
		if err != nil {
			glog.Warningf("renderer: dropping event %+v: %v", ev, err)
			continue
		}
		*r.state = next
		eff = eff.merge(e)
	}
	if eff.Resize {
		if err := r.Resize(eff.Width, eff.Height); err != nil {
			// Keep the stored resolution in line with the buffers we still have.
			w, _ := r.accum.Size()
			if _, serr := r.state.Params.Set(scene.ParamResolution, scene.Int(w)); serr != nil {
				glog.Errorf("renderer: restore resolution: %v", serr)
			}
			// Other events in the batch may already have changed the state.
			r.accum.Invalidate()
			return fmt.Errorf("apply resize: %w", err)
		}
	}
	if eff.Reset {
		r.accum.Invalidate()
		r.accum.Reset()
	}
	return nil
}

func (r *Renderer) sampleUniforms(view mgl32.Mat4) *SampleUniforms {
	w, h := r.accum.Size()
	u := &SampleUniforms{
		ViewportWidth:   int32(w),
		ViewportHeight:  int32(h),
		Eye:             r.state.Camera.Eye,
		TargetTransform: view,
		Rand:            mgl32.Vec2{r.rng.Float32(), r.rng.Float32()},
		Ints:            make(map[string]int32),
		Floats:          make(map[string]float32),
		Colors:          make(map[string]mgl32.Vec3),
	}
	p := r.state.Params
	for _, s := range scene.Specs() {
		if s.Stage != scene.StageSample {
			continue
		}
		switch s.Kind {
		case scene.KindFloat:
			u.Floats[s.Name] = float32(p.Float(s.Name))
		case scene.KindColor:
			u.Colors[s.Name] = p.Color(s.Name)
		default:
			u.Ints[s.Name] = int32(p.Int(s.Name))
		}
	}
	return u
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
