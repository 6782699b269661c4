// Package gpu implements engine.Device on OpenGL 3.3 core through GLFW.
//
// Every method, New included, must be called from the same goroutine, and that
// goroutine must be locked to its OS thread.
package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/scene"
)

var (
	//go:embed shaders/vertex.glsl
	vertexSrc string
	//go:embed shaders/sample.frag
	sampleSrc string
	//go:embed shaders/display.frag
	displaySrc string
)

var (
	// ErrOutOfMemory is returned when the driver reports GL_OUT_OF_MEMORY.
	ErrOutOfMemory = errors.New("gpu out of memory")
	// ErrIncomplete is returned when a framebuffer fails its completeness check.
	ErrIncomplete = errors.New("framebuffer incomplete")
	// ErrTooLarge is returned for sizes above GL_MAX_TEXTURE_SIZE.
	ErrTooLarge = errors.New("size exceeds max texture size")
)

// Texture units used by the sample program.
const (
	unitRand2Uniform = iota
	unitRand2Normal
	unitRand3Normal
	unitSource
)

// Options configure the window backing a Device.
type Options struct {
	Width  int
	Height int
	Title  string
	// Hidden creates an invisible window for headless rendering.
	Hidden bool
	// SharedGLFW is set when another component (the fyne driver) owns the
	// GLFW library; Close then leaves it initialized.
	SharedGLFW bool
}

// Device owns a GLFW window, its GL context and the two render programs.
type Device struct {
	window  *glfw.Window
	shared  bool
	sample  *program
	display *program
	vao     uint32
	vbo     uint32
	randTex [3]uint32
	maxTex  int
}

// target is one RGBA32F texture attached to its own framebuffer.
type target struct {
	tex    uint32
	fbo    uint32
	width  int
	height int
}

func (t *target) Size() (int, int) { return t.width, t.height }

func (t *target) release() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.tex != 0 {
		gl.DeleteTextures(1, &t.tex)
		t.tex = 0
	}
}

// New creates the window and context, compiles both programs and sets up the
// full-screen quad.
func New(opts Options) (*Device, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("window %dx%d: %w", opts.Width, opts.Height, engine.ErrInvalidSize)
	}
	if opts.Title == "" {
		opts.Title = "fractal"
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if opts.Hidden {
		glfw.WindowHint(glfw.Visible, glfw.False)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.True)
	}

	w, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		if !opts.SharedGLFW {
			glfw.Terminate()
		}
		return nil, fmt.Errorf("glfw create window: %w", err)
	}
	d := &Device{window: w, shared: opts.SharedGLFW}
	w.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		d.Close()
		return nil, fmt.Errorf("gl init: %w", err)
	}
	glfw.SwapInterval(1)
	glog.Infof("gpu: OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	var maxTex int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	d.maxTex = int(maxTex)

	if d.sample, err = newProgram("sample", vertexSrc, sampleSrc); err != nil {
		d.Close()
		return nil, err
	}
	if d.display, err = newProgram("display", vertexSrc, displaySrc); err != nil {
		d.Close()
		return nil, err
	}
	d.initQuad()
	gl.Disable(gl.DEPTH_TEST)
	return d, nil
}

func (d *Device) initQuad() {
	quad := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 0, 0)
	gl.BindVertexArray(0)
}

// AllocTargets creates two zeroed RGBA32F framebuffers. If the second
// allocation fails the first is released before returning.
func (d *Device) AllocTargets(width, height int) ([2]engine.Target, error) {
	if width > d.maxTex || height > d.maxTex {
		return [2]engine.Target{}, fmt.Errorf("%dx%d (max %d): %w", width, height, d.maxTex, ErrTooLarge)
	}
	a, err := newTarget(width, height)
	if err != nil {
		return [2]engine.Target{}, err
	}
	b, err := newTarget(width, height)
	if err != nil {
		a.release()
		return [2]engine.Target{}, err
	}
	d.Clear(a)
	d.Clear(b)
	return [2]engine.Target{a, b}, nil
}

func newTarget(width, height int) (*target, error) {
	drainErrors()
	t := &target{width: width, height: height}

	gl.GenTextures(1, &t.tex)
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if e := gl.GetError(); e != gl.NO_ERROR {
		t.release()
		if e == gl.OUT_OF_MEMORY {
			return nil, fmt.Errorf("allocate %dx%d RGBA32F texture: %w", width, height, ErrOutOfMemory)
		}
		return nil, fmt.Errorf("allocate %dx%d RGBA32F texture: gl error 0x%x", width, height, e)
	}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.release()
		return nil, fmt.Errorf("%dx%d float framebuffer (status 0x%x): %w", width, height, status, ErrIncomplete)
	}
	return t, nil
}

// ReleaseTargets deletes both framebuffers and their textures.
func (d *Device) ReleaseTargets(targets [2]engine.Target) {
	for _, t := range targets {
		if t, ok := t.(*target); ok {
			t.release()
		}
	}
}

// Clear zeroes the color of t.
func (d *Device) Clear(t engine.Target) {
	tg := t.(*target)
	gl.BindFramebuffer(gl.FRAMEBUFFER, tg.fbo)
	gl.Viewport(0, 0, int32(tg.width), int32(tg.height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// UploadRandomField stores the three tables as float textures with REPEAT
// wrapping and nearest filtering. A previous upload is replaced.
func (d *Device) UploadRandomField(f *engine.RandomField) error {
	if f == nil || f.Size <= 0 {
		return fmt.Errorf("upload random field: %w", engine.ErrInvalidSize)
	}
	if d.randTex[0] != 0 {
		gl.DeleteTextures(int32(len(d.randTex)), &d.randTex[0])
	}
	drainErrors()
	gl.GenTextures(int32(len(d.randTex)), &d.randTex[0])
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	tables := []struct {
		internal int32
		format   uint32
		data     []float32
	}{
		{gl.RG32F, gl.RG, f.Uniform},
		{gl.RG32F, gl.RG, f.Circle},
		{gl.RGB32F, gl.RGB, f.Sphere},
	}
	for i, tb := range tables {
		gl.BindTexture(gl.TEXTURE_2D, d.randTex[i])
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
		gl.TexImage2D(gl.TEXTURE_2D, 0, tb.internal, int32(f.Size), int32(f.Size), 0, tb.format, gl.FLOAT, gl.Ptr(tb.data))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(int32(len(d.randTex)), &d.randTex[0])
		d.randTex = [3]uint32{}
		if e == gl.OUT_OF_MEMORY {
			return fmt.Errorf("upload random field %d^2: %w", f.Size, ErrOutOfMemory)
		}
		return fmt.Errorf("upload random field %d^2: gl error 0x%x", f.Size, e)
	}
	return nil
}

// Sample renders src plus one new sample into dst.
func (d *Device) Sample(u *engine.SampleUniforms, src, dst engine.Target) {
	s, t := src.(*target), dst.(*target)
	p := d.sample

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	gl.UseProgram(p.id)

	gl.Uniform1f(p.loc("viewportWidth"), float32(u.ViewportWidth))
	gl.Uniform1f(p.loc("viewportHeight"), float32(u.ViewportHeight))
	gl.Uniform3fv(p.loc("eye"), 1, &u.Eye[0])
	gl.UniformMatrix4fv(p.loc("targetTransform"), 1, false, &u.TargetTransform[0])
	gl.Uniform2fv(p.loc("rand"), 1, &u.Rand[0])
	for name, v := range u.Ints {
		gl.Uniform1i(p.loc(name), v)
	}
	for name, v := range u.Floats {
		gl.Uniform1f(p.loc(name), v)
	}
	for name, v := range u.Colors {
		gl.Uniform3fv(p.loc(name), 1, &v[0])
	}

	bindTexture(p, "tRand2Uniform", unitRand2Uniform, d.randTex[0])
	bindTexture(p, "tRand2Normal", unitRand2Normal, d.randTex[1])
	bindTexture(p, "tRand3Normal", unitRand3Normal, d.randTex[2])
	bindTexture(p, "source", unitSource, s.tex)

	d.drawQuad()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Display draws the normalized contents of src to the window's back buffer.
func (d *Device) Display(u *engine.DisplayUniforms, src engine.Target) {
	s := src.(*target)
	p := d.display
	fw, fh := d.window.GetFramebufferSize()

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(fw), int32(fh))
	gl.UseProgram(p.id)
	gl.Uniform1f(p.loc("viewportWidth"), float32(fw))
	gl.Uniform1f(p.loc("viewportHeight"), float32(fh))
	gl.Uniform1i(p.loc("numPings"), u.NumPings)
	gl.Uniform1i(p.loc("gammaCorrection"), u.GammaCorrection)
	bindTexture(p, "source", 0, s.tex)

	d.drawQuad()
}

func (d *Device) drawQuad() {
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
}

func bindTexture(p *program, name string, unit int, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(p.loc(name), int32(unit))
}

// Forward pushes window input into q: camera keys as CameraKey events and
// framebuffer size changes as a resolution change.
func (d *Device) Forward(q *engine.EventQueue) {
	d.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		k := keyFor(key)
		if k == engine.KeyNone {
			return
		}
		q.Push(engine.CameraKey{Key: k, Shift: mods&glfw.ModShift != 0})
	})
	d.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		// Minimized windows report 0x0.
		if width <= 0 || height <= 0 {
			return
		}
		q.Push(engine.SetParam{Name: scene.ParamResolution, Value: scene.Int(min(width, height))})
	})
}

func keyFor(k glfw.Key) engine.Key {
	switch k {
	case glfw.KeyW:
		return engine.KeyForward
	case glfw.KeyS:
		return engine.KeyBack
	case glfw.KeyA:
		return engine.KeyLeft
	case glfw.KeyD:
		return engine.KeyRight
	case glfw.KeyQ:
		return engine.KeyRise
	case glfw.KeyE:
		return engine.KeySink
	case glfw.KeyEscape:
		return engine.KeyReset
	}
	return engine.KeyNone
}

// PollEvents processes pending window events. Skip it when another GLFW user
// (the fyne driver) already runs the event loop.
func (d *Device) PollEvents() { glfw.PollEvents() }

// ShouldClose reports whether the user asked to close the window.
func (d *Device) ShouldClose() bool { return d.window.ShouldClose() }

// Present swaps the back buffer to the screen.
func (d *Device) Present() { d.window.SwapBuffers() }

// Snapshot reads the back buffer. Call it after Display and before Present.
func (d *Device) Snapshot() *image.RGBA {
	w, h := d.window.GetFramebufferSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return img
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	// GL rows start at the bottom.
	stride := img.Stride
	row := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*stride : (y+1)*stride]
		bottom := img.Pix[(h-1-y)*stride : (h-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
	return img
}

// Close releases every GL object and the window.
func (d *Device) Close() {
	if d.window == nil {
		return
	}
	d.sample.delete()
	d.display.delete()
	if d.randTex[0] != 0 {
		gl.DeleteTextures(int32(len(d.randTex)), &d.randTex[0])
	}
	if d.vbo != 0 {
		gl.DeleteBuffers(1, &d.vbo)
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
	}
	d.window.Destroy()
	d.window = nil
	if !d.shared {
		glfw.Terminate()
	}
}

func drainErrors() {
	for i := 0; i < 16 && gl.GetError() != gl.NO_ERROR; i++ {
	}
}
