package ui

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/engine/gpu"
	"github.com/neillrobson/csc562-final/internal/engine/soft"
	"github.com/neillrobson/csc562-final/internal/scene"
)

const (
	windowTitle = "Mandelbulb"
	panelTitle  = "Parameters"

	// statusEvery is the number of frames between status updates.
	statusEvery = 30
	// previewInterval throttles copies of the soft surface into the preview.
	previewInterval = 33 * time.Millisecond
	// maxPreview caps the on-screen size of the soft preview.
	maxPreview = 768
)

// Options configure Run.
type Options struct {
	Backend  engine.Backend
	State    *scene.State
	RandSize int
	// Panel opens the fyne parameter panel next to the render window.
	Panel bool
}

// Run opens the interactive renderer and returns when the user closes it.
// With the GL backend and no panel the render loop runs on the calling
// goroutine, which must be locked to the main OS thread.
func Run(opts Options) error {
	if opts.State == nil {
		opts.State = scene.NewState()
	}
	glog.Infof("ui: starting backend=%s panel=%v", opts.Backend, opts.Panel)

	switch {
	case opts.Backend == engine.BackendSoft:
		return runSoft(opts)
	case opts.Panel:
		return runGLWithPanel(opts)
	default:
		return runGL(context.Background(), opts, nil, gpuOptions(opts, false), true, logStatus)
	}
}

func gpuOptions(opts Options, shared bool) gpu.Options {
	res := opts.State.Params.Int(scene.ParamResolution)
	return gpu.Options{Width: res, Height: res, Title: windowTitle, SharedGLFW: shared}
}

// runGL owns the GL device for its whole life, so it must run on one locked
// thread. poll is false when fyne already pumps GLFW events.
func runGL(ctx context.Context, opts Options, q *engine.EventQueue, gopts gpu.Options, poll bool, status func(string)) error {
	dev, err := gpu.New(gopts)
	if err != nil {
		return fmt.Errorf("open gl device: %w", err)
	}
	defer dev.Close()

	r, err := engine.New(dev, opts.State, engine.Options{RandSize: opts.RandSize, Events: q})
	if err != nil {
		return err
	}
	defer r.Close()
	dev.Forward(r.Events())

	meter := engine.NewFrameMeter(0)
	for !dev.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		if poll {
			dev.PollEvents()
		}
		if err := r.Tick(); err != nil {
			return err
		}
		dev.Present()
		meter.Tick()
		if meter.Frames()%statusEvery == 0 {
			status(statusLine(r, meter))
		}
	}
	return nil
}

func runGLWithPanel(opts Options) error {
	a := app.New()
	w := a.NewWindow(panelTitle)
	q := new(engine.EventQueue)
	panel := NewPanel(q, opts.State.Params)
	attachKeys(w.Canvas(), q)
	w.SetContent(container.NewVScroll(panel.Content()))
	w.Resize(fyne.NewSize(420, 720))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var g errgroup.Group
	done := make(chan struct{})

	// The GL window can only be created once the fyne driver has set up GLFW.
	a.Lifecycle().SetOnStarted(func() {
		g.Go(func() error {
			defer close(done)
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			err := runGL(ctx, opts, q, gpuOptions(opts, true), false, panel.SetStatus)
			if ctx.Err() == nil {
				a.Quit()
			}
			return err
		})
	})
	// GLFW is terminated after the last fyne window closes; release the GL
	// window before that.
	w.SetOnClosed(func() {
		cancel()
		<-done
	})

	w.ShowAndRun()
	cancel()
	return g.Wait()
}

func runSoft(opts Options) error {
	dev := soft.New(soft.Options{})
	q := new(engine.EventQueue)
	r, err := engine.New(dev, opts.State, engine.Options{RandSize: opts.RandSize, Events: q})
	if err != nil {
		return err
	}
	defer r.Close()

	a := app.New()
	w := a.NewWindow(windowTitle)
	res := opts.State.Params.Int(scene.ParamResolution)
	preview := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, res, res)))
	preview.FillMode = canvas.ImageFillContain
	side := float32(min(res, maxPreview))
	preview.SetMinSize(fyne.NewSize(side, side))
	attachKeys(w.Canvas(), q)

	status := logStatus
	if opts.Panel {
		panel := NewPanel(q, opts.State.Params)
		split := container.NewHSplit(container.NewVScroll(panel.Content()), container.NewStack(preview))
		split.SetOffset(0.35)
		w.SetContent(split)
		status = panel.SetStatus
	} else {
		w.SetContent(preview)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error {
		meter := engine.NewFrameMeter(0)
		var last time.Time
		for ctx.Err() == nil {
			if err := r.Tick(); err != nil {
				a.Quit()
				return err
			}
			meter.Tick()
			if time.Since(last) >= previewInterval {
				last = time.Now()
				preview.Image = cloneRGBA(dev.Surface())
				preview.Refresh()
			}
			if meter.Frames()%statusEvery == 0 {
				status(statusLine(r, meter))
			}
		}
		return nil
	})

	w.ShowAndRun()
	cancel()
	return g.Wait()
}

// attachKeys forwards camera keys typed into c. Shift state is tracked from
// key down/up events where the driver provides them.
func attachKeys(c fyne.Canvas, q *engine.EventQueue) {
	shift := false
	if dc, ok := c.(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(ev *fyne.KeyEvent) {
			if isShift(ev.Name) {
				shift = true
			}
		})
		dc.SetOnKeyUp(func(ev *fyne.KeyEvent) {
			if isShift(ev.Name) {
				shift = false
			}
		})
	}
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if k := cameraKey(ev.Name); k != engine.KeyNone {
			q.Push(engine.CameraKey{Key: k, Shift: shift})
		}
	})
}

func statusLine(r *engine.Renderer, m *engine.FrameMeter) string {
	return fmt.Sprintf("samples: %d  %.1f fps  %.2f ms", r.SampleCount(), m.FPS(), float64(m.FrameTime())/float64(time.Millisecond))
}

func logStatus(s string) { glog.V(1).Info(s) }

func cloneRGBA(src *image.RGBA) *image.RGBA {
	if src == nil {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
