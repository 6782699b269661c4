package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/golang/glog"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/engine/gpu"
	"github.com/neillrobson/csc562-final/internal/engine/soft"
	"github.com/neillrobson/csc562-final/internal/scene"
	"github.com/neillrobson/csc562-final/internal/ui"
)

// GLFW and the GL context must stay on the main thread.
func init() { runtime.LockOSThread() }

func main() {
	backendName := flag.String("backend", "gl", "render backend: gl or soft")
	headless := flag.Bool("headless", false, "render without a window and save PNG")
	frames := flag.Int("frames", 64, "samples to accumulate in headless mode")
	output := flag.String("out", "output.png", "output PNG file for headless render")
	presetPath := flag.String("preset", "", "JSON preset with camera and parameters")
	panel := flag.Bool("panel", false, "show the parameter panel")
	randSize := flag.Int("rand-size", engine.DefaultRandSize, "side length of the random field textures")
	savePreset := flag.String("save-preset", "", "write the effective preset to this file and exit")

	flag.Parse()
	defer glog.Flush()

	backend, err := engine.ParseBackend(*backendName)
	if err != nil {
		exit(err)
	}
	st, err := loadState(*presetPath)
	if err != nil {
		exit(err)
	}
	glog.Infof("flags: backend=%s headless=%v frames=%d out=%s preset=%q", backend, *headless, *frames, *output, *presetPath)

	if *savePreset != "" {
		if err := scene.Save(*savePreset, scene.PresetFrom(st)); err != nil {
			exit(err)
		}
		return
	}

	if *headless {
		if err := renderHeadless(backend, st, *frames, *randSize, *output); err != nil {
			exit(fmt.Errorf("headless render: %w", err))
		}
		return
	}

	opts := ui.Options{Backend: backend, State: st, RandSize: *randSize, Panel: *panel}
	if err := ui.Run(opts); err != nil {
		exit(fmt.Errorf("ui: %w", err))
	}
}

func exit(err error) {
	glog.Errorf("%v", err)
	glog.Flush()
	os.Exit(1)
}

// loadState builds the starting state: defaults, then the preset file if
// any, then FRACTAL_* environment overrides.
func loadState(presetPath string) (*scene.State, error) {
	st := scene.NewState()
	if presetPath != "" {
		p, err := scene.Load(presetPath)
		if err != nil {
			return nil, err
		}
		if err := p.Apply(st); err != nil {
			// Valid entries are already applied.
			glog.Warningf("preset %s: %v", presetPath, err)
		}
	}
	if err := scene.ApplyEnv(st.Params, os.LookupEnv); err != nil {
		glog.Warningf("environment: %v", err)
	}
	return st, nil
}

func renderHeadless(backend engine.Backend, st *scene.State, frames, randSize int, outPath string) error {
	if frames <= 0 {
		return errors.New("frames must be positive")
	}
	res := st.Params.Int(scene.ParamResolution)

	var (
		dev      engine.Device
		snapshot func() *image.RGBA
	)
	switch backend {
	case engine.BackendSoft:
		d := soft.New(soft.Options{})
		dev, snapshot = d, d.Surface
	default:
		d, err := gpu.New(gpu.Options{Width: res, Height: res, Hidden: true})
		if err != nil {
			return fmt.Errorf("open gl device: %w", err)
		}
		defer d.Close()
		dev, snapshot = d, d.Snapshot
	}

	r, err := engine.New(dev, st, engine.Options{RandSize: randSize})
	if err != nil {
		return err
	}
	defer r.Close()

	meter := engine.NewFrameMeter(frames)
	for i := 0; i < frames; i++ {
		if err := r.Tick(); err != nil {
			return err
		}
		meter.Tick()
	}
	glog.Infof("rendered %d samples at %dx%d, %.2f ms/frame", r.SampleCount(), res, res, float64(meter.FrameTime().Microseconds())/1000)

	if err := engine.SavePNG(outPath, snapshot()); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	glog.Infof("wrote %s", outPath)
	return nil
}
