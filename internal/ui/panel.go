package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/neillrobson/csc562-final/internal/engine"
	"github.com/neillrobson/csc562-final/internal/scene"
)

// Panel holds one widget per render parameter. Widgets only push events;
// the render loop owns the state.
type Panel struct {
	events *engine.EventQueue
	status *widget.Label
	box    *fyne.Container
}

// NewPanel builds the widgets from the parameter table, initialized from p.
func NewPanel(q *engine.EventQueue, p *scene.Params) *Panel {
	pn := &Panel{
		events: q,
		status: widget.NewLabel("samples: 0"),
	}

	form := container.NewGridWithColumns(2)
	for _, s := range scene.Specs() {
		v, _ := p.Get(s.Name)
		form.Add(widget.NewLabel(s.Name))
		form.Add(pn.widgetFor(s, v))
	}

	resetView := widget.NewButton("Reset view", func() {
		q.Push(engine.ResetView{})
	})
	help := widget.NewLabel("W/S/A/D/Q/E move, Shift+key rotates, Esc resets")
	help.Wrapping = fyne.TextWrapWord

	pn.box = container.NewVBox(form, resetView, help, pn.status)
	return pn
}

// Content returns the panel's root object.
func (pn *Panel) Content() fyne.CanvasObject { return pn.box }

// SetStatus replaces the status line.
func (pn *Panel) SetStatus(s string) { pn.status.SetText(s) }

func (pn *Panel) set(name string, v scene.Value) {
	pn.events.Push(engine.SetParam{Name: name, Value: v})
}

// widgetFor creates the control for s. The initial value is set before the
// change handler so construction pushes no events.
func (pn *Panel) widgetFor(s scene.ParamSpec, v scene.Value) fyne.CanvasObject {
	switch s.Kind {
	case scene.KindEnum:
		labels := make([]string, len(s.Options))
		for i, o := range s.Options {
			labels[i] = o.Label
		}
		sel := widget.NewSelect(labels, nil)
		sel.SetSelected(optionLabel(s, v.Int()))
		sel.OnChanged = func(label string) {
			if n, ok := optionValue(s, label); ok {
				pn.set(s.Name, scene.Enum(n))
			}
		}
		return sel

	case scene.KindBool:
		chk := widget.NewCheck("", nil)
		chk.SetChecked(v.Bool())
		chk.OnChanged = func(b bool) { pn.set(s.Name, scene.Bool(b)) }
		return chk

	case scene.KindColor:
		c := v.Vec3()
		row := container.NewGridWithColumns(3)
		sliders := make([]*widget.Slider, 3)
		for i := range sliders {
			sl := widget.NewSlider(0, 1)
			sl.Step = 0.01
			sl.SetValue(float64(c[i]))
			sliders[i] = sl
			row.Add(sl)
		}
		for _, sl := range sliders {
			sl.OnChanged = func(float64) {
				pn.set(s.Name, scene.RGB(float32(sliders[0].Value), float32(sliders[1].Value), float32(sliders[2].Value)))
			}
		}
		return row

	default:
		sl := widget.NewSlider(s.Min, s.Max)
		sl.Step = sliderStep(s)
		sl.SetValue(v.Float())
		val := widget.NewLabel(formatValue(s, v.Float()))
		sl.OnChanged = func(f float64) {
			val.SetText(formatValue(s, f))
			if s.Kind == scene.KindInt {
				pn.set(s.Name, scene.Int(int(f)))
			} else {
				pn.set(s.Name, scene.Float(f))
			}
		}
		return container.NewBorder(nil, nil, nil, val, sl)
	}
}

func sliderStep(s scene.ParamSpec) float64 {
	if s.Kind == scene.KindInt {
		return 1
	}
	return (s.Max - s.Min) / 100
}

func formatValue(s scene.ParamSpec, f float64) string {
	if s.Kind == scene.KindInt {
		return strconv.Itoa(int(f))
	}
	return fmt.Sprintf("%.2f", f)
}

func optionLabel(s scene.ParamSpec, n int) string {
	for _, o := range s.Options {
		if o.Value == n {
			return o.Label
		}
	}
	return ""
}

func optionValue(s scene.ParamSpec, label string) (int, bool) {
	for _, o := range s.Options {
		if o.Label == label {
			return o.Value, true
		}
	}
	return 0, false
}
