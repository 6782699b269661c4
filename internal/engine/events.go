package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/neillrobson/csc562-final/internal/scene"
)

// ErrUnknownEvent is returned by Reduce for event types it does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Event is an input from a collaborator (keyboard, panel, window).
type Event interface {
	isEvent()
}

// SetParam asks to change one render parameter.
type SetParam struct {
	Name  string
	Value scene.Value
}

// CameraKey is one camera control key press.
type CameraKey struct {
	Key   Key
	Shift bool
}

// ResetView restores the default camera pose.
type ResetView struct{}

func (SetParam) isEvent()  {}
func (CameraKey) isEvent() {}
func (ResetView) isEvent() {}

// Effect is what the renderer must do to its buffers after a transition.
type Effect struct {
	Reset  bool
	Resize bool
	Width  int
	Height int
}

func (e Effect) merge(o Effect) Effect {
	e.Reset = e.Reset || o.Reset
	if o.Resize {
		e.Resize, e.Width, e.Height = true, o.Width, o.Height
	}
	return e
}

// Reduce computes the state that results from ev without touching st. Rejected
// events return st unchanged together with the error.
func Reduce(st scene.State, ev Event) (scene.State, Effect, error) {
	switch ev := ev.(type) {
	case SetParam:
		next := st.Clone()
		changed, err := next.Params.Set(ev.Name, ev.Value)
		if err != nil {
			return st, Effect{}, err
		}
		if !changed {
			return st, Effect{}, nil
		}
		spec, _ := scene.Lookup(ev.Name)
		eff := Effect{Reset: spec.Invalidates}
		if spec.Resizes {
			n := next.Params.Int(ev.Name)
			eff.Resize, eff.Width, eff.Height = true, n, n
		}
		return next, eff, nil

	case CameraKey:
		cam, changed := MoveCamera(st.Camera, ev.Key, ev.Shift)
		if !changed {
			return st, Effect{}, nil
		}
		st.Camera = cam
		return st, Effect{Reset: true}, nil

	case ResetView:
		st.Camera = scene.DefaultCamera()
		return st, Effect{Reset: true}, nil
	}
	return st, Effect{}, fmt.Errorf("%T: %w", ev, ErrUnknownEvent)
}

// EventQueue collects events from any goroutine until the render loop
// drains them at the start of a frame.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends ev.
func (q *EventQueue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Drain returns the pending events in arrival order and empties the queue.
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
