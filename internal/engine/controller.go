package engine

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/neillrobson/csc562-final/internal/scene"
)

// ViewDelta is the distance (or rotation proxy) covered by one key press.
const ViewDelta = 0.01

// Key is a camera control key, independent of the windowing toolkit.
type Key int

const (
	KeyNone    Key = iota
	KeyForward     // W
	KeyBack        // S
	KeyLeft        // A
	KeyRight       // D
	KeyRise        // Q
	KeySink        // E
	KeyReset       // Escape
)

func (k Key) String() string {
	switch k {
	case KeyForward:
		return "W"
	case KeyBack:
		return "S"
	case KeyLeft:
		return "A"
	case KeyRight:
		return "D"
	case KeyRise:
		return "Q"
	case KeySink:
		return "E"
	case KeyReset:
		return "Escape"
	}
	return "none"
}

// MoveCamera applies one key press to cam. Without shift the keys translate
// eye and center together; with shift they rotate by moving only the center
// (A/D, W/S) or tilting up (Q/E). changed is false for KeyNone.
func MoveCamera(cam scene.Camera, k Key, shift bool) (next scene.Camera, changed bool) {
	look := safeNormalize(cam.Center.Sub(cam.Eye))
	right := safeNormalize(look.Cross(cam.Up))
	next = cam

	switch k {
	case KeyLeft:
		next.Center = cam.Center.Add(right.Mul(ViewDelta))
		if !shift {
			next.Eye = cam.Eye.Add(right.Mul(ViewDelta))
		}
	case KeyRight:
		next.Center = cam.Center.Sub(right.Mul(ViewDelta))
		if !shift {
			next.Eye = cam.Eye.Sub(right.Mul(ViewDelta))
		}
	case KeyBack:
		if shift {
			next.Center = cam.Center.Add(cam.Up.Mul(ViewDelta))
			next.Up = right.Cross(next.Center.Sub(next.Eye))
		} else {
			next.Eye = cam.Eye.Sub(look.Mul(ViewDelta))
			next.Center = cam.Center.Sub(look.Mul(ViewDelta))
		}
	case KeyForward:
		if shift {
			next.Center = cam.Center.Sub(cam.Up.Mul(ViewDelta))
			next.Up = right.Cross(next.Center.Sub(next.Eye))
		} else {
			next.Eye = cam.Eye.Add(look.Mul(ViewDelta))
			next.Center = cam.Center.Add(look.Mul(ViewDelta))
		}
	case KeyRise:
		if shift {
			next.Up = safeNormalize(cam.Up.Sub(right.Mul(ViewDelta)))
		} else {
			next.Eye = cam.Eye.Add(cam.Up.Mul(ViewDelta))
			next.Center = cam.Center.Add(cam.Up.Mul(ViewDelta))
		}
	case KeySink:
		if shift {
			next.Up = safeNormalize(cam.Up.Add(right.Mul(ViewDelta)))
		} else {
			next.Eye = cam.Eye.Sub(cam.Up.Mul(ViewDelta))
			next.Center = cam.Center.Sub(cam.Up.Mul(ViewDelta))
		}
	case KeyReset:
		next = scene.DefaultCamera()
	default:
		return cam, false
	}
	if next.Up.Len() < degenerateEpsilon {
		// Keep the previous up rather than storing a zero vector.
		next.Up = cam.Up
	}
	return next, true
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < degenerateEpsilon {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}
