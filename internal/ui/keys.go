package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/neillrobson/csc562-final/internal/engine"
)

// cameraKey maps a fyne key to a camera control key.
func cameraKey(name fyne.KeyName) engine.Key {
	switch name {
	case fyne.KeyW:
		return engine.KeyForward
	case fyne.KeyS:
		return engine.KeyBack
	case fyne.KeyA:
		return engine.KeyLeft
	case fyne.KeyD:
		return engine.KeyRight
	case fyne.KeyQ:
		return engine.KeyRise
	case fyne.KeyE:
		return engine.KeySink
	case fyne.KeyEscape:
		return engine.KeyReset
	}
	return engine.KeyNone
}

func isShift(name fyne.KeyName) bool {
	return name == desktop.KeyShiftLeft || name == desktop.KeyShiftRight
}
