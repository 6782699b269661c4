package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidSize is returned for non-positive buffer dimensions.
var ErrInvalidSize = errors.New("invalid buffer size")

// AccumState tells whether the buffers hold a usable running estimate.
type AccumState int

const (
	Active AccumState = iota
	Invalidated
)

func (s AccumState) String() string {
	if s == Active {
		return "active"
	}
	return "invalidated"
}

// AccumBuffers is the ping-pong pair holding the running radiance sum.
// targets[active] is the source of the next sample pass, the other one its
// destination.
type AccumBuffers struct {
	dev     Device
	targets [2]Target
	width   int
	height  int

	sampleCount int
	active      int
	state       AccumState
}

// NewAccumBuffers allocates and clears a pair of width x height targets.
func NewAccumBuffers(dev Device, width, height int) (*AccumBuffers, error) {
	a := &AccumBuffers{dev: dev}
	if err := a.Resize(width, height); err != nil {
		return nil, err
	}
	return a, nil
}

// Resize replaces both targets with new ones of the given size and clears
// them. The new pair is allocated before the old one is released, so on
// error the buffers keep their previous size and contents.
func (a *AccumBuffers) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize to %dx%d: %w", width, height, ErrInvalidSize)
	}
	targets, err := a.dev.AllocTargets(width, height)
	if err != nil {
		return fmt.Errorf("resize to %dx%d: %w", width, height, err)
	}
	if a.targets[0] != nil {
		a.dev.ReleaseTargets(a.targets)
	}
	a.targets = targets
	a.width, a.height = width, height
	a.state = Invalidated
	a.Reset()
	return nil
}

// Invalidate marks the running estimate stale. The next Reset brings the
// pair back to Active.
func (a *AccumBuffers) Invalidate() { a.state = Invalidated }

// Reset zeroes both targets and the sample count. The active index is left
// alone.
func (a *AccumBuffers) Reset() {
	a.dev.Clear(a.targets[0])
	a.dev.Clear(a.targets[1])
	a.sampleCount = 0
	a.state = Active
}

// Advance records one completed sample pass.
func (a *AccumBuffers) Advance() {
	a.active = 1 - a.active
	a.sampleCount++
}

// Source is the buffer holding SampleCount accumulated samples.
func (a *AccumBuffers) Source() Target { return a.targets[a.active] }

// Destination is the buffer the next sample pass overwrites.
func (a *AccumBuffers) Destination() Target { return a.targets[1-a.active] }

func (a *AccumBuffers) SampleCount() int  { return a.sampleCount }
func (a *AccumBuffers) ActiveIndex() int  { return a.active }
func (a *AccumBuffers) State() AccumState { return a.state }
func (a *AccumBuffers) Size() (int, int)  { return a.width, a.height }

// Release frees both targets. The pair must not be used afterwards.
func (a *AccumBuffers) Release() {
	if a.targets[0] != nil {
		a.dev.ReleaseTargets(a.targets)
		a.targets = [2]Target{}
	}
}
