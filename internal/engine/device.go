package engine

import "github.com/go-gl/mathgl/mgl32"

// Target is one off-screen floating point color buffer owned by a Device.
type Target interface {
	Size() (width, height int)
}

// Device runs the sample and display programs. Implementations must have
// compiled and linked both programs before they are handed to New.
//
// Sample and Display only submit work; they do not wait for it.
type Device interface {
	// AllocTargets creates two zeroed targets of the given size. On error
	// nothing stays allocated.
	AllocTargets(width, height int) ([2]Target, error)
	ReleaseTargets(targets [2]Target)
	Clear(t Target)

	UploadRandomField(f *RandomField) error

	// Sample writes src plus one new radiance sample into dst.
	Sample(u *SampleUniforms, src, dst Target)
	// Display writes the normalized contents of src to the visible surface.
	Display(u *DisplayUniforms, src Target)
}

// SampleUniforms is everything the sample program reads besides the random
// field textures and the source buffer. Toggles and enums are passed as
// integers.
type SampleUniforms struct {
	ViewportWidth   int32
	ViewportHeight  int32
	Eye             mgl32.Vec3
	TargetTransform mgl32.Mat4
	Rand            mgl32.Vec2

	Ints   map[string]int32
	Floats map[string]float32
	Colors map[string]mgl32.Vec3
}

// DisplayUniforms drive the display program. Viewport size is supplied by
// the device since only it knows the surface.
type DisplayUniforms struct {
	NumPings        int32
	GammaCorrection int32
}
