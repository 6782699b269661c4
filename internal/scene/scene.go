package scene

import "github.com/go-gl/mathgl/mgl32"

// Default camera pose.
var (
	DefaultEye    = mgl32.Vec3{0, 0, 3}
	DefaultCenter = mgl32.Vec3{0, 0, -1}
	DefaultUp     = mgl32.Vec3{0, 1, 0}
)

// Camera is the viewpoint. Up need not be orthogonal to the view direction
// but must not be parallel to it.
type Camera struct {
	Eye    mgl32.Vec3 `json:"eye"`
	Center mgl32.Vec3 `json:"center"`
	Up     mgl32.Vec3 `json:"up"`
}

// DefaultCamera returns the startup pose.
func DefaultCamera() Camera {
	return Camera{Eye: DefaultEye, Center: DefaultCenter, Up: DefaultUp}
}

// State holds everything the sample pass reads: render parameters and the
// camera pose. It is owned by the renderer and replaced wholesale by event
// transitions.
type State struct {
	Params *Params
	Camera Camera
}

// NewState returns a state with default parameters and pose.
func NewState() *State {
	return &State{Params: DefaultParams(), Camera: DefaultCamera()}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{Params: s.Params.Clone(), Camera: s.Camera}
}
