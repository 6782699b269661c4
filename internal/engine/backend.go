package engine

import "fmt"

// Backend defines where the sample and display passes are executed.
type Backend int

const (
	// BackendGL runs both programs on the GPU through OpenGL 3.3 core.
	BackendGL Backend = iota
	// BackendSoft ray-marches the fractal on the CPU with the same shading
	// models and background as the sample program.
	BackendSoft
)

func (b Backend) String() string {
	switch b {
	case BackendGL:
		return "gl"
	case BackendSoft:
		return "soft"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend maps a flag value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "gl", "gpu":
		return BackendGL, nil
	case "soft", "cpu":
		return BackendSoft, nil
	}
	return BackendGL, fmt.Errorf("unknown backend %q (want gl or soft)", s)
}
