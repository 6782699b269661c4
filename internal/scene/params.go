package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Names of the render parameters. They double as the shader uniform names.
const (
	ParamZFunctionType       = "zFunctionType"
	ParamShadingType         = "shadingType"
	ParamBackgroundType      = "backgroundType"
	ParamZFunctionIterations = "zFunctionIterations"
	ParamRayMarchIterations  = "rayMarchIterations"
	ParamBounces             = "bounces"
	ParamUseCosineBias       = "useCosineBias"
	ParamUseDirectLighting   = "useDirectLighting"
	ParamLightTheta          = "lightTheta"
	ParamLightPhi            = "lightPhi"
	ParamLightIntensity      = "lightIntensity"
	ParamLightRadius         = "lightRadius"
	ParamRoughness           = "roughness"
	ParamSkyTurbidity        = "skyTurbidity"
	ParamSkyColorHorizon     = "skyColorHorizon"
	ParamSkyColorZenith      = "skyColorZenith"
	ParamGammaCorrection     = "gammaCorrection"
	ParamResolution          = "resolution"
)

var (
	// ErrUnknownParam is returned for names missing from the parameter table.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrInvalidValue is returned when a value cannot be coerced into the
	// parameter's domain (wrong kind, NaN, enum value outside the option set).
	ErrInvalidValue = errors.New("invalid parameter value")
)

// Stage says which pass consumes a parameter.
type Stage int

const (
	StageSample Stage = iota
	StageDisplay
	StageHost
)

// Option is one member of an enum parameter.
type Option struct {
	Label string
	Value int
}

// ParamSpec declares the domain of a parameter and what mutating it implies
// for the accumulation buffers.
type ParamSpec struct {
	Name    string
	Kind    Kind
	Min     float64
	Max     float64
	Options []Option
	Default Value
	Stage   Stage

	// Invalidates is set when a change makes the running estimate stale.
	Invalidates bool
	// Resizes is set when a change requires reallocating the buffers.
	Resizes bool
}

var table = []ParamSpec{
	{Name: ParamZFunctionType, Kind: KindEnum, Options: []Option{{"Polynomial", 0}, {"Trig", 1}}, Default: Enum(0), Invalidates: true},
	{Name: ParamShadingType, Kind: KindEnum, Options: []Option{{"BlinnPhong", 0}, {"Global", 1}}, Default: Enum(0), Invalidates: true},
	{Name: ParamBackgroundType, Kind: KindEnum, Options: []Option{{"White", 0}, {"Colored", 1}}, Default: Enum(1), Invalidates: true},
	{Name: ParamZFunctionIterations, Kind: KindInt, Min: 1, Max: 16, Default: Int(10), Invalidates: true},
	{Name: ParamRayMarchIterations, Kind: KindInt, Min: 1, Max: 128, Default: Int(100), Invalidates: true},
	{Name: ParamBounces, Kind: KindInt, Min: 1, Max: 8, Default: Int(3), Invalidates: true},
	{Name: ParamUseCosineBias, Kind: KindBool, Default: Bool(true), Invalidates: true},
	{Name: ParamUseDirectLighting, Kind: KindBool, Default: Bool(false), Invalidates: true},
	{Name: ParamLightTheta, Kind: KindFloat, Min: 0, Max: math.Pi / 2, Default: Float(0.8), Invalidates: true},
	{Name: ParamLightPhi, Kind: KindFloat, Min: 0, Max: 2 * math.Pi, Default: Float(0.6), Invalidates: true},
	{Name: ParamLightIntensity, Kind: KindFloat, Min: 0, Max: 10, Default: Float(2), Invalidates: true},
	{Name: ParamLightRadius, Kind: KindFloat, Min: 0, Max: 1, Default: Float(0.1), Invalidates: true},
	{Name: ParamRoughness, Kind: KindFloat, Min: 0, Max: 1, Default: Float(0.5), Invalidates: true},
	{Name: ParamSkyTurbidity, Kind: KindFloat, Min: 1, Max: 10, Default: Float(2), Invalidates: true},
	{Name: ParamSkyColorHorizon, Kind: KindColor, Min: 0, Max: 1, Default: RGB(0.9, 0.95, 1), Invalidates: true},
	{Name: ParamSkyColorZenith, Kind: KindColor, Min: 0, Max: 1, Default: RGB(0.3, 0.5, 0.9), Invalidates: true},
	{Name: ParamGammaCorrection, Kind: KindBool, Default: Bool(true), Stage: StageDisplay},
	{Name: ParamResolution, Kind: KindInt, Min: 16, Max: 4096, Default: Int(512), Stage: StageHost, Invalidates: true, Resizes: true},
}

var tableIndex = func() map[string]int {
	m := make(map[string]int, len(table))
	for i, s := range table {
		m[s.Name] = i
	}
	return m
}()

// Specs returns the parameter table in declaration order.
func Specs() []ParamSpec {
	out := make([]ParamSpec, len(table))
	copy(out, table)
	return out
}

// Lookup returns the spec for name.
func Lookup(name string) (ParamSpec, bool) {
	i, ok := tableIndex[name]
	if !ok {
		return ParamSpec{}, false
	}
	return table[i], true
}

// Params is the mutable set of render parameters. Every stored value has
// passed validation against its spec.
type Params struct {
	values map[string]Value
}

// DefaultParams returns every parameter at its declared default.
func DefaultParams() *Params {
	p := &Params{values: make(map[string]Value, len(table))}
	for _, s := range table {
		p.values[s.Name] = s.Default
	}
	return p
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := &Params{values: make(map[string]Value, len(p.values))}
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Get returns the current value of name.
func (p *Params) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Set validates v against the spec of name and stores the result. Numeric
// values outside the declared range are clamped. The returned flag reports
// whether the stored value changed.
func (p *Params) Set(name string, v Value) (bool, error) {
	spec, ok := Lookup(name)
	if !ok {
		return false, fmt.Errorf("set %q: %w", name, ErrUnknownParam)
	}
	nv, err := spec.validate(v)
	if err != nil {
		return false, fmt.Errorf("set %q: %w", name, err)
	}
	if old, ok := p.values[name]; ok && old == nv {
		return false, nil
	}
	p.values[name] = nv
	return true, nil
}

// Int returns an int, enum or bool parameter as an integer.
func (p *Params) Int(name string) int { return p.values[name].Int() }

// Float returns a numeric parameter.
func (p *Params) Float(name string) float64 { return p.values[name].Float() }

// Bool returns a bool parameter.
func (p *Params) Bool(name string) bool { return p.values[name].Bool() }

// Color returns a color parameter.
func (p *Params) Color(name string) mgl32.Vec3 { return p.values[name].Vec3() }

func (s ParamSpec) validate(v Value) (Value, error) {
	switch s.Kind {
	case KindColor:
		if v.Kind != KindColor {
			return Value{}, fmt.Errorf("%w: want color, got %s", ErrInvalidValue, v.Kind)
		}
		var c mgl32.Vec3
		for i, ch := range v.Color {
			if isBad(float64(ch)) {
				return Value{}, fmt.Errorf("%w: channel %d is %v", ErrInvalidValue, i, ch)
			}
			c[i] = float32(clamp(float64(ch), s.Min, s.Max))
		}
		return RGB(c[0], c[1], c[2]), nil

	case KindBool:
		if !v.Kind.numeric() && v.Kind != KindBool {
			return Value{}, fmt.Errorf("%w: want bool, got %s", ErrInvalidValue, v.Kind)
		}
		switch v.Num {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
		return Value{}, fmt.Errorf("%w: %v is not 0 or 1", ErrInvalidValue, v.Num)
	}

	if !v.Kind.numeric() {
		return Value{}, fmt.Errorf("%w: want number, got %s", ErrInvalidValue, v.Kind)
	}
	if isBad(v.Num) {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, v.Num)
	}

	switch s.Kind {
	case KindEnum:
		n := math.Round(v.Num)
		if n != v.Num {
			return Value{}, fmt.Errorf("%w: %v is not an option", ErrInvalidValue, v.Num)
		}
		for _, o := range s.Options {
			if float64(o.Value) == n {
				return Enum(o.Value), nil
			}
		}
		return Value{}, fmt.Errorf("%w: %v is not an option", ErrInvalidValue, v.Num)
	case KindInt:
		return Int(int(clamp(math.Round(v.Num), s.Min, s.Max))), nil
	default:
		return Float(clamp(v.Num, s.Min, s.Max)), nil
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isBad(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }
