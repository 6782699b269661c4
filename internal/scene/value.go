package scene

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind is the type of a parameter value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindEnum
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindColor:
		return "color"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) numeric() bool {
	return k == KindInt || k == KindFloat || k == KindEnum
}

// Value holds one parameter. Scalars, enums and bools live in Num (bools as
// 0 or 1); colors live in Color.
type Value struct {
	Kind  Kind
	Num   float64
	Color mgl32.Vec3
}

func Int(v int) Value       { return Value{Kind: KindInt, Num: float64(v)} }
func Float(v float64) Value { return Value{Kind: KindFloat, Num: v} }
func Enum(v int) Value      { return Value{Kind: KindEnum, Num: float64(v)} }
func RGB(r, g, b float32) Value {
	return Value{Kind: KindColor, Color: mgl32.Vec3{r, g, b}}
}

func Bool(b bool) Value {
	if b {
		return Value{Kind: KindBool, Num: 1}
	}
	return Value{Kind: KindBool}
}

func (v Value) Int() int         { return int(v.Num) }
func (v Value) Float() float64   { return v.Num }
func (v Value) Bool() bool       { return v.Num != 0 }
func (v Value) Vec3() mgl32.Vec3 { return v.Color }

func (v Value) String() string {
	switch v.Kind {
	case KindColor:
		return fmt.Sprintf("(%g, %g, %g)", v.Color[0], v.Color[1], v.Color[2])
	case KindBool:
		return fmt.Sprint(v.Bool())
	case KindFloat:
		return fmt.Sprintf("%g", v.Num)
	}
	return fmt.Sprint(v.Int())
}

// MarshalJSON writes colors as [r,g,b], bools as true/false and everything
// else as a plain number.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindColor:
		return json.Marshal([3]float32(v.Color))
	case KindBool:
		return json.Marshal(v.Bool())
	}
	return json.Marshal(v.Num)
}

// UnmarshalJSON infers the kind from the JSON shape. Set coerces the result
// into the parameter's declared kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '[':
		var c [3]float32
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode color: %w", err)
		}
		*v = RGB(c[0], c[1], c[2])
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Bool(data[0] == 't')
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		*v = Float(f)
	}
	return nil
}
