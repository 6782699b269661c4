package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EnvPrefix prefixes the environment variable of every parameter, e.g.
// FRACTAL_RAY_MARCH_ITERATIONS for rayMarchIterations.
const EnvPrefix = "FRACTAL_"

// EnvName returns the environment variable that overrides param.
func EnvName(param string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for i, r := range param {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ApplyEnv overrides parameters from the environment. lookup is normally
// os.LookupEnv. Bools accept 0/1, true/false, on/off and yes/no; colors are
// written "r,g,b".
func ApplyEnv(p *Params, lookup func(string) (string, bool)) error {
	var errs []error
	for _, s := range table {
		raw, ok := lookup(EnvName(s.Name))
		if !ok || raw == "" {
			continue
		}
		v, err := parseEnv(s.Kind, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(s.Name), err))
			continue
		}
		if _, err := p.Set(s.Name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(s.Name), err))
		}
	}
	return errors.Join(errs...)
}

func parseEnv(k Kind, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch k {
	case KindBool:
		switch strings.ToLower(raw) {
		case "1", "true", "on", "yes":
			return Bool(true), nil
		case "0", "false", "off", "no":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, raw)
	case KindColor:
		parts := strings.Split(raw, ",")
		if len(parts) != 3 {
			return Value{}, fmt.Errorf("%w: %q is not r,g,b", ErrInvalidValue, raw)
		}
		var c [3]float32
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
			c[i] = float32(f)
		}
		return RGB(c[0], c[1], c[2]), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return Float(f), nil
}
