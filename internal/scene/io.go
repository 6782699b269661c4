package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Preset is the on-disk form of a State. Both fields are optional; missing
// parameters keep their current values.
type Preset struct {
	Camera *Camera          `json:"camera,omitempty"`
	Params map[string]Value `json:"params,omitempty"`
}

// PresetFrom captures st.
func PresetFrom(st *State) *Preset {
	cam := st.Camera
	p := &Preset{Camera: &cam, Params: make(map[string]Value, len(table))}
	for _, s := range table {
		if v, ok := st.Params.Get(s.Name); ok {
			p.Params[s.Name] = v
		}
	}
	return p
}

// Apply validates and writes the preset into st. Invalid entries are
// skipped and reported together; valid ones are still applied.
func (p *Preset) Apply(st *State) error {
	if p.Camera != nil {
		st.Camera = *p.Camera
	}
	var errs []error
	for name, v := range p.Params {
		if _, err := st.Params.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads a Preset from a JSON file.
func Load(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preset: %w", err)
	}
	defer f.Close()

	var p Preset
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	return &p, nil
}

// Save writes a Preset to a JSON file.
func Save(path string, p *Preset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preset: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		f.Close()
		return fmt.Errorf("encode preset: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close preset: %w", err)
	}
	return nil
}
