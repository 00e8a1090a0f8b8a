package model

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chazu/kerf/pkg/geom"
)

// Wire types. The on-disk form is flat so that prepared models stay
// readable and diffable.

type fileModel struct {
	Name     string        `yaml:"name"`
	Sketches []fileSketch  `yaml:"sketches"`
	Features []fileFeature `yaml:"features"`
}

type fileSketch struct {
	Name    string       `yaml:"name"`
	On      string       `yaml:"attach_to,omitempty"`
	Face    string       `yaml:"face,omitempty"`
	Offset  float64      `yaml:"offset"`
	Profile [][2]float64 `yaml:"profile,flow"`
}

type fileFeature struct {
	Name      string  `yaml:"name"`
	Kind      string  `yaml:"kind"`
	Sketch    string  `yaml:"sketch"`
	Length    float64 `yaml:"length"`
	Direction string  `yaml:"direction,omitempty"`
}

// Marshal encodes the model in its on-disk form.
func Marshal(m *Model) ([]byte, error) {
	fm := fileModel{Name: m.Name}
	for _, s := range m.Sketches {
		fs := fileSketch{Name: s.Name, On: s.Attach.Feature, Offset: s.Attach.Offset}
		if s.Attach.Feature != "" {
			fs.Face = s.Attach.Face.String()
		}
		for _, v := range s.Profile {
			fs.Profile = append(fs.Profile, [2]float64{v.X, v.Y})
		}
		fm.Sketches = append(fm.Sketches, fs)
	}
	for _, f := range m.Features {
		ff := fileFeature{Name: f.Name, Kind: f.Kind.String(), Sketch: f.SketchName(), Length: f.Length()}
		if d, ok := f.Data.(PocketData); ok && d.Direction != CutAuto {
			ff.Direction = d.Direction.String()
		}
		fm.Features = append(fm.Features, ff)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&fm); err != nil {
		return nil, fmt.Errorf("encoding model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding model: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a model written by Marshal.
func Unmarshal(data []byte) (*Model, error) {
	var fm fileModel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	m := New(fm.Name)
	for _, fs := range fm.Sketches {
		face, err := ParseFaceSide(fs.Face)
		if err != nil {
			return nil, fmt.Errorf("sketch %q: %w", fs.Name, err)
		}
		s := &Sketch{Name: fs.Name, Attach: Attachment{Feature: fs.On, Face: face, Offset: fs.Offset}}
		for _, p := range fs.Profile {
			s.Profile = append(s.Profile, geom.Vec2{X: p[0], Y: p[1]})
		}
		if err := m.AddSketch(s); err != nil {
			return nil, err
		}
	}
	for _, ff := range fm.Features {
		kind, err := ParseFeatureKind(ff.Kind)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", ff.Name, err)
		}
		f := &Feature{Name: ff.Name, Kind: kind}
		switch kind {
		case FeaturePad:
			if ff.Direction != "" {
				return nil, fmt.Errorf("feature %q: pads have no direction", ff.Name)
			}
			f.Data = PadData{Sketch: ff.Sketch, Length: ff.Length}
		case FeaturePocket:
			dir, err := ParseCutDirection(ff.Direction)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", ff.Name, err)
			}
			f.Data = PocketData{Sketch: ff.Sketch, Length: ff.Length, Direction: dir}
		}
		if err := m.AddFeature(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}
