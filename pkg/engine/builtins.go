package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/model"
)

// defaultCircleSegments is the polygon resolution of (circle ...).
const defaultCircleSegments = 64

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a geom.Vec2.
type sexpVec2 struct {
	vec geom.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a closed profile produced by rect, circle or polygon.
type sexpShape struct {
	poly geom.Polygon
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %d vertices)", len(s.poly))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpRef names a sketch or feature that was added to the model.
type sexpRef struct {
	kind string
	name string
}

func (r *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", r.kind, r.name)
}
func (r *sexpRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// keyword returns the name of a preprocessed :keyword token.
func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs splits a call's arguments into positional values and :key value
// pairs. A trailing key with no value maps to SexpNull.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	a := kwArgs{kw: map[string]zygo.Sexp{}}
	for len(args) > 0 {
		name, ok := keyword(args[0])
		switch {
		case !ok:
			a.positional = append(a.positional, args[0])
			args = args[1:]
		case len(args) == 1:
			a.kw[name] = zygo.SexpNull
			args = nil
		default:
			a.kw[name] = args[1]
			args = args[2:]
		}
	}
	return a
}

// number reads an optional numeric keyword argument.
func (a kwArgs) number(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toName accepts a name string or a reference returned by sketch/pad/pocket.
func toName(s zygo.Sexp) (string, error) {
	if r, ok := s.(*sexpRef); ok {
		return r.name, nil
	}
	return toString(s)
}

// toVec2 accepts a (vec2 ...) value or a two-element list of numbers.
func toVec2(s zygo.Sexp) (geom.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 2 {
		return geom.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
	}
	x, err := toFloat64(items[0])
	if err != nil {
		return geom.Vec2{}, err
	}
	y, err := toFloat64(items[1])
	if err != nil {
		return geom.Vec2{}, err
	}
	return geom.Vec2{X: x, Y: y}, nil
}

// toShape extracts a profile from a sexpShape.
func toShape(s zygo.Sexp) (geom.Polygon, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.poly, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modelling builtins into a zygomys
// environment. Builtins append sketches and features to m in the order
// they are evaluated.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, m *model.Model) {

	// -----------------------------------------------------------------------
	// (vec2 10 20)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: geom.Vec2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (rect x y w h)
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("rect requires x y width height, got %d arguments", len(args))
		}
		var v [4]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: argument %d: %w", i+1, err)
			}
			v[i] = f
		}
		if v[2] <= 0 || v[3] <= 0 {
			return zygo.SexpNull, fmt.Errorf("rect: width and height must be positive, got %g x %g", v[2], v[3])
		}
		return &sexpShape{poly: geom.Rect(v[0], v[1], v[2], v[3])}, nil
	})

	// -----------------------------------------------------------------------
	// (circle cx cy r :segments 64)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("circle requires cx cy radius, got %d arguments", len(pa.positional))
		}
		var v [3]float64
		for i, a := range pa.positional {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("circle: argument %d: %w", i+1, err)
			}
			v[i] = f
		}
		if v[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", v[2])
		}
		segs, err := pa.number("segments", defaultCircleSegments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		return &sexpShape{poly: geom.Circle(geom.Vec2{X: v[0], Y: v[1]}, v[2], int(segs))}, nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec2 0 0) (vec2 10 0) (vec2 10 10))
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		points := args
		if len(args) == 1 {
			if items, err := sexpListToSlice(args[0]); err == nil {
				points = items
			}
		}
		var poly geom.Polygon
		for i, a := range points {
			v, err := toVec2(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: vertex %d: %w", i+1, err)
			}
			poly = append(poly, v)
		}
		if len(poly) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 vertices, got %d", len(poly))
		}
		return &sexpShape{poly: poly}, nil
	})

	// -----------------------------------------------------------------------
	// (translate shape (vec2 dx dy))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a shape and an offset")
		}
		poly, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		d, err := toVec2(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		return &sexpShape{poly: poly.Translate(d)}, nil
	})

	// -----------------------------------------------------------------------
	// (sketch "name" shape :plane :xy :offset 0)
	// (sketch "name" :profile shape :on "body" :face :top)
	// -----------------------------------------------------------------------
	env.AddFunction("sketch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("sketch requires a name")
		}
		sketchName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch: name: %w", err)
		}

		profileArg, ok := pa.kw["profile"]
		if !ok && len(pa.positional) > 1 {
			profileArg, ok = pa.positional[1], true
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("sketch %q: missing profile", sketchName)
		}
		poly, err := toShape(profileArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch %q: profile: %w", sketchName, err)
		}

		var at model.Attachment
		if v, ok := pa.kw["plane"]; ok {
			plane, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch %q: plane: %w", sketchName, err)
			}
			if plane != "xy" {
				return zygo.SexpNull, fmt.Errorf("sketch %q: unsupported plane %q, only xy", sketchName, plane)
			}
		}
		if v, ok := pa.kw["on"]; ok {
			if _, plane := pa.kw["plane"]; plane {
				return zygo.SexpNull, fmt.Errorf("sketch %q: :plane and :on are exclusive", sketchName)
			}
			feat, err := toName(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch %q: on: %w", sketchName, err)
			}
			at.Feature = feat
		}
		if v, ok := pa.kw["face"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch %q: face: %w", sketchName, err)
			}
			if at.Face, err = model.ParseFaceSide(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch %q: %w", sketchName, err)
			}
		}
		if at.Offset, err = pa.number("offset", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch %q: %w", sketchName, err)
		}

		s := &model.Sketch{Name: sketchName, Profile: poly.Clone(), Attach: at}
		if err := m.AddSketch(s); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRef{kind: "sketch", name: sketchName}, nil
	})

	// -----------------------------------------------------------------------
	// (pad "body" :sketch "outline" :length 45)
	// -----------------------------------------------------------------------
	env.AddFunction("pad", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		featName, sketchName, length, pa, err := featureArgs("pad", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.kw) > 2 {
			return zygo.SexpNull, fmt.Errorf("pad %q: only :sketch and :length are accepted", featName)
		}
		f := &model.Feature{
			Name: featName,
			Kind: model.FeaturePad,
			Data: model.PadData{Sketch: sketchName, Length: length},
		}
		if err := m.AddFeature(f); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRef{kind: "pad", name: featName}, nil
	})

	// -----------------------------------------------------------------------
	// (pocket "neck-pocket" :sketch "neck" :length 15.875 :direction :down)
	// -----------------------------------------------------------------------
	env.AddFunction("pocket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		featName, sketchName, length, pa, err := featureArgs("pocket", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		data := model.PocketData{Sketch: sketchName, Length: length}
		if v, ok := pa.kw["direction"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pocket %q: direction: %w", featName, err)
			}
			if data.Direction, err = model.ParseCutDirection(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("pocket %q: %w", featName, err)
			}
		}
		f := &model.Feature{Name: featName, Kind: model.FeaturePocket, Data: data}
		if err := m.AddFeature(f); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRef{kind: "pocket", name: featName}, nil
	})

	// -----------------------------------------------------------------------
	// (model "stratocaster" (pad ...) (pocket ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("model", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("model requires a name argument")
		}
		modelName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("model: name: %w", err)
		}
		for i := 1; i < len(args); i++ {
			if _, ok := args[i].(*sexpRef); !ok {
				return zygo.SexpNull, fmt.Errorf("model: child %d: expected sketch or feature, got %T (%s)",
					i, args[i], args[i].SexpString(nil))
			}
		}
		m.Name = modelName
		return &sexpRef{kind: "model", name: modelName}, nil
	})
}

// featureArgs parses the arguments shared by pad and pocket.
func featureArgs(form string, args []zygo.Sexp) (string, string, float64, kwArgs, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return "", "", 0, pa, fmt.Errorf("%s requires exactly one name argument", form)
	}
	featName, err := toString(pa.positional[0])
	if err != nil {
		return "", "", 0, pa, fmt.Errorf("%s: name: %w", form, err)
	}
	v, ok := pa.kw["sketch"]
	if !ok {
		return "", "", 0, pa, fmt.Errorf("%s %q: missing :sketch", form, featName)
	}
	sketchName, err := toName(v)
	if err != nil {
		return "", "", 0, pa, fmt.Errorf("%s %q: sketch: %w", form, featName, err)
	}
	if _, ok := pa.kw["length"]; !ok {
		return "", "", 0, pa, fmt.Errorf("%s %q: missing :length", form, featName)
	}
	length, err := pa.number("length", 0)
	if err != nil {
		return "", "", 0, pa, fmt.Errorf("%s %q: %w", form, featName, err)
	}
	return featName, sketchName, length, pa, nil
}
