package model

import "fmt"

// FeatureKind distinguishes between feature payloads.
type FeatureKind int

const (
	FeaturePad    FeatureKind = iota // extruded stock body
	FeaturePocket                    // material removed from the stock
)

func (k FeatureKind) String() string {
	switch k {
	case FeaturePad:
		return "pad"
	case FeaturePocket:
		return "pocket"
	default:
		return fmt.Sprintf("FeatureKind(%d)", int(k))
	}
}

// ParseFeatureKind is the inverse of FeatureKind.String.
func ParseFeatureKind(s string) (FeatureKind, error) {
	switch s {
	case "pad":
		return FeaturePad, nil
	case "pocket":
		return FeaturePocket, nil
	}
	return 0, fmt.Errorf("unknown feature kind %q", s)
}

// FeatureData is the kind-specific payload of a Feature.
type FeatureData interface {
	featureData()
}

// ---------------------------------------------------------------------------
// Pad
// ---------------------------------------------------------------------------

// PadData extrudes a sketch upward by Length to form the stock body.
type PadData struct {
	Sketch string  `json:"sketch"`
	Length float64 `json:"length"` // mm
}

func (PadData) featureData() {}

// ---------------------------------------------------------------------------
// Pocket
// ---------------------------------------------------------------------------

// CutDirection is the side of the sketch plane a pocket removes material on.
type CutDirection int

const (
	CutAuto CutDirection = iota // down, or up for sketches on a pad's bottom face
	CutDown
	CutUp
)

func (d CutDirection) String() string {
	switch d {
	case CutAuto:
		return "auto"
	case CutDown:
		return "down"
	case CutUp:
		return "up"
	default:
		return fmt.Sprintf("CutDirection(%d)", int(d))
	}
}

// ParseCutDirection accepts "", "auto", "down" and "up".
func ParseCutDirection(s string) (CutDirection, error) {
	switch s {
	case "", "auto":
		return CutAuto, nil
	case "down":
		return CutDown, nil
	case "up":
		return CutUp, nil
	}
	return 0, fmt.Errorf("unknown cut direction %q", s)
}

// PocketData removes the sketch profile prism of height Length.
type PocketData struct {
	Sketch    string       `json:"sketch"`
	Length    float64      `json:"length"` // mm
	Direction CutDirection `json:"direction"`
}

func (PocketData) featureData() {}
