// Package cam holds the data passed between the feature catalog, the
// toolpath planner and the post processor: tools, operations, resolved
// features, and the passes and segments of a planned toolpath.
//
// Depths are cut depths in millimetres below the stock top and grow
// downward; Z values are model heights. A pass at depth d sits at
// Z = TopZ - d.
package cam

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

// OperationKind selects the planning strategy.
type OperationKind int

const (
	Profile OperationKind = iota // follow an outline
	Pocket                       // clear an area
)

func (k OperationKind) String() string {
	switch k {
	case Profile:
		return "profile"
	case Pocket:
		return "pocket"
	default:
		return fmt.Sprintf("OperationKind(%d)", int(k))
	}
}

// ParseOperationKind is the inverse of OperationKind.String.
func ParseOperationKind(s string) (OperationKind, error) {
	switch s {
	case "profile":
		return Profile, nil
	case "pocket":
		return Pocket, nil
	}
	return 0, fmt.Errorf("unknown operation kind %q (want profile or pocket)", s)
}

// ContourMode is the side of the nominal outline the cut stays on.
type ContourMode int

const (
	Outside ContourMode = iota
	Inside
)

func (m ContourMode) String() string {
	switch m {
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	default:
		return fmt.Sprintf("ContourMode(%d)", int(m))
	}
}

// ParseContourMode is the inverse of ContourMode.String.
func ParseContourMode(s string) (ContourMode, error) {
	switch s {
	case "outside":
		return Outside, nil
	case "inside":
		return Inside, nil
	}
	return 0, fmt.Errorf("unknown contour mode %q (want outside or inside)", s)
}

// Direction is the travel direction around a contour viewed from +Z.
type Direction int

const (
	CW Direction = iota
	CCW
)

// DefaultOutsideDirection is the direction outside profiles are cut in
// unless an operation says otherwise.
const DefaultOutsideDirection = CW

func (d Direction) String() string {
	switch d {
	case CW:
		return "cw"
	case CCW:
		return "ccw"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts cw/ccw in either case.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "cw", "CW":
		return CW, nil
	case "ccw", "CCW":
		return CCW, nil
	}
	return 0, fmt.Errorf("unknown direction %q (want cw or ccw)", s)
}

// Tool is a cutter and its cutting parameters. Feeds are mm/min.
type Tool struct {
	Number            int     `yaml:"number" json:"number"`
	Name              string  `yaml:"name" json:"name"`
	Diameter          float64 `yaml:"diameter" json:"diameter"`
	CuttingEdgeLength float64 `yaml:"cutting_edge_length" json:"cutting_edge_length"`
	SpindleSpeed      float64 `yaml:"spindle_speed" json:"spindle_speed"` // RPM
	HorizFeed         float64 `yaml:"horiz_feed" json:"horiz_feed"`
	VertFeed          float64 `yaml:"vert_feed" json:"vert_feed"`
}

// Validate lists every problem with the tool.
func (t Tool) Validate() []string {
	var probs []string
	if t.Number <= 0 {
		probs = append(probs, fmt.Sprintf("tool %q: number must be positive, got %d", t.Name, t.Number))
	}
	if t.Diameter <= 0 {
		probs = append(probs, fmt.Sprintf("tool %d: diameter must be positive, got %g", t.Number, t.Diameter))
	}
	if t.CuttingEdgeLength < 0 {
		probs = append(probs, fmt.Sprintf("tool %d: cutting edge length must not be negative, got %g", t.Number, t.CuttingEdgeLength))
	}
	if t.SpindleSpeed <= 0 {
		probs = append(probs, fmt.Sprintf("tool %d: spindle speed must be positive, got %g", t.Number, t.SpindleSpeed))
	}
	if t.HorizFeed <= 0 || t.VertFeed <= 0 {
		probs = append(probs, fmt.Sprintf("tool %d: feeds must be positive, got %g/%g", t.Number, t.HorizFeed, t.VertFeed))
	}
	return probs
}

// Heights are the retract planes shared by every toolpath.
type Heights struct {
	Clearance float64 `yaml:"clearance" json:"clearance"` // rapid travel between operations
	Safe      float64 `yaml:"safe" json:"safe"`           // rapid travel between passes
}

// Operation is a configured machining step.
type Operation struct {
	Name             string
	Feature          string // model feature; empty means the whole-model perimeter
	Kind             OperationKind
	ContourMode      ContourMode
	Direction        Direction
	StepDown         float64
	StepOverFraction float64
	Margin           float64
	ThroughCut       bool
	BottomSide       bool
	Tool             int
}

// Validate lists every problem with the operation parameters.
func (o Operation) Validate() []string {
	var probs []string
	if o.StepDown <= 0 {
		probs = append(probs, fmt.Sprintf("operation %q: stepdown must be positive, got %g", o.Name, o.StepDown))
	}
	if o.StepOverFraction <= 0 || o.StepOverFraction > 1 {
		probs = append(probs, fmt.Sprintf("operation %q: stepover must be in (0, 1], got %g", o.Name, o.StepOverFraction))
	}
	if o.Margin < 0 {
		probs = append(probs, fmt.Sprintf("operation %q: margin must not be negative, got %g", o.Name, o.Margin))
	}
	return probs
}

// FeatureData is the kind-specific payload of a resolved Feature.
type FeatureData interface {
	featureData()
}

// ProfileData marks a feature cut around its outline.
type ProfileData struct {
	FullOutline bool // no explicit base: the whole model silhouette
}

func (ProfileData) featureData() {}

// PocketData marks a feature cleared by offset rings.
type PocketData struct {
	FloorZ     float64
	ThroughCut bool
	BottomSide bool
}

func (PocketData) featureData() {}

// Feature is a model feature resolved for one operation. It is built by
// the catalog and read, never written, by the planner.
type Feature struct {
	ID         string // face or feature reference in the source model
	Name       string
	Index      int // declaration order
	Data       FeatureData
	TopZ       float64
	DepthStart float64
	DepthEnd   float64
	Operation  Operation
	Tool       Tool

	BaseGeometry []kernel.Face
	Boundary     geom.Polygon
}

// Kind reports the operation kind implied by the payload.
func (f *Feature) Kind() OperationKind {
	switch f.Data.(type) {
	case PocketData:
		return Pocket
	default:
		return Profile
	}
}

// ZAt converts a cut depth to a model height.
func (f *Feature) ZAt(depth float64) float64 { return f.TopZ - depth }

// SegmentKind is the shape of a motion.
type SegmentKind int

const (
	Line SegmentKind = iota
	ArcCW
	ArcCCW
)

func (k SegmentKind) String() string {
	switch k {
	case Line:
		return "line"
	case ArcCW:
		return "arc-cw"
	case ArcCCW:
		return "arc-ccw"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Feed classifies the speed a segment is travelled at.
type Feed int

const (
	Rapid  Feed = iota // positioning, no cutting
	Cut                // horizontal feed
	Plunge             // vertical feed
)

func (f Feed) String() string {
	switch f {
	case Rapid:
		return "rapid"
	case Cut:
		return "cut"
	case Plunge:
		return "plunge"
	default:
		return fmt.Sprintf("Feed(%d)", int(f))
	}
}

// Segment is a single motion. Center is used by arcs only.
type Segment struct {
	Kind   SegmentKind
	Feed   Feed
	From   geom.Vec3
	To     geom.Vec3
	Center geom.Vec2
}

// Pass is one Z level of a toolpath.
type Pass struct {
	Depth    float64
	Z        float64
	Segments []Segment
}

// Toolpath is the planned motion for one feature and operation.
type Toolpath struct {
	Feature   string
	Index     int
	Operation Operation
	Tool      int
	Passes    []Pass
	Entry     []Segment
	Exit      []Segment
}

// MotionCount counts every segment, including entry and exit moves.
func (tp *Toolpath) MotionCount() int {
	if len(tp.Passes) == 0 {
		return 0
	}
	n := len(tp.Entry) + len(tp.Exit)
	for _, p := range tp.Passes {
		n += len(p.Segments)
	}
	return n
}

// IsEmpty reports whether the toolpath has no passes.
func (tp *Toolpath) IsEmpty() bool { return len(tp.Passes) == 0 }
