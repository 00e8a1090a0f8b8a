package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/brep"
	"github.com/chazu/kerf/pkg/model"
)

var testTool = cam.Tool{Number: 1, Name: "12.7mm end mill", Diameter: 12.7, CuttingEdgeLength: 30,
	SpindleSpeed: 18000, HorizFeed: 1500, VertFeed: 500}

func op(name, feature string, kind cam.OperationKind) cam.Operation {
	mode := cam.Outside
	if kind == cam.Pocket {
		mode = cam.Inside
	}
	return cam.Operation{Name: name, Feature: feature, Kind: kind, ContourMode: mode,
		StepDown: 6, StepOverFraction: 0.5, Margin: 1, Tool: 1}
}

func guitarBody(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("body")
	for _, s := range []*model.Sketch{
		{Name: "outline", Profile: geom.Rect(0, 0, 400, 300)},
		{Name: "neck-sk", Profile: geom.Rect(300, 120, 80, 56), Attach: model.Attachment{Offset: 45}},
		{Name: "pickup-sk", Profile: geom.Rect(150, 100, 80, 40), Attach: model.Attachment{Offset: 45}},
		{Name: "slot-sk", Profile: geom.Rect(100, 200, 40, 10)},
	} {
		require.NoError(t, m.AddSketch(s))
	}
	for _, f := range []*model.Feature{
		{Name: "body", Kind: model.FeaturePad, Data: model.PadData{Sketch: "outline", Length: 45}},
		{Name: "neck", Kind: model.FeaturePocket, Data: model.PocketData{Sketch: "neck-sk", Length: 15.875, Direction: model.CutDown}},
		{Name: "pickup", Kind: model.FeaturePocket, Data: model.PocketData{Sketch: "pickup-sk", Length: 50, Direction: model.CutDown}},
		{Name: "slot", Kind: model.FeaturePocket, Data: model.PocketData{Sketch: "slot-sk", Length: 20, Direction: model.CutUp}},
	} {
		require.NoError(t, m.AddFeature(f))
	}
	return m
}

func newCatalog(t *testing.T, m *model.Model) *Catalog {
	t.Helper()
	shape, err := brep.Build(m)
	require.NoError(t, err)
	c, err := New(shape, m, []cam.Tool{testTool})
	require.NoError(t, err)
	return c
}

// blindQuery finds nothing.
type blindQuery struct{}

func (blindQuery) FacesAt(float64, string) []kernel.Face { return nil }
func (blindQuery) WallFacesOf(string) []kernel.Face      { return nil }

func TestEnumerateDeclarationOrder(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	entries, err := c.Enumerate()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	names := []string{entries[0].Name, entries[1].Name, entries[2].Name, entries[3].Name}
	assert.Equal(t, []string{"body", "neck", "pickup", "slot"}, names)
	assert.Equal(t, model.FeaturePad, entries[0].Kind)
	assert.False(t, entries[1].ThroughCut)
	assert.True(t, entries[2].ThroughCut)
	assert.True(t, entries[3].BottomSide)
	assert.Equal(t, 45.0, c.TopZ())
}

func TestResolvePerimeter(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	f, err := c.Resolve("", op("perimeter", "", cam.Profile))
	require.NoError(t, err)

	assert.Equal(t, cam.ProfileData{FullOutline: true}, f.Data)
	assert.Equal(t, 0.0, f.DepthStart)
	assert.Equal(t, 45.0, f.DepthEnd)
	assert.Equal(t, "body", f.Name)
	require.Len(t, f.BaseGeometry, 1)
	assert.Equal(t, "Face2", f.BaseGeometry[0].Ref)
	assert.InDelta(t, 400*300, f.Boundary.Area(), 1e-9)
	assert.Equal(t, testTool, f.Tool)
}

func TestResolveStandardPocket(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	f, err := c.Resolve("neck", op("neck", "neck", cam.Pocket))
	require.NoError(t, err)

	assert.Equal(t, 0.0, f.DepthStart)
	assert.InDelta(t, 15.875, f.DepthEnd, 1e-9)
	data, ok := f.Data.(cam.PocketData)
	require.True(t, ok)
	assert.InDelta(t, 29.125, data.FloorZ, 1e-9)
	assert.False(t, data.ThroughCut)
	require.Len(t, f.BaseGeometry, 1)
	assert.Equal(t, "Face7", f.BaseGeometry[0].Ref)
	assert.Equal(t, geom.Rect(300, 120, 80, 56), f.Boundary)
}

func TestResolveThroughPocketUsesWalls(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	f, err := c.Resolve("pickup", op("pickup", "pickup", cam.Pocket))
	require.NoError(t, err)

	data := f.Data.(cam.PocketData)
	assert.True(t, data.ThroughCut)
	assert.Equal(t, 0.0, data.FloorZ, "floor snaps to the stock bottom")
	assert.Equal(t, 45.0, f.DepthEnd)
	assert.True(t, f.Operation.ThroughCut)

	require.Len(t, f.BaseGeometry, 4)
	for _, w := range f.BaseGeometry {
		assert.Equal(t, kernel.FaceWall, w.Kind)
	}
	require.Len(t, f.Boundary, 4)
	assert.InDelta(t, 80*40, f.Boundary.Area(), 1e-9)
}

func TestResolveThroughCutFlag(t *testing.T) {
	c := newCatalog(t, guitarBody(t))

	o := op("neck", "neck", cam.Pocket)
	o.ThroughCut = true
	_, err := c.Resolve("neck", o)
	var cfg *cam.ConfigurationError
	require.ErrorAs(t, err, &cfg, "a blind pocket must not be cut through the body")
	assert.True(t, cam.IsFatal(err))

	o = op("pickup", "pickup", cam.Pocket)
	o.ThroughCut = true
	f, err := c.Resolve("pickup", o)
	require.NoError(t, err)
	assert.Equal(t, 45.0, f.DepthEnd)
}

func TestResolveProfileOnPocket(t *testing.T) {
	c := newCatalog(t, guitarBody(t))

	f, err := c.Resolve("neck", op("neck", "neck", cam.Profile))
	require.NoError(t, err)
	assert.Equal(t, cam.Profile, f.Kind())
	assert.Equal(t, cam.ProfileData{}, f.Data)
	assert.Equal(t, cam.Inside, f.Operation.ContourMode)
	assert.InDelta(t, 15.875, f.DepthEnd, 1e-9, "depth still comes from the pocket")
	assert.Equal(t, geom.Rect(300, 120, 80, 56), f.Boundary)

	f, err = c.Resolve("slot", op("slot", "slot", cam.Profile))
	require.NoError(t, err)
	assert.Equal(t, cam.Profile, f.Kind())
	assert.True(t, f.Operation.BottomSide)
	assert.Equal(t, 44.0, f.DepthEnd)
}

func TestResolveBottomSide(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	o := op("slot", "slot", cam.Pocket)
	o.ContourMode = cam.Outside
	f, err := c.Resolve("slot", o)
	require.NoError(t, err)

	assert.Equal(t, cam.Inside, f.Operation.ContourMode)
	assert.True(t, f.Operation.BottomSide)
	assert.Equal(t, 0.0, f.DepthStart)
	assert.Equal(t, 44.0, f.DepthEnd)
	assert.Equal(t, 1.0, f.Data.(cam.PocketData).FloorZ)
	require.Len(t, f.BaseGeometry, 1)
	assert.InDelta(t, 40*10, f.Boundary.Area(), 1e-9)

	assert.Equal(t, cam.Outside, o.ContourMode, "caller's operation is untouched")
}

func TestResolveBottomSideMarginTooLarge(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	o := op("slot", "slot", cam.Pocket)
	o.Margin = 45
	_, err := c.Resolve("slot", o)
	var cfg *cam.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.True(t, cam.IsFatal(err))
}

func TestResolveFaceDetectionFailure(t *testing.T) {
	m := guitarBody(t)
	c, err := New(blindQuery{}, m, []cam.Tool{testTool})
	require.NoError(t, err)

	tests := []struct {
		name     string
		ref      string
		kind     cam.OperationKind
		fallback bool
	}{
		{"standard pocket", "neck", cam.Pocket, false},
		{"through pocket", "pickup", cam.Pocket, true},
		{"bottom side", "slot", cam.Pocket, false},
		{"perimeter", "", cam.Profile, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := c.Resolve(tt.ref, op(tt.name, tt.ref, tt.kind))
			var fd *cam.FaceDetectionFailure
			require.ErrorAs(t, err, &fd)
			assert.Equal(t, tt.fallback, fd.Fallback)
			assert.False(t, cam.IsFatal(err))
			require.NotNil(t, f)
			assert.Empty(t, f.BaseGeometry)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	c := newCatalog(t, guitarBody(t))

	_, err := c.Resolve("ghost", op("ghost", "ghost", cam.Pocket))
	var ref *cam.InvalidFeatureReference
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "ghost", ref.Ref)

	o := op("neck", "neck", cam.Pocket)
	o.Tool = 7
	_, err = c.Resolve("neck", o)
	var cfg *cam.ConfigurationError
	assert.ErrorAs(t, err, &cfg)

	o = op("neck", "neck", cam.Pocket)
	o.StepDown = 0
	_, err = c.Resolve("neck", o)
	assert.ErrorAs(t, err, &cfg)

	_, err = c.Resolve("body", op("body", "body", cam.Pocket))
	assert.ErrorAs(t, err, &cfg, "pad cannot be pocketed")
}

func TestResolveIsDeterministic(t *testing.T) {
	c := newCatalog(t, guitarBody(t))
	a, err := c.Resolve("pickup", op("pickup", "pickup", cam.Pocket))
	require.NoError(t, err)
	b, err := c.Resolve("pickup", op("pickup", "pickup", cam.Pocket))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
