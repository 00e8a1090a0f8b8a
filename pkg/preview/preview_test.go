package preview

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
)

func square() *cam.Toolpath {
	v := func(x, y, z float64) geom.Vec3 { return geom.Vec3{X: x, Y: y, Z: z} }
	return &cam.Toolpath{
		Operation: cam.Operation{Name: "square"},
		Passes: []cam.Pass{{Depth: 6, Z: 39, Segments: []cam.Segment{
			{Feed: cam.Rapid, From: v(0, 0, 55), To: v(10, 10, 50)},
			{Feed: cam.Plunge, From: v(10, 10, 50), To: v(10, 10, 39)},
			{Feed: cam.Cut, From: v(10, 10, 39), To: v(190, 10, 39)},
			{Feed: cam.Cut, From: v(190, 10, 39), To: v(190, 90, 39)},
			{Feed: cam.Cut, From: v(190, 90, 39), To: v(10, 90, 39)},
			{Feed: cam.Cut, From: v(10, 90, 39), To: v(10, 10, 39)},
			{Feed: cam.Rapid, From: v(10, 10, 39), To: v(10, 10, 50)},
		}}},
	}
}

func TestRenderSizesToAspect(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, geom.Rect(0, 0, 200, 100), []*cam.Toolpath{square()}, Options{Size: 420, Padding: 10})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, 420, b.Dx())
	assert.Equal(t, 220, b.Dy())
}

func TestRenderDrawsSomething(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, geom.Rect(0, 0, 200, 100), []*cam.Toolpath{square()}, Options{Size: 200}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)

	inked := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r < 0xf000 || g < 0xf000 || bl < 0xf000 {
				inked++
			}
		}
	}
	assert.Greater(t, inked, 100)
}

func TestRenderEmptyToolpathsStillShowsOutline(t *testing.T) {
	var buf bytes.Buffer
	empty := &cam.Toolpath{Operation: cam.Operation{Name: "neck"}}
	require.NoError(t, Render(&buf, geom.Rect(0, 0, 50, 50), []*cam.Toolpath{empty}, Options{}))
	assert.NotZero(t, buf.Len())
}

func TestRenderNothing(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, nil, nil, Options{}), ErrNothingToDraw)

	assert.Error(t, Render(&buf, geom.Rect(0, 0, 10, 10), nil, Options{Size: 20, Padding: 15}))
}
