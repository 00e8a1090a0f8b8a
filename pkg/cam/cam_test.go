package cam

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	k, err := ParseOperationKind("pocket")
	require.NoError(t, err)
	assert.Equal(t, Pocket, k)

	m, err := ParseContourMode("inside")
	require.NoError(t, err)
	assert.Equal(t, Inside, m)

	d, err := ParseDirection("CCW")
	require.NoError(t, err)
	assert.Equal(t, CCW, d)

	_, err = ParseOperationKind("drill")
	assert.Error(t, err)
	_, err = ParseContourMode("on")
	assert.Error(t, err)
	_, err = ParseDirection("up")
	assert.Error(t, err)

	assert.Equal(t, CW, DefaultOutsideDirection)
}

func TestOperationValidate(t *testing.T) {
	ok := Operation{Name: "op", StepDown: 6, StepOverFraction: 0.5}
	assert.Empty(t, ok.Validate())

	bad := Operation{Name: "op", StepDown: 0, StepOverFraction: 1.5, Margin: -1}
	assert.Len(t, bad.Validate(), 3)

	full := Operation{Name: "op", StepDown: 1, StepOverFraction: 1}
	assert.Empty(t, full.Validate(), "stepover of exactly 1 is allowed")
}

func TestToolValidate(t *testing.T) {
	ok := Tool{Number: 1, Diameter: 12.7, SpindleSpeed: 18000, HorizFeed: 1500, VertFeed: 500}
	assert.Empty(t, ok.Validate())

	bad := Tool{Number: 0, Diameter: -1}
	assert.Len(t, bad.Validate(), 4)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"face detection", &FaceDetectionFailure{FeatureID: "p"}, false},
		{"wrapped face detection", fmt.Errorf("plan: %w", &FaceDetectionFailure{FeatureID: "p"}), false},
		{"degenerate", &DegenerateGeometry{FeatureID: "p", Reason: "tiny"}, false},
		{"warning wrapping degenerate", Warning{Err: &DegenerateGeometry{}}, false},
		{"invalid reference", &InvalidFeatureReference{Operation: "op", Ref: "x"}, true},
		{"configuration", &ConfigurationError{Problems: []string{"a"}}, true},
		{"other", errors.New("disk full"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	one := &ConfigurationError{Problems: []string{"stepdown must be positive"}}
	assert.Equal(t, "invalid configuration: stepdown must be positive", one.Error())

	two := &ConfigurationError{Problems: []string{"a", "b"}}
	assert.Contains(t, two.Error(), "2 problems")
}

func TestToolpathMotionCount(t *testing.T) {
	empty := &Toolpath{Entry: []Segment{{}}, Exit: []Segment{{}}}
	assert.Zero(t, empty.MotionCount())
	assert.True(t, empty.IsEmpty())

	tp := &Toolpath{
		Entry:  []Segment{{}},
		Exit:   []Segment{{}},
		Passes: []Pass{{Segments: make([]Segment, 5)}, {Segments: make([]Segment, 5)}},
	}
	assert.Equal(t, 12, tp.MotionCount())
}

func TestFeatureKindAndZ(t *testing.T) {
	f := &Feature{Data: PocketData{FloorZ: 29.125}, TopZ: 45}
	assert.Equal(t, Pocket, f.Kind())
	assert.Equal(t, 39.0, f.ZAt(6))

	p := &Feature{Data: ProfileData{FullOutline: true}}
	assert.Equal(t, Profile, p.Kind())
}
