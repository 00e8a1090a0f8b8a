package cam

import (
	"errors"
	"fmt"
	"strings"
)

// FaceDetectionFailure means no base geometry could be found for a feature.
// The feature is planned as an empty toolpath; the run continues.
type FaceDetectionFailure struct {
	FeatureID string
	Z         float64
	Fallback  bool // wall faces were tried too
}

func (e *FaceDetectionFailure) Error() string {
	msg := fmt.Sprintf("no faces found for %q at Z=%.4f", e.FeatureID, e.Z)
	if e.Fallback {
		msg += " (no wall faces either)"
	}
	return msg
}

// InvalidFeatureReference means an operation names a feature the model
// does not have. It aborts the run.
type InvalidFeatureReference struct {
	Operation string
	Ref       string
}

func (e *InvalidFeatureReference) Error() string {
	return fmt.Sprintf("operation %q references unknown feature %q", e.Operation, e.Ref)
}

// DegenerateGeometry means a boundary cannot be followed as a contour.
// The feature is skipped.
type DegenerateGeometry struct {
	FeatureID string
	Reason    string
}

func (e *DegenerateGeometry) Error() string {
	return fmt.Sprintf("degenerate geometry for %q: %s", e.FeatureID, e.Reason)
}

// ConfigurationError collects every problem found in the job
// configuration. It aborts the run before planning.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// IsFatal reports whether err must stop the run before any output is
// written. Face detection failures and degenerate geometry are not fatal;
// anything else is.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fd *FaceDetectionFailure
	var dg *DegenerateGeometry
	return !errors.As(err, &fd) && !errors.As(err, &dg)
}

// WarningKind classifies a non-fatal planning outcome.
type WarningKind int

const (
	WarnFaceDetection WarningKind = iota
	WarnDegenerateGeometry
	WarnEmptyToolpath
	WarnPartialClearing
)

func (k WarningKind) String() string {
	switch k {
	case WarnFaceDetection:
		return "face-detection"
	case WarnDegenerateGeometry:
		return "degenerate-geometry"
	case WarnEmptyToolpath:
		return "empty-toolpath"
	case WarnPartialClearing:
		return "partial-clearing"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a non-fatal problem attached to a feature.
type Warning struct {
	Kind    WarningKind
	Feature string
	Message string
	Err     error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %s", w.Feature, w.Message)
}

func (w Warning) Unwrap() error { return w.Err }
