package model

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks planning
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks planning
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // sketch or feature name (empty if model-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on a model. It does not require
// attachments to be resolved and never mutates the model.
func Validate(m *Model) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validatePad(m)...)
	errs = append(errs, validateFeatures(m)...)
	errs = append(errs, validateSketches(m)...)
	return errs
}

func validatePad(m *Model) []ValidationError {
	var pads []string
	for _, f := range m.Features {
		if f.Kind == FeaturePad {
			pads = append(pads, f.Name)
		}
	}
	switch {
	case len(pads) == 0:
		return []ValidationError{{Message: "model has no pad", Severity: SeverityError}}
	case len(pads) > 1:
		return []ValidationError{{
			Message:  fmt.Sprintf("model has %d pads %v, only one stock body is supported", len(pads), pads),
			Severity: SeverityError,
		}}
	case m.Features[0].Kind != FeaturePad:
		return []ValidationError{{
			Subject:  m.Features[0].Name,
			Message:  "first feature must be the pad",
			Severity: SeverityError,
		}}
	}
	return nil
}

func validateFeatures(m *Model) []ValidationError {
	var errs []ValidationError
	used := make(map[string]string)
	for _, f := range m.Features {
		if f.Data == nil {
			errs = append(errs, ValidationError{Subject: f.Name, Message: "feature has no data", Severity: SeverityError})
			continue
		}
		if f.Length() <= 0 {
			errs = append(errs, ValidationError{
				Subject:  f.Name,
				Message:  fmt.Sprintf("length must be positive, got %g", f.Length()),
				Severity: SeverityError,
			})
		}
		name := f.SketchName()
		s := m.Sketch(name)
		if s == nil {
			errs = append(errs, ValidationError{
				Subject:  f.Name,
				Message:  fmt.Sprintf("references unknown sketch %q", name),
				Severity: SeverityError,
			})
			continue
		}
		if s.Attach.Feature == f.Name {
			errs = append(errs, ValidationError{
				Subject:  f.Name,
				Message:  fmt.Sprintf("sketch %q is attached to the feature built from it", name),
				Severity: SeverityError,
			})
		}
		if prev, ok := used[name]; ok {
			errs = append(errs, ValidationError{
				Subject:  f.Name,
				Message:  fmt.Sprintf("sketch %q is also used by %q", name, prev),
				Severity: SeverityWarning,
			})
		} else {
			used[name] = f.Name
		}
	}
	for _, s := range m.Sketches {
		if _, ok := used[s.Name]; !ok {
			errs = append(errs, ValidationError{Subject: s.Name, Message: "sketch is not used by any feature", Severity: SeverityWarning})
		}
	}
	return errs
}

func validateSketches(m *Model) []ValidationError {
	var errs []ValidationError
	for _, s := range m.Sketches {
		if err := s.Profile.Validate(); err != nil {
			errs = append(errs, ValidationError{Subject: s.Name, Message: err.Error(), Severity: SeverityError})
		}
		if s.Attach.Feature != "" && m.Feature(s.Attach.Feature) == nil {
			errs = append(errs, ValidationError{
				Subject:  s.Name,
				Message:  fmt.Sprintf("attached to unknown feature %q", s.Attach.Feature),
				Severity: SeverityError,
			})
		}
	}
	return errs
}
