// Package job loads the machining job: tools, retract heights, output
// settings and the operations to plan. Settings come from a YAML file,
// then KERF_* environment variables, then command-line flags.
package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/catalog"
	"github.com/chazu/kerf/pkg/model"
	"github.com/chazu/kerf/pkg/post"
	"github.com/chazu/kerf/pkg/telemetry"
)

// Defaults for a 12.7 mm end mill on a router table.
const (
	DefaultClearance    = 55.0
	DefaultSafe         = 50.0
	DefaultStepDown     = 6.0
	DefaultStepOver     = 0.5
	DefaultBottomMargin = 1.0

	// PerimeterName names the generated perimeter operation.
	PerimeterName = "perimeter"
)

// DefaultTool is the cutter used when a job lists none.
func DefaultTool() cam.Tool {
	return cam.Tool{
		Number:            1,
		Name:              "12.7mm end mill",
		Diameter:          12.7,
		CuttingEdgeLength: 30,
		SpindleSpeed:      18000,
		HorizFeed:         1500,
		VertFeed:          500,
	}
}

// Config is a machining job.
type Config struct {
	Dialect      string      `yaml:"dialect"`
	Output       string      `yaml:"output"`
	Jobs         int         `yaml:"jobs"` // concurrent planners; 0 means one per CPU
	Comments     bool        `yaml:"comments"`
	Perimeter    bool        `yaml:"perimeter"` // add a perimeter cut when no operation has one
	BottomMargin float64     `yaml:"bottom_margin"`
	StepDown     float64     `yaml:"stepdown"`
	StepOver     float64     `yaml:"stepover"`
	Heights      cam.Heights `yaml:"heights"`
	Tools        []cam.Tool  `yaml:"tools"`
	Operations   []Operation `yaml:"operations"`

	Telemetry telemetry.Settings `yaml:"-"`
}

// Operation is an operation as written in the job file. Empty fields fall
// back to job defaults chosen per feature.
type Operation struct {
	Name        string   `yaml:"name"`
	Feature     string   `yaml:"feature"`
	Kind        string   `yaml:"kind"`
	ContourMode string   `yaml:"contour_mode"`
	Direction   string   `yaml:"direction"`
	StepDown    *float64 `yaml:"stepdown"`
	StepOver    *float64 `yaml:"stepover"`
	Margin      *float64 `yaml:"margin"`
	ThroughCut  bool     `yaml:"through_cut"`
	Tool        int      `yaml:"tool"`
}

// Default returns a job with no operations: the perimeter and every pocket
// are generated from the model.
func Default() *Config {
	return &Config{
		Dialect:      post.DefaultDialect,
		Perimeter:    true,
		BottomMargin: DefaultBottomMargin,
		StepDown:     DefaultStepDown,
		StepOver:     DefaultStepOver,
		Heights:      cam.Heights{Clearance: DefaultClearance, Safe: DefaultSafe},
		Tools:        []cam.Tool{DefaultTool()},
		Telemetry:    telemetry.Settings{Enabled: true},
	}
}

// Load reads a job file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a job over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	return cfg, nil
}

// envOverrides are the settings the environment may override. Unset
// variables leave the pointer nil.
type envOverrides struct {
	Dialect   *string  `env:"DIALECT"`
	Output    *string  `env:"OUTPUT"`
	Safe      *float64 `env:"SAFE_HEIGHT"`
	Clearance *float64 `env:"CLEARANCE_HEIGHT"`
	Jobs      *int     `env:"JOBS"`
	Telemetry telemetry.Settings
}

// EnvPrefix prefixes every environment variable kerf reads.
const EnvPrefix = "KERF_"

// ApplyEnv overrides c from KERF_* environment variables.
func (c *Config) ApplyEnv() error {
	o := envOverrides{Telemetry: c.Telemetry}
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Dialect != nil {
		c.Dialect = *o.Dialect
	}
	if o.Output != nil {
		c.Output = *o.Output
	}
	if o.Safe != nil {
		c.Heights.Safe = *o.Safe
	}
	if o.Clearance != nil {
		c.Heights.Clearance = *o.Clearance
	}
	if o.Jobs != nil {
		c.Jobs = *o.Jobs
	}
	c.Telemetry = o.Telemetry
	return nil
}

// Tool returns the tool with the given number.
func (c *Config) Tool(n int) (cam.Tool, bool) {
	for _, t := range c.Tools {
		if t.Number == n {
			return t, true
		}
	}
	return cam.Tool{}, false
}

// Validate checks every setting and operation. All problems are reported
// together in a *cam.ConfigurationError.
func (c *Config) Validate() error {
	var probs []string
	if c.Heights.Safe <= 0 {
		probs = append(probs, fmt.Sprintf("safe height must be positive, got %g", c.Heights.Safe))
	}
	if c.Heights.Clearance < c.Heights.Safe {
		probs = append(probs, fmt.Sprintf("clearance height %g is below safe height %g", c.Heights.Clearance, c.Heights.Safe))
	}
	if c.Jobs < 0 {
		probs = append(probs, fmt.Sprintf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.BottomMargin < 0 {
		probs = append(probs, fmt.Sprintf("bottom margin must not be negative, got %g", c.BottomMargin))
	}
	if len(c.Tools) == 0 {
		probs = append(probs, "job has no tools")
	}
	seen := make(map[int]bool)
	for _, t := range c.Tools {
		probs = append(probs, t.Validate()...)
		if seen[t.Number] {
			probs = append(probs, fmt.Sprintf("tool number %d is used twice", t.Number))
		}
		seen[t.Number] = true
	}

	names := make(map[string]bool)
	for i, oc := range c.Operations {
		op, opProbs := c.operation(oc, false)
		probs = append(probs, opProbs...)
		if op.Name == "" {
			probs = append(probs, fmt.Sprintf("operation %d has no name and no feature", i+1))
		} else if names[op.Name] {
			probs = append(probs, fmt.Sprintf("operation name %q is used twice", op.Name))
		}
		names[op.Name] = true
	}

	if len(probs) > 0 {
		return &cam.ConfigurationError{Problems: probs}
	}
	return nil
}

// ResolveOperations returns the operations to plan, in order. With none
// configured, a perimeter cut is generated followed by one operation per
// pocket: a pocket clear for pockets cut from the top, an inside profile
// for slots cut from the bottom.
func (c *Config) ResolveOperations(entries []catalog.Entry) ([]cam.Operation, error) {
	bottom := make(map[string]bool)
	for _, e := range entries {
		bottom[e.Name] = e.BottomSide
	}

	configured := c.Operations
	if len(configured) == 0 {
		for _, e := range entries {
			if e.Kind == model.FeaturePocket {
				configured = append(configured, Operation{Feature: e.Name})
			}
		}
	}

	var out []cam.Operation
	var probs []string
	hasPerimeter := false
	for _, oc := range configured {
		op, p := c.operation(oc, bottom[oc.Feature])
		probs = append(probs, p...)
		if op.Kind == cam.Profile && op.Feature == "" {
			hasPerimeter = true
		}
		out = append(out, op)
	}
	if c.Perimeter && !hasPerimeter {
		op, p := c.operation(Operation{Name: PerimeterName}, false)
		probs = append(probs, p...)
		out = append([]cam.Operation{op}, out...)
	}
	if len(probs) > 0 {
		return nil, &cam.ConfigurationError{Problems: probs}
	}
	return out, nil
}

// operation fills the defaults for oc and converts it.
func (c *Config) operation(oc Operation, bottomSide bool) (cam.Operation, []string) {
	op := cam.Operation{
		Name:             oc.Name,
		Feature:          oc.Feature,
		Kind:             cam.Pocket,
		ContourMode:      cam.Inside,
		Direction:        cam.DefaultOutsideDirection,
		StepDown:         c.StepDown,
		StepOverFraction: c.StepOver,
		ThroughCut:       oc.ThroughCut,
		BottomSide:       bottomSide,
		Tool:             oc.Tool,
	}
	if op.Name == "" {
		op.Name = oc.Feature
	}
	if oc.Feature == "" || bottomSide {
		op.Kind = cam.Profile
	}
	if oc.Feature == "" {
		op.ContourMode = cam.Outside
	}
	if bottomSide {
		op.Margin = c.BottomMargin
	}
	if op.Tool == 0 && len(c.Tools) > 0 {
		op.Tool = c.Tools[0].Number
	}

	var probs []string
	fail := func(err error) {
		probs = append(probs, fmt.Sprintf("operation %q: %v", op.Name, err))
	}
	if oc.Kind != "" {
		k, err := cam.ParseOperationKind(oc.Kind)
		if err != nil {
			fail(err)
		}
		op.Kind = k
		if oc.ContourMode == "" && k == cam.Profile && !bottomSide {
			op.ContourMode = cam.Outside
		}
	}
	if oc.ContourMode != "" {
		m, err := cam.ParseContourMode(oc.ContourMode)
		if err != nil {
			fail(err)
		}
		op.ContourMode = m
	}
	if oc.Direction != "" {
		d, err := cam.ParseDirection(oc.Direction)
		if err != nil {
			fail(err)
		}
		op.Direction = d
	}
	if oc.StepDown != nil {
		op.StepDown = *oc.StepDown
	}
	if oc.StepOver != nil {
		op.StepOverFraction = *oc.StepOver
	}
	if oc.Margin != nil {
		op.Margin = *oc.Margin
	}

	probs = append(probs, op.Validate()...)
	if t, ok := c.Tool(op.Tool); !ok {
		probs = append(probs, fmt.Sprintf("operation %q: unknown tool number %d", op.Name, op.Tool))
	} else if t.CuttingEdgeLength > 0 && op.StepDown > t.CuttingEdgeLength {
		probs = append(probs, fmt.Sprintf("operation %q: stepdown %g exceeds the cutting edge length %g of tool %d",
			op.Name, op.StepDown, t.CuttingEdgeLength, t.Number))
	}
	return op, probs
}
