package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/catalog"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/brep"
	"github.com/chazu/kerf/pkg/model"
	"github.com/chazu/kerf/pkg/planner"
	"github.com/chazu/kerf/pkg/post"
	"github.com/chazu/kerf/pkg/post/gcode"
	"github.com/chazu/kerf/pkg/post/opensbp"
	"github.com/chazu/kerf/pkg/prepare"
	"github.com/chazu/kerf/pkg/preview"
	"github.com/chazu/kerf/pkg/telemetry"
)

// PlanOptions configure a planning run.
type PlanOptions struct {
	ModelPath string
	Config    *job.Config
	Registry  *post.Registry
	// Kernel checks the model before planning. Nil skips the solid checks.
	Kernel kernel.Kernel
	// Geometry builds the face query for the prepared model. Defaults to
	// the boundary representation in package brep.
	Geometry func(*model.Model) (kernel.Query, error)
	// Preview, when set, is the path of a PNG top view of the toolpaths.
	Preview string
	// Program names the program in the output header. Defaults to the
	// model name.
	Program string
}

// OperationReport summarises one planned operation.
type OperationReport struct {
	Name    string
	Feature string
	Tool    int
	Passes  int
	Motions int
}

// Empty reports whether the operation produced no motion.
func (r OperationReport) Empty() bool { return r.Motions == 0 }

// Report is the outcome of a successful run.
type Report struct {
	Model      string
	Operations []OperationReport
	Warnings   []cam.Warning
	// Findings are the model validation warnings from preparation.
	Findings []model.ValidationError
	// Output is the written command file. Empty when Skipped.
	Output  string
	Preview string
	// Skipped is set when no operation produced motion and nothing was
	// written.
	Skipped bool
}

// ExitCode is 0 for a clean run and 2 when the run produced warnings or
// wrote nothing.
func (r *Report) ExitCode() int {
	if r.Skipped || len(r.Warnings) > 0 {
		return 2
	}
	return 0
}

// Plan loads and prepares the model, resolves every operation in the job,
// plans the toolpaths and writes the command stream. Any returned error is
// fatal and leaves no output behind.
func Plan(ctx context.Context, opts PlanOptions) (*Report, error) {
	ctx, span := telemetry.Tracer("pipeline").Start(ctx, "plan")
	defer span.End()

	cfg := opts.Config
	if cfg == nil {
		cfg = job.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	dialect, err := reg.Lookup(cfg.Dialect)
	if err != nil {
		return nil, &cam.ConfigurationError{Problems: []string{err.Error()}}
	}

	prep, err := Prepare(ctx, opts.ModelPath, prepare.Options{Kernel: opts.Kernel})
	if err != nil {
		return nil, err
	}
	m := prep.Model
	span.SetAttributes(attribute.String("kerf.model", m.Name))

	geometry := opts.Geometry
	if geometry == nil {
		geometry = buildShape
	}
	q, err := geometry(m)
	if err != nil {
		return nil, fmt.Errorf("build model geometry: %w", err)
	}
	cat, err := catalog.New(q, m, cfg.Tools)
	if err != nil {
		return nil, err
	}
	if cfg.Heights.Safe <= cat.TopZ() {
		return nil, &cam.ConfigurationError{Problems: []string{
			fmt.Sprintf("safe height %g must be above the stock top at %g", cfg.Heights.Safe, cat.TopZ()),
		}}
	}

	entries, err := cat.Enumerate()
	if err != nil {
		return nil, err
	}
	ops, err := cfg.ResolveOperations(entries)
	if err != nil {
		return nil, err
	}

	features, warnings, err := resolve(ctx, cat, ops)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	toolpaths, planWarnings, err := planAll(ctx, planner.New(cfg.Heights), features, cfg.Jobs)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, planWarnings...)

	rep := &Report{Model: m.Name, Warnings: warnings, Findings: prep.Findings}
	motion := false
	for _, tp := range toolpaths {
		r := OperationReport{
			Name:    tp.Operation.Name,
			Feature: tp.Feature,
			Tool:    tp.Tool,
			Passes:  len(tp.Passes),
			Motions: tp.MotionCount(),
		}
		motion = motion || !r.Empty()
		rep.Operations = append(rep.Operations, r)
	}
	for _, w := range warnings {
		Logger().Warn(w.Message, "feature", w.Feature, "kind", w.Kind)
	}

	if !motion {
		Logger().Warn(errNoMotion.Error(), "model", m.Name)
		rep.Skipped = true
		return rep, nil
	}

	out := cfg.Output
	if out == "" {
		out = defaultOutput(opts.ModelPath, dialect)
	}
	program := opts.Program
	if program == "" {
		program = m.Name
	}

	// A failed preview must leave no program behind.
	if opts.Preview != "" {
		png, err := renderPreview(m, toolpaths)
		if err != nil {
			return nil, err
		}
		err = writeAtomic(opts.Preview, func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("write preview: %w", err)
		}
	}
	err = writeAtomic(out, func(w io.Writer) error {
		return post.Emit(w, dialect, toolpaths, cfg.Tools, post.Options{Program: program, Comments: cfg.Comments})
	})
	if err != nil {
		if opts.Preview != "" {
			_ = os.Remove(opts.Preview)
		}
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	rep.Output = out
	rep.Preview = opts.Preview
	return rep, nil
}

// resolve builds a feature for every operation, in order. Non-fatal
// resolution problems become warnings and the feature is planned empty.
func resolve(ctx context.Context, cat *catalog.Catalog, ops []cam.Operation) ([]*cam.Feature, []cam.Warning, error) {
	_, span := telemetry.Tracer("pipeline").Start(ctx, "resolve")
	defer span.End()

	features := make([]*cam.Feature, 0, len(ops))
	var warnings []cam.Warning
	for _, op := range ops {
		f, err := cat.Resolve(op.Feature, op)
		if cam.IsFatal(err) {
			return nil, nil, err
		}
		if err != nil {
			warnings = append(warnings, resolveWarning(op, err))
		}
		Logger().Debug("resolved operation", "operation", op.Name, "feature", f.Name,
			"depth_start", f.DepthStart, "depth_end", f.DepthEnd, "faces", len(f.BaseGeometry))
		features = append(features, f)
	}
	return features, warnings, nil
}

func resolveWarning(op cam.Operation, err error) cam.Warning {
	name := op.Feature
	if name == "" {
		name = op.Name
	}
	w := cam.Warning{Kind: cam.WarnFaceDetection, Feature: name, Message: err.Error(), Err: err}
	var dg *cam.DegenerateGeometry
	if errors.As(err, &dg) {
		w.Kind = cam.WarnDegenerateGeometry
	}
	return w
}

// planAll plans every feature concurrently, keeping declaration order in
// the result.
func planAll(ctx context.Context, p *planner.Planner, features []*cam.Feature, jobs int) ([]*cam.Toolpath, []cam.Warning, error) {
	_, span := telemetry.Tracer("pipeline").Start(ctx, "toolpaths")
	defer span.End()
	start := time.Now()

	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	toolpaths := make([]*cam.Toolpath, len(features))
	perFeature := make([][]cam.Warning, len(features))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, f := range features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			toolpaths[i], perFeature[i] = p.Plan(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []cam.Warning
	for _, ws := range perFeature {
		warnings = append(warnings, ws...)
	}
	Logger().Debug("planned toolpaths", "count", len(toolpaths), "jobs", jobs, "elapsed", time.Since(start))
	return toolpaths, warnings, nil
}

func buildShape(m *model.Model) (kernel.Query, error) {
	return brep.Build(m)
}

func renderPreview(m *model.Model, toolpaths []*cam.Toolpath) ([]byte, error) {
	stock, err := m.Stock()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := preview.Render(&buf, stock.Outline, toolpaths, preview.Options{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func defaultOutput(modelPath string, d post.Dialect) string {
	base := strings.TrimSuffix(modelPath, filepath.Ext(modelPath))
	return base + d.Extension()
}

// DefaultRegistry holds the built-in dialects.
func DefaultRegistry() *post.Registry {
	return post.NewRegistry(opensbp.New(), gcode.New())
}
