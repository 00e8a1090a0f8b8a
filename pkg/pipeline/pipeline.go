// Package pipeline runs kerf end to end: load a model, prepare it,
// resolve operations against it, plan toolpaths and write the command
// stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/model"
	"github.com/chazu/kerf/pkg/prepare"
	"github.com/chazu/kerf/pkg/telemetry"
)

// ScriptError reports errors raised while evaluating a model script.
type ScriptError struct {
	Path   string
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(msgs, "; "))
}

// LoadModel reads a model script, or a prepared model when the file has
// a .yaml or .yml extension. A model without a name takes the file's base
// name.
func LoadModel(ctx context.Context, path string) (*model.Model, error) {
	_, span := telemetry.Tracer("pipeline").Start(ctx, "load")
	defer span.End()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var m *model.Model
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if m, err = model.Unmarshal(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		var evalErrs []engine.EvalError
		m, evalErrs, err = engine.NewEngine().EvaluateContext(ctx, string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(evalErrs) > 0 {
			return nil, &ScriptError{Path: path, Errors: evalErrs}
		}
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	Logger().Info("model loaded", "path", path, "sketches", len(m.Sketches), "features", len(m.Features))
	return m, nil
}

// Prepare loads path and prepares it. The result, with its findings, is
// returned even when err reports validation errors.
func Prepare(ctx context.Context, path string, opts prepare.Options) (*prepare.Result, error) {
	m, err := LoadModel(ctx, path)
	if err != nil {
		return nil, err
	}
	_, span := telemetry.Tracer("pipeline").Start(ctx, "prepare")
	defer span.End()

	res, err := prepare.Prepare(m, opts)
	if res != nil {
		logFindings(res.Findings)
	}
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	return res, nil
}

func logFindings(findings []model.ValidationError) {
	for _, f := range findings {
		Logger().Debug("model finding", "subject", f.Subject, "severity", f.Severity, "message", f.Message)
	}
}

// WritePrepared writes a prepared model to path atomically.
func WritePrepared(path string, m *model.Model) error {
	data, err := model.Marshal(m)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic writes through a temporary file in the target directory and
// renames it into place. On any error the target is left untouched.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	Logger().Info("wrote file", "path", path)
	return nil
}

// errNoMotion is recorded when every toolpath is empty.
var errNoMotion = errors.New("no operation produced any motion; skipping export")
