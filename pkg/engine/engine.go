// Package engine evaluates kerf model scripts. Scripts run in a sandboxed
// zygomys environment whose builtins (sketch, pad, pocket, ...) build a
// model.Model as a side effect.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/kerf/pkg/model"
)

// EvalError is a problem in the script itself: a parse error or a builtin
// rejecting its arguments. Line is 0 when zygomys reports no position.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts, one fresh sandbox per call. It is safe for
// concurrent use, but only the latest call's result is kept: an older
// evaluation finishing late reports ErrSuperseded.
type Engine struct {
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout replaces DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source with the default timeout.
//
//   - success: model, nil, nil
//   - script errors: nil, errors, nil
//   - timeout, cancellation or panic: nil, nil, err
func (e *Engine) Evaluate(source string) (*model.Model, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate bounded by ctx as well as the engine timeout.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*model.Model, []EvalError, error) {
	gen := e.next()
	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		m, evalErrs := run(source)
		ch <- evalResult{model: m, errors: evalErrs}
	}()
	return e.wait(ctx, ch, gen)
}

func (e *Engine) next() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// run evaluates source in a new sandbox. Empty source is an empty model.
func run(source string) (*model.Model, []EvalError) {
	m := model.New("")
	if strings.TrimSpace(source) == "" {
		return m, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, m)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return m, nil
}

var (
	// "Error on line N: ..." from the zygomys parser
	linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	// "line N: ..."
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError extracts the line number from a zygomys error when it
// has one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if sm := p.FindStringSubmatch(msg); sm != nil {
			line, _ := strconv.Atoi(sm[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(sm[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
