package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/model"
)

func TestEvaluateScriptsWithoutModellingForms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  \n  "},
		{"arithmetic", "(+ 1 2)"},
		{"definitions", "(def x 10)\n(def y 20)\n(+ x y)"},
		{"comment only", "; nothing to see\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("unexpected eval errors: %v", evalErrs)
			}
			if m == nil {
				t.Fatal("expected non-nil model")
			}
			if len(m.Sketches) != 0 || len(m.Features) != 0 {
				t.Errorf("expected empty model, got %d sketches and %d features", len(m.Sketches), len(m.Features))
			}
		})
	}
}

func TestEvaluateScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unmatched paren", "(+ 1 2"},
		{"undefined symbol", "(+ 1 undefined-symbol)"},
		{"pad without sketch", `(pad "body" :length 45)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if m != nil {
				t.Fatal("expected nil model")
			}
			if len(evalErrs) == 0 || evalErrs[0].Message == "" {
				t.Fatalf("expected a described eval error, got %v", evalErrs)
			}
		})
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	source := "(sketch \"outline\" (rect 0 0 400 300))\n(pad \"body\" :sketch \"outline\""
	_, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if evalErrs[0].Line < 0 {
		t.Errorf("line = %d, want >= 0", evalErrs[0].Line)
	}
	t.Logf("line=%d message=%q", evalErrs[0].Line, evalErrs[0].Message)
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "pocket \"neck\": missing :sketch"}
	if got := e.Error(); got != `line 5: pocket "neck": missing :sketch` {
		t.Errorf("Error() = %q", got)
	}
	if got := (EvalError{Message: "no location"}).Error(); strings.Contains(got, "line") {
		t.Errorf("Error() with no line should not mention one, got %q", got)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	source := `
(sketch "outline" (rect 0 0 400 300))
(pad "body" :sketch "outline" :length 45)
(sketch "neck" (rect 300 120 80 56) :on "body" :face :top)
(pocket "neck-pocket" :sketch "neck" :length 15.875)
`
	var first []byte
	for i := 0; i < 5; i++ {
		m, evalErrs, err := eng.Evaluate(source)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: err=%v evalErrs=%v", i, err, evalErrs)
		}
		out, err := model.Marshal(m)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if i == 0 {
			first = out
			continue
		}
		if string(out) != string(first) {
			t.Fatalf("iteration %d produced a different model:\n%s\nvs\n%s", i, out, first)
		}
	}
}

func TestWaitTimesOut(t *testing.T) {
	// A channel that never delivers stands in for a script that loops
	// forever.
	eng := NewEngine(WithTimeout(50 * time.Millisecond))
	gen := eng.next()

	done := make(chan error, 1)
	go func() {
		_, _, err := eng.wait(context.Background(), make(chan evalResult), gen)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(err.Error(), "50ms") {
			t.Errorf("timeout error should name the limit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	eng := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := eng.wait(ctx, make(chan evalResult), eng.next())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	eng := NewEngine()
	stale := eng.next()
	eng.next()

	ch := make(chan evalResult, 1)
	ch <- evalResult{model: model.New("late")}
	m, _, err := eng.wait(context.Background(), ch, stale)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if m != nil {
		t.Error("a superseded result must not be returned")
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: bad keyword", 3, "bad keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if errs[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
