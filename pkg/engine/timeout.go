package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/kerf/pkg/model"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned when a newer evaluation started on the
	// same engine before this one finished.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	model  *model.Model
	errors []EvalError
	err    error
}

// wait returns the result from ch unless the timeout, ctx or a newer
// generation gets there first. An abandoned sandbox keeps running until
// it finishes; its result lands in the buffered channel and is dropped.
func (e *Engine) wait(ctx context.Context, ch <-chan evalResult, gen uint64) (*model.Model, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != e.current() {
			return nil, nil, ErrSuperseded
		}
		return res.model, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
