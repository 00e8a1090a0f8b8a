package cli

import (
	"errors"
	"fmt"
)

// WarningsError is returned by a command that finished but has something
// to report: planning warnings, or an export skipped for lack of motion.
type WarningsError struct {
	Warnings int
	Skipped  bool
}

func (e *WarningsError) Error() string {
	if e.Skipped {
		return "no toolpath has any motion; nothing was written"
	}
	return fmt.Sprintf("finished with %d warning(s)", e.Warnings)
}

// IsWarnings reports whether err is a *WarningsError.
func IsWarnings(err error) bool {
	var we *WarningsError
	return errors.As(err, &we)
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsWarnings(err):
		return 2
	default:
		return 1
	}
}
