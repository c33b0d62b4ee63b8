package cli

import (
	"errors"
	"strconv"

	"github.com/mrlokans/scalesync/internal/apperr"
)

const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitPartial   = 2
	ExitCancelled = 130
)

// ExitError carries a process exit code. Err may be nil when the command has
// already reported the problem itself.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by App.Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if apperr.IsCancelled(err) {
		return ExitCancelled
	}
	return ExitFailure
}
