package corpus

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBuildStarted indicates Ingest or Build was called after Build began
var ErrBuildStarted = errors.New("corpus build already started")

// maxReportedErrors bounds how many individual failures BuildError carries.
const maxReportedErrors = 16

// BuildError is returned by Build when at least one symbol group failed to
// decode or merge. Every group was still attempted.
type BuildError struct {
	Failures int
	Errs     []error // first failures observed, at most maxReportedErrors
}

func (e *BuildError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("%d decode/merge failure(s) occurred", e.Failures)
	}
	return fmt.Sprintf("%d decode/merge failure(s) occurred, first: %v", e.Failures, e.Errs[0])
}

// Unwrap exposes the recorded failures to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	return e.Errs
}

// failureLog keeps the first few job failures.
type failureLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *failureLog) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errs) < maxReportedErrors {
		l.errs = append(l.errs, err)
	}
}
