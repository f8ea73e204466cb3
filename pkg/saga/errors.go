package saga

import (
	"errors"
	"fmt"
)

var (
	ErrNoSteps       = errors.New("saga: no steps")
	ErrAlreadyRun    = errors.New("saga: already run")
	ErrStepPanicked  = errors.New("saga: step panicked")
	ErrNilStepAction = errors.New("saga: step has no action")
)

// StepError reports the step whose action failed.
// Compensation failures are listed for inspection but never replace Err.
type StepError struct {
	Err                error
	Step               string
	CompensationErrors []error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated reports whether every compensation succeeded.
func (e *StepError) Compensated() bool {
	return len(e.CompensationErrors) == 0
}
