package deployment

import (
	"errors"
	"fmt"
)

// Error taxonomy. Specific errors are joined with one of these so callers
// can branch with errors.Is on the category alone.
var (
	ErrValidation = errors.New("deployment: validation failed")
	ErrNotFound   = errors.New("deployment: not found")
	ErrConflict   = errors.New("deployment: conflict")
	ErrExternal   = errors.New("deployment: external service failed")
	ErrStorage    = errors.New("deployment: storage failed")
)

var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrDeploymentNotFound    = errors.New("deployment not found")
	ErrProductionExists      = errors.New("project already has a production deployment")
	ErrHostnameTaken         = errors.New("hostname is already used by another deployment")
	ErrLastDeployment        = errors.New("cannot delete the last deployment of a project")
	ErrInvalidDomain         = errors.New("invalid domain")
	ErrInvalidAuthMethods    = errors.New("invalid auth methods")
	ErrInvalidName           = errors.New("invalid application name")
	ErrInvalidProjectID      = errors.New("invalid project id")
	ErrNoFirstFactor         = errors.New("auth methods do not enable any sign-in strategy")
	ErrPasswordNeedsIdentity = errors.New("password requires email, phone or username")
)

// ExternalError reports a failing provider or resolver call and the saga step it belonged to.
type ExternalError struct {
	Err  error
	Step string
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("deployment: step %s: external service failed: %v", e.Step, e.Err)
}

// Unwrap exposes both the category and the provider error.
func (e *ExternalError) Unwrap() []error {
	return []error{ErrExternal, e.Err}
}

func validationError(err error, format string, args ...any) error {
	return errors.Join(ErrValidation, fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}

func storageError(op string, err error) error {
	if isCategorized(err) {
		return err
	}
	return errors.Join(ErrStorage, fmt.Errorf("%s: %w", op, err))
}

func isCategorized(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrExternal) ||
		errors.Is(err, ErrStorage)
}
