package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
)

// HTTPError is the JSON error body. Err is logged, never rendered.
type HTTPError struct {
	Err       error             `json:"-"`
	Message   string            `json:"message"`
	ErrorCode string            `json:"error_code,omitempty"`
	Step      string            `json:"step,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Code      int               `json:"-"`
}

func (e *HTTPError) Error() string { return e.Message }

func (e *HTTPError) Unwrap() error { return e.Err }

func newHTTPError(code int, errorCode, message string, err error) *HTTPError {
	return &HTTPError{Code: code, ErrorCode: errorCode, Message: message, Err: err}
}

func errBadRequest(message string, err error) *HTTPError {
	return newHTTPError(http.StatusBadRequest, "bad_request", message, err)
}

// toHTTPError maps the deployment error taxonomy onto status codes.
// The first matching specific error supplies the message.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		e := newHTTPError(http.StatusBadRequest, "validation_failed", "request validation failed", err)
		e.Fields = fields
		return e
	}

	switch {
	case errors.Is(err, deployment.ErrValidation):
		return newHTTPError(http.StatusBadRequest, "validation_failed", publicMessage(err, validationErrors), err)
	case errors.Is(err, deployment.ErrNotFound):
		return newHTTPError(http.StatusNotFound, "not_found", publicMessage(err, notFoundErrors), err)
	case errors.Is(err, deployment.ErrConflict):
		return newHTTPError(http.StatusConflict, "conflict", publicMessage(err, conflictErrors), err)
	case errors.Is(err, deployment.ErrExternal):
		e := newHTTPError(http.StatusBadGateway, "external_service_failed", "an external provider call failed", err)
		var ext *deployment.ExternalError
		if errors.As(err, &ext) {
			e.Step = ext.Step
		}
		return e
	default:
		return newHTTPError(http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}

var (
	validationErrors = []error{
		deployment.ErrInvalidDomain,
		deployment.ErrInvalidAuthMethods,
		deployment.ErrInvalidName,
		deployment.ErrInvalidProjectID,
		deployment.ErrNoFirstFactor,
		deployment.ErrPasswordNeedsIdentity,
	}
	notFoundErrors = []error{
		deployment.ErrDeploymentNotFound,
		deployment.ErrProjectNotFound,
	}
	conflictErrors = []error{
		deployment.ErrProductionExists,
		deployment.ErrHostnameTaken,
		deployment.ErrLastDeployment,
	}
)

func publicMessage(err error, known []error) string {
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "request failed"
}
