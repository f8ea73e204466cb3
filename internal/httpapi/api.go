// Package httpapi exposes deployment provisioning and verification over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/pkg/health"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
)

// Deployments is the service surface the API serves.
type Deployments interface {
	CreateProductionDeployment(ctx context.Context, p deployment.CreateProductionParams) (*deployment.Deployment, error)
	CreateStagingDeployment(ctx context.Context, p deployment.CreateStagingParams) (*deployment.Deployment, error)
	GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error)
	ListVerificationEvents(ctx context.Context, id string, limit int) ([]deployment.VerificationEvent, error)
	VerifyDeploymentDNSRecords(ctx context.Context, id string) (*deployment.Deployment, error)
	DeleteDeployment(ctx context.Context, id, projectID string) error
}

type API struct {
	svc      Deployments
	validate *validator.Validate
	logger   *slog.Logger
	checks   health.Checks
}

type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithReadinessChecks sets the dependencies probed by /health/ready.
func WithReadinessChecks(checks health.Checks) Option {
	return func(a *API) {
		a.checks = checks
	}
}

func New(svc Deployments, opts ...Option) *API {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	a := &API{svc: svc, validate: v, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router with every route mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, recoverer(a.logger), accessLog(a.logger))

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(a.checks, health.WithLogger(a.logger)))

	r.Route("/projects/{projectID}/deployments", func(r chi.Router) {
		r.Post("/production", a.wrap(a.createProduction))
		r.Post("/staging", a.wrap(a.createStaging))
		r.Delete("/{deploymentID}", a.wrap(a.deleteDeployment))
	})
	r.Route("/deployments/{deploymentID}", func(r chi.Router) {
		r.Get("/", a.wrap(a.getDeployment))
		r.Get("/verification-events", a.wrap(a.listVerificationEvents))
		r.Post("/verify", a.wrap(a.verifyDeployment))
	})

	r.NotFound(a.wrap(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusNotFound, "not_found", "route not found", nil)
	}))
	r.MethodNotAllowed(a.wrap(func(http.ResponseWriter, *http.Request) error {
		return newHTTPError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	}))
	return r
}

type createProductionRequest struct {
	Domain      string   `json:"domain" validate:"required,max=244"`
	AuthMethods []string `json:"auth_methods" validate:"required,min=1,dive,required"`
}

type createStagingRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	LogoURL     string   `json:"logo_url" validate:"omitempty,url"`
	AuthMethods []string `json:"auth_methods" validate:"required,min=1,dive,required"`
}

func (a *API) createProduction(w http.ResponseWriter, r *http.Request) error {
	projectID, err := projectParam(r)
	if err != nil {
		return err
	}
	var req createProductionRequest
	if err := decode(r, a.validate, &req); err != nil {
		return err
	}

	d, err := a.svc.CreateProductionDeployment(r.Context(), deployment.CreateProductionParams{
		ProjectID:   projectID,
		Domain:      req.Domain,
		AuthMethods: req.AuthMethods,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, d)
}

func (a *API) createStaging(w http.ResponseWriter, r *http.Request) error {
	projectID, err := projectParam(r)
	if err != nil {
		return err
	}
	var req createStagingRequest
	if err := decode(r, a.validate, &req); err != nil {
		return err
	}

	d, err := a.svc.CreateStagingDeployment(r.Context(), deployment.CreateStagingParams{
		ProjectID:   projectID,
		Name:        req.Name,
		LogoURL:     req.LogoURL,
		AuthMethods: req.AuthMethods,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, d)
}

func (a *API) getDeployment(w http.ResponseWriter, r *http.Request) error {
	d, err := a.svc.GetDeployment(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

func (a *API) verifyDeployment(w http.ResponseWriter, r *http.Request) error {
	d, err := a.svc.VerifyDeploymentDNSRecords(r.Context(), chi.URLParam(r, "deploymentID"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

type eventsResponse struct {
	Events []deployment.VerificationEvent `json:"events"`
}

func (a *API) listVerificationEvents(w http.ResponseWriter, r *http.Request) error {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errBadRequest("limit must be a non-negative integer", err)
		}
		limit = n
	}

	events, err := a.svc.ListVerificationEvents(r.Context(), chi.URLParam(r, "deploymentID"), limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []deployment.VerificationEvent{}
	}
	return writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (a *API) deleteDeployment(w http.ResponseWriter, r *http.Request) error {
	projectID, err := projectParam(r)
	if err != nil {
		return err
	}
	if err := a.svc.DeleteDeployment(r.Context(), chi.URLParam(r, "deploymentID"), projectID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func projectParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "projectID")
	pid, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.Join(deployment.ErrValidation, deployment.ErrInvalidProjectID, err)
	}
	return pid.String(), nil
}
