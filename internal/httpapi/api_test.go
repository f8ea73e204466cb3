package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/internal/httpapi"
	"github.com/dmitrymomot/tenantplane/pkg/health"
)

const projectID = "6f1c2b4e-8a1d-4e2f-9c3b-5d7e8f9a0b1c"

type fakeDeployments struct {
	err        error
	production deployment.CreateProductionParams
	staging    deployment.CreateStagingParams
	deleted    [2]string
	limit      int
	events     []deployment.VerificationEvent
	panicOn    string
}

func (f *fakeDeployments) CreateProductionDeployment(_ context.Context, p deployment.CreateProductionParams) (*deployment.Deployment, error) {
	f.production = p
	if f.err != nil {
		return nil, f.err
	}
	return &deployment.Deployment{ID: "dep-prod", ProjectID: p.ProjectID, Mode: deployment.ModeProduction, VerificationStatus: deployment.StatusPending}, nil
}

func (f *fakeDeployments) CreateStagingDeployment(_ context.Context, p deployment.CreateStagingParams) (*deployment.Deployment, error) {
	f.staging = p
	if f.err != nil {
		return nil, f.err
	}
	return &deployment.Deployment{ID: "dep-stg", ProjectID: p.ProjectID, Mode: deployment.ModeStaging, VerificationStatus: deployment.StatusVerified}, nil
}

func (f *fakeDeployments) GetDeployment(_ context.Context, id string) (*deployment.Deployment, error) {
	if f.panicOn == id {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &deployment.Deployment{ID: id}, nil
}

func (f *fakeDeployments) ListVerificationEvents(_ context.Context, _ string, limit int) ([]deployment.VerificationEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func (f *fakeDeployments) VerifyDeploymentDNSRecords(_ context.Context, id string) (*deployment.Deployment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &deployment.Deployment{ID: id, VerificationStatus: deployment.StatusInProgress}, nil
}

func (f *fakeDeployments) DeleteDeployment(_ context.Context, id, projectID string) error {
	f.deleted = [2]string{id, projectID}
	return f.err
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateProduction(t *testing.T) {
	t.Parallel()

	svc := &fakeDeployments{}
	h := httpapi.New(svc).Router()

	rec := serve(t, h, http.MethodPost, "/projects/"+projectID+"/deployments/production",
		`{"domain":"Example.com","auth_methods":["email_address","password"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Example.com", svc.production.Domain)
	assert.Equal(t, projectID, svc.production.ProjectID)
	assert.Equal(t, []string{"email_address", "password"}, svc.production.AuthMethods)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var d deployment.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "dep-prod", d.ID)
	assert.Equal(t, deployment.StatusPending, d.VerificationStatus)
}

func TestCreateStaging(t *testing.T) {
	t.Parallel()

	svc := &fakeDeployments{}
	h := httpapi.New(svc).Router()

	rec := serve(t, h, http.MethodPost, "/projects/"+projectID+"/deployments/staging",
		`{"name":"Acme","logo_url":"https://cdn.example.com/logo.png","auth_methods":["email_code"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Acme", svc.staging.Name)
	assert.Equal(t, "https://cdn.example.com/logo.png", svc.staging.LogoURL)
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{name: "bad project id", path: "/projects/not-a-uuid/deployments/production", body: `{"domain":"a.com","auth_methods":["password"]}`},
		{name: "empty body", path: "/projects/" + projectID + "/deployments/production"},
		{name: "malformed json", path: "/projects/" + projectID + "/deployments/production", body: `{"domain":`},
		{name: "unknown field", path: "/projects/" + projectID + "/deployments/production", body: `{"domain":"a.com","auth_methods":["password"],"extra":1}`},
		{name: "missing domain", path: "/projects/" + projectID + "/deployments/production", body: `{"auth_methods":["password"]}`, field: "domain"},
		{name: "no auth methods", path: "/projects/" + projectID + "/deployments/production", body: `{"domain":"a.com","auth_methods":[]}`, field: "auth_methods"},
		{name: "bad logo url", path: "/projects/" + projectID + "/deployments/staging", body: `{"name":"Acme","logo_url":"not a url","auth_methods":["password"]}`, field: "logo_url"},
		{name: "long name", path: "/projects/" + projectID + "/deployments/staging", body: `{"name":"` + strings.Repeat("a", 101) + `","auth_methods":["password"]}`, field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeDeployments{}
			rec := serve(t, httpapi.New(svc).Router(), http.MethodPost, tt.path, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := errorBody(t, rec)
			assert.NotEmpty(t, body["request_id"])
			if tt.field != "" {
				fields, ok := body["fields"].(map[string]any)
				require.True(t, ok, "fields missing in %v", body)
				assert.Contains(t, fields, tt.field)
			}
			assert.Empty(t, svc.production.Domain)
			assert.Empty(t, svc.staging.Name)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    int
		message string
		step    string
	}{
		{
			name:    "validation",
			err:     errors.Join(deployment.ErrValidation, deployment.ErrInvalidDomain),
			code:    http.StatusBadRequest,
			message: deployment.ErrInvalidDomain.Error(),
		},
		{
			name:    "project missing",
			err:     errors.Join(deployment.ErrNotFound, deployment.ErrProjectNotFound),
			code:    http.StatusNotFound,
			message: deployment.ErrProjectNotFound.Error(),
		},
		{
			name:    "production exists",
			err:     errors.Join(deployment.ErrConflict, deployment.ErrProductionExists),
			code:    http.StatusConflict,
			message: deployment.ErrProductionExists.Error(),
		},
		{
			name: "provider failure",
			err:  &deployment.ExternalError{Step: deployment.StepCreateAPIHostname, Err: errors.New("rate limited")},
			code: http.StatusBadGateway,
			step: deployment.StepCreateAPIHostname,
		},
		{
			name: "storage",
			err:  errors.Join(deployment.ErrStorage, errors.New("conn reset")),
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeDeployments{err: tt.err}
			rec := serve(t, httpapi.New(svc).Router(), http.MethodPost, "/projects/"+projectID+"/deployments/production",
				`{"domain":"a.com","auth_methods":["email_address","password"]}`)

			require.Equal(t, tt.code, rec.Code)
			body := errorBody(t, rec)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			if tt.step != "" {
				assert.Equal(t, tt.step, body["step"])
			}
			assert.NotContains(t, rec.Body.String(), "conn reset")
			assert.NotContains(t, rec.Body.String(), "rate limited")
		})
	}
}

func TestGetAndVerify(t *testing.T) {
	t.Parallel()

	h := httpapi.New(&fakeDeployments{}).Router()

	rec := serve(t, h, http.MethodGet, "/deployments/dep-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"dep-1"`)

	rec = serve(t, h, http.MethodPost, "/deployments/dep-1/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verification_status":"in_progress"`)
}

func TestListVerificationEvents(t *testing.T) {
	t.Parallel()

	svc := &fakeDeployments{}
	h := httpapi.New(svc).Router()

	rec := serve(t, h, http.MethodGet, "/deployments/dep-1/verification-events?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.limit)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/deployments/dep-1/verification-events?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDeployment(t *testing.T) {
	t.Parallel()

	svc := &fakeDeployments{}
	h := httpapi.New(svc).Router()

	rec := serve(t, h, http.MethodDelete, "/projects/"+projectID+"/deployments/dep-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]string{"dep-1", projectID}, svc.deleted)

	svc.err = errors.Join(deployment.ErrConflict, deployment.ErrLastDeployment)
	rec = serve(t, h, http.MethodDelete, "/projects/"+projectID+"/deployments/dep-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	h := httpapi.New(&fakeDeployments{err: errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)}).Router()
	req := httptest.NewRequest(http.MethodGet, "/deployments/missing", nil)
	req.Header.Set("X-Request-ID", "req-upstream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-upstream", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-upstream", errorBody(t, rec)["request_id"])
}

func TestPanicRecovered(t *testing.T) {
	t.Parallel()

	rec := serve(t, httpapi.New(&fakeDeployments{panicOn: "dep-x"}).Router(), http.MethodGet, "/deployments/dep-x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", errorBody(t, rec)["error_code"])
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	down := health.Checks{"redis": func(context.Context) error { return errors.New("down") }}
	h := httpapi.New(&fakeDeployments{}, httpapi.WithReadinessChecks(down)).Router()

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, "/health/ready", "").Code)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	h := httpapi.New(&fakeDeployments{}).Router()
	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, http.MethodPut, "/deployments/dep-1/verify", "").Code)
}
