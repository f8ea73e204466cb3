package deployment_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
)

var stagingHost = regexp.MustCompile(`^accounts\.[a-z]+-[a-z]+-\d+\.staging\.example\.net$`)

func TestCreateStagingDeployment(t *testing.T) {
	t.Parallel()

	params := deployment.CreateStagingParams{
		ProjectID:   testProject,
		Name:        "Acme",
		LogoURL:     "https://cdn.example.com/logo.png",
		AuthMethods: []string{deployment.MethodEmailLink, deployment.MethodOAuthGitHub},
	}

	t.Run("creates a verified deployment without provider calls", func(t *testing.T) {
		t.Parallel()
		h := newHarness()

		d, err := h.svc.CreateStagingDeployment(context.Background(), params)
		require.NoError(t, err)

		assert.Equal(t, deployment.ModeStaging, d.Mode)
		assert.Equal(t, deployment.StatusVerified, d.VerificationStatus)
		assert.Regexp(t, stagingHost, d.FrontendHost)
		label := strings.TrimPrefix(d.FrontendHost, "accounts.")
		assert.Equal(t, "api."+label, d.BackendHost)
		assert.Equal(t, "send."+label, d.MailFromHost)
		assert.True(t, strings.HasPrefix(d.PublishableKey, "pk_test_"))
		assert.True(t, deployment.AreDomainRecordsVerified(d.DomainRecords))

		assert.Empty(t, h.edge.created)
		assert.Empty(t, h.mail.created)
		assert.Empty(t, h.scheduler.ids)

		settings := h.store.settings[d.ID]
		require.NotNil(t, settings)
		assert.Equal(t, "Acme", settings.UI.AppName)
		assert.Equal(t, "https://cdn.example.com/logo.png", settings.UI.LogoURL)
		assert.Equal(t, deployment.FirstFactorEmailLink, settings.Auth.FirstFactor)
	})

	t.Run("hostnames stay unique across calls", func(t *testing.T) {
		t.Parallel()
		h := newHarness()

		seen := map[string]bool{}
		for range 20 {
			d, err := h.svc.CreateStagingDeployment(context.Background(), params)
			require.NoError(t, err)
			assert.False(t, seen[d.FrontendHost], d.FrontendHost)
			seen[d.FrontendHost] = true
		}
	})

	t.Run("counter failure is a storage error", func(t *testing.T) {
		t.Parallel()
		h := newHarness()
		h.counter.err = errors.New("redis down")

		_, err := h.svc.CreateStagingDeployment(context.Background(), params)
		assert.ErrorIs(t, err, deployment.ErrStorage)
		assert.Empty(t, h.store.deployments)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name   string
			mutate func(*deployment.CreateStagingParams)
			target error
		}{
			{"empty name", func(p *deployment.CreateStagingParams) { p.Name = "  " }, deployment.ErrInvalidName},
			{"long name", func(p *deployment.CreateStagingParams) { p.Name = strings.Repeat("a", 101) }, deployment.ErrInvalidName},
			{"no project", func(p *deployment.CreateStagingParams) { p.ProjectID = "" }, deployment.ErrInvalidProjectID},
			{"bad method", func(p *deployment.CreateStagingParams) { p.AuthMethods = []string{"telepathy"} }, deployment.ErrInvalidAuthMethods},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				h := newHarness()
				p := params
				tt.mutate(&p)

				_, err := h.svc.CreateStagingDeployment(context.Background(), p)
				assert.ErrorIs(t, err, deployment.ErrValidation)
				assert.ErrorIs(t, err, tt.target)
				assert.Zero(t, h.counter.n)
			})
		}
	})
}
