package deployment

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/tenantplane/pkg/id"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
)

const maxAppNameLength = 100

// CreateStagingParams is the input of CreateStagingDeployment.
type CreateStagingParams struct {
	ProjectID   string
	Name        string
	LogoURL     string
	AuthMethods []string
}

// CreateStagingDeployment provisions a platform-hosted deployment. Its
// hostnames live under the staging base domain, so it needs no DNS work and
// starts out Verified.
func (s *Service) CreateStagingDeployment(ctx context.Context, p CreateStagingParams) (*Deployment, error) {
	projectID := strings.TrimSpace(p.ProjectID)
	if projectID == "" {
		return nil, validationError(ErrInvalidProjectID, "project id is required")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > maxAppNameLength {
		return nil, validationError(ErrInvalidName, "name must be between 1 and %d characters", maxAppNameLength)
	}
	auth, err := DeriveAuthSettings(p.AuthMethods)
	if err != nil {
		return nil, err
	}

	n, err := s.counter.Next(ctx)
	if err != nil {
		return nil, storageError("next staging number", err)
	}
	hosts := StagingHosts(stagingLabel(n), s.config.StagingBaseDomain)

	settings, err := DefaultSettings(auth, name, strings.TrimSpace(p.LogoURL), hosts)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	d := &Deployment{
		ID:                 id.NewULID(),
		ProjectID:          projectID,
		Mode:               ModeStaging,
		BackendHost:        hosts.Backend,
		FrontendHost:       hosts.Frontend,
		MailFromHost:       hosts.MailFrom,
		PublishableKey:     PublishableKey(ModeStaging, hosts.Backend),
		VerificationStatus: StatusVerified,
		DomainRecords:      &DomainVerificationRecords{EdgeRecords: []DNSRecord{}, CustomHostnameRecords: []DNSRecord{}},
		EmailRecords:       &EmailVerificationRecords{DKIMRecords: []DNSRecord{}, ReturnPathRecords: []DNSRecord{}},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateDeployment(ctx, d, settings); err != nil {
		return nil, storageError("insert staging deployment", err)
	}

	s.logger.InfoContext(logger.WithDeploymentID(ctx, d.ID), "staging deployment created",
		slog.String("project_id", projectID),
		slog.String("frontend_host", d.FrontendHost),
	)
	return d, nil
}
