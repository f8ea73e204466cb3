package deployment

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tenantplane/pkg/logger"
)

// DeleteDeployment soft-deletes a deployment of projectID and then releases
// its provider resources. A project's last deployment cannot be deleted.
// Provider cleanup is best effort: failures are logged, not returned.
func (s *Service) DeleteDeployment(ctx context.Context, id, projectID string) error {
	d, err := s.store.DeleteProjectDeployment(ctx, id, projectID)
	if err != nil {
		return storageError("delete deployment", err)
	}
	ctx = logger.WithDeploymentID(ctx, d.ID)
	s.logger.InfoContext(ctx, "deployment deleted", slog.String("project_id", projectID))

	s.releaseProviderResources(context.WithoutCancel(ctx), d)
	return nil
}

func (s *Service) releaseProviderResources(ctx context.Context, d *Deployment) {
	if d.DomainRecords != nil {
		for _, hid := range []*string{d.DomainRecords.CustomHostnameID, d.DomainRecords.EdgeHostnameID} {
			if hid == nil {
				continue
			}
			if err := s.edge.DeleteCustomHostname(ctx, *hid); err != nil {
				s.logger.WarnContext(ctx, "failed to delete edge hostname",
					slog.String("hostname_id", *hid),
					slog.Any("error", err),
				)
			}
		}
	}
	if d.EmailRecords != nil && d.EmailRecords.DomainID != nil {
		if err := s.mail.DeleteDomain(ctx, *d.EmailRecords.DomainID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete email domain",
				slog.String("domain_id", *d.EmailRecords.DomainID),
				slog.Any("error", err),
			)
		}
	}
}
