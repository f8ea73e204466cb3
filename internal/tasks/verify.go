// Package tasks holds the background jobs that drive DNS verification of
// production deployments.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/pkg/job"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
)

const (
	VerifyDeploymentDNSName      = "verify_deployment_dns"
	VerifyPendingDeploymentsName = "verify_pending_deployments"
	VerifyPendingSchedule        = "*/5 * * * *"
)

// Verifier is the part of the deployment service the tasks drive.
type Verifier interface {
	VerifyDeploymentDNSRecords(ctx context.Context, id string) (*deployment.Deployment, error)
	VerifyPendingDeployments(ctx context.Context) (int, error)
}

type VerifyDeploymentDNSPayload struct {
	DeploymentID string `json:"deployment_id"`
}

// VerifyDeploymentDNS checks one deployment's records.
type VerifyDeploymentDNS struct {
	svc    Verifier
	logger *slog.Logger
}

func NewVerifyDeploymentDNS(svc Verifier, log *slog.Logger) *VerifyDeploymentDNS {
	if log == nil {
		log = logger.NewNope()
	}
	return &VerifyDeploymentDNS{svc: svc, logger: log}
}

func (t *VerifyDeploymentDNS) Name() string { return VerifyDeploymentDNSName }

func (t *VerifyDeploymentDNS) Handle(ctx context.Context, p VerifyDeploymentDNSPayload) error {
	if p.DeploymentID == "" {
		return job.ErrInvalidPayload
	}

	d, err := t.svc.VerifyDeploymentDNSRecords(ctx, p.DeploymentID)
	if errors.Is(err, deployment.ErrNotFound) {
		// Deleted between enqueue and run.
		t.logger.InfoContext(ctx, "deployment gone, skipping verification",
			slog.String("deployment_id", p.DeploymentID))
		return nil
	}
	if err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "deployment verified",
		slog.String("deployment_id", d.ID),
		slog.String("status", string(d.VerificationStatus)),
	)
	return nil
}

// VerifyPendingDeployments sweeps every unverified production deployment.
type VerifyPendingDeployments struct {
	svc    Verifier
	logger *slog.Logger
}

func NewVerifyPendingDeployments(svc Verifier, log *slog.Logger) *VerifyPendingDeployments {
	if log == nil {
		log = logger.NewNope()
	}
	return &VerifyPendingDeployments{svc: svc, logger: log}
}

func (t *VerifyPendingDeployments) Name() string     { return VerifyPendingDeploymentsName }
func (t *VerifyPendingDeployments) Schedule() string { return VerifyPendingSchedule }

func (t *VerifyPendingDeployments) Handle(ctx context.Context) error {
	start := time.Now()
	n, err := t.svc.VerifyPendingDeployments(ctx)
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "pending deployments swept",
		slog.Int("verified", n),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
