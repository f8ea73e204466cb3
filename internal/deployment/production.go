package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/tenantplane/pkg/id"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
	"github.com/dmitrymomot/tenantplane/pkg/saga"
)

// Production saga step names. Provider failures carry them in ExternalError.Step;
// other step failures are prefixed with them.
const (
	StepInsertDeployment       = "insert_deployment"
	StepPersistDomainRecords   = "persist_domain_records"
	StepCreateAccountsHostname = "create_accounts_hostname"
	StepCreateAPIHostname      = "create_api_hostname"
	StepCreateEmailDomain      = "create_email_domain"
)

// CreateProductionParams is the input of CreateProductionDeployment.
type CreateProductionParams struct {
	ProjectID   string
	Domain      string
	AuthMethods []string
}

// CreateProductionDeployment provisions a customer-domain deployment.
// Validation failures return before any mutation. Once the row exists, a
// failing step undoes everything already done, so callers never receive a
// half-created deployment. The result is Pending and carries the DNS records
// the customer must publish.
func (s *Service) CreateProductionDeployment(ctx context.Context, p CreateProductionParams) (*Deployment, error) {
	projectID := strings.TrimSpace(p.ProjectID)
	if projectID == "" {
		return nil, validationError(ErrInvalidProjectID, "project id is required")
	}
	domain := NormalizeDomain(p.Domain)
	if err := ValidateDomainFormat(domain); err != nil {
		return nil, err
	}
	auth, err := DeriveAuthSettings(p.AuthMethods)
	if err != nil {
		return nil, err
	}

	hosts := ProductionHosts(domain)
	settings, err := DefaultSettings(auth, domain, "", hosts)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	run := &productionRun{
		svc:      s,
		domain:   domain,
		settings: settings,
		deployment: &Deployment{
			ID:                 id.NewULID(),
			ProjectID:          projectID,
			Mode:               ModeProduction,
			BackendHost:        hosts.Backend,
			FrontendHost:       hosts.Frontend,
			MailFromHost:       hosts.MailFrom,
			PublishableKey:     PublishableKey(ModeProduction, hosts.Backend),
			VerificationStatus: StatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}
	ctx = logger.WithDeploymentID(ctx, run.deployment.ID)

	err = saga.New("create_production_deployment", saga.WithLogger(s.logger)).
		AddStep(StepInsertDeployment, run.insertDeployment, run.removeDeployment).
		AddStep(StepPersistDomainRecords, run.persistDomainRecords, nil).
		AddStep(StepCreateAccountsHostname, run.createAccountsHostname, run.deleteAccountsHostname).
		AddStep(StepCreateAPIHostname, run.createAPIHostname, run.deleteAPIHostname).
		AddStep(StepCreateEmailDomain, run.createEmailDomain, run.deleteEmailDomain).
		Run(ctx)
	if err != nil {
		var stepErr *saga.StepError
		if !errors.As(err, &stepErr) {
			return nil, err
		}
		var extErr *ExternalError
		if errors.As(stepErr.Err, &extErr) {
			return nil, stepErr.Err
		}
		return nil, fmt.Errorf("%s: %w", stepErr.Step, stepErr.Err)
	}

	s.logger.InfoContext(ctx, "production deployment provisioned",
		slog.String("project_id", projectID),
		slog.String("domain", domain),
	)
	s.scheduleVerification(ctx, run.deployment.ID)
	return run.deployment, nil
}

// scheduleVerification queues the first verification round. Failure is
// logged only: the periodic sweep picks the deployment up anyway.
func (s *Service) scheduleVerification(ctx context.Context, deploymentID string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleVerification(ctx, deploymentID, s.config.VerifyDelay); err != nil {
		s.logger.WarnContext(ctx, "failed to schedule deployment verification", slog.Any("error", err))
	}
}

// productionRun carries the state shared by the production saga steps.
type productionRun struct {
	svc        *Service
	deployment *Deployment
	settings   *Settings
	domain     string
}

func (r *productionRun) insertDeployment(ctx context.Context) error {
	if err := r.svc.store.CreateDeployment(ctx, r.deployment, r.settings); err != nil {
		return storageError("insert deployment", err)
	}
	return nil
}

func (r *productionRun) removeDeployment(ctx context.Context) error {
	return r.svc.store.SoftDeleteDeployment(ctx, r.deployment.ID)
}

func (r *productionRun) persistDomainRecords(ctx context.Context) error {
	records := ExpectedDomainRecords(r.hosts(), r.svc.config.AccountsOrigin, r.svc.config.APIOrigin)
	return r.patch(ctx, Patch{DomainRecords: records})
}

func (r *productionRun) createAccountsHostname(ctx context.Context) error {
	records := r.domainRecords()
	if records.CustomHostnameID != nil {
		return nil
	}

	h, err := r.svc.edge.CreateCustomHostname(ctx, r.deployment.FrontendHost, r.svc.config.AccountsOrigin)
	if err != nil {
		return &ExternalError{Step: StepCreateAccountsHostname, Err: err}
	}
	records.CustomHostnameID = &h.ID

	if err := r.patch(ctx, Patch{DomainRecords: records}); err != nil {
		r.undo(ctx, StepCreateAccountsHostname, func(ctx context.Context) error {
			return r.svc.edge.DeleteCustomHostname(ctx, h.ID)
		})
		return err
	}
	return nil
}

func (r *productionRun) deleteAccountsHostname(ctx context.Context) error {
	if r.deployment.DomainRecords == nil || r.deployment.DomainRecords.CustomHostnameID == nil {
		return nil
	}
	return r.svc.edge.DeleteCustomHostname(ctx, *r.deployment.DomainRecords.CustomHostnameID)
}

func (r *productionRun) createAPIHostname(ctx context.Context) error {
	records := r.domainRecords()
	if records.EdgeHostnameID != nil {
		return nil
	}

	h, err := r.svc.edge.CreateCustomHostname(ctx, r.deployment.BackendHost, r.svc.config.APIOrigin)
	if err != nil {
		return &ExternalError{Step: StepCreateAPIHostname, Err: err}
	}
	records.EdgeHostnameID = &h.ID

	if err := r.patch(ctx, Patch{DomainRecords: records}); err != nil {
		r.undo(ctx, StepCreateAPIHostname, func(ctx context.Context) error {
			return r.svc.edge.DeleteCustomHostname(ctx, h.ID)
		})
		return err
	}
	return nil
}

func (r *productionRun) deleteAPIHostname(ctx context.Context) error {
	if r.deployment.DomainRecords == nil || r.deployment.DomainRecords.EdgeHostnameID == nil {
		return nil
	}
	return r.svc.edge.DeleteCustomHostname(ctx, *r.deployment.DomainRecords.EdgeHostnameID)
}

func (r *productionRun) createEmailDomain(ctx context.Context) error {
	if r.deployment.EmailRecords != nil && r.deployment.EmailRecords.DomainID != nil {
		return nil
	}

	domain, err := r.svc.mail.CreateDomain(ctx, r.domain)
	if err != nil {
		return &ExternalError{Step: StepCreateEmailDomain, Err: err}
	}

	if err := r.patch(ctx, Patch{EmailRecords: EmailRecordsFromDomain(domain)}); err != nil {
		r.undo(ctx, StepCreateEmailDomain, func(ctx context.Context) error {
			return r.svc.mail.DeleteDomain(ctx, domain.ID)
		})
		return err
	}
	return nil
}

func (r *productionRun) deleteEmailDomain(ctx context.Context) error {
	if r.deployment.EmailRecords == nil || r.deployment.EmailRecords.DomainID == nil {
		return nil
	}
	return r.svc.mail.DeleteDomain(ctx, *r.deployment.EmailRecords.DomainID)
}

// patch persists a change and keeps the in-flight copy in sync.
func (r *productionRun) patch(ctx context.Context, p Patch) error {
	updated, err := r.svc.store.UpdateDeployment(ctx, r.deployment.ID, p)
	if err != nil {
		return storageError("update deployment", err)
	}
	r.deployment = updated
	return nil
}

// undo releases a provider resource created by a step whose own persistence
// failed; the saga only compensates steps that completed.
func (r *productionRun) undo(ctx context.Context, step string, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		r.svc.logger.ErrorContext(ctx, "failed to release provider resource",
			slog.String("step", step),
			slog.Any("error", err),
		)
	}
}

func (r *productionRun) domainRecords() *DomainVerificationRecords {
	if r.deployment.DomainRecords == nil {
		return ExpectedDomainRecords(r.hosts(), r.svc.config.AccountsOrigin, r.svc.config.APIOrigin)
	}
	return r.deployment.DomainRecords.clone()
}

func (r *productionRun) hosts() Hosts {
	return Hosts{
		Frontend: r.deployment.FrontendHost,
		Backend:  r.deployment.BackendHost,
		MailFrom: r.deployment.MailFromHost,
	}
}
