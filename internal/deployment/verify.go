package deployment

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantplane/pkg/logger"
)

// VerifyDomainRecords checks the edge record sets. The edge provider's own
// status is consulted first; DNS is used only when the provider errors.
// Every record gets an attempt timestamp; verified flags never move backwards.
func (s *Service) VerifyDomainRecords(ctx context.Context, records *DomainVerificationRecords) (*DomainVerificationRecords, []VerificationEvent) {
	if records == nil {
		return nil, nil
	}
	out := records.clone()
	now := s.clock()

	var events []VerificationEvent
	for i := range out.CustomHostnameRecords {
		events = append(events, s.verifyDomainRecord(ctx, &out.CustomHostnameRecords[i], RecordSetCustomHostname, now))
	}
	for i := range out.EdgeRecords {
		events = append(events, s.verifyDomainRecord(ctx, &out.EdgeRecords[i], RecordSetEdge, now))
	}
	return out, events
}

func (s *Service) verifyDomainRecord(ctx context.Context, r *DNSRecord, set string, now time.Time) VerificationEvent {
	ok, err := s.edge.CheckCustomHostnameStatus(ctx, r.Name)
	if err != nil {
		s.logger.WarnContext(ctx, "edge status check failed, falling back to dns",
			slog.String("hostname", r.Name),
			slog.Any("error", err),
		)
		ok = s.resolveRecord(ctx, r)
	}
	return stampRecord(r, set, ok, now)
}

// VerifyEmailRecords checks DKIM and return-path records over DNS.
// Records already verified are skipped because their values never change.
func (s *Service) VerifyEmailRecords(ctx context.Context, records *EmailVerificationRecords) (*EmailVerificationRecords, []VerificationEvent) {
	if records == nil {
		return nil, nil
	}
	out := records.clone()
	now := s.clock()

	var events []VerificationEvent
	check := func(list []DNSRecord, set string) {
		for i := range list {
			if list[i].Verified {
				continue
			}
			events = append(events, stampRecord(&list[i], set, s.resolveRecord(ctx, &list[i]), now))
		}
	}
	check(out.DKIMRecords, RecordSetDKIM)
	check(out.ReturnPathRecords, RecordSetReturnPath)
	return out, events
}

// resolveRecord degrades resolver failures to "not verified this round".
func (s *Service) resolveRecord(ctx context.Context, r *DNSRecord) bool {
	ok, err := s.dns.VerifyRecord(ctx, r.Name, r.Type, r.Value)
	if err != nil {
		s.logger.WarnContext(ctx, "dns verification failed",
			slog.String("name", r.Name),
			slog.String("type", string(r.Type)),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

func stampRecord(r *DNSRecord, set string, ok bool, now time.Time) VerificationEvent {
	attempted := now
	r.VerificationAttemptedAt = &attempted
	if ok {
		verified := now
		r.Verified = true
		r.LastVerifiedAt = &verified
	}
	return VerificationEvent{
		CheckedAt: now,
		RecordSet: set,
		Name:      r.Name,
		Type:      r.Type,
		Verified:  ok,
	}
}

// VerifyDeploymentDNSRecords runs one verification round for a deployment and
// persists the outcome. Provider and resolver failures only delay progress;
// errors are returned for missing deployments and storage failures.
// Verified deployments are returned as stored.
func (s *Service) VerifyDeploymentDNSRecords(ctx context.Context, id string) (*Deployment, error) {
	d, err := s.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.VerificationStatus == StatusVerified {
		return d, nil
	}
	ctx = logger.WithDeploymentID(ctx, d.ID)

	domainRecords := d.DomainRecords
	if domainRecords == nil {
		domainRecords = ExpectedDomainRecords(Hosts{Frontend: d.FrontendHost, Backend: d.BackendHost, MailFrom: d.MailFromHost}, s.config.AccountsOrigin, s.config.APIOrigin)
	}
	emailRecords := d.EmailRecords
	if emailRecords == nil {
		emailRecords = &EmailVerificationRecords{}
	}

	domainRecords, domainEvents := s.VerifyDomainRecords(ctx, domainRecords)
	emailRecords, emailEvents := s.VerifyEmailRecords(ctx, emailRecords)

	status := StatusInProgress
	if AreDomainRecordsVerified(domainRecords) && AreEmailRecordsVerified(emailRecords) {
		status = StatusVerified
	}

	events := append(domainEvents, emailEvents...)
	for i := range events {
		events[i].DeploymentID = d.ID
	}

	updated, err := s.store.RecordVerification(ctx, d.ID, Patch{
		VerificationStatus: &status,
		DomainRecords:      domainRecords,
		EmailRecords:       emailRecords,
	}, events)
	if err != nil {
		return nil, storageError("record verification", err)
	}

	s.logger.InfoContext(ctx, "deployment verification round finished",
		slog.String("status", string(updated.VerificationStatus)),
		slog.Int("checked", len(events)),
	)
	return updated, nil
}

// VerifyPendingDeployments runs a verification round for every deployment
// still waiting on DNS. A failing deployment does not stop the others.
// It returns how many deployments reached Verified.
func (s *Service) VerifyPendingDeployments(ctx context.Context) (int, error) {
	ids, err := s.store.ListUnverifiedDeploymentIDs(ctx, s.config.PollBatchSize)
	if err != nil {
		return 0, storageError("list unverified deployments", err)
	}

	verified := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return verified, err
		}
		d, err := s.VerifyDeploymentDNSRecords(ctx, id)
		if err != nil {
			s.logger.ErrorContext(ctx, "deployment verification failed",
				slog.String("deployment_id", id),
				slog.Any("error", err),
			)
			continue
		}
		if d.VerificationStatus == StatusVerified {
			verified++
		}
	}
	return verified, nil
}
