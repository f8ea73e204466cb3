package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
)

func (s *Store) insertEvents(ctx context.Context, tx pgx.Tx, events []deployment.VerificationEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := s.psql.Insert("deployment_verification_events").
		Columns("deployment_id", "record_set", "record_name", "record_type", "verified", "checked_at")
	for _, e := range events {
		q = q.Values(e.DeploymentID, e.RecordSet, e.Name, string(e.Type), e.Verified, e.CheckedAt)
	}
	return s.exec(ctx, tx, q)
}

// ListVerificationEvents returns the latest record checks of a deployment.
func (s *Store) ListVerificationEvents(ctx context.Context, deploymentID string, limit int) ([]deployment.VerificationEvent, error) {
	query, args, err := s.psql.Select("deployment_id", "record_set", "record_name", "record_type", "verified", "checked_at").
		From("deployment_verification_events").
		Where(sq.Eq{"deployment_id": deploymentID}).
		OrderBy("checked_at DESC", "id DESC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, storageErr("build events select", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list verification events", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (deployment.VerificationEvent, error) {
		var (
			e          deployment.VerificationEvent
			recordType string
		)
		err := row.Scan(&e.DeploymentID, &e.RecordSet, &e.Name, &recordType, &e.Verified, &e.CheckedAt)
		e.Type = dnsverify.RecordType(recordType)
		return e, err
	})
	if err != nil {
		return nil, storageErr("scan verification events", err)
	}
	return events, nil
}
