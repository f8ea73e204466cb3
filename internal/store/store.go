package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/pkg/db"
)

const deploymentColumns = "id, project_id, mode, backend_host, frontend_host, mail_from_host, publishable_key, " +
	"maintenance_mode, verification_status, domain_verification_records, email_verification_records, " +
	"created_at, updated_at, deleted_at"

// Unique indexes that encode deployment invariants.
const (
	constraintOneProduction = "deployments_one_production_per_project"
	constraintBackendHost   = "deployments_backend_host_key"
	constraintFrontendHost  = "deployments_frontend_host_key"
	constraintMailFromHost  = "deployments_mail_from_host_key"
)

// Store is the PostgreSQL tenant store.
type Store struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
	now  func() time.Time
}

// New creates a store on top of a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}
}

// CreateProject registers a project. Projects are owned by the account
// service; the control plane only needs the row to exist.
func (s *Store) CreateProject(ctx context.Context, id uuid.UUID, name string) error {
	query, args, err := s.psql.Insert("projects").
		Columns("id", "name", "created_at").
		Values(id, name, s.now().UTC()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return storageErr("build project insert", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return storageErr("insert project", err)
	}
	return nil
}

// CreateDeployment checks the project and the uniqueness rules, then inserts
// the deployment with its settings in one transaction. The unique indexes
// remain the final arbiter when two requests race past the checks.
func (s *Store) CreateDeployment(ctx context.Context, d *deployment.Deployment, settings *deployment.Settings) error {
	projectID, err := uuid.Parse(d.ProjectID)
	if err != nil {
		return errors.Join(deployment.ErrNotFound, deployment.ErrProjectNotFound)
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND deleted_at IS NULL)`,
			projectID,
		).Scan(&exists); err != nil {
			return storageErr("check project", err)
		}
		if !exists {
			return errors.Join(deployment.ErrNotFound, deployment.ErrProjectNotFound)
		}

		if d.Mode == deployment.ModeProduction {
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM deployments WHERE project_id = $1 AND mode = 'production' AND deleted_at IS NULL)`,
				projectID,
			).Scan(&exists); err != nil {
				return storageErr("check production deployment", err)
			}
			if exists {
				return errors.Join(deployment.ErrConflict, deployment.ErrProductionExists)
			}
		}

		hosts := []string{d.BackendHost, d.FrontendHost, d.MailFromHost}
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM deployments WHERE deleted_at IS NULL AND
				(backend_host = ANY($1) OR frontend_host = ANY($1) OR mail_from_host = ANY($1)))`,
			hosts,
		).Scan(&exists); err != nil {
			return storageErr("check hostnames", err)
		}
		if exists {
			return errors.Join(deployment.ErrConflict, deployment.ErrHostnameTaken)
		}

		if err := s.insertDeployment(ctx, tx, d, projectID); err != nil {
			return err
		}
		return s.insertSettings(ctx, tx, d.ID, settings)
	})
	return mapError("create deployment", err)
}

func (s *Store) insertDeployment(ctx context.Context, tx pgx.Tx, d *deployment.Deployment, projectID uuid.UUID) error {
	domainJSON, err := marshalRecords(d.DomainRecords)
	if err != nil {
		return err
	}
	emailJSON, err := marshalRecords(d.EmailRecords)
	if err != nil {
		return err
	}

	query, args, err := s.psql.Insert("deployments").SetMap(map[string]any{
		"id":                          d.ID,
		"project_id":                  projectID,
		"mode":                        string(d.Mode),
		"backend_host":                d.BackendHost,
		"frontend_host":               d.FrontendHost,
		"mail_from_host":              d.MailFromHost,
		"publishable_key":             d.PublishableKey,
		"maintenance_mode":            d.MaintenanceMode,
		"verification_status":         string(d.VerificationStatus),
		"domain_verification_records": domainJSON,
		"email_verification_records":  emailJSON,
		"created_at":                  d.CreatedAt,
		"updated_at":                  d.UpdatedAt,
	}).ToSql()
	if err != nil {
		return storageErr("build deployment insert", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// GetDeployment loads a live deployment by id.
func (s *Store) GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error) {
	query, args, err := s.psql.Select(deploymentColumns).
		From("deployments").
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, storageErr("build deployment select", err)
	}
	d, err := scanDeployment(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("get deployment", err)
	}
	return d, nil
}

// UpdateDeployment applies patch to a live deployment and returns the new row.
func (s *Store) UpdateDeployment(ctx context.Context, id string, patch deployment.Patch) (*deployment.Deployment, error) {
	d, err := s.applyPatch(ctx, s.pool, id, patch)
	if err != nil {
		return nil, mapError("update deployment", err)
	}
	return d, nil
}

// RecordVerification persists a verification round and its history in one
// transaction. The row is locked and the round is merged into the stored
// state, so a stale round can never regress a deployment. A deployment that
// is already verified is returned as stored; only the events are appended.
func (s *Store) RecordVerification(ctx context.Context, id string, patch deployment.Patch, events []deployment.VerificationEvent) (*deployment.Deployment, error) {
	var updated *deployment.Deployment
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		query, args, err := s.lockQuery(id)
		if err != nil {
			return err
		}
		current, err := scanDeployment(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return err
		}
		merged, ok := deployment.AdvanceVerification(current, patch)
		if !ok {
			updated = current
			return s.insertEvents(ctx, tx, events)
		}
		d, err := s.applyPatch(ctx, tx, id, merged)
		if err != nil {
			return err
		}
		updated = d
		return s.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return nil, mapError("record verification", err)
	}
	return updated, nil
}

// lockQuery selects a live deployment row FOR UPDATE.
func (s *Store) lockQuery(id string) (string, []any, error) {
	query, args, err := s.psql.Select(deploymentColumns).
		From("deployments").
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", nil, storageErr("build deployment lock", err)
	}
	return query, args, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) applyPatch(ctx context.Context, q queryRower, id string, patch deployment.Patch) (*deployment.Deployment, error) {
	query, args, err := s.updateQuery(id, patch)
	if err != nil {
		return nil, err
	}
	return scanDeployment(q.QueryRow(ctx, query, args...))
}

// updateQuery renders patch as one parameterized UPDATE. Only set fields are
// written; updated_at always moves.
func (s *Store) updateQuery(id string, patch deployment.Patch) (string, []any, error) {
	values := map[string]any{"updated_at": s.now().UTC()}
	if patch.VerificationStatus != nil {
		values["verification_status"] = string(*patch.VerificationStatus)
	}
	if patch.MaintenanceMode != nil {
		values["maintenance_mode"] = *patch.MaintenanceMode
	}
	if patch.DomainRecords != nil {
		raw, err := marshalRecords(patch.DomainRecords)
		if err != nil {
			return "", nil, err
		}
		values["domain_verification_records"] = raw
	}
	if patch.EmailRecords != nil {
		raw, err := marshalRecords(patch.EmailRecords)
		if err != nil {
			return "", nil, err
		}
		values["email_verification_records"] = raw
	}

	query, args, err := s.psql.Update("deployments").
		SetMap(values).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		Suffix("RETURNING " + deploymentColumns).
		ToSql()
	if err != nil {
		return "", nil, storageErr("build deployment update", err)
	}
	return query, args, nil
}

// SoftDeleteDeployment marks a deployment and its settings deleted.
func (s *Store) SoftDeleteDeployment(ctx context.Context, id string) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return s.softDelete(ctx, tx, id)
	})
	return mapError("soft delete deployment", err)
}

// DeleteProjectDeployment soft-deletes one of a project's deployments. The
// project's live rows are locked so two concurrent deletes cannot remove the
// last two deployments.
func (s *Store) DeleteProjectDeployment(ctx context.Context, id, projectID string) (*deployment.Deployment, error) {
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return nil, errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}

	var deleted *deployment.Deployment
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+deploymentColumns+` FROM deployments
			WHERE project_id = $1 AND deleted_at IS NULL
			ORDER BY created_at FOR UPDATE`,
			pid,
		)
		if err != nil {
			return err
		}
		live, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*deployment.Deployment, error) {
			return scanDeployment(row)
		})
		if err != nil {
			return err
		}

		for _, d := range live {
			if d.ID == id {
				deleted = d
			}
		}
		if deleted == nil {
			return errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
		}
		if len(live) == 1 {
			return errors.Join(deployment.ErrConflict, deployment.ErrLastDeployment)
		}
		return s.softDelete(ctx, tx, id)
	})
	if err != nil {
		return nil, mapError("delete deployment", err)
	}

	now := s.now().UTC()
	deleted.DeletedAt = &now
	return deleted, nil
}

func (s *Store) softDelete(ctx context.Context, tx pgx.Tx, id string) error {
	now := s.now().UTC()
	for _, table := range append([]string{"deployments"}, settingsTables...) {
		key := "deployment_id"
		if table == "deployments" {
			key = "id"
		}
		query, args, err := s.psql.Update(table).
			Set("deleted_at", now).
			Where(sq.Eq{key: id, "deleted_at": nil}).
			ToSql()
		if err != nil {
			return storageErr("build soft delete", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("soft delete %s: %w", table, err)
		}
	}
	return nil
}

// ListUnverifiedDeploymentIDs returns live production deployments still
// waiting for DNS, least recently checked first.
func (s *Store) ListUnverifiedDeploymentIDs(ctx context.Context, limit int) ([]string, error) {
	query, args, err := s.psql.Select("id").
		From("deployments").
		Where(sq.Eq{
			"mode":                string(deployment.ModeProduction),
			"deleted_at":          nil,
			"verification_status": []string{string(deployment.StatusPending), string(deployment.StatusInProgress)},
		}).
		OrderBy("updated_at").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, storageErr("build unverified select", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list unverified deployments", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("scan unverified deployments", err)
	}
	return ids, nil
}

func (s *Store) exec(ctx context.Context, tx pgx.Tx, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return storageErr("build statement", err)
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func scanDeployment(row pgx.Row) (*deployment.Deployment, error) {
	var (
		d          deployment.Deployment
		projectID  uuid.UUID
		mode       string
		status     string
		domainJSON []byte
		emailJSON  []byte
	)
	if err := row.Scan(
		&d.ID, &projectID, &mode, &d.BackendHost, &d.FrontendHost, &d.MailFromHost, &d.PublishableKey,
		&d.MaintenanceMode, &status, &domainJSON, &emailJSON,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	); err != nil {
		return nil, err
	}
	d.ProjectID = projectID.String()
	d.Mode = deployment.Mode(mode)
	d.VerificationStatus = deployment.VerificationStatus(status)

	if len(domainJSON) > 0 {
		d.DomainRecords = &deployment.DomainVerificationRecords{}
		if err := json.Unmarshal(domainJSON, d.DomainRecords); err != nil {
			return nil, fmt.Errorf("decode domain records: %w", err)
		}
	}
	if len(emailJSON) > 0 {
		d.EmailRecords = &deployment.EmailVerificationRecords{}
		if err := json.Unmarshal(emailJSON, d.EmailRecords); err != nil {
			return nil, fmt.Errorf("decode email records: %w", err)
		}
	}
	return &d, nil
}

// marshalRecords encodes a record set, keeping SQL NULL for absent sets.
func marshalRecords[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, storageErr("encode records", err)
	}
	return raw, nil
}

// mapError turns driver errors into deployment error categories.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, deployment.ErrNotFound),
		errors.Is(err, deployment.ErrConflict),
		errors.Is(err, deployment.ErrStorage):
		return err
	case db.IsNoRows(err):
		return errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}

	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case constraintOneProduction:
			return errors.Join(deployment.ErrConflict, deployment.ErrProductionExists, err)
		case constraintBackendHost, constraintFrontendHost, constraintMailFromHost:
			return errors.Join(deployment.ErrConflict, deployment.ErrHostnameTaken, err)
		default:
			return errors.Join(deployment.ErrConflict, err)
		}
	}
	return storageErr(op, err)
}

func storageErr(op string, err error) error {
	return errors.Join(deployment.ErrStorage, fmt.Errorf("store: %s: %w", op, err))
}
