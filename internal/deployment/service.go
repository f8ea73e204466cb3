package deployment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
	"github.com/dmitrymomot/tenantplane/pkg/edge"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
	"github.com/dmitrymomot/tenantplane/pkg/mailer"
)

// Store persists deployments and their nested settings.
// Implementations return errors joined with ErrNotFound, ErrConflict or ErrStorage.
type Store interface {
	// CreateDeployment runs the uniqueness pre-checks and inserts the row with
	// its settings in one transaction.
	CreateDeployment(ctx context.Context, d *Deployment, settings *Settings) error
	GetDeployment(ctx context.Context, id string) (*Deployment, error)
	UpdateDeployment(ctx context.Context, id string, patch Patch) (*Deployment, error)
	// SoftDeleteDeployment marks the row and its settings deleted unconditionally.
	SoftDeleteDeployment(ctx context.Context, id string) error
	// DeleteProjectDeployment soft-deletes a deployment owned by projectID unless
	// it is the project's last live deployment. It returns the deleted row.
	DeleteProjectDeployment(ctx context.Context, id, projectID string) (*Deployment, error)
	// RecordVerification applies patch and appends events atomically.
	RecordVerification(ctx context.Context, id string, patch Patch, events []VerificationEvent) (*Deployment, error)
	// ListUnverifiedDeploymentIDs returns live production deployments still waiting for DNS.
	ListUnverifiedDeploymentIDs(ctx context.Context, limit int) ([]string, error)
	// ListVerificationEvents returns the history of a deployment, newest first.
	ListVerificationEvents(ctx context.Context, deploymentID string, limit int) ([]VerificationEvent, error)
}

// EdgeProvider manages custom hostnames at the edge.
type EdgeProvider interface {
	CreateCustomHostname(ctx context.Context, hostname, origin string) (*edge.Hostname, error)
	DeleteCustomHostname(ctx context.Context, id string) error
	CheckCustomHostnameStatus(ctx context.Context, hostname string) (bool, error)
}

// RecordVerifier checks a single DNS record against live answers.
type RecordVerifier interface {
	VerifyRecord(ctx context.Context, name string, t dnsverify.RecordType, expected string) (bool, error)
}

// Counter hands out numbers unique across every running instance.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// VerificationScheduler queues a deferred verification round.
type VerificationScheduler interface {
	ScheduleVerification(ctx context.Context, deploymentID string, delay time.Duration) error
}

// Config holds provisioning targets.
type Config struct {
	AccountsOrigin    string        `env:"EDGE_ACCOUNTS_ORIGIN" envDefault:"accounts.tenantplane.app"`
	APIOrigin         string        `env:"EDGE_API_ORIGIN" envDefault:"api.tenantplane.app"`
	StagingBaseDomain string        `env:"STAGING_BASE_DOMAIN" envDefault:"tenantplane.dev"`
	VerifyDelay       time.Duration `env:"VERIFY_DELAY" envDefault:"1m"`
	PollBatchSize     int           `env:"VERIFY_POLL_BATCH_SIZE" envDefault:"100"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		AccountsOrigin:    "accounts.tenantplane.app",
		APIOrigin:         "api.tenantplane.app",
		StagingBaseDomain: "tenantplane.dev",
		VerifyDelay:       time.Minute,
		PollBatchSize:     100,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithConfig overrides the provisioning targets.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScheduler enables delayed verification after production provisioning.
func WithScheduler(sch VerificationScheduler) Option {
	return func(s *Service) {
		s.scheduler = sch
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service provisions, verifies and removes deployments.
type Service struct {
	store     Store
	edge      EdgeProvider
	mail      mailer.DomainProvider
	dns       RecordVerifier
	counter   Counter
	scheduler VerificationScheduler
	logger    *slog.Logger
	now       func() time.Time
	config    Config
}

// NewService wires the deployment service.
func NewService(store Store, edgeProvider EdgeProvider, mail mailer.DomainProvider, dns RecordVerifier, counter Counter, opts ...Option) *Service {
	s := &Service{
		store:   store,
		edge:    edgeProvider,
		mail:    mail,
		dns:     dns,
		counter: counter,
		logger:  logger.NewNope(),
		now:     time.Now,
		config:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDeployment loads a live deployment.
func (s *Service) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	if id == "" {
		return nil, errors.Join(ErrNotFound, ErrDeploymentNotFound)
	}
	d, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return nil, storageError("get deployment", err)
	}
	return d, nil
}

// ListVerificationEvents returns up to limit record checks of a deployment, newest first.
func (s *Service) ListVerificationEvents(ctx context.Context, id string, limit int) ([]VerificationEvent, error) {
	if _, err := s.GetDeployment(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxEventsPage {
		limit = maxEventsPage
	}
	events, err := s.store.ListVerificationEvents(ctx, id, limit)
	if err != nil {
		return nil, storageError("list verification events", err)
	}
	return events, nil
}

const maxEventsPage = 200

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
