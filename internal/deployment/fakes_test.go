package deployment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
	"github.com/dmitrymomot/tenantplane/pkg/edge"
	"github.com/dmitrymomot/tenantplane/pkg/mailer"
)

var errProvider = errors.New("provider unavailable")

// memStore keeps deployments in memory and enforces the same uniqueness
// rules as the PostgreSQL store.
type memStore struct {
	mu          sync.Mutex
	projects    map[string]bool
	deployments map[string]*deployment.Deployment
	settings    map[string]*deployment.Settings
	events      []deployment.VerificationEvent
	updateErr   error
	updateCalls int
	failUpdate  int
	recordCalls int
}

func newMemStore(projects ...string) *memStore {
	s := &memStore{
		projects:    map[string]bool{},
		deployments: map[string]*deployment.Deployment{},
		settings:    map[string]*deployment.Settings{},
	}
	for _, p := range projects {
		s.projects[p] = true
	}
	return s
}

func (s *memStore) CreateDeployment(_ context.Context, d *deployment.Deployment, settings *deployment.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.projects[d.ProjectID] {
		return errors.Join(deployment.ErrNotFound, deployment.ErrProjectNotFound)
	}
	for _, existing := range s.deployments {
		if existing.DeletedAt != nil {
			continue
		}
		if d.Mode == deployment.ModeProduction && existing.Mode == deployment.ModeProduction && existing.ProjectID == d.ProjectID {
			return errors.Join(deployment.ErrConflict, deployment.ErrProductionExists)
		}
		if existing.BackendHost == d.BackendHost || existing.FrontendHost == d.FrontendHost || existing.MailFromHost == d.MailFromHost {
			return errors.Join(deployment.ErrConflict, deployment.ErrHostnameTaken)
		}
	}
	s.deployments[d.ID] = copyDeployment(d)
	s.settings[d.ID] = settings
	return nil
}

func (s *memStore) GetDeployment(_ context.Context, id string) (*deployment.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok || d.DeletedAt != nil {
		return nil, errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}
	return copyDeployment(d), nil
}

func (s *memStore) UpdateDeployment(_ context.Context, id string, p deployment.Patch) (*deployment.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil && s.updateCalls >= s.failUpdate {
		return nil, s.updateErr
	}
	return s.apply(id, p)
}

func (s *memStore) apply(id string, p deployment.Patch) (*deployment.Deployment, error) {
	d, ok := s.deployments[id]
	if !ok || d.DeletedAt != nil {
		return nil, errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}
	if p.VerificationStatus != nil {
		d.VerificationStatus = *p.VerificationStatus
	}
	if p.DomainRecords != nil {
		d.DomainRecords = p.DomainRecords
	}
	if p.EmailRecords != nil {
		d.EmailRecords = p.EmailRecords
	}
	if p.MaintenanceMode != nil {
		d.MaintenanceMode = *p.MaintenanceMode
	}
	d.UpdatedAt = d.UpdatedAt.Add(time.Second)
	s.deployments[id] = copyDeployment(d)
	return copyDeployment(d), nil
}

func (s *memStore) SoftDeleteDeployment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.deployments[id]; ok {
		now := time.Now()
		d.DeletedAt = &now
	}
	return nil
}

func (s *memStore) DeleteProjectDeployment(_ context.Context, id, projectID string) (*deployment.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[id]
	if !ok || d.DeletedAt != nil || d.ProjectID != projectID {
		return nil, errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}
	live := 0
	for _, other := range s.deployments {
		if other.ProjectID == projectID && other.DeletedAt == nil {
			live++
		}
	}
	if live <= 1 {
		return nil, errors.Join(deployment.ErrConflict, deployment.ErrLastDeployment)
	}
	now := time.Now()
	d.DeletedAt = &now
	return copyDeployment(d), nil
}

func (s *memStore) RecordVerification(_ context.Context, id string, p deployment.Patch, events []deployment.VerificationEvent) (*deployment.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordCalls++
	current, ok := s.deployments[id]
	if !ok || current.DeletedAt != nil {
		return nil, errors.Join(deployment.ErrNotFound, deployment.ErrDeploymentNotFound)
	}
	merged, write := deployment.AdvanceVerification(current, p)
	s.events = append(s.events, events...)
	if !write {
		return copyDeployment(current), nil
	}
	return s.apply(id, merged)
}

func (s *memStore) ListUnverifiedDeploymentIDs(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, d := range s.deployments {
		if d.DeletedAt != nil || d.Mode != deployment.ModeProduction || d.VerificationStatus == deployment.StatusVerified {
			continue
		}
		ids = append(ids, d.ID)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (s *memStore) ListVerificationEvents(_ context.Context, id string, limit int) ([]deployment.VerificationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []deployment.VerificationEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].DeploymentID == id {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *memStore) live(projectID string) []*deployment.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*deployment.Deployment
	for _, d := range s.deployments {
		if d.ProjectID == projectID && d.DeletedAt == nil {
			out = append(out, copyDeployment(d))
		}
	}
	return out
}

func (s *memStore) put(d *deployment.Deployment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[d.ProjectID] = true
	s.deployments[d.ID] = copyDeployment(d)
}

func copyDeployment(d *deployment.Deployment) *deployment.Deployment {
	c := *d
	if d.DomainRecords != nil {
		r := *d.DomainRecords
		r.EdgeRecords = append([]deployment.DNSRecord(nil), d.DomainRecords.EdgeRecords...)
		r.CustomHostnameRecords = append([]deployment.DNSRecord(nil), d.DomainRecords.CustomHostnameRecords...)
		c.DomainRecords = &r
	}
	if d.EmailRecords != nil {
		r := *d.EmailRecords
		r.DKIMRecords = append([]deployment.DNSRecord(nil), d.EmailRecords.DKIMRecords...)
		r.ReturnPathRecords = append([]deployment.DNSRecord(nil), d.EmailRecords.ReturnPathRecords...)
		c.EmailRecords = &r
	}
	return &c
}

// fakeEdge records hostname calls. failCreateOn makes the n-th create fail (1-based).
type fakeEdge struct {
	mu           sync.Mutex
	created      []string
	origins      map[string]string
	deleted      []string
	failCreateOn int
	deleteErr    error
	status       map[string]bool
	statusErr    error
	statusCalls  int
}

func newFakeEdge() *fakeEdge {
	return &fakeEdge{origins: map[string]string{}, status: map[string]bool{}}
}

func (e *fakeEdge) CreateCustomHostname(_ context.Context, hostname, origin string) (*edge.Hostname, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failCreateOn > 0 && len(e.created)+1 == e.failCreateOn {
		e.failCreateOn = 0
		return nil, errProvider
	}
	e.created = append(e.created, hostname)
	e.origins[hostname] = origin
	return &edge.Hostname{ID: "ch_" + hostname, Hostname: hostname, Status: "pending"}, nil
}

func (e *fakeEdge) DeleteCustomHostname(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, id)
	return e.deleteErr
}

func (e *fakeEdge) CheckCustomHostnameStatus(_ context.Context, hostname string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusCalls++
	if e.statusErr != nil {
		return false, e.statusErr
	}
	return e.status[hostname], nil
}

func (e *fakeEdge) setActive(hostname string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[hostname] = true
}

type fakeMail struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (m *fakeMail) CreateDomain(_ context.Context, name string) (*mailer.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, name)
	return &mailer.Domain{
		ID:     "dom_" + name,
		Name:   name,
		Status: "not_started",
		Records: []mailer.DomainRecord{
			{Kind: mailer.RecordKindReturnPath, Name: "send." + name, Type: "MX", Value: "feedback-smtp.us-east-1.amazonses.com"},
			{Kind: mailer.RecordKindReturnPath, Name: "send." + name, Type: "TXT", Value: "v=spf1 include:amazonses.com ~all"},
			{Kind: mailer.RecordKindDKIM, Name: "resend._domainkey." + name, Type: "TXT", Value: "p=MIGfMA0"},
		},
	}, nil
}

func (m *fakeMail) DeleteDomain(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.deleteErr
}

// fakeResolver answers from a table keyed by "TYPE name".
type fakeResolver struct {
	mu      sync.Mutex
	answers map[string][]string
	err     error
	calls   []string
	gate    *resolverGate
}

// resolverGate parks the first lookup of key until release is closed and then
// fails it with err.
type resolverGate struct {
	key     string
	entered chan struct{}
	release chan struct{}
	err     error
}

func (r *fakeResolver) hold(t dnsverify.RecordType, name string, err error) *resolverGate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = &resolverGate{
		key:     fmt.Sprintf("%s %s", t, name),
		entered: make(chan struct{}),
		release: make(chan struct{}),
		err:     err,
	}
	return r.gate
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{answers: map[string][]string{}}
}

func (r *fakeResolver) Resolve(_ context.Context, name string, t dnsverify.RecordType) ([]string, error) {
	key := fmt.Sprintf("%s %s", t, name)
	r.mu.Lock()
	r.calls = append(r.calls, key)
	gate := r.gate
	if gate != nil && gate.key == key {
		r.gate = nil
	} else {
		gate = nil
	}
	err, answers := r.err, r.answers[key]
	r.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
		return nil, gate.err
	}
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *fakeResolver) set(t dnsverify.RecordType, name string, answers ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[fmt.Sprintf("%s %s", t, name)] = answers
}

func (r *fakeResolver) queried(t dnsverify.RecordType, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s %s", t, name)
	for _, c := range r.calls {
		if c == key {
			return true
		}
	}
	return false
}

type fakeCounter struct {
	mu  sync.Mutex
	n   int64
	err error
}

func (c *fakeCounter) Next(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.n++
	return c.n, nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	ids   []string
	delay time.Duration
	err   error
}

func (s *fakeScheduler) ScheduleVerification(_ context.Context, id string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.delay = delay
	return s.err
}

type harness struct {
	store     *memStore
	edge      *fakeEdge
	mail      *fakeMail
	resolver  *fakeResolver
	counter   *fakeCounter
	scheduler *fakeScheduler
	svc       *deployment.Service
}

const testProject = "0b9d2c52-6a3c-4f7e-9d59-0d5e3c1f0a11"

func newHarness(opts ...deployment.Option) *harness {
	h := &harness{
		store:     newMemStore(testProject),
		edge:      newFakeEdge(),
		mail:      &fakeMail{},
		resolver:  newFakeResolver(),
		counter:   &fakeCounter{},
		scheduler: &fakeScheduler{},
	}
	cfg := deployment.DefaultConfig()
	cfg.AccountsOrigin = "accounts-origin.example.net"
	cfg.APIOrigin = "api-origin.example.net"
	cfg.StagingBaseDomain = "staging.example.net"
	cfg.VerifyDelay = 30 * time.Second

	opts = append([]deployment.Option{deployment.WithConfig(cfg), deployment.WithScheduler(h.scheduler)}, opts...)
	h.svc = deployment.NewService(h.store, h.edge, h.mail, dnsverify.NewVerifier(h.resolver), h.counter, opts...)
	return h
}
