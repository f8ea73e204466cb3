package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantplane/pkg/job"
)

// Enqueuer is satisfied by *job.Manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

var ErrSchedulerDetached = errors.New("tasks: scheduler has no job manager attached")

// Scheduler enqueues a delayed verification job per deployment. Repeated
// calls for the same deployment within the delay collapse into one job.
//
// The job manager needs the service for its workers and the service needs
// the scheduler, so the manager is attached after both exist.
type Scheduler struct {
	jobs Enqueuer
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Attach sets the queue. Call it before the service handles requests.
func (s *Scheduler) Attach(jobs Enqueuer) {
	s.jobs = jobs
}

func (s *Scheduler) ScheduleVerification(ctx context.Context, deploymentID string, delay time.Duration) error {
	if s.jobs == nil {
		return ErrSchedulerDetached
	}
	return s.jobs.Enqueue(ctx, VerifyDeploymentDNSName,
		VerifyDeploymentDNSPayload{DeploymentID: deploymentID},
		job.ScheduledIn(delay),
		job.MaxAttempts(1),
		job.UniqueFor(max(delay, time.Second)),
		job.UniqueKey(deploymentID),
	)
}

// Options returns the job manager options registering both tasks.
func Options(svc Verifier, log *slog.Logger) []job.Option {
	return []job.Option{
		job.WithTask[VerifyDeploymentDNSPayload](NewVerifyDeploymentDNS(svc, log)),
		job.WithScheduledTask(NewVerifyPendingDeployments(svc, log)),
	}
}
