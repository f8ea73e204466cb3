// Package job runs background tasks on River, a Postgres-backed queue.
//
// All tasks share one River job kind. A task is any type with Name and
// Handle methods; the payload type is inferred from Handle:
//
//	type VerifyDeployment struct{ svc *deployment.Service }
//
//	func (t *VerifyDeployment) Name() string { return "verify_deployment_dns" }
//
//	func (t *VerifyDeployment) Handle(ctx context.Context, p Payload) error {
//		_, err := t.svc.VerifyDeploymentDNSRecords(ctx, p.DeploymentID)
//		return err
//	}
//
// Periodic tasks add a Schedule method returning a five-field cron
// expression and take no payload.
//
//	m, err := job.NewManager(pool,
//		job.WithTask[Payload](verify),
//		job.WithScheduledTask(poller),
//		job.WithLogger(log),
//	)
//
// Enqueue accepts per-call options. UniqueFor together with UniqueKey
// drops a duplicate insert for the same task and key inside the window:
//
//	m.Enqueue(ctx, "verify_deployment_dns", payload,
//		job.ScheduledIn(time.Minute),
//		job.UniqueFor(time.Minute),
//		job.UniqueKey(id),
//	)
//
// River's own tables are installed with [Migrate].
package job
