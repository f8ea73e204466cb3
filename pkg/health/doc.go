// Package health serves liveness and readiness probes.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//		"jobs":     job.Healthcheck(manager),
//	}, health.WithLogger(log)))
//
// Responses are JSON. Probes that only look at the status code can ignore
// the body; ?format=text returns a bare "OK" or "Service Unavailable".
package health
