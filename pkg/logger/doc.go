// Package logger builds the slog logger used across the control plane.
//
// Output is JSON (or text) on stdout. Context extractors add request and
// deployment ids to every record logged with a context that carries them:
//
//	log, flush, err := logger.New(cfg.Log,
//		logger.RequestIDExtractor(),
//		logger.DeploymentIDExtractor(),
//	)
//	defer flush(2 * time.Second)
//
//	ctx = logger.WithDeploymentID(ctx, d.ID)
//	log.InfoContext(ctx, "custom hostname created") // carries deployment_id
//
// With SENTRY_DSN set, error records become Sentry issues and records at or
// above SENTRY_LOG_LEVEL are kept as Sentry logs.
package logger
