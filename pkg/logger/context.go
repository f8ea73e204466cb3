package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{ name string }

var (
	requestIDKey    = ctxKey{"request_id"}
	deploymentIDKey = ctxKey{"deployment_id"}
)

// WithRequestID stores the request id for RequestIDExtractor.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithDeploymentID stores the deployment id for DeploymentIDExtractor.
func WithDeploymentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deploymentIDKey, id)
}

// RequestIDExtractor adds request_id to every record logged with a request context.
func RequestIDExtractor() ContextExtractor {
	return stringExtractor(requestIDKey)
}

// DeploymentIDExtractor adds deployment_id to every record logged while a
// deployment is being provisioned or verified.
func DeploymentIDExtractor() ContextExtractor {
	return stringExtractor(deploymentIDKey)
}

func stringExtractor(key ctxKey) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(key).(string)
		if !ok || v == "" {
			return slog.Attr{}, false
		}
		return slog.String(key.name, v), true
	}
}
