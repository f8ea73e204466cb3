// Package redis wraps go-redis for the control plane.
//
// Open connects with retries, Healthcheck and Shutdown plug into the process
// lifecycle, and Counter provides an atomic INCR-backed sequence shared by
// every running instance. Staging hostnames draw their numeric suffix from it.
//
//	client, err := redis.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	counter := redis.NewCounter(client, "tenantplane:staging:counter")
//	n, err := counter.Next(ctx)
package redis
