// Package edge manages customer-owned hostnames at the CDN edge.
//
// A custom hostname maps a customer DNS name (accounts.example.com) through the
// edge provider to a platform origin. The package wraps the Cloudflare custom
// hostnames API via github.com/cloudflare/cloudflare-go:
//
//	client, err := edge.New(edge.Config{
//		APIToken: os.Getenv("CLOUDFLARE_API_TOKEN"),
//		ZoneID:   os.Getenv("CLOUDFLARE_ZONE_ID"),
//	})
//
//	h, err := client.CreateCustomHostname(ctx, "accounts.example.com", "accounts.tenantplane.net")
//	active, err := client.CheckCustomHostnameStatus(ctx, "accounts.example.com")
//	err = client.DeleteCustomHostname(ctx, h.ID)
//
// Deleting an id the provider no longer knows is treated as success so cleanup
// paths can be retried freely.
package edge
