package edge

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudflare/cloudflare-go"
)

// Config holds edge provider credentials.
type Config struct {
	APIToken string `env:"CLOUDFLARE_API_TOKEN"`
	ZoneID   string `env:"CLOUDFLARE_ZONE_ID"`
	BaseURL  string `env:"CLOUDFLARE_API_URL"`
}

// Hostname is a custom hostname registered at the edge.
type Hostname struct {
	ID       string
	Hostname string
	Status   string
}

// Active reports whether the edge considers the hostname live.
func (h Hostname) Active() bool {
	return h.Status == string(cloudflare.ACTIVE)
}

// Client creates, deletes and inspects custom hostnames in one zone.
type Client struct {
	api    *cloudflare.API
	zoneID string
}

// New creates a Cloudflare-backed client.
func New(cfg Config, opts ...cloudflare.Option) (*Client, error) {
	if cfg.APIToken == "" || cfg.ZoneID == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL != "" {
		opts = append(opts, cloudflare.BaseURL(cfg.BaseURL))
	}
	api, err := cloudflare.NewWithAPIToken(cfg.APIToken, opts...)
	if err != nil {
		return nil, errors.Join(ErrMissingCredentials, err)
	}
	return &Client{api: api, zoneID: cfg.ZoneID}, nil
}

// CreateCustomHostname maps hostname to origin with an HTTP-validated DV certificate.
func (c *Client) CreateCustomHostname(ctx context.Context, hostname, origin string) (*Hostname, error) {
	hostname = normalize(hostname)
	if hostname == "" {
		return nil, ErrEmptyHostname
	}

	resp, err := c.api.CreateCustomHostname(ctx, c.zoneID, cloudflare.CustomHostname{
		Hostname:           hostname,
		CustomOriginServer: normalize(origin),
		SSL: &cloudflare.CustomHostnameSSL{
			Method: "http",
			Type:   "dv",
		},
	})
	if err != nil {
		return nil, errors.Join(ErrCreateFailed, err)
	}

	return &Hostname{
		ID:       resp.Result.ID,
		Hostname: resp.Result.Hostname,
		Status:   string(resp.Result.Status),
	}, nil
}

// DeleteCustomHostname removes a custom hostname by id.
func (c *Client) DeleteCustomHostname(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := c.api.DeleteCustomHostname(ctx, c.zoneID, id); err != nil {
		var notFound *cloudflare.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Join(ErrDeleteFailed, err)
	}
	return nil
}

// CheckCustomHostnameStatus reports whether hostname is registered and active.
// This reflects the provider's own validation and does not depend on DNS propagation
// as seen from this process.
func (c *Client) CheckCustomHostnameStatus(ctx context.Context, hostname string) (bool, error) {
	hostname = normalize(hostname)
	if hostname == "" {
		return false, ErrEmptyHostname
	}

	found, _, err := c.api.CustomHostnames(ctx, c.zoneID, 1, cloudflare.CustomHostname{Hostname: hostname})
	if err != nil {
		return false, errors.Join(ErrStatusFailed, err)
	}

	for _, h := range found {
		if normalize(h.Hostname) == hostname && h.Status == cloudflare.ACTIVE {
			return true, nil
		}
	}
	return false, nil
}

func normalize(host string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
}
