package resend

import (
	"context"
	"errors"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/tenantplane/pkg/mailer"
)

var (
	ErrEmptyDomain      = errors.New("resend: domain name is required")
	ErrEmptyDomainID    = errors.New("resend: domain id is required")
	ErrCreateDomain     = errors.New("resend: failed to create domain")
	ErrDeleteDomain     = errors.New("resend: failed to delete domain")
	ErrDomainNotRemoved = errors.New("resend: domain was not removed")
)

// Domains implements mailer.DomainProvider using the Resend domains API.
type Domains struct {
	client *resend.Client
	config Config
}

// NewDomains creates a Resend domain provider.
func NewDomains(cfg Config) *Domains {
	return &Domains{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

// CreateDomain registers name as a sending domain and returns the DNS records
// Resend expects, split into DKIM and return-path groups.
func (d *Domains) CreateDomain(ctx context.Context, name string) (*mailer.Domain, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrEmptyDomain
	}

	resp, err := d.client.Domains.CreateWithContext(ctx, &resend.CreateDomainRequest{
		Name:   name,
		Region: d.config.Region,
	})
	if err != nil {
		return nil, errors.Join(ErrCreateDomain, err)
	}

	return &mailer.Domain{
		ID:      resp.Id,
		Name:    resp.Name,
		Status:  resp.Status,
		Records: convertRecords(name, resp.Records),
	}, nil
}

// DeleteDomain removes a sending domain by id.
func (d *Domains) DeleteDomain(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyDomainID
	}
	removed, err := d.client.Domains.RemoveWithContext(ctx, id)
	if err != nil {
		return errors.Join(ErrDeleteDomain, err)
	}
	if !removed {
		return ErrDomainNotRemoved
	}
	return nil
}

func convertRecords(domain string, records []resend.Record) []mailer.DomainRecord {
	out := make([]mailer.DomainRecord, 0, len(records))
	for _, r := range records {
		kind, ok := recordKind(r.Record)
		if !ok {
			continue
		}
		out = append(out, mailer.DomainRecord{
			Kind:     kind,
			Name:     qualify(r.Name, domain),
			Type:     strings.ToUpper(r.Type),
			Value:    r.Value,
			Verified: strings.EqualFold(r.Status, "verified"),
		})
	}
	return out
}

// recordKind maps Resend's record purpose to a record group.
// SPF covers both the bounce MX and the SPF TXT on the return-path subdomain.
func recordKind(purpose string) (mailer.DomainRecordKind, bool) {
	switch strings.ToUpper(purpose) {
	case "DKIM":
		return mailer.RecordKindDKIM, true
	case "SPF":
		return mailer.RecordKindReturnPath, true
	default:
		return "", false
	}
}

// qualify turns Resend's zone-relative names ("send", "resend._domainkey") into FQDNs.
func qualify(name, domain string) string {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	switch {
	case name == "" || name == "@":
		return domain
	case name == domain || strings.HasSuffix(name, "."+domain):
		return name
	default:
		return name + "." + domain
	}
}
