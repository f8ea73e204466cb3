package mailer

import "context"

// DomainRecordKind groups the DNS records a sending domain needs.
type DomainRecordKind string

const (
	// RecordKindDKIM proves the provider may sign mail for the domain.
	RecordKindDKIM DomainRecordKind = "DKIM"
	// RecordKindReturnPath routes bounces (MX) and authorizes the sender (SPF TXT).
	RecordKindReturnPath DomainRecordKind = "RETURN_PATH"
)

// DomainRecord is one DNS record the provider expects for a sending domain.
// Name is fully qualified; for MX records Value holds the mail host only.
type DomainRecord struct {
	Kind     DomainRecordKind
	Name     string
	Type     string
	Value    string
	Verified bool
}

// Domain is a sending-domain identity registered with the provider.
type Domain struct {
	ID      string
	Name    string
	Status  string
	Records []DomainRecord
}

// RecordsOf returns the records of one kind, in provider order.
func (d *Domain) RecordsOf(kind DomainRecordKind) []DomainRecord {
	var out []DomainRecord
	for _, r := range d.Records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// DomainProvider creates and removes sending-domain identities.
type DomainProvider interface {
	CreateDomain(ctx context.Context, name string) (*Domain, error)
	DeleteDomain(ctx context.Context, id string) error
}
