package deployment

import (
	"strings"
	"time"

	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
	"github.com/dmitrymomot/tenantplane/pkg/mailer"
)

// ExpectedDomainRecords returns the unverified CNAME records a customer must
// publish so both edge hostnames resolve to the platform origins.
func ExpectedDomainRecords(hosts Hosts, accountsOrigin, apiOrigin string) *DomainVerificationRecords {
	return &DomainVerificationRecords{
		CustomHostnameRecords: []DNSRecord{{
			Name:  hosts.Frontend,
			Type:  dnsverify.TypeCNAME,
			Value: accountsOrigin,
		}},
		EdgeRecords: []DNSRecord{{
			Name:  hosts.Backend,
			Type:  dnsverify.TypeCNAME,
			Value: apiOrigin,
		}},
	}
}

// EmailRecordsFromDomain translates a provider sending domain into record sets.
func EmailRecordsFromDomain(domain *mailer.Domain) *EmailVerificationRecords {
	domainID := domain.ID
	return &EmailVerificationRecords{
		DomainID:          &domainID,
		DKIMRecords:       toDNSRecords(domain.RecordsOf(mailer.RecordKindDKIM)),
		ReturnPathRecords: toDNSRecords(domain.RecordsOf(mailer.RecordKindReturnPath)),
	}
}

func toDNSRecords(in []mailer.DomainRecord) []DNSRecord {
	out := make([]DNSRecord, 0, len(in))
	for _, r := range in {
		out = append(out, DNSRecord{
			Name:     r.Name,
			Type:     dnsverify.RecordType(strings.ToUpper(r.Type)),
			Value:    r.Value,
			Verified: r.Verified,
		})
	}
	return out
}

// AreRecordsVerified reports whether every record is verified.
// An empty list is vacuously verified.
func AreRecordsVerified(records []DNSRecord) bool {
	for _, r := range records {
		if !r.Verified {
			return false
		}
	}
	return true
}

// AreDomainRecordsVerified ANDs both edge record sets.
func AreDomainRecordsVerified(r *DomainVerificationRecords) bool {
	if r == nil {
		return true
	}
	return AreRecordsVerified(r.EdgeRecords) && AreRecordsVerified(r.CustomHostnameRecords)
}

// AreEmailRecordsVerified ANDs the DKIM and return-path record sets.
func AreEmailRecordsVerified(r *EmailVerificationRecords) bool {
	if r == nil {
		return true
	}
	return AreRecordsVerified(r.DKIMRecords) && AreRecordsVerified(r.ReturnPathRecords)
}

func (r *DomainVerificationRecords) clone() *DomainVerificationRecords {
	if r == nil {
		return nil
	}
	c := *r
	c.EdgeRecords = cloneRecords(r.EdgeRecords)
	c.CustomHostnameRecords = cloneRecords(r.CustomHostnameRecords)
	return &c
}

func (r *EmailVerificationRecords) clone() *EmailVerificationRecords {
	if r == nil {
		return nil
	}
	c := *r
	c.DKIMRecords = cloneRecords(r.DKIMRecords)
	c.ReturnPathRecords = cloneRecords(r.ReturnPathRecords)
	return &c
}

func cloneRecords(in []DNSRecord) []DNSRecord {
	if in == nil {
		return []DNSRecord{}
	}
	out := make([]DNSRecord, len(in))
	copy(out, in)
	return out
}

// AdvanceVerification folds a verification round computed from an earlier
// read into the currently stored deployment, so concurrent rounds never move
// a deployment backwards. Record flags are ORed, timestamps keep the latest
// value, and provider ids missing from the round keep their stored value.
// It returns false when stored is already verified and nothing must be written.
func AdvanceVerification(stored *Deployment, p Patch) (Patch, bool) {
	if stored.VerificationStatus == StatusVerified {
		return Patch{}, false
	}

	out := p
	if p.DomainRecords != nil {
		out.DomainRecords = mergeDomainRecords(stored.DomainRecords, p.DomainRecords)
	}
	if p.EmailRecords != nil {
		out.EmailRecords = mergeEmailRecords(stored.EmailRecords, p.EmailRecords)
	}
	if p.VerificationStatus != nil && out.DomainRecords != nil && out.EmailRecords != nil &&
		AreDomainRecordsVerified(out.DomainRecords) && AreEmailRecordsVerified(out.EmailRecords) {
		status := StatusVerified
		out.VerificationStatus = &status
	}
	return out, true
}

func mergeDomainRecords(stored, fresh *DomainVerificationRecords) *DomainVerificationRecords {
	out := fresh.clone()
	if stored == nil {
		return out
	}
	if out.EdgeHostnameID == nil {
		out.EdgeHostnameID = stored.EdgeHostnameID
	}
	if out.CustomHostnameID == nil {
		out.CustomHostnameID = stored.CustomHostnameID
	}
	out.EdgeRecords = mergeRecords(stored.EdgeRecords, out.EdgeRecords)
	out.CustomHostnameRecords = mergeRecords(stored.CustomHostnameRecords, out.CustomHostnameRecords)
	return out
}

func mergeEmailRecords(stored, fresh *EmailVerificationRecords) *EmailVerificationRecords {
	out := fresh.clone()
	if stored == nil {
		return out
	}
	if out.DomainID == nil {
		out.DomainID = stored.DomainID
	}
	out.DKIMRecords = mergeRecords(stored.DKIMRecords, out.DKIMRecords)
	out.ReturnPathRecords = mergeRecords(stored.ReturnPathRecords, out.ReturnPathRecords)
	return out
}

// mergeRecords matches records by name, type and value. fresh is modified in place.
func mergeRecords(stored, fresh []DNSRecord) []DNSRecord {
	type key struct {
		name  string
		typ   dnsverify.RecordType
		value string
	}
	prev := make(map[key]DNSRecord, len(stored))
	for _, r := range stored {
		prev[key{r.Name, r.Type, r.Value}] = r
	}
	for i := range fresh {
		old, ok := prev[key{fresh[i].Name, fresh[i].Type, fresh[i].Value}]
		if !ok {
			continue
		}
		fresh[i].Verified = fresh[i].Verified || old.Verified
		fresh[i].LastVerifiedAt = latest(fresh[i].LastVerifiedAt, old.LastVerifiedAt)
		fresh[i].VerificationAttemptedAt = latest(fresh[i].VerificationAttemptedAt, old.VerificationAttemptedAt)
	}
	return fresh
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
