package resend

import (
	"context"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantplane/pkg/mailer"
)

func TestConvertRecords(t *testing.T) {
	t.Parallel()

	records := []resend.Record{
		{Record: "SPF", Name: "send", Type: "MX", Value: "feedback-smtp.us-east-1.amazonses.com", Status: "not_started"},
		{Record: "SPF", Name: "send", Type: "TXT", Value: "v=spf1 include:amazonses.com ~all", Status: "verified"},
		{Record: "DKIM", Name: "resend._domainkey", Type: "txt", Value: "p=MIGfMA0GCSqGSIb3", Status: "pending"},
		{Record: "DMARC", Name: "_dmarc", Type: "TXT", Value: "v=DMARC1; p=none;"},
	}

	got := convertRecords("example.com", records)

	assert.Equal(t, []mailer.DomainRecord{
		{Kind: mailer.RecordKindReturnPath, Name: "send.example.com", Type: "MX", Value: "feedback-smtp.us-east-1.amazonses.com"},
		{Kind: mailer.RecordKindReturnPath, Name: "send.example.com", Type: "TXT", Value: "v=spf1 include:amazonses.com ~all", Verified: true},
		{Kind: mailer.RecordKindDKIM, Name: "resend._domainkey.example.com", Type: "TXT", Value: "p=MIGfMA0GCSqGSIb3"},
	}, got)

	domain := &mailer.Domain{Records: got}
	assert.Len(t, domain.RecordsOf(mailer.RecordKindDKIM), 1)
	assert.Len(t, domain.RecordsOf(mailer.RecordKindReturnPath), 2)
}

func TestQualify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "relative", in: "send", want: "send.example.com"},
		{name: "apex marker", in: "@", want: "example.com"},
		{name: "empty", in: "", want: "example.com"},
		{name: "already qualified", in: "send.example.com.", want: "send.example.com"},
		{name: "uppercase", in: "Resend._DomainKey", want: "resend._domainkey.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, qualify(tt.in, "example.com"))
		})
	}
}

func TestDomains_Validation(t *testing.T) {
	t.Parallel()

	d := NewDomains(Config{APIKey: "re_test"})

	_, err := d.CreateDomain(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyDomain)

	assert.ErrorIs(t, d.DeleteDomain(context.Background(), ""), ErrEmptyDomainID)
}
