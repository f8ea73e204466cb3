package dnsverify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up the answers for a name and record type.
// Implementations return an empty slice, not an error, when no records exist.
type Resolver interface {
	Resolve(ctx context.Context, name string, t RecordType) ([]string, error)
}

// Config holds resolver settings.
type Config struct {
	Nameservers []string      `env:"DNS_NAMESERVERS" envSeparator:"," envDefault:"1.1.1.1:53,8.8.8.8:53"`
	Timeout     time.Duration `env:"DNS_TIMEOUT" envDefault:"5s"`
}

// DNSResolver queries nameservers directly, bypassing the host resolver and its cache.
// Queries go over UDP with EDNS0 and are retried over TCP when the answer is truncated.
type DNSResolver struct {
	client      *dns.Client
	tcp         *dns.Client
	nameservers []string
}

// ednsBufferSize is the UDP payload size advertised in queries.
const ednsBufferSize = 4096

// NewDNSResolver creates a resolver for the configured nameservers.
func NewDNSResolver(cfg Config) *DNSResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	servers := make([]string, 0, len(cfg.Nameservers))
	for _, s := range cfg.Nameservers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		servers = append(servers, s)
	}
	return &DNSResolver{
		client:      &dns.Client{Timeout: timeout},
		tcp:         &dns.Client{Net: "tcp", Timeout: timeout},
		nameservers: servers,
	}
}

// Resolve asks each nameserver in turn until one answers.
// NXDOMAIN and empty answers are reported as no records.
func (r *DNSResolver) Resolve(ctx context.Context, name string, t RecordType) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidInput
	}
	qtype, err := queryType(t)
	if err != nil {
		return nil, err
	}
	if len(r.nameservers) == 0 {
		return nil, ErrNoNameservers
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(strings.ToLower(strings.TrimSpace(name))), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(ednsBufferSize, false)

	var errs []error
	for _, server := range r.nameservers {
		resp, err := r.exchange(ctx, msg, server)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			return formatAnswers(resp.Answer, qtype), nil
		case dns.RcodeNameError:
			return []string{}, nil
		default:
			errs = append(errs, fmt.Errorf("%s: rcode %s", server, dns.RcodeToString[resp.Rcode]))
		}
	}

	return nil, errors.Join(ErrDNSLookupFailed, errors.Join(errs...))
}

func (r *DNSResolver) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	resp, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if !resp.Truncated {
		return resp, nil
	}
	resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("tcp retry: %w", err)
	}
	return resp, nil
}

func queryType(t RecordType) (uint16, error) {
	switch t {
	case TypeA:
		return dns.TypeA, nil
	case TypeCNAME:
		return dns.TypeCNAME, nil
	case TypeTXT:
		return dns.TypeTXT, nil
	case TypeMX:
		return dns.TypeMX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedRecordType, t)
	}
}

// formatAnswers renders answers of the requested type in presentation form.
// Records of other types in the answer section (a CNAME chain for an A query) are skipped.
func formatAnswers(rrs []dns.RR, qtype uint16) []string {
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		if rr.Header().Rrtype != qtype {
			continue
		}
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.CNAME:
			out = append(out, v.Target)
		case *dns.TXT:
			out = append(out, `"`+strings.Join(v.Txt, "")+`"`)
		case *dns.MX:
			out = append(out, strconv.Itoa(int(v.Preference))+" "+v.Mx)
		}
	}
	return out
}
