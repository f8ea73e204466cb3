// Package dnsverify resolves DNS records and compares them against expected values.
//
// It backs custom domain and sending-domain verification: a record is expected to
// exist at a name with a type and value, and the package answers whether the live
// DNS currently agrees.
//
// # Resolving
//
// [DNSResolver] queries a fixed list of nameservers with github.com/miekg/dns and
// renders every answer in presentation form:
//
//	A      192.0.2.10
//	CNAME  edge.example.net.
//	TXT    "v=spf1 include:amazonses.com ~all"
//	MX     10 feedback-smtp.us-east-1.amazonses.com.
//
// A name that does not exist, or exists without records of the requested type,
// resolves to an empty slice and a nil error. Only transport and server failures
// are reported as [ErrDNSLookupFailed].
//
// # Matching
//
// [Match] applies per-type comparison rules to a single answer:
//
//   - CNAME: case-insensitive, trailing dot stripped on both sides
//   - TXT: one layer of surrounding quotes stripped from the answer, exact compare
//   - A: exact compare
//   - MX: the host field of "pref host" compared like a CNAME
//
// # Verifying
//
//	v := dnsverify.NewVerifier(dnsverify.NewDNSResolver(cfg))
//	ok, err := v.VerifyRecord(ctx, "accounts.example.com", dnsverify.TypeCNAME, "edge.example.net")
//
// VerifyRecord returns true on the first matching answer.
package dnsverify
