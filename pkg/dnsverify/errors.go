package dnsverify

import "errors"

var (
	ErrDNSLookupFailed       = errors.New("dnsverify: dns lookup failed")
	ErrInvalidInput          = errors.New("dnsverify: invalid record name or type")
	ErrUnsupportedRecordType = errors.New("dnsverify: unsupported record type")
	ErrNoNameservers         = errors.New("dnsverify: no nameservers configured")
)
