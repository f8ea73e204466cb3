package dnsverify

import (
	"strings"
)

// RecordType is a DNS record type supported by verification.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeCNAME RecordType = "CNAME"
	TypeTXT   RecordType = "TXT"
	TypeMX    RecordType = "MX"
)

// Valid reports whether t is one of the supported record types.
func (t RecordType) Valid() bool {
	switch t {
	case TypeA, TypeCNAME, TypeTXT, TypeMX:
		return true
	}
	return false
}

// Match reports whether a resolved answer satisfies the expected value for the record type.
// Unknown types never match.
func Match(t RecordType, expected, answer string) bool {
	switch t {
	case TypeCNAME:
		return MatchCNAME(expected, answer)
	case TypeTXT:
		return MatchTXT(expected, answer)
	case TypeA:
		return MatchA(expected, answer)
	case TypeMX:
		return MatchMX(expected, answer)
	default:
		return false
	}
}

// MatchCNAME compares host names case-insensitively, ignoring a trailing dot on either side.
func MatchCNAME(expected, answer string) bool {
	return normalizeHost(expected) == normalizeHost(answer)
}

// MatchTXT strips exactly one layer of surrounding quotes from the answer and compares exactly.
func MatchTXT(expected, answer string) bool {
	return unquote(answer) == expected
}

// MatchA compares addresses exactly.
func MatchA(expected, answer string) bool {
	return expected == answer
}

// MatchMX takes the host field of a "preference host" answer and compares it like a CNAME.
func MatchMX(expected, answer string) bool {
	fields := strings.Fields(answer)
	if len(fields) < 2 {
		return false
	}
	return normalizeHost(expected) == normalizeHost(fields[1])
}

func normalizeHost(s string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
