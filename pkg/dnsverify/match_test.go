package dnsverify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typ      RecordType
		expected string
		answer   string
		want     bool
	}{
		{name: "cname trailing dot", typ: TypeCNAME, expected: "host.example.com", answer: "host.example.com.", want: true},
		{name: "cname case insensitive", typ: TypeCNAME, expected: "Edge.Example.NET.", answer: "edge.example.net", want: true},
		{name: "cname mismatch", typ: TypeCNAME, expected: "edge.example.net", answer: "other.example.net.", want: false},
		{name: "txt quoted", typ: TypeTXT, expected: "abc123", answer: `"abc123"`, want: true},
		{name: "txt unquoted", typ: TypeTXT, expected: "abc123", answer: "abc123", want: true},
		{name: "txt strips one layer only", typ: TypeTXT, expected: "abc123", answer: `""abc123""`, want: false},
		{name: "txt case sensitive", typ: TypeTXT, expected: "abc123", answer: `"ABC123"`, want: false},
		{name: "a exact", typ: TypeA, expected: "192.0.2.10", answer: "192.0.2.10", want: true},
		{name: "a mismatch", typ: TypeA, expected: "192.0.2.10", answer: "192.0.2.11", want: false},
		{name: "mx host field", typ: TypeMX, expected: "feedback-smtp.us-east-1.amazonses.com", answer: "10 Feedback-SMTP.us-east-1.amazonses.com.", want: true},
		{name: "mx missing host", typ: TypeMX, expected: "mx.example.com", answer: "10", want: false},
		{name: "mx wrong host", typ: TypeMX, expected: "mx.example.com", answer: "10 mx2.example.com.", want: false},
		{name: "unknown type", typ: RecordType("AAAA"), expected: "::1", answer: "::1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Match(tt.typ, tt.expected, tt.answer))
		})
	}
}

func TestRecordType_Valid(t *testing.T) {
	t.Parallel()

	for _, rt := range []RecordType{TypeA, TypeCNAME, TypeTXT, TypeMX} {
		assert.True(t, rt.Valid(), rt)
	}
	assert.False(t, RecordType("NS").Valid())
	assert.False(t, RecordType("").Valid())
}
