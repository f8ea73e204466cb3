package dnsverify

import (
	"context"
	"fmt"
	"strings"
)

// Verifier checks expected records against a Resolver.
type Verifier struct {
	resolver Resolver
}

// NewVerifier creates a verifier backed by the given resolver.
func NewVerifier(r Resolver) *Verifier {
	return &Verifier{resolver: r}
}

// VerifyRecord resolves name/type and reports whether any answer matches expected.
// "No records found" is a valid false, not an error.
func (v *Verifier) VerifyRecord(ctx context.Context, name string, t RecordType, expected string) (bool, error) {
	if strings.TrimSpace(name) == "" || !t.Valid() {
		return false, ErrInvalidInput
	}

	answers, err := v.resolver.Resolve(ctx, name, t)
	if err != nil {
		return false, fmt.Errorf("resolve %s %s: %w", t, name, err)
	}

	for _, answer := range answers {
		if Match(t, expected, answer) {
			return true, nil
		}
	}
	return false, nil
}
