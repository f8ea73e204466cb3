package deployment

import (
	"strings"
)

const (
	maxHostLength  = 253
	maxLabelLength = 63

	// maxDomainLength leaves room for the longest derived host prefix.
	maxDomainLength = maxHostLength - len(frontendPrefix)
)

// Auth method tokens accepted from callers.
const (
	MethodEmail          = "email"
	MethodPhone          = "phone"
	MethodUsername       = "username"
	MethodPassword       = "password"
	MethodEmailOTP       = "email_otp"
	MethodEmailLink      = "email_link"
	MethodPhoneOTP       = "phone_otp"
	MethodPasskey        = "passkey"
	MethodWeb3Wallet     = "web3_wallet"
	MethodOAuthGoogle    = "oauth_google"
	MethodOAuthGitHub    = "oauth_github"
	MethodOAuthMicrosoft = "oauth_microsoft"
	MethodOAuthApple     = "oauth_apple"
	MethodOAuthDiscord   = "oauth_discord"
	MethodOAuthLinkedIn  = "oauth_linkedin"
)

var allowedAuthMethods = map[string]struct{}{
	MethodEmail:          {},
	MethodPhone:          {},
	MethodUsername:       {},
	MethodPassword:       {},
	MethodEmailOTP:       {},
	MethodEmailLink:      {},
	MethodPhoneOTP:       {},
	MethodPasskey:        {},
	MethodWeb3Wallet:     {},
	MethodOAuthGoogle:    {},
	MethodOAuthGitHub:    {},
	MethodOAuthMicrosoft: {},
	MethodOAuthApple:     {},
	MethodOAuthDiscord:   {},
	MethodOAuthLinkedIn:  {},
}

// ValidateDomainFormat checks that domain is a bare host name: 1-244 characters,
// so every derived host stays within 253,
// no scheme, port, path, query or fragment, at least two dot-separated labels,
// each 1-63 alphanumeric-or-hyphen characters not starting or ending with a hyphen.
func ValidateDomainFormat(domain string) error {
	if len(domain) == 0 || len(domain) > maxDomainLength {
		return validationError(ErrInvalidDomain, "length must be between 1 and %d", maxDomainLength)
	}
	if strings.ContainsAny(domain, ":/?#") {
		return validationError(ErrInvalidDomain, "must not contain a scheme, port, path, query or fragment")
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return validationError(ErrInvalidDomain, "must contain at least two labels")
	}

	for _, label := range labels {
		if len(label) == 0 || len(label) > maxLabelLength {
			return validationError(ErrInvalidDomain, "label %q must be between 1 and %d characters", label, maxLabelLength)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return validationError(ErrInvalidDomain, "label %q must not start or end with a hyphen", label)
		}
		for i := 0; i < len(label); i++ {
			if !isLabelChar(label[i]) {
				return validationError(ErrInvalidDomain, "label %q contains invalid character %q", label, label[i])
			}
		}
	}

	return nil
}

func isLabelChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-'
}

// ValidateAuthMethods fails when methods is empty or contains an unknown token.
func ValidateAuthMethods(methods []string) error {
	if len(methods) == 0 {
		return validationError(ErrInvalidAuthMethods, "at least one auth method is required")
	}
	for _, m := range methods {
		if _, ok := allowedAuthMethods[m]; !ok {
			return validationError(ErrInvalidAuthMethods, "unsupported auth method %q", m)
		}
	}
	return nil
}

// NormalizeDomain trims whitespace and lowercases a customer domain.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
