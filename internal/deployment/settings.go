package deployment

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/tenantplane/pkg/id"
)

// FirstFactor is the primary sign-in strategy shown first in the UI.
type FirstFactor string

const (
	FirstFactorEmailPassword    FirstFactor = "email_password"
	FirstFactorUsernamePassword FirstFactor = "username_password"
	FirstFactorPhonePassword    FirstFactor = "phone_password"
	FirstFactorEmailOTP         FirstFactor = "email_otp"
	FirstFactorEmailLink        FirstFactor = "email_link"
	FirstFactorPhoneOTP         FirstFactor = "phone_otp"
	FirstFactorPasskey          FirstFactor = "passkey"
	FirstFactorWeb3Wallet       FirstFactor = "web3_wallet"
	FirstFactorOAuth            FirstFactor = "oauth"
)

// AuthSettings enables identifiers and strategies for a deployment.
type AuthSettings struct {
	FirstFactor       FirstFactor `json:"first_factor"`
	OAuthProviders    []string    `json:"oauth_providers"`
	EmailEnabled      bool        `json:"email_enabled"`
	PhoneEnabled      bool        `json:"phone_enabled"`
	UsernameEnabled   bool        `json:"username_enabled"`
	PasswordEnabled   bool        `json:"password_enabled"`
	EmailOTPEnabled   bool        `json:"email_otp_enabled"`
	EmailLinkEnabled  bool        `json:"email_link_enabled"`
	PhoneOTPEnabled   bool        `json:"phone_otp_enabled"`
	PasskeyEnabled    bool        `json:"passkey_enabled"`
	Web3WalletEnabled bool        `json:"web3_wallet_enabled"`
}

// UISettings holds display settings and canonical URLs of the hosted pages.
type UISettings struct {
	AppName         string `json:"app_name"`
	LogoURL         string `json:"logo_url"`
	SignInURL       string `json:"sign_in_url"`
	SignUpURL       string `json:"sign_up_url"`
	UserProfileURL  string `json:"user_profile_url"`
	AfterSignInURL  string `json:"after_sign_in_url"`
	AfterSignOutURL string `json:"after_sign_out_url"`
}

// OrganizationSettings holds default roles assigned on creation and join.
type OrganizationSettings struct {
	WorkspaceCreatorRole    string `json:"workspace_creator_role"`
	WorkspaceMemberRole     string `json:"workspace_member_role"`
	OrganizationCreatorRole string `json:"organization_creator_role"`
	OrganizationMemberRole  string `json:"organization_member_role"`
}

// RestrictionSettings controls who may sign up.
type RestrictionSettings struct {
	SignUpMode            string `json:"sign_up_mode"`
	AllowlistEnabled      bool   `json:"allowlist_enabled"`
	BlocklistEnabled      bool   `json:"blocklist_enabled"`
	BlockSubaddresses     bool   `json:"block_subaddresses"`
	BlockDisposableEmails bool   `json:"block_disposable_emails"`
}

// Template is a default notification template.
type Template struct {
	Name    string `json:"name"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// KeyPair signs session tokens issued for the deployment.
type KeyPair struct {
	ID            string `json:"id"`
	Algorithm     string `json:"algorithm"`
	PublicKeyPEM  string `json:"public_key"`
	PrivateKeyPEM string `json:"-"`
}

// Settings groups every nested settings row created with a deployment.
type Settings struct {
	Auth           AuthSettings
	UI             UISettings
	Organization   OrganizationSettings
	Restrictions   RestrictionSettings
	SMSTemplates   []Template
	EmailTemplates []Template
	KeyPair        KeyPair
}

// DeriveAuthSettings turns requested method tokens into enable flags and a
// primary first factor. OTP and link strategies imply their identifier.
func DeriveAuthSettings(methods []string) (AuthSettings, error) {
	if err := ValidateAuthMethods(methods); err != nil {
		return AuthSettings{}, err
	}

	var s AuthSettings
	for _, m := range methods {
		switch m {
		case MethodEmail:
			s.EmailEnabled = true
		case MethodPhone:
			s.PhoneEnabled = true
		case MethodUsername:
			s.UsernameEnabled = true
		case MethodPassword:
			s.PasswordEnabled = true
		case MethodEmailOTP:
			s.EmailOTPEnabled, s.EmailEnabled = true, true
		case MethodEmailLink:
			s.EmailLinkEnabled, s.EmailEnabled = true, true
		case MethodPhoneOTP:
			s.PhoneOTPEnabled, s.PhoneEnabled = true, true
		case MethodPasskey:
			s.PasskeyEnabled = true
		case MethodWeb3Wallet:
			s.Web3WalletEnabled = true
		default:
			provider := strings.TrimPrefix(m, "oauth_")
			if !slices.Contains(s.OAuthProviders, provider) {
				s.OAuthProviders = append(s.OAuthProviders, provider)
			}
		}
	}

	if s.PasswordEnabled && !s.EmailEnabled && !s.PhoneEnabled && !s.UsernameEnabled {
		return AuthSettings{}, validationError(ErrPasswordNeedsIdentity, "add email, phone or username")
	}

	s.FirstFactor = primaryFirstFactor(s)
	if s.FirstFactor == "" {
		return AuthSettings{}, validationError(ErrNoFirstFactor, "identifiers alone cannot sign users in")
	}
	return s, nil
}

// primaryFirstFactor picks the first enabled strategy in order of preference.
func primaryFirstFactor(s AuthSettings) FirstFactor {
	switch {
	case s.PasswordEnabled && s.EmailEnabled:
		return FirstFactorEmailPassword
	case s.PasswordEnabled && s.UsernameEnabled:
		return FirstFactorUsernamePassword
	case s.PasswordEnabled && s.PhoneEnabled:
		return FirstFactorPhonePassword
	case s.EmailOTPEnabled:
		return FirstFactorEmailOTP
	case s.EmailLinkEnabled:
		return FirstFactorEmailLink
	case s.PhoneOTPEnabled:
		return FirstFactorPhoneOTP
	case s.PasskeyEnabled:
		return FirstFactorPasskey
	case s.Web3WalletEnabled:
		return FirstFactorWeb3Wallet
	case len(s.OAuthProviders) > 0:
		return FirstFactorOAuth
	default:
		return ""
	}
}

// DefaultUISettings roots the hosted page URLs at the frontend host.
func DefaultUISettings(appName, logoURL, frontendHost string) UISettings {
	base := "https://" + frontendHost
	return UISettings{
		AppName:         appName,
		LogoURL:         logoURL,
		SignInURL:       base + "/sign-in",
		SignUpURL:       base + "/sign-up",
		UserProfileURL:  base + "/user",
		AfterSignInURL:  base + "/user",
		AfterSignOutURL: base + "/sign-in",
	}
}

func defaultOrganizationSettings() OrganizationSettings {
	return OrganizationSettings{
		WorkspaceCreatorRole:    "admin",
		WorkspaceMemberRole:     "member",
		OrganizationCreatorRole: "admin",
		OrganizationMemberRole:  "member",
	}
}

func defaultRestrictions() RestrictionSettings {
	return RestrictionSettings{SignUpMode: "public"}
}

func defaultSMSTemplates() []Template {
	return []Template{
		{Name: "verification_code", Body: "{{app_name}}: your verification code is {{code}}"},
		{Name: "reset_password_code", Body: "{{app_name}}: use {{code}} to reset your password"},
	}
}

func defaultEmailTemplates() []Template {
	return []Template{
		{Name: "verification_code", Subject: "{{code}} is your {{app_name}} verification code", Body: "Enter {{code}} to continue signing in to {{app_name}}."},
		{Name: "magic_link", Subject: "Sign in to {{app_name}}", Body: "Follow {{link}} to sign in. The link expires in {{ttl_minutes}} minutes."},
		{Name: "reset_password_code", Subject: "Reset your {{app_name}} password", Body: "Use {{code}} to reset your password."},
		{Name: "invitation", Subject: "You have been invited to {{app_name}}", Body: "{{inviter_name}} invited you to join {{organization_name}}: {{link}}"},
		{Name: "new_sign_in", Subject: "New sign-in to your {{app_name}} account", Body: "We noticed a sign-in from {{device}} at {{time}}."},
	}
}

// GenerateKeyPair creates a fresh Ed25519 signing key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate signing key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	return KeyPair{
		ID:            "ins_" + strings.ToLower(id.NewShortID()),
		Algorithm:     "EdDSA",
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

// DefaultSettings builds every nested settings group for a new deployment.
func DefaultSettings(auth AuthSettings, appName, logoURL string, hosts Hosts) (*Settings, error) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Settings{
		Auth:           auth,
		UI:             DefaultUISettings(appName, logoURL, hosts.Frontend),
		Organization:   defaultOrganizationSettings(),
		Restrictions:   defaultRestrictions(),
		SMSTemplates:   defaultSMSTemplates(),
		EmailTemplates: defaultEmailTemplates(),
		KeyPair:        keyPair,
	}, nil
}
