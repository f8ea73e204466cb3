package deployment_test

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
)

func TestDeriveAuthSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		methods []string
		want    deployment.FirstFactor
		check   func(t *testing.T, s deployment.AuthSettings)
		wantErr error
	}{
		{
			name:    "email and password",
			methods: []string{"email", "password", "oauth_google"},
			want:    deployment.FirstFactorEmailPassword,
			check: func(t *testing.T, s deployment.AuthSettings) {
				assert.True(t, s.EmailEnabled)
				assert.True(t, s.PasswordEnabled)
				assert.Equal(t, []string{"google"}, s.OAuthProviders)
			},
		},
		{name: "username and password", methods: []string{"username", "password"}, want: deployment.FirstFactorUsernamePassword},
		{name: "phone and password", methods: []string{"phone", "password"}, want: deployment.FirstFactorPhonePassword},
		{
			name:    "email otp implies email",
			methods: []string{"email_otp"},
			want:    deployment.FirstFactorEmailOTP,
			check: func(t *testing.T, s deployment.AuthSettings) {
				assert.True(t, s.EmailEnabled)
				assert.False(t, s.PasswordEnabled)
			},
		},
		{name: "otp preferred over link", methods: []string{"email_link", "email_otp"}, want: deployment.FirstFactorEmailOTP},
		{name: "phone otp", methods: []string{"phone_otp"}, want: deployment.FirstFactorPhoneOTP},
		{name: "passkey", methods: []string{"passkey", "email"}, want: deployment.FirstFactorPasskey},
		{name: "web3", methods: []string{"web3_wallet"}, want: deployment.FirstFactorWeb3Wallet},
		{
			name:    "oauth only, duplicates collapse",
			methods: []string{"oauth_github", "oauth_github", "oauth_apple"},
			want:    deployment.FirstFactorOAuth,
			check: func(t *testing.T, s deployment.AuthSettings) {
				assert.Equal(t, []string{"github", "apple"}, s.OAuthProviders)
			},
		},
		{name: "identifier only", methods: []string{"email", "phone"}, wantErr: deployment.ErrNoFirstFactor},
		{name: "password alone", methods: []string{"password"}, wantErr: deployment.ErrPasswordNeedsIdentity},
		{name: "unknown", methods: []string{"email", "carrier_pigeon"}, wantErr: deployment.ErrInvalidAuthMethods},
		{name: "empty", methods: nil, wantErr: deployment.ErrInvalidAuthMethods},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := deployment.DeriveAuthSettings(tt.methods)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, deployment.ErrValidation)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.FirstFactor)
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestGenerateKeyPair(t *testing.T) {
	t.Parallel()

	kp, err := deployment.GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kp.ID, "ins_"))
	assert.Equal(t, "EdDSA", kp.Algorithm)

	pubBlock, _ := pem.Decode([]byte(kp.PublicKeyPEM))
	require.NotNil(t, pubBlock)
	pub, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	require.NoError(t, err)

	privBlock, _ := pem.Decode([]byte(kp.PrivateKeyPEM))
	require.NotNil(t, privBlock)
	priv, err := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
	require.NoError(t, err)

	msg := []byte("session")
	sig := ed25519.Sign(priv.(ed25519.PrivateKey), msg)
	assert.True(t, ed25519.Verify(pub.(ed25519.PublicKey), msg, sig))

	other, err := deployment.GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, kp.ID, other.ID)
	assert.NotEqual(t, kp.PublicKeyPEM, other.PublicKeyPEM)
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	auth, err := deployment.DeriveAuthSettings([]string{"email_otp"})
	require.NoError(t, err)

	s, err := deployment.DefaultSettings(auth, "Acme", "", deployment.ProductionHosts("acme.io"))
	require.NoError(t, err)

	assert.Equal(t, "https://accounts.acme.io/sign-in", s.UI.SignInURL)
	assert.Equal(t, "https://accounts.acme.io/sign-up", s.UI.SignUpURL)
	assert.Equal(t, "admin", s.Organization.WorkspaceCreatorRole)
	assert.Equal(t, "member", s.Organization.OrganizationMemberRole)
	assert.Equal(t, "public", s.Restrictions.SignUpMode)
	assert.False(t, s.Restrictions.AllowlistEnabled)
	assert.NotEmpty(t, s.SMSTemplates)
	assert.NotEmpty(t, s.EmailTemplates)
	assert.NotEmpty(t, s.KeyPair.PrivateKeyPEM)
}

func TestHostsAndPublishableKey(t *testing.T) {
	t.Parallel()

	hosts := deployment.ProductionHosts("acme.io")
	assert.Equal(t, deployment.Hosts{Frontend: "accounts.acme.io", Backend: "api.acme.io", MailFrom: "send.acme.io"}, hosts)

	staging := deployment.StagingHosts("calm-otter-7", "tenantplane.dev")
	assert.Equal(t, "api.calm-otter-7.tenantplane.dev", staging.Backend)

	live := deployment.PublishableKey(deployment.ModeProduction, hosts.Backend)
	require.True(t, strings.HasPrefix(live, "pk_live_"))
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(live, "pk_live_"))
	require.NoError(t, err)
	assert.Equal(t, "api.acme.io$", string(raw))

	assert.True(t, strings.HasPrefix(deployment.PublishableKey(deployment.ModeStaging, staging.Backend), "pk_test_"))
}
