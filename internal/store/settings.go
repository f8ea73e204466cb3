package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
)

// settingsTables hold one nested settings group each, keyed by deployment_id.
var settingsTables = []string{
	"deployment_auth_settings",
	"deployment_ui_settings",
	"deployment_organization_settings",
	"deployment_restrictions",
	"deployment_sms_templates",
	"deployment_email_templates",
	"deployment_signing_keys",
}

func (s *Store) insertSettings(ctx context.Context, tx pgx.Tx, deploymentID string, st *deployment.Settings) error {
	now := s.now().UTC()

	providers := st.Auth.OAuthProviders
	if providers == nil {
		providers = []string{}
	}

	inserts := []struct {
		table  string
		values map[string]any
	}{
		{"deployment_auth_settings", map[string]any{
			"deployment_id":       deploymentID,
			"first_factor":        string(st.Auth.FirstFactor),
			"oauth_providers":     providers,
			"email_enabled":       st.Auth.EmailEnabled,
			"phone_enabled":       st.Auth.PhoneEnabled,
			"username_enabled":    st.Auth.UsernameEnabled,
			"password_enabled":    st.Auth.PasswordEnabled,
			"email_otp_enabled":   st.Auth.EmailOTPEnabled,
			"email_link_enabled":  st.Auth.EmailLinkEnabled,
			"phone_otp_enabled":   st.Auth.PhoneOTPEnabled,
			"passkey_enabled":     st.Auth.PasskeyEnabled,
			"web3_wallet_enabled": st.Auth.Web3WalletEnabled,
			"created_at":          now,
		}},
		{"deployment_ui_settings", map[string]any{
			"deployment_id":      deploymentID,
			"app_name":           st.UI.AppName,
			"logo_url":           st.UI.LogoURL,
			"sign_in_url":        st.UI.SignInURL,
			"sign_up_url":        st.UI.SignUpURL,
			"user_profile_url":   st.UI.UserProfileURL,
			"after_sign_in_url":  st.UI.AfterSignInURL,
			"after_sign_out_url": st.UI.AfterSignOutURL,
			"created_at":         now,
		}},
		{"deployment_organization_settings", map[string]any{
			"deployment_id":             deploymentID,
			"workspace_creator_role":    st.Organization.WorkspaceCreatorRole,
			"workspace_member_role":     st.Organization.WorkspaceMemberRole,
			"organization_creator_role": st.Organization.OrganizationCreatorRole,
			"organization_member_role":  st.Organization.OrganizationMemberRole,
			"created_at":                now,
		}},
		{"deployment_restrictions", map[string]any{
			"deployment_id":           deploymentID,
			"sign_up_mode":            st.Restrictions.SignUpMode,
			"allowlist_enabled":       st.Restrictions.AllowlistEnabled,
			"blocklist_enabled":       st.Restrictions.BlocklistEnabled,
			"block_subaddresses":      st.Restrictions.BlockSubaddresses,
			"block_disposable_emails": st.Restrictions.BlockDisposableEmails,
			"created_at":              now,
		}},
		{"deployment_signing_keys", map[string]any{
			"id":            st.KeyPair.ID,
			"deployment_id": deploymentID,
			"algorithm":     st.KeyPair.Algorithm,
			"public_key":    st.KeyPair.PublicKeyPEM,
			"private_key":   st.KeyPair.PrivateKeyPEM,
			"created_at":    now,
		}},
	}

	for _, in := range inserts {
		query, args, err := s.psql.Insert(in.table).SetMap(in.values).ToSql()
		if err != nil {
			return storageErr("build "+in.table+" insert", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(st.SMSTemplates) > 0 {
		q := s.psql.Insert("deployment_sms_templates").Columns("deployment_id", "name", "body", "created_at")
		for _, t := range st.SMSTemplates {
			q = q.Values(deploymentID, t.Name, t.Body, now)
		}
		if err := s.exec(ctx, tx, q); err != nil {
			return err
		}
	}

	if len(st.EmailTemplates) > 0 {
		q := s.psql.Insert("deployment_email_templates").Columns("deployment_id", "name", "subject", "body", "created_at")
		for _, t := range st.EmailTemplates {
			q = q.Values(deploymentID, t.Name, t.Subject, t.Body, now)
		}
		if err := s.exec(ctx, tx, q); err != nil {
			return err
		}
	}

	return nil
}
