package deployment

import (
	"time"

	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
)

// Mode distinguishes customer-domain deployments from platform-hosted ones.
type Mode string

const (
	ModeStaging    Mode = "staging"
	ModeProduction Mode = "production"
)

// VerificationStatus tracks DNS verification progress of a deployment.
type VerificationStatus string

const (
	StatusPending    VerificationStatus = "pending"
	StatusInProgress VerificationStatus = "in_progress"
	StatusVerified   VerificationStatus = "verified"
	StatusFailed     VerificationStatus = "failed"
)

// DNSRecord is a record the customer must publish.
// Name, Type and Value never change after creation; only the verification
// fields move, and only through the verification poller.
type DNSRecord struct {
	VerificationAttemptedAt *time.Time           `json:"verification_attempted_at,omitempty"`
	LastVerifiedAt          *time.Time           `json:"last_verified_at,omitempty"`
	Name                    string               `json:"name"`
	Type                    dnsverify.RecordType `json:"record_type"`
	Value                   string               `json:"value"`
	Verified                bool                 `json:"verified"`
}

// DomainVerificationRecords holds the records behind the two edge hostnames.
// CustomHostname* belongs to the accounts portal hostname, Edge* to the API hostname.
type DomainVerificationRecords struct {
	EdgeHostnameID        *string     `json:"edge_hostname_id,omitempty"`
	CustomHostnameID      *string     `json:"custom_hostname_id,omitempty"`
	EdgeRecords           []DNSRecord `json:"edge_records"`
	CustomHostnameRecords []DNSRecord `json:"custom_hostname_records"`
}

// EmailVerificationRecords holds the sending-domain records.
type EmailVerificationRecords struct {
	DomainID          *string     `json:"domain_id,omitempty"`
	DKIMRecords       []DNSRecord `json:"dkim_records"`
	ReturnPathRecords []DNSRecord `json:"return_path_records"`
}

// Deployment is a tenant environment bound to a hostname set.
type Deployment struct {
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	DeletedAt          *time.Time                 `json:"deleted_at,omitempty"`
	DomainRecords      *DomainVerificationRecords `json:"domain_verification_records"`
	EmailRecords       *EmailVerificationRecords  `json:"email_verification_records"`
	ID                 string                     `json:"id"`
	ProjectID          string                     `json:"project_id"`
	Mode               Mode                       `json:"mode"`
	BackendHost        string                     `json:"backend_host"`
	FrontendHost       string                     `json:"frontend_host"`
	MailFromHost       string                     `json:"mail_from_host"`
	PublishableKey     string                     `json:"publishable_key"`
	VerificationStatus VerificationStatus         `json:"verification_status"`
	MaintenanceMode    bool                       `json:"maintenance_mode"`
}

// Hosts is the hostname triple of a deployment.
type Hosts struct {
	Frontend string
	Backend  string
	MailFrom string
}

// Patch lists the deployment columns to change. Nil fields are left untouched;
// updated_at is always refreshed.
type Patch struct {
	VerificationStatus *VerificationStatus
	DomainRecords      *DomainVerificationRecords
	EmailRecords       *EmailVerificationRecords
	MaintenanceMode    *bool
}

// IsEmpty reports whether the patch changes nothing besides updated_at.
func (p Patch) IsEmpty() bool {
	return p.VerificationStatus == nil && p.DomainRecords == nil && p.EmailRecords == nil && p.MaintenanceMode == nil
}

// Record set names used in verification history.
const (
	RecordSetEdge           = "edge"
	RecordSetCustomHostname = "custom_hostname"
	RecordSetDKIM           = "dkim"
	RecordSetReturnPath     = "return_path"
)

// VerificationEvent is one record check, appended to the verification history.
type VerificationEvent struct {
	CheckedAt    time.Time            `json:"checked_at"`
	DeploymentID string               `json:"deployment_id"`
	RecordSet    string               `json:"record_set"`
	Name         string               `json:"name"`
	Type         dnsverify.RecordType `json:"type"`
	Verified     bool                 `json:"verified"`
}
