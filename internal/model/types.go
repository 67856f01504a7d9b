package model

import (
	"encoding/json"
	"time"
)

type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Address  string `json:"address"`

	// Issuer is the backend's session payload as received, signing key
	// included. It is sent back verbatim when issuing and never rendered.
	Issuer json.RawMessage `json:"-"`
}

type Registration struct {
	UserID            int64  `json:"user_id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	BlockchainAddress string `json:"blockchain_address"`
}

type Partition string

const (
	PartitionIssued Partition = "issued"
	PartitionOwned  Partition = "owned"
)

// Credential is a summary row of either partition. For issued credentials the
// counterparty is the owner, for owned ones it is the issuer.
type Credential struct {
	ID                     string    `json:"credential_id"`
	Type                   string    `json:"credential_type"`
	Partition              Partition `json:"partition"`
	CounterpartyIdentifier string    `json:"counterparty"`
	CounterpartyName       string    `json:"counterparty_name,omitempty"`
	IssuedAt               time.Time `json:"issued_at"`
	Status                 string    `json:"status"`
	QRPayload              string    `json:"qr_code,omitempty"`
	ContentReference       string    `json:"ipfs_hash,omitempty"`
	TransactionHash        string    `json:"transaction_hash,omitempty"`
}

type UploadStatus string

const (
	UploadValidating UploadStatus = "validating"
	UploadUploading  UploadStatus = "uploading"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

type UploadTask struct {
	ID               string       `json:"id"`
	FileName         string       `json:"file_name"`
	SizeBytes        int64        `json:"size_bytes"`
	Extension        string       `json:"extension"`
	Progress         int          `json:"progress"`
	Status           UploadStatus `json:"status"`
	ContentReference string       `json:"content_reference,omitempty"`
	Error            string       `json:"error,omitempty"`
}

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

type ActionType string

const (
	ActionIssued   ActionType = "issued"
	ActionVerified ActionType = "verified"
	ActionRevoked  ActionType = "revoked"
	ActionViewed   ActionType = "viewed"
	ActionWelcome  ActionType = "welcome"

	// ActionOwned only appears in feeds synthesized from the credential cache.
	ActionOwned ActionType = "owned"
)

// ActivityRecord is read-only backend data. A zero PerformedAt means the
// record carries no timestamp.
type ActivityRecord struct {
	ID                 int64      `json:"id"`
	Action             ActionType `json:"action_type"`
	PerformedAt        time.Time  `json:"performed_at"`
	CredentialID       string     `json:"credential_id,omitempty"`
	Counterparty       string     `json:"owner_identifier,omitempty"`
	CredentialType     string     `json:"credential_type,omitempty"`
	VerificationResult *bool      `json:"verification_result,omitempty"`
	Notes              string     `json:"notes,omitempty"`
}

type IssueRequest struct {
	Issuer           Session
	Recipient        string
	CredentialType   string
	ContentReference string
}

type IssueResult struct {
	CredentialID    string `json:"credential_id"`
	TransactionHash string `json:"transaction_hash"`
	QRPayload       string `json:"qr_code,omitempty"`
	VerifyURL       string `json:"verify_url,omitempty"`
	ContentURL      string `json:"ipfs_url,omitempty"`
	Recipient       string `json:"recipient"`
}

type VerificationResult struct {
	CredentialID     string    `json:"credential_id"`
	CredentialType   string    `json:"credential_type,omitempty"`
	Owner            string    `json:"owner"`
	OwnerName        string    `json:"owner_name,omitempty"`
	OwnerDisplay     string    `json:"owner_display"`
	Issuer           string    `json:"issuer"`
	IssuerName       string    `json:"issuer_name,omitempty"`
	IssuerDisplay    string    `json:"issuer_display"`
	IssuedAt         time.Time `json:"issued_at"`
	ContentReference string    `json:"ipfs_hash,omitempty"`
	ContentURL       string    `json:"ipfs_url,omitempty"`
	QRPayload        string    `json:"qr_code,omitempty"`
}
