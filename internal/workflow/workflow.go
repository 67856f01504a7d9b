package workflow

import (
	"context"
	"encoding/base64"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"

	"credential-client/internal/apperr"
	"credential-client/internal/model"
	"credential-client/internal/schedule"
	"credential-client/internal/session"
	"credential-client/internal/state"
)

var (
	credentialIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	addressPattern      = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// IsValidCredentialID accepts exactly 64 hex characters.
func IsValidCredentialID(id string) bool { return credentialIDPattern.MatchString(id) }

func IsValidAddress(s string) bool { return addressPattern.MatchString(s) }

// DeepLink returns the credential id carried by a ?verify= parameter when it
// matches the credential pattern.
func DeepLink(q url.Values) (string, bool) {
	id := strings.TrimSpace(q.Get("verify"))
	if !IsValidCredentialID(id) {
		return "", false
	}
	return id, true
}

// DisplayParty renders "name (first8...last6)" when a name is present and
// the raw identifier otherwise.
func DisplayParty(name, identifier string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return identifier
	}
	return name + " (" + Abbreviate(identifier) + ")"
}

func Abbreviate(identifier string) string {
	if len(identifier) <= 14 {
		return identifier
	}
	return identifier[:8] + "..." + identifier[len(identifier)-6:]
}

type API interface {
	Issue(ctx context.Context, req model.IssueRequest) (model.IssueResult, error)
	Verify(ctx context.Context, credentialID string) (model.VerificationResult, error)
	QRImage(ctx context.Context, credentialID string) ([]byte, error)
}

type Notifier interface {
	Enqueue(message string, severity model.Severity) string
}

// Workflow runs issuance and verification. Each has its own in-flight guard;
// a second call while one is pending fails with apperr.ErrInFlight.
type Workflow struct {
	api   API
	state *state.State
	notes Notifier
	sched schedule.Scheduler

	issuing   atomic.Bool
	verifying atomic.Bool
}

func New(api API, st *state.State, notes Notifier, sched schedule.Scheduler) *Workflow {
	return &Workflow{api: api, state: st, notes: notes, sched: sched}
}

type Status struct {
	Issuing   bool `json:"issuing"`
	Verifying bool `json:"verifying"`
}

func (w *Workflow) InFlight() Status {
	return Status{Issuing: w.issuing.Load(), Verifying: w.verifying.Load()}
}

func (w *Workflow) Issue(ctx context.Context, recipient, credentialType string) (model.IssueResult, error) {
	if !w.issuing.CompareAndSwap(false, true) {
		return model.IssueResult{}, apperr.ErrInFlight
	}
	defer w.issuing.Store(false)

	recipient = strings.TrimSpace(recipient)
	credentialType = strings.TrimSpace(credentialType)

	issuer, ok := w.state.Session()
	if !ok {
		return model.IssueResult{}, w.reject(apperr.Invalid(apperr.CodeNotAuthenticated, "Please log in first"))
	}
	if recipient == "" {
		return model.IssueResult{}, w.reject(apperr.Invalid(apperr.CodeRequired, "Please enter recipient address or email"))
	}
	if !session.IsValidEmail(recipient) && !IsValidAddress(recipient) {
		return model.IssueResult{}, w.reject(apperr.Invalid(apperr.CodeInvalidFormat, "Please enter a valid email address or blockchain address"))
	}
	if credentialType == "" {
		return model.IssueResult{}, w.reject(apperr.Invalid(apperr.CodeRequired, "Please enter credential type"))
	}
	ref := w.state.PendingReference()
	if ref == "" {
		return model.IssueResult{}, w.reject(apperr.Invalid(apperr.CodeMissingReference, "Please upload a document first"))
	}

	res, err := w.api.Issue(ctx, model.IssueRequest{
		Issuer:           issuer,
		Recipient:        recipient,
		CredentialType:   credentialType,
		ContentReference: ref,
	})
	if err != nil {
		w.fail("issue", err, "Failed to issue credential: ", "Failed to issue credential")
		return model.IssueResult{}, err
	}

	w.state.Credentials().AppendIssued(model.Credential{
		ID:                     res.CredentialID,
		Type:                   credentialType,
		CounterpartyIdentifier: recipient,
		IssuedAt:               w.sched.Now(),
		Status:                 "active",
		QRPayload:              res.QRPayload,
		ContentReference:       ref,
		TransactionHash:        res.TransactionHash,
	})
	w.state.ClearPendingReference()
	w.notes.Enqueue("Credential issued and emails sent!", model.SeveritySuccess)
	return res, nil
}

// Verify always re-runs the backend lookup; the backend alone decides
// whether a credential is valid.
func (w *Workflow) Verify(ctx context.Context, credentialID string) (model.VerificationResult, error) {
	if !w.verifying.CompareAndSwap(false, true) {
		return model.VerificationResult{}, apperr.ErrInFlight
	}
	defer w.verifying.Store(false)

	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		return model.VerificationResult{}, w.reject(apperr.Invalid(apperr.CodeRequired, "Please enter a credential ID"))
	}
	if !IsValidCredentialID(credentialID) {
		return model.VerificationResult{}, w.reject(apperr.Invalid(apperr.CodeInvalidFormat, "Please enter a valid credential ID"))
	}

	res, err := w.api.Verify(ctx, credentialID)
	if err != nil {
		w.fail("verify", err, "Verification failed: ", "Verification failed")
		return model.VerificationResult{}, err
	}

	res.OwnerDisplay = DisplayParty(res.OwnerName, res.Owner)
	res.IssuerDisplay = DisplayParty(res.IssuerName, res.Issuer)
	w.notes.Enqueue("Credential verified successfully!", model.SeveritySuccess)
	return res, nil
}

// QRCode decodes an inline base64 payload and falls back to the backend image
// when there is none or it does not decode.
func (w *Workflow) QRCode(ctx context.Context, credentialID, inline string) ([]byte, error) {
	if img, ok := decodeInline(inline); ok {
		return img, nil
	}
	img, err := w.api.QRImage(ctx, credentialID)
	if err != nil {
		if apperr.IsTransport(err) {
			log.Printf("workflow: qr %s failed: %v", credentialID, err)
		}
		return nil, err
	}
	return img, nil
}

func decodeInline(payload string) ([]byte, bool) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return nil, false
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(img) == 0 {
		return nil, false
	}
	return img, true
}

func (w *Workflow) reject(err error) error {
	w.notes.Enqueue(err.Error(), model.SeverityError)
	return err
}

func (w *Workflow) fail(op string, err error, prefix, fallback string) {
	if apperr.IsTransport(err) {
		log.Printf("workflow: %s failed: %v", op, err)
		w.notes.Enqueue(apperr.NetworkMessage, model.SeverityError)
		return
	}
	if msg := apperr.UserMessage(err, ""); msg != "" {
		w.notes.Enqueue(prefix+msg, model.SeverityError)
		return
	}
	w.notes.Enqueue(fallback, model.SeverityError)
}
