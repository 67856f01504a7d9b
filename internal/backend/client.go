package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"credential-client/internal/apperr"
	"credential-client/internal/model"
	"golang.org/x/net/publicsuffix"
)

// Client talks to the credential backend. The cookie jar carries the backend
// session across calls, so every request is sent with credentials.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(baseURL, &http.Client{Jar: jar}), nil
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send performs the request and returns the raw body of a 2xx response.
// Non-2xx responses become DomainErrors carrying the backend's message.
func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errorBody
		_ = json.Unmarshal(data, &body)
		return nil, &apperr.DomainError{Op: op, Status: resp.StatusCode, Message: body.Error}
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return &apperr.TransportError{Op: op, Err: err}
	}
	data, err := c.send(op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperr.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type sessionBody struct {
	LoggedIn bool   `json:"logged_in"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}

func decodeSession(op string, raw json.RawMessage) (sessionBody, model.Session, error) {
	var b sessionBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, model.Session{}, &apperr.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return b, model.Session{
		UserID:   b.UserID,
		Username: b.Username,
		Email:    b.Email,
		Address:  b.Address,
		Issuer:   raw,
	}, nil
}

// CheckSession returns nil when the backend reports no active session.
func (c *Client) CheckSession(ctx context.Context) (*model.Session, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "check-session", http.MethodGet, "/check-session", nil, &raw); err != nil {
		return nil, err
	}
	body, sess, err := decodeSession("check-session", raw)
	if err != nil {
		return nil, err
	}
	if !body.LoggedIn {
		return nil, nil
	}
	return &sess, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (model.Session, error) {
	in := map[string]string{"username": username, "password": password}
	var raw json.RawMessage
	if err := c.doJSON(ctx, "login", http.MethodPost, "/login", in, &raw); err != nil {
		return model.Session{}, err
	}
	_, sess, err := decodeSession("login", raw)
	return sess, err
}

func (c *Client) Register(ctx context.Context, username, email, password string) (model.Registration, error) {
	in := map[string]string{"username": username, "email": email, "password": password}
	var out model.Registration
	if err := c.doJSON(ctx, "register", http.MethodPost, "/register", in, &out); err != nil {
		return model.Registration{}, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/logout", nil, nil)
}

type uploadBody struct {
	IPFSHash string `json:"ipfs_hash"`
}

// Upload sends the file as multipart field "file" and returns the content reference.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("upload: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload: build form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return "", &apperr.TransportError{Op: "upload", Err: err}
	}
	data, err := c.send("upload", req)
	if err != nil {
		return "", err
	}
	var out uploadBody
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &apperr.TransportError{Op: "upload", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.IPFSHash == "" {
		return "", &apperr.DomainError{Op: "upload", Status: http.StatusOK, Message: "Upload failed"}
	}
	return out.IPFSHash, nil
}

type issueBody struct {
	Issuer         json.RawMessage `json:"issuer"`
	Owner          string          `json:"owner"`
	IPFSHash       string          `json:"ipfs_hash"`
	CredentialType string          `json:"credential_type"`
}

// issuerPayload prefers the payload the backend handed out; a session built
// locally only has the public fields to offer.
func issuerPayload(sess model.Session) (json.RawMessage, error) {
	if len(sess.Issuer) > 0 {
		return sess.Issuer, nil
	}
	return json.Marshal(sess)
}

type issueResponse struct {
	CredentialID    string `json:"credential_id"`
	TransactionHash string `json:"transaction_hash"`
	QRCode          string `json:"qr_code"`
	VerifyURL       string `json:"verify_url"`
	IPFSURL         string `json:"ipfs_url"`
}

func (c *Client) Issue(ctx context.Context, req model.IssueRequest) (model.IssueResult, error) {
	issuer, err := issuerPayload(req.Issuer)
	if err != nil {
		return model.IssueResult{}, fmt.Errorf("issue: encode issuer: %w", err)
	}
	in := issueBody{
		Issuer:         issuer,
		Owner:          req.Recipient,
		IPFSHash:       req.ContentReference,
		CredentialType: req.CredentialType,
	}
	var out issueResponse
	if err := c.doJSON(ctx, "issue", http.MethodPost, "/issue", in, &out); err != nil {
		return model.IssueResult{}, err
	}
	return model.IssueResult{
		CredentialID:    out.CredentialID,
		TransactionHash: out.TransactionHash,
		QRPayload:       out.QRCode,
		VerifyURL:       out.VerifyURL,
		ContentURL:      out.IPFSURL,
		Recipient:       req.Recipient,
	}, nil
}

type verifyResponse struct {
	Owner          string      `json:"owner"`
	OwnerName      string      `json:"owner_name"`
	Issuer         string      `json:"issuer"`
	IssuerName     string      `json:"issuer_name"`
	IPFSHash       string      `json:"ipfs_hash"`
	IPFSURL        string      `json:"ipfs_url"`
	CredentialType string      `json:"credential_type"`
	Timestamp      json.Number `json:"timestamp"`
	QRCode         string      `json:"qr_code"`
}

func (c *Client) Verify(ctx context.Context, credentialID string) (model.VerificationResult, error) {
	var out verifyResponse
	path := "/verify/" + url.PathEscape(credentialID)
	if err := c.doJSON(ctx, "verify", http.MethodGet, path, nil, &out); err != nil {
		return model.VerificationResult{}, err
	}
	return model.VerificationResult{
		CredentialID:     credentialID,
		CredentialType:   out.CredentialType,
		Owner:            out.Owner,
		OwnerName:        out.OwnerName,
		Issuer:           out.Issuer,
		IssuerName:       out.IssuerName,
		IssuedAt:         unixSeconds(out.Timestamp),
		ContentReference: out.IPFSHash,
		ContentURL:       out.IPFSURL,
		QRPayload:        out.QRCode,
	}, nil
}

type issuedRow struct {
	CredentialID    string `json:"credential_id"`
	Owner           string `json:"owner"`
	CredentialType  string `json:"credential_type"`
	TransactionHash string `json:"transaction_hash"`
	IssuedAt        string `json:"issued_at"`
	Status          string `json:"status"`
	IPFSHash        string `json:"ipfs_hash"`
	QRCode          string `json:"qr_code"`
}

type ownedRow struct {
	CredentialID    string `json:"credential_id"`
	Issuer          string `json:"issuer"`
	IssuerName      string `json:"issuer_name"`
	CredentialType  string `json:"credential_type"`
	TransactionHash string `json:"transaction_hash"`
	IssuedAt        string `json:"issued_at"`
	Status          string `json:"status"`
	IPFSHash        string `json:"ipfs_hash"`
	QRCode          string `json:"qr_code"`
}

type credentialsResponse struct {
	Issued []issuedRow `json:"issued"`
	Owned  []ownedRow  `json:"owned"`
}

func (c *Client) Credentials(ctx context.Context, userID int64) ([]model.Credential, []model.Credential, error) {
	var out credentialsResponse
	path := "/user/" + strconv.FormatInt(userID, 10) + "/credentials"
	if err := c.doJSON(ctx, "credentials", http.MethodGet, path, nil, &out); err != nil {
		return nil, nil, err
	}

	issued := make([]model.Credential, 0, len(out.Issued))
	for _, row := range out.Issued {
		issued = append(issued, model.Credential{
			ID:                     row.CredentialID,
			Type:                   row.CredentialType,
			Partition:              model.PartitionIssued,
			CounterpartyIdentifier: row.Owner,
			IssuedAt:               parseTimestamp(row.IssuedAt),
			Status:                 row.Status,
			QRPayload:              row.QRCode,
			ContentReference:       row.IPFSHash,
			TransactionHash:        row.TransactionHash,
		})
	}

	owned := make([]model.Credential, 0, len(out.Owned))
	for _, row := range out.Owned {
		identifier := row.Issuer
		if identifier == "" {
			identifier = row.IssuerName
		}
		owned = append(owned, model.Credential{
			ID:                     row.CredentialID,
			Type:                   row.CredentialType,
			Partition:              model.PartitionOwned,
			CounterpartyIdentifier: identifier,
			CounterpartyName:       row.IssuerName,
			IssuedAt:               parseTimestamp(row.IssuedAt),
			Status:                 row.Status,
			QRPayload:              row.QRCode,
			ContentReference:       row.IPFSHash,
			TransactionHash:        row.TransactionHash,
		})
	}
	return issued, owned, nil
}

type activityRow struct {
	ID                 int64    `json:"id"`
	CredentialID       string   `json:"credential_id"`
	ActionType         string   `json:"action_type"`
	PerformedAt        string   `json:"performed_at"`
	VerificationResult flexBool `json:"verification_result"`
	Notes              string   `json:"notes"`
	CredentialType     string   `json:"credential_type"`
	OwnerIdentifier    string   `json:"owner_identifier"`
}

type activityResponse struct {
	Activities []activityRow `json:"activities"`
}

func (c *Client) RecentActivity(ctx context.Context, userID int64) ([]model.ActivityRecord, error) {
	var out activityResponse
	path := "/user/" + strconv.FormatInt(userID, 10) + "/recent-activity"
	if err := c.doJSON(ctx, "recent-activity", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	records := make([]model.ActivityRecord, 0, len(out.Activities))
	for _, row := range out.Activities {
		records = append(records, model.ActivityRecord{
			ID:                 row.ID,
			Action:             model.ActionType(row.ActionType),
			PerformedAt:        parseTimestamp(row.PerformedAt),
			CredentialID:       row.CredentialID,
			Counterparty:       row.OwnerIdentifier,
			CredentialType:     row.CredentialType,
			VerificationResult: row.VerificationResult.ptr(),
			Notes:              row.Notes,
		})
	}
	return records, nil
}

// QRImage fetches the rendered QR image for a credential.
func (c *Client) QRImage(ctx context.Context, credentialID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/qr/"+url.PathEscape(credentialID), nil, "")
	if err != nil {
		return nil, &apperr.TransportError{Op: "qr", Err: err}
	}
	req.Header.Set("Accept", "image/png")
	data, err := c.send("qr", req)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &apperr.TransportError{Op: "qr", Err: errors.New("empty image")}
	}
	return data, nil
}
