package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"credential-client/internal/apperr"
	"credential-client/internal/model"
	"credential-client/internal/state"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(s string) bool { return emailPattern.MatchString(s) }

type API interface {
	CheckSession(ctx context.Context) (*model.Session, error)
	Login(ctx context.Context, username, password string) (model.Session, error)
	Register(ctx context.Context, username, email, password string) (model.Registration, error)
	Logout(ctx context.Context) error
}

type Notifier interface {
	Enqueue(message string, severity model.Severity) string
}

type Manager struct {
	api   API
	state *state.State
	notes Notifier
}

func NewManager(api API, st *state.State, notes Notifier) *Manager {
	return &Manager{api: api, state: st, notes: notes}
}

// Restore asks the backend once for an existing session. Any failure leaves
// the client unauthenticated without telling the user.
func (m *Manager) Restore(ctx context.Context) (model.Session, bool) {
	sess, err := m.api.CheckSession(ctx)
	if err != nil {
		log.Printf("session: restore failed: %v", err)
		return model.Session{}, false
	}
	if sess == nil {
		return model.Session{}, false
	}
	m.state.SetSession(*sess)
	log.Printf("session: restored for %s", sess.Username)
	return *sess, true
}

func (m *Manager) Login(ctx context.Context, username, password string) (model.Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return model.Session{}, m.reject(apperr.Invalid(apperr.CodeRequired, "Please enter username and password"))
	}

	sess, err := m.api.Login(ctx, username, password)
	if err != nil {
		var domain *apperr.DomainError
		if errors.As(err, &domain) {
			err = &apperr.AuthError{Reason: domain.Message}
		}
		m.fail("login", err, "Login failed")
		return model.Session{}, err
	}

	m.state.SetSession(sess)
	m.notes.Enqueue(fmt.Sprintf("Welcome back, %s!", sess.Username), model.SeveritySuccess)
	return sess, nil
}

type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Normalized trims the username and email and lowercases the email.
func (r Registration) Normalized() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return r
}

// Validate applies the client-side checks in order: required fields, email
// shape, password length, confirmation match.
func (r Registration) Validate() error {
	r = r.Normalized()
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return apperr.Invalid(apperr.CodeRequired, "Please fill in all required fields")
	}
	if !IsValidEmail(r.Email) {
		return apperr.Invalid(apperr.CodeInvalidFormat, "Please enter a valid email address")
	}
	if len([]rune(r.Password)) < MinPasswordLength {
		return apperr.Invalid(apperr.CodePasswordTooShort, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if r.Password != r.ConfirmPassword {
		return apperr.Invalid(apperr.CodePasswordMismatch, "Passwords do not match")
	}
	return nil
}

// Register creates the account. It does not establish a session; callers
// chain into Login.
func (m *Manager) Register(ctx context.Context, form Registration) (model.Registration, error) {
	if err := form.Validate(); err != nil {
		return model.Registration{}, m.reject(err)
	}
	form = form.Normalized()

	created, err := m.api.Register(ctx, form.Username, form.Email, form.Password)
	if err != nil {
		m.fail("register", err, "Registration failed")
		return model.Registration{}, err
	}
	m.notes.Enqueue("Account created successfully!", model.SeveritySuccess)
	return created, nil
}

// Logout always succeeds locally; the backend call is best effort.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		log.Printf("session: logout request failed: %v", err)
	}
	m.state.Clear()
	m.notes.Enqueue("You have been logged out", model.SeverityInfo)
}

func (m *Manager) reject(err error) error {
	m.notes.Enqueue(apperr.UserMessage(err, err.Error()), model.SeverityError)
	return err
}

func (m *Manager) fail(op string, err error, fallback string) {
	if apperr.IsTransport(err) {
		log.Printf("session: %s failed: %v", op, err)
	}
	m.notes.Enqueue(apperr.UserMessage(err, fallback), model.SeverityError)
}
