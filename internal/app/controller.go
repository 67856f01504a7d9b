package app

import (
	"context"
	"log"
	"sync"
	"time"

	"credential-client/internal/activity"
	"credential-client/internal/apperr"
	"credential-client/internal/cache"
	"credential-client/internal/model"
	"credential-client/internal/notify"
	"credential-client/internal/schedule"
	"credential-client/internal/session"
	"credential-client/internal/state"
	"credential-client/internal/upload"
	"credential-client/internal/workflow"
)

// Backend is everything the controller needs from the remote service.
// *backend.Client satisfies it.
type Backend interface {
	session.API
	upload.API
	workflow.API
	cache.Loader
	activity.Loader
}

type Publisher interface {
	Publish(event string, body any)
}

type Options struct {
	NotificationTTL time.Duration
	AutoLoginDelay  time.Duration
	ActivityRefresh time.Duration
}

const DefaultAutoLoginDelay = 3 * time.Second

// Controller owns the application state and every workflow built on it. The
// view layer only calls its methods and mirrors its published events.
type Controller struct {
	api   Backend
	sched schedule.Scheduler
	opts  Options

	state    *state.State
	notes    *notify.Queue
	sessions *session.Manager
	uploads  *upload.Pipeline
	flow     *workflow.Workflow
	feed     *activity.Feed

	mu        sync.Mutex
	autoLogin schedule.Task
}

func New(api Backend, sched schedule.Scheduler, pub Publisher, opts Options) *Controller {
	if pub == nil {
		pub = discard{}
	}
	if opts.AutoLoginDelay <= 0 {
		opts.AutoLoginDelay = DefaultAutoLoginDelay
	}
	if opts.ActivityRefresh <= 0 {
		opts.ActivityRefresh = activity.DefaultRefresh
	}

	st := state.New()
	notes := notify.New(sched, pub, opts.NotificationTTL)
	return &Controller{
		api:      api,
		sched:    sched,
		opts:     opts,
		state:    st,
		notes:    notes,
		sessions: session.NewManager(api, st, notes),
		uploads:  upload.NewPipeline(api, st, notes, sched, pub),
		flow:     workflow.New(api, st, notes, sched),
		feed:     activity.NewFeed(api, st, sched, pub),
	}
}

type discard struct{}

func (discard) Publish(string, any) {}

// Start restores a backend session, if any, and loads the dashboard for it.
func (c *Controller) Start(ctx context.Context) (model.Session, bool) {
	sess, ok := c.sessions.Restore(ctx)
	if ok {
		c.loadDashboard(ctx)
	}
	return sess, ok
}

func (c *Controller) Session() (model.Session, bool) { return c.state.Session() }

func (c *Controller) Login(ctx context.Context, username, password string) (model.Session, error) {
	c.cancelAutoLogin()
	sess, err := c.sessions.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}
	c.loadDashboard(ctx)
	return sess, nil
}

// Register creates the account and, after the acknowledgment delay, logs in
// with the submitted credentials. A manual login or logout in the meantime
// cancels the pending login.
func (c *Controller) Register(ctx context.Context, form session.Registration) (model.Registration, error) {
	created, err := c.sessions.Register(ctx, form)
	if err != nil {
		return model.Registration{}, err
	}

	form = form.Normalized()
	c.mu.Lock()
	if c.autoLogin != nil {
		c.autoLogin.Cancel()
	}
	var task schedule.Task
	task = c.sched.After(c.opts.AutoLoginDelay, func() {
		c.mu.Lock()
		if c.autoLogin != task {
			// a later registration replaced this one
			c.mu.Unlock()
			return
		}
		c.autoLogin = nil
		c.mu.Unlock()
		if _, ok := c.state.Session(); ok {
			return
		}
		if _, err := c.Login(context.Background(), form.Username, form.Password); err != nil {
			log.Printf("app: auto-login for %s failed: %v", form.Username, err)
		}
	})
	c.autoLogin = task
	c.mu.Unlock()
	return created, nil
}

func (c *Controller) AutoLoginPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoLogin != nil
}

func (c *Controller) Logout(ctx context.Context) {
	c.cancelAutoLogin()
	c.feed.Reset()
	c.uploads.Reset()
	c.sessions.Logout(ctx)
}

func (c *Controller) PasswordStrength(password string) session.Strength {
	return session.PasswordStrength(password)
}

func (c *Controller) Upload(ctx context.Context, f upload.File) (model.UploadTask, error) {
	return c.uploads.Upload(ctx, f)
}

func (c *Controller) CurrentUpload() (model.UploadTask, bool) { return c.uploads.Current() }

func (c *Controller) PendingReference() string { return c.state.PendingReference() }

// RefreshCredentials reloads both partitions. On failure the cache keeps its
// previous contents.
func (c *Controller) RefreshCredentials(ctx context.Context) (cache.Snapshot, error) {
	sess, ok := c.state.Session()
	if !ok {
		err := apperr.Invalid(apperr.CodeNotAuthenticated, "Please log in first")
		c.notes.Enqueue(err.Error(), model.SeverityError)
		return cache.Snapshot{}, err
	}
	snap, err := c.state.Credentials().Refresh(ctx, c.api, sess.UserID)
	if err != nil {
		if apperr.IsTransport(err) {
			log.Printf("app: credentials refresh failed: %v", err)
			c.notes.Enqueue(apperr.NetworkMessage, model.SeverityError)
		} else {
			c.notes.Enqueue("Failed to load credentials: "+apperr.UserMessage(err, "unknown error"), model.SeverityError)
		}
		return cache.Snapshot{}, err
	}
	return snap, nil
}

// Credentials projects the cache without touching the backend.
func (c *Controller) Credentials(filter cache.Filter, term string) []model.Credential {
	return c.state.Credentials().Project(filter, term)
}

func (c *Controller) Counts() (issued, owned int) { return c.state.Credentials().Counts() }

func (c *Controller) Issue(ctx context.Context, recipient, credentialType string) (model.IssueResult, error) {
	res, err := c.flow.Issue(ctx, recipient, credentialType)
	if err != nil {
		return res, err
	}
	c.feed.Load(ctx)
	return res, nil
}

func (c *Controller) Verify(ctx context.Context, credentialID string) (model.VerificationResult, error) {
	return c.flow.Verify(ctx, credentialID)
}

// QRCode returns the image for a credential, using the inline payload held in
// the cache when there is one.
func (c *Controller) QRCode(ctx context.Context, credentialID string) ([]byte, error) {
	inline := ""
	for _, cred := range c.state.Credentials().Project(cache.FilterAll, "") {
		if cred.ID == credentialID {
			inline = cred.QRPayload
			break
		}
	}
	return c.flow.QRCode(ctx, credentialID, inline)
}

func (c *Controller) Activity() []activity.Entry { return c.feed.Entries() }

func (c *Controller) ReloadActivity(ctx context.Context) []activity.Entry { return c.feed.Load(ctx) }

func (c *Controller) Notifications() []model.Notification { return c.notes.List() }

func (c *Controller) Dismiss(id string) bool { return c.notes.Dismiss(id) }

type Status struct {
	Authenticated    bool           `json:"authenticated"`
	Session          *model.Session `json:"session,omitempty"`
	Uploading        bool           `json:"uploading"`
	Issuing          bool           `json:"issuing"`
	Verifying        bool           `json:"verifying"`
	AutoLoginPending bool           `json:"auto_login_pending"`
	HasPendingUpload bool           `json:"has_pending_upload"`
	IssuedCount      int            `json:"issued_count"`
	OwnedCount       int            `json:"owned_count"`
}

func (c *Controller) Status() Status {
	flow := c.flow.InFlight()
	issued, owned := c.Counts()
	st := Status{
		Uploading:        c.uploads.InFlight(),
		Issuing:          flow.Issuing,
		Verifying:        flow.Verifying,
		AutoLoginPending: c.AutoLoginPending(),
		HasPendingUpload: c.state.PendingReference() != "",
		IssuedCount:      issued,
		OwnedCount:       owned,
	}
	if sess, ok := c.state.Session(); ok {
		st.Authenticated = true
		st.Session = &sess
	}
	return st
}

// Close cancels every timer the controller owns.
func (c *Controller) Close() {
	c.cancelAutoLogin()
	c.feed.Stop()
	c.notes.Close()
}

func (c *Controller) loadDashboard(ctx context.Context) {
	_, _ = c.RefreshCredentials(ctx)
	c.feed.Load(ctx)
	c.feed.Start(c.opts.ActivityRefresh)
}

func (c *Controller) cancelAutoLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoLogin != nil {
		c.autoLogin.Cancel()
		c.autoLogin = nil
	}
}
