package activity

import (
	"context"
	"log"
	"sync"
	"time"

	"credential-client/internal/model"
	"credential-client/internal/schedule"
	"credential-client/internal/state"
)

const DefaultRefresh = 60 * time.Second

type Loader interface {
	RecentActivity(ctx context.Context, userID int64) ([]model.ActivityRecord, error)
}

type Publisher interface {
	Publish(event string, body any)
}

// Feed keeps the last loaded entries and re-labels them on a timer so the
// relative times never drift.
type Feed struct {
	api   Loader
	state *state.State
	sched schedule.Scheduler
	pub   Publisher

	mu       sync.Mutex
	entries  []Entry
	fallback bool
	ticker   schedule.Task
}

func NewFeed(api Loader, st *state.State, sched schedule.Scheduler, pub Publisher) *Feed {
	return &Feed{api: api, state: st, sched: sched, pub: pub}
}

// Load fetches recent activity for the active session. A failed or empty
// response falls back to entries synthesized from the credential cache; the
// user is not told about the failure.
func (f *Feed) Load(ctx context.Context) []Entry {
	sess, ok := f.state.Session()
	if !ok {
		f.Reset()
		return nil
	}

	var entries []Entry
	fallback := false
	records, err := f.api.RecentActivity(ctx, sess.UserID)
	if err != nil {
		log.Printf("activity: load failed: %v", err)
	}
	if err == nil && len(records) > 0 {
		entries = Format(records, f.sched.Now())
	} else {
		entries = Fallback(f.state.Credentials().Snapshot(), f.sched.Now())
		fallback = true
	}

	f.mu.Lock()
	f.entries = entries
	f.fallback = fallback
	f.mu.Unlock()

	f.publish()
	return f.Entries()
}

// Entries returns the stored entries labelled against the current time.
func (f *Feed) Entries() []Entry {
	f.mu.Lock()
	entries := f.entries
	f.mu.Unlock()
	return Render(entries, f.sched.Now())
}

func (f *Feed) IsFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fallback
}

// Start re-labels the feed every interval. Calling Start again replaces the
// previous timer.
func (f *Feed) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ticker != nil {
		f.ticker.Cancel()
	}
	f.ticker = f.sched.Every(interval, f.publish)
}

func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ticker != nil {
		f.ticker.Cancel()
		f.ticker = nil
	}
}

// Reset stops the timer and forgets all entries; used on logout.
func (f *Feed) Reset() {
	f.Stop()
	f.mu.Lock()
	f.entries = nil
	f.fallback = false
	f.mu.Unlock()
}

func (f *Feed) publish() {
	if f.pub == nil {
		return
	}
	f.pub.Publish("activity", f.Entries())
}
