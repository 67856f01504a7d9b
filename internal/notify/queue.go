package notify

import (
	"sync"
	"time"

	"credential-client/internal/model"
	"credential-client/internal/schedule"
	"github.com/google/uuid"
)

const DefaultTTL = 5 * time.Second

// Publisher receives queue changes so a view can mirror them.
type Publisher interface {
	Publish(event string, body any)
}

type entry struct {
	n    model.Notification
	task schedule.Task
}

// Queue holds transient notifications in insertion order. Each one removes
// itself after its TTL unless dismissed earlier.
type Queue struct {
	mu         sync.Mutex
	sched      schedule.Scheduler
	pub        Publisher
	defaultTTL time.Duration
	items      []*entry
}

func New(sched schedule.Scheduler, pub Publisher, defaultTTL time.Duration) *Queue {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Queue{sched: sched, pub: pub, defaultTTL: defaultTTL}
}

func (q *Queue) Enqueue(message string, severity model.Severity) string {
	return q.EnqueueFor(message, severity, q.defaultTTL)
}

func (q *Queue) EnqueueFor(message string, severity model.Severity, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = q.defaultTTL
	}
	switch severity {
	case model.SeveritySuccess, model.SeverityError, model.SeverityWarning, model.SeverityInfo:
	default:
		severity = model.SeverityInfo
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: q.sched.Now(),
		TTL:       ttl,
	}
	id := n.ID

	q.mu.Lock()
	e := &entry{n: n}
	q.items = append(q.items, e)
	e.task = q.sched.After(ttl, func() { q.remove(id, false) })
	q.mu.Unlock()

	q.publish("notification-added", n)
	return id
}

// Dismiss removes a notification early. Unknown or already removed ids are a no-op.
func (q *Queue) Dismiss(id string) bool {
	return q.remove(id, true)
}

func (q *Queue) remove(id string, cancel bool) bool {
	q.mu.Lock()
	idx := -1
	for i, e := range q.items {
		if e.n.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		q.mu.Unlock()
		return false
	}
	e := q.items[idx]
	q.items = append(q.items[:idx:idx], q.items[idx+1:]...)
	q.mu.Unlock()

	if cancel && e.task != nil {
		e.task.Cancel()
	}
	q.publish("notification-dismissed", map[string]string{"id": id})
	return true
}

func (q *Queue) List() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.Notification, 0, len(q.items))
	for _, e := range q.items {
		out = append(out, e.n)
	}
	return out
}

// Close cancels every pending auto-dismissal and empties the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, e := range items {
		if e.task != nil {
			e.task.Cancel()
		}
	}
}

func (q *Queue) publish(event string, body any) {
	if q.pub == nil {
		return
	}
	defer func() { _ = recover() }()
	q.pub.Publish(event, body)
}
