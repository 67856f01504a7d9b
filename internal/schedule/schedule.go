package schedule

import (
	"sort"
	"sync"
	"time"
)

// Task is a handle to a scheduled callback. Cancel reports whether the task
// was still pending; cancelling twice is a no-op.
type Task interface {
	Cancel() bool
}

type Scheduler interface {
	Now() time.Time
	After(d time.Duration, f func()) Task
	Every(d time.Duration, f func()) Task
}

type realScheduler struct{}

func New() Scheduler { return realScheduler{} }

func (realScheduler) Now() time.Time { return time.Now() }

type timerTask struct {
	t *time.Timer
}

func (t timerTask) Cancel() bool { return t.t.Stop() }

func (realScheduler) After(d time.Duration, f func()) Task {
	return timerTask{t: time.AfterFunc(d, f)}
}

type tickerTask struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTask) Cancel() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stop)
		stopped = true
	})
	return stopped
}

func (realScheduler) Every(d time.Duration, f func()) Task {
	task := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-task.stop:
				return
			case <-ticker.C:
				f()
			}
		}
	}()
	return task
}

// Manual is a Scheduler driven by Advance. Callbacks run synchronously on the
// goroutine calling Advance, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks map[*manualTask]struct{}
}

type manualTask struct {
	m      *Manual
	due    time.Time
	every  time.Duration
	seq    int
	f      func()
	active bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[*manualTask]struct{})}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) After(d time.Duration, f func()) Task {
	return m.add(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Task {
	return m.add(d, d, f)
}

func (m *Manual) add(d, every time.Duration, f func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, due: m.now.Add(d), every: every, seq: m.seq, f: f, active: true}
	m.tasks[t] = struct{}{}
	return t
}

// Pending returns the number of scheduled tasks that have not fired or been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (t *manualTask) Cancel() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	delete(t.m.tasks, t)
	return true
}

// Advance moves the clock forward by d, firing every task that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.every > 0 {
			next.due = next.due.Add(next.every)
		} else {
			next.active = false
			delete(m.tasks, next)
		}
		f := next.f
		m.mu.Unlock()

		f()
	}
}

func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	due := make([]*manualTask, 0, len(m.tasks))
	for t := range m.tasks {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}
