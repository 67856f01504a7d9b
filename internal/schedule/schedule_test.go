package schedule

import (
	"testing"
	"time"
)

func TestManual_AfterFiresOnce(t *testing.T) {
	m := NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fired := 0
	m.After(5*time.Second, func() { fired++ })

	m.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("expected no fire before due, got %d", fired)
	}
	m.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
	m.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("expected one-shot task, got %d fires", fired)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending tasks")
	}
}

func TestManual_CancelPreventsFire(t *testing.T) {
	m := NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fired := false
	task := m.After(time.Second, func() { fired = true })
	if !task.Cancel() {
		t.Fatalf("expected first cancel to report pending")
	}
	if task.Cancel() {
		t.Fatalf("expected second cancel to be a no-op")
	}
	m.Advance(time.Minute)
	if fired {
		t.Fatalf("cancelled task fired")
	}
}

func TestManual_EveryRepeatsInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	var seen []time.Time
	task := m.Every(time.Minute, func() { seen = append(seen, m.Now()) })

	m.Advance(3*time.Minute + 30*time.Second)
	if len(seen) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(seen))
	}
	if !seen[2].Equal(start.Add(3 * time.Minute)) {
		t.Fatalf("unexpected tick time %v", seen[2])
	}
	task.Cancel()
	m.Advance(time.Hour)
	if len(seen) != 3 {
		t.Fatalf("expected no ticks after cancel, got %d", len(seen))
	}
}

func TestManual_CallbackMaySchedule(t *testing.T) {
	m := NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	second := false
	m.After(time.Second, func() {
		m.After(time.Second, func() { second = true })
	})
	m.Advance(2 * time.Second)
	if !second {
		t.Fatalf("expected nested task to fire within the same advance")
	}
}

func TestRealScheduler_AfterCancel(t *testing.T) {
	s := New()
	done := make(chan struct{})
	task := s.After(time.Hour, func() { close(done) })
	if !task.Cancel() {
		t.Fatalf("expected pending timer")
	}

	fired := make(chan struct{}, 1)
	s.After(time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}
