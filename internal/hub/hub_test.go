package hub

import (
	"encoding/json"
	"errors"
	"testing"
)

type testWriter struct {
	writes [][]byte
	fail   bool
	closed bool
}

func (w *testWriter) Write(message []byte) error {
	w.writes = append(w.writes, message)
	if w.fail {
		return errors.New("broken pipe")
	}
	return nil
}

func (w *testWriter) Close() error {
	w.closed = true
	return nil
}

func TestHub_RegisterSendUnregister(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	c1 := &Connection{ViewerID: "v", Writer: w1}

	h.Register(c1)
	h.Send("v", []byte("x"))
	if len(w1.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(w1.writes))
	}

	h.Unregister(c1)
	h.Send("v", []byte("x"))
	if len(w1.writes) != 1 {
		t.Fatalf("expected no more writes, got %d", len(w1.writes))
	}
	if h.Count() != 0 {
		t.Fatalf("expected no connections")
	}
}

func TestHub_PublishReachesEveryViewer(t *testing.T) {
	h := New()
	a, b := &testWriter{}, &testWriter{}
	h.Register(&Connection{ViewerID: "v1", Writer: a})
	h.Register(&Connection{ViewerID: "v2", Writer: b})

	h.Publish("notification-added", map[string]string{"message": "hi"})

	for _, w := range []*testWriter{a, b} {
		if len(w.writes) != 1 {
			t.Fatalf("expected one write per connection")
		}
		var msg Message
		if err := json.Unmarshal(w.writes[0], &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != "update" || msg.Event != "notification-added" {
			t.Fatalf("unexpected envelope %+v", msg)
		}
	}
}

func TestHub_RemovesFailedConnections(t *testing.T) {
	h := New()
	w1 := &testWriter{fail: true}
	h.Register(&Connection{ViewerID: "v", Writer: w1})

	h.Publish("activity", nil)
	h.Publish("activity", nil)
	if len(w1.writes) != 1 {
		t.Fatalf("expected only 1 write before removal, got %d", len(w1.writes))
	}
	if !w1.closed {
		t.Fatalf("expected failed connection closed")
	}
}
