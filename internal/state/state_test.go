package state

import (
	"testing"

	"credential-client/internal/model"
)

func TestState_ClearDropsSessionCacheAndReference(t *testing.T) {
	s := New()
	s.SetSession(model.Session{UserID: 7, Username: "alice"})
	s.SetPendingReference("QmHash")
	s.Credentials().Replace([]model.Credential{{ID: "a"}}, []model.Credential{{ID: "b"}})

	s.Clear()

	if _, ok := s.Session(); ok {
		t.Fatalf("expected no session")
	}
	if s.PendingReference() != "" {
		t.Fatalf("expected pending reference cleared")
	}
	if issued, owned := s.Credentials().Counts(); issued != 0 || owned != 0 {
		t.Fatalf("expected empty cache, got %d/%d", issued, owned)
	}
}

func TestState_SetSessionResetsPreviousUserData(t *testing.T) {
	s := New()
	s.SetSession(model.Session{UserID: 1, Username: "alice"})
	s.Credentials().Replace([]model.Credential{{ID: "a"}}, nil)

	s.SetSession(model.Session{UserID: 2, Username: "bob"})

	sess, ok := s.Session()
	if !ok || sess.Username != "bob" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if issued, _ := s.Credentials().Counts(); issued != 0 {
		t.Fatalf("expected cache cleared on session change")
	}
}

func TestState_PendingReferenceForStaleGenerationIsIgnored(t *testing.T) {
	st := New()
	st.SetSession(model.Session{UserID: 1})
	_, gen, ok := st.SessionGeneration()
	if !ok {
		t.Fatalf("expected session")
	}
	if !st.SetPendingReferenceFor(gen, "QmA") || st.PendingReference() != "QmA" {
		t.Fatalf("expected reference stored for current session")
	}

	st.SetSession(model.Session{UserID: 1})
	if st.SetPendingReferenceFor(gen, "QmB") {
		t.Fatalf("expected stale generation rejected")
	}
	if st.PendingReference() != "" {
		t.Fatalf("expected reference cleared by relogin, got %q", st.PendingReference())
	}

	st.Clear()
	_, gen, _ = st.SessionGeneration()
	if st.SetPendingReferenceFor(gen, "QmC") {
		t.Fatalf("expected no reference without a session")
	}
}
