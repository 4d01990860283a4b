package core

import "testing"

func TestSession_ThreadBinding(t *testing.T) {
	s := NewSession("conv-1")
	if s.Thread() != "" {
		t.Fatalf("new session should be unbound, got %q", s.Thread())
	}
	if s.Created.IsZero() || s.Updated.IsZero() {
		t.Fatal("timestamps not initialized")
	}

	s.BindThread("thread-42")
	if s.Thread() != "thread-42" {
		t.Fatalf("thread = %q", s.Thread())
	}
	if s.Updated.Before(s.Created) {
		t.Error("Updated should not precede Created")
	}
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("conv-1")
	s.BindThread("thread-1")
	s.SetMetadata("assistant", "agent")

	clone := s.Clone()
	if clone == s {
		t.Error("Clone should be a different pointer")
	}
	clone.BindThread("thread-2")
	clone.Metadata["assistant"] = "other"

	if s.Thread() != "thread-1" {
		t.Errorf("clone mutation leaked into original thread: %q", s.Thread())
	}
	if s.Metadata["assistant"] != "agent" {
		t.Errorf("clone mutation leaked into original metadata: %q", s.Metadata["assistant"])
	}
}
