package rtmp

import "testing"

func TestSetRoleFirstAssignmentWins(t *testing.T) {
	s := NewSession()
	if err := s.SetRole(RolePublisher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Role() != RolePublisher {
		t.Fatalf("role = %v, want publisher", s.Role())
	}
}

func TestSetRoleRepeatedSameRoleIsNoOp(t *testing.T) {
	s := NewSession()
	if err := s.SetRole(RoleSubscriber); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetRole(RoleSubscriber); err != nil {
		t.Fatalf("repeated same role should not error: %v", err)
	}
}

func TestSetRoleConflictRejected(t *testing.T) {
	s := NewSession()
	if err := s.SetRole(RolePublisher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetRole(RoleSubscriber); err != ErrRoleAlreadySet {
		t.Fatalf("err = %v, want ErrRoleAlreadySet", err)
	}
	if s.Role() != RolePublisher {
		t.Fatalf("role changed after rejected conflict: %v", s.Role())
	}
}

func TestStreamKeyDerivedFromAppAndName(t *testing.T) {
	s := NewSession()
	if _, ok := s.StreamKey(); ok {
		t.Fatalf("stream key should not be set before app and name")
	}
	s.SetApp("live")
	if _, ok := s.StreamKey(); ok {
		t.Fatalf("stream key should not be set with only app known")
	}
	s.SetStreamName("camera1")
	key, ok := s.StreamKey()
	if !ok || key != "live/camera1" {
		t.Fatalf("key = %q, %v, want live/camera1, true", key, ok)
	}
}

func TestStreamKeyImmutableOnceDerived(t *testing.T) {
	s := NewSession()
	s.SetApp("live")
	s.SetStreamName("camera1")
	s.SetApp("other")
	key, _ := s.StreamKey()
	if key != "live/camera1" {
		t.Fatalf("key changed after derivation: %q", key)
	}
}

func TestCompleteWithKeyFrameOnlyOnce(t *testing.T) {
	s := NewSession()
	first := NewMessage(TypeVideo, 1, []byte{0x17, 0, 0, 0})
	second := NewMessage(TypeVideo, 1, []byte{0x17, 1, 1, 1})
	defer first.Release()
	defer second.Release()

	if !s.CompleteWithKeyFrame(first) {
		t.Fatalf("first completion should report true")
	}
	if s.CompleteWithKeyFrame(second) {
		t.Fatalf("second completion should report false")
	}
	if s.State() != StateComplete {
		t.Fatalf("state = %v, want complete", s.State())
	}
	if got := s.KeyFrame().Payload.Bytes()[1]; got != 0 {
		t.Fatalf("key frame was replaced by second completion: byte = %d", got)
	}
	if s.Readiness().Result() != ReadinessComplete {
		t.Fatalf("readiness = %v, want complete", s.Readiness().Result())
	}
}

func TestFailResolvesReadinessFailed(t *testing.T) {
	s := NewSession()
	s.Fail()
	if s.Readiness().Result() != ReadinessFailed {
		t.Fatalf("readiness = %v, want failed", s.Readiness().Result())
	}
	if s.State() != StateInitializing {
		t.Fatalf("Fail should not touch session state")
	}
}

func TestCloseReleasesCachedKeyFrame(t *testing.T) {
	s := NewSession()
	frame := NewMessage(TypeVideo, 1, []byte{0x17, 0, 0, 0})
	defer frame.Release()

	s.CompleteWithKeyFrame(frame)
	cached := s.KeyFrame()
	if got := cached.Payload.RefCount(); got != 1 {
		t.Fatalf("cached key frame refcount = %d, want 1", got)
	}

	s.Close()
	if got := cached.Payload.RefCount(); got != 0 {
		t.Fatalf("cached key frame refcount after Close = %d, want 0", got)
	}
	if s.KeyFrame() != nil {
		t.Fatalf("KeyFrame should be nil after Close")
	}
}

func TestCloseWithoutKeyFrameIsNoOp(t *testing.T) {
	s := NewSession()
	s.Close() // must not panic when no key frame was ever cached
	s.Close() // must also tolerate being called twice
}

func TestPausedDefaultsFalse(t *testing.T) {
	s := NewSession()
	if s.Paused() {
		t.Fatalf("new session should not start paused")
	}
	s.SetPaused(true)
	if !s.Paused() {
		t.Fatalf("SetPaused(true) did not stick")
	}
}
