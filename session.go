package rtmp

import (
	"sync"

	"github.com/rtmpbroker/broker/amf0"
	"github.com/rtmpbroker/broker/rand"
)

// Role is the part a session plays once it has issued publish or play.
type Role int

const (
	RoleUnassigned Role = iota
	RolePublisher
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "unassigned"
	}
}

// SessionState tracks whether a publisher has produced its first key frame
// yet. Subscribers don't have a meaningful state beyond their role.
type SessionState int

const (
	StateInitializing SessionState = iota
	StateComplete
)

// Session is the per-connection state the core attaches to a connection
// handle. One Session exists for the lifetime of one TCP connection.
type Session struct {
	mu sync.RWMutex

	id   string
	role Role

	app        string
	streamName string
	streamKey  string
	keySet     bool

	paused bool

	// Publisher-only fields.
	keyFrame  *Message
	metadata  amf0.Value
	state     SessionState
	readiness *Readiness
}

// NewSession returns a fresh, unassigned session with a random id.
func NewSession() *Session {
	return &Session{
		id:        rand.GenerateUuid(),
		readiness: NewReadiness(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Role returns the session's current role.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// ErrRoleAlreadySet signals an attempt to change a session's role after it
// has already been assigned to something else. A session may be asked to
// take the same role twice (e.g. a repeated publish on the same
// connection); that's a no-op, not an error.
type roleConflictError struct{}

func (roleConflictError) Error() string { return "session: role already set to a different value" }

var ErrRoleAlreadySet error = roleConflictError{}

// SetRole assigns role if the session is unassigned, or confirms it if
// already set to the same role. Returns ErrRoleAlreadySet if the session
// already has a different role; per the invariant, role transitions at
// most once away from unassigned.
func (s *Session) SetRole(role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleUnassigned {
		s.role = role
		return nil
	}
	if s.role != role {
		return ErrRoleAlreadySet
	}
	return nil
}

// SetApp records the app name from connect.
func (s *Session) SetApp(app string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = app
	s.deriveStreamKey()
}

// App returns the app name set by connect.
func (s *Session) App() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// SetStreamName records the stream name from publish or play.
func (s *Session) SetStreamName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamName = name
	s.deriveStreamKey()
}

// StreamName returns the stream name set by publish or play.
func (s *Session) StreamName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamName
}

// deriveStreamKey computes streamKey once both app and streamName are
// known. Per the invariant, streamKey is immutable after that point, so
// once keySet is true this is a no-op.
func (s *Session) deriveStreamKey() {
	if s.keySet || s.app == "" || s.streamName == "" {
		return
	}
	s.streamKey = s.app + "/" + s.streamName
	s.keySet = true
}

// StreamKey returns the derived stream key and whether it has been set yet.
func (s *Session) StreamKey() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamKey, s.keySet
}

// Paused reports whether a subscriber session is currently paused.
func (s *Session) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SetPaused updates the paused flag (subscribers only).
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Readiness returns the session's one-shot publisher-ready completion.
func (s *Session) Readiness() *Readiness {
	return s.readiness
}

// State returns the session's completion state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// KeyFrame returns the publisher's cached first key frame, or nil if none
// has arrived yet.
func (s *Session) KeyFrame() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyFrame
}

// Metadata returns the publisher's cached onMetaData payload, or nil.
func (s *Session) Metadata() amf0.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SetMetadata records the publisher's onMetaData payload. Unlike the key
// frame, metadata can arrive more than once (an encoder may resend it) and
// each arrival replaces the cached value.
func (s *Session) SetMetadata(v amf0.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = v
}

// CompleteWithKeyFrame caches frame as the session's first key frame and
// resolves readiness to complete. It is a no-op if the session already
// completed; per the invariant, a publisher reaches complete at most once
// and its key frame is never replaced. Returns true if this call is what
// completed the session.
func (s *Session) CompleteWithKeyFrame(frame *Message) bool {
	s.mu.Lock()
	if s.state == StateComplete {
		s.mu.Unlock()
		return false
	}
	s.keyFrame = frame.Copy()
	s.state = StateComplete
	s.mu.Unlock()

	s.readiness.Resolve(ReadinessComplete)
	return true
}

// Fail resolves the session's readiness to failed, e.g. because the
// publisher connection closed before ever completing.
func (s *Session) Fail() {
	s.readiness.Resolve(ReadinessFailed)
}

// Close releases the pooled resources a publisher session holds, namely
// the cached key frame. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyFrame != nil {
		s.keyFrame.Release()
		s.keyFrame = nil
	}
}
