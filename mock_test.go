package rtmp

import "sync"

// mockConn is a ConnectionHandle test double that records every message
// written to it (decoding nothing; callers inspect Payload.Bytes()
// themselves) and tracks whether Close was called.
type mockConn struct {
	mu      sync.Mutex
	session *Session
	written []*Message
	flushed []bool
	closed  bool
}

func newMockConn() *mockConn {
	return &mockConn{session: NewSession()}
}

func (m *mockConn) Write(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, msg)
	m.flushed = append(m.flushed, false)
	return nil
}

func (m *mockConn) WriteAndFlush(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, msg)
	m.flushed = append(m.flushed, true)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) Session() *Session {
	return m.session
}

func (m *mockConn) messages() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.written))
	copy(out, m.written)
	return out
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// failingConn fails WriteAndFlush specifically for a video message (the
// key-frame replay), so it can isolate that failure from the onStatus/
// sample-access writes that precede it in the same handler.
type failingConn struct {
	*mockConn
}

func newFailingConn() *failingConn {
	return &failingConn{mockConn: newMockConn()}
}

func (f *failingConn) WriteAndFlush(msg *Message) error {
	if msg.Type != TypeVideo {
		return f.mockConn.WriteAndFlush(msg)
	}
	_ = f.mockConn.WriteAndFlush(msg)
	return errWriteFailedForTest
}

var errWriteFailedForTest = errWriteFailedForTestType{}

type errWriteFailedForTestType struct{}

func (errWriteFailedForTestType) Error() string { return "mock: write failed" }
