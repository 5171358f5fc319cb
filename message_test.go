package rtmp

import "testing"

func TestIsKeyFrameOnlyForVideoWithKeyFrameNibble(t *testing.T) {
	cases := []struct {
		name string
		typ  MessageType
		b0   byte
		want bool
	}{
		{"video key frame", TypeVideo, 0x17, true},
		{"video inter frame", TypeVideo, 0x27, false},
		{"audio never a key frame", TypeAudio, 0x17, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMessage(tc.typ, 1, []byte{tc.b0, 0, 0})
			defer m.Release()
			if got := m.IsKeyFrame(); got != tc.want {
				t.Fatalf("IsKeyFrame() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsKeyFrameEmptyPayload(t *testing.T) {
	m := NewMessage(TypeVideo, 1, nil)
	defer m.Release()
	if m.IsKeyFrame() {
		t.Fatalf("empty payload should not report as a key frame")
	}
}

func TestRetainSharesPayload(t *testing.T) {
	m := NewMessage(TypeAudio, 1, []byte{1, 2, 3})
	defer m.Release()

	r := m.Retain()
	defer r.Release()

	if m.Payload.RefCount() != 2 {
		t.Fatalf("refcount = %d, want 2 after retain", m.Payload.RefCount())
	}
	r.Payload.Bytes()[0] = 9
	if m.Payload.Bytes()[0] != 9 {
		t.Fatalf("retain should alias the same bytes")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	m := NewMessage(TypeVideo, 1, []byte{1, 2, 3})
	defer m.Release()

	c := m.Copy()
	defer c.Release()

	c.Payload.Bytes()[0] = 9
	if m.Payload.Bytes()[0] == 9 {
		t.Fatalf("copy should not alias the original's bytes")
	}
	if c.Payload.RefCount() != 1 {
		t.Fatalf("copy refcount = %d, want 1", c.Payload.RefCount())
	}
}
