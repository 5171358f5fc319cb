package rtmp

import (
	"github.com/rtmpbroker/broker/audio"
	"github.com/rtmpbroker/broker/buffer"
	"github.com/rtmpbroker/broker/video"
)

// MessageType is the RTMP message type ID carried in every chunk's message
// header.
type MessageType uint8

const (
	TypeSetChunkSize            MessageType = 1
	TypeAbort                   MessageType = 2
	TypeAcknowledgement         MessageType = 3
	TypeUserControl             MessageType = 4
	TypeWindowAcknowledgeSize   MessageType = 5
	TypeSetPeerBandwidth        MessageType = 6
	TypeAudio                   MessageType = 8
	TypeVideo                   MessageType = 9
	TypeAMF0Data                MessageType = 18
	TypeAMF0Command             MessageType = 20
)

// User control event codes, carried as the first two bytes of a
// TypeUserControl message's payload.
const (
	EventStreamBegin uint16 = 0
	EventStreamEOF   uint16 = 1
)

// Message is an already-demultiplexed RTMP logical message: the chunk
// stream layer hands these to the core, and the core hands them back out to
// be re-chunked. Payload is refcounted so one inbound frame can be fanned
// out to many subscribers without copying.
type Message struct {
	Type      MessageType
	Timestamp uint32
	StreamID  uint32
	Payload   *buffer.Buffer
}

// NewMessage wraps data (already owned by the caller) as a Message with
// refcount 1.
func NewMessage(t MessageType, streamID uint32, data []byte) *Message {
	return &Message{Type: t, StreamID: streamID, Payload: buffer.Wrap(data)}
}

// FrameType returns the FLV video tag frame type carried in the high nibble
// of the first payload byte. Only meaningful for TypeVideo messages.
func (m *Message) FrameType() video.FrameType {
	b := m.Payload.Bytes()
	if len(b) == 0 {
		return 0
	}
	return video.FrameType(b[0] >> 4)
}

// Codec returns the FLV video codec carried in the low nibble of the first
// payload byte. Only meaningful for TypeVideo messages.
func (m *Message) Codec() video.Codec {
	b := m.Payload.Bytes()
	if len(b) == 0 {
		return 0
	}
	return video.Codec(b[0] & 0x0F)
}

// AudioFormat returns the FLV audio format carried in the high nibble of the
// first payload byte. Only meaningful for TypeAudio messages.
func (m *Message) AudioFormat() audio.Format {
	b := m.Payload.Bytes()
	if len(b) == 0 {
		return 0
	}
	return audio.Format(b[0] >> 4)
}

// IsKeyFrame reports whether m is a video message carrying an intra-coded
// (key) frame, identified by the high nibble of the first payload byte per
// the FLV video tag format. A generated key frame (a codec-inserted frame
// that isn't a real sync point) does not count.
func (m *Message) IsKeyFrame() bool {
	if m.Type != TypeVideo {
		return false
	}
	if len(m.Payload.Bytes()) == 0 {
		return false
	}
	return m.FrameType() == video.KeyFrame
}

// Retain returns a new Message header sharing the same payload buffer, with
// the payload's refcount incremented. Use this to fan one inbound frame out
// to many subscriber writes.
func (m *Message) Retain() *Message {
	return &Message{Type: m.Type, Timestamp: m.Timestamp, StreamID: m.StreamID, Payload: m.Payload.Retain()}
}

// Copy returns a new Message with an independent deep copy of the payload,
// safe to cache past the lifetime of the original (e.g. a publisher's first
// key frame, held until a subscriber joins).
func (m *Message) Copy() *Message {
	return &Message{Type: m.Type, Timestamp: m.Timestamp, StreamID: m.StreamID, Payload: m.Payload.Duplicate()}
}

// Release drops the message's reference to its payload buffer.
func (m *Message) Release() {
	if m == nil {
		return
	}
	m.Payload.Release()
}
