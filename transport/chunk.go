// Package transport implements the RTMP chunk stream: the handshake, chunk
// header framing, and message (de)assembly that sit between a TCP socket and
// the core's logical-message dispatcher. None of the session semantics live
// here; this package only knows how to turn bytes into whole rtmp.Message
// values and back.
package transport

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
	rtmp "github.com/rtmpbroker/broker"
	"github.com/rtmpbroker/broker/buffer"
	"github.com/rtmpbroker/broker/config"
	"github.com/rtmpbroker/broker/internal/binary24"
)

// Chunk basic header types, per the RTMP chunk format.
const (
	chunkType0 uint8 = 0
	chunkType1 uint8 = 1
	chunkType2 uint8 = 2
	chunkType3 uint8 = 3
)

// Chunk stream IDs this broker uses for its own outbound messages. Any csid
// is legal on the wire; these are just the ones we pick when we're the
// sender, mirroring the convention of keeping control, command, and media
// traffic on separate chunk streams so a large video chunk train doesn't
// block a control message behind it.
const (
	ControlChunkStreamID uint32 = 2
	CommandChunkStreamID uint32 = 3
	AudioChunkStreamID   uint32 = 4
	VideoChunkStreamID   uint32 = 6
)

var ErrUnknownChunkType = errors.New("transport: unknown chunk basic header type")

// chunkHeaderState is what a chunk stream ID needs remembered between chunks
// so that type 1/2/3 headers (which omit fields) can be reconstructed.
type chunkHeaderState struct {
	timestamp     uint32
	messageLength uint32
	messageTypeID uint8
	streamID      uint32
}

// reader demultiplexes an inbound byte stream into whole rtmp.Message
// values. It is not safe for concurrent use; one reader serves exactly one
// connection's read loop.
type reader struct {
	r          *bufio.Reader
	chunkSize  uint32
	prev       map[uint32]*chunkHeaderState
	inProgress map[uint32][]byte // partial payload for messages spanning multiple chunks
}

func newReader(r *bufio.Reader) *reader {
	return &reader{
		r:          r,
		chunkSize:  config.DefaultChunkSize,
		prev:       make(map[uint32]*chunkHeaderState),
		inProgress: make(map[uint32][]byte),
	}
}

// ReadMessage blocks until one complete RTMP logical message has been
// assembled from the chunk stream and returns it with a fresh, owned
// payload buffer (refcount 1).
func (rd *reader) ReadMessage() (*rtmp.Message, error) {
	for {
		csid, fmtType, err := rd.readBasicHeader()
		if err != nil {
			return nil, err
		}
		state, err := rd.readMessageHeader(csid, fmtType)
		if err != nil {
			return nil, err
		}

		remaining := state.messageLength - uint32(len(rd.inProgress[csid]))
		chunkPayloadSize := remaining
		if chunkPayloadSize > rd.chunkSize {
			chunkPayloadSize = rd.chunkSize
		}
		chunk := make([]byte, chunkPayloadSize)
		if _, err := io.ReadFull(rd.r, chunk); err != nil {
			return nil, err
		}
		rd.inProgress[csid] = append(rd.inProgress[csid], chunk...)

		if uint32(len(rd.inProgress[csid])) < state.messageLength {
			continue
		}

		payload := rd.inProgress[csid]
		delete(rd.inProgress, csid)

		buf := buffer.Acquire(len(payload))
		copy(buf.Bytes(), payload)

		msg := &rtmp.Message{
			Type:      rtmp.MessageType(state.messageTypeID),
			Timestamp: state.timestamp,
			StreamID:  state.streamID,
			Payload:   buf,
		}

		if msg.Type == rtmp.TypeSetChunkSize {
			if v := msg.Payload.Bytes(); len(v) == 4 {
				rd.chunkSize = binary.BigEndian.Uint32(v)
			}
		}

		return msg, nil
	}
}

func (rd *reader) readBasicHeader() (csid uint32, fmtType uint8, err error) {
	b, err := rd.r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	fmtType = b >> 6
	id := b & 0x3F

	switch id {
	case 0:
		next, err := rd.r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		csid = uint32(next) + 64
	case 1:
		two := make([]byte, 2)
		if _, err := io.ReadFull(rd.r, two); err != nil {
			return 0, 0, err
		}
		csid = uint32(binary.BigEndian.Uint16(two)) + 64
	default:
		csid = uint32(id)
	}
	return csid, fmtType, nil
}

func (rd *reader) readMessageHeader(csid uint32, fmtType uint8) (*chunkHeaderState, error) {
	prev, hadPrev := rd.prev[csid]
	if !hadPrev {
		prev = &chunkHeaderState{}
		rd.prev[csid] = prev
	}

	switch fmtType {
	case chunkType0:
		h := make([]byte, 11)
		if _, err := io.ReadFull(rd.r, h); err != nil {
			return nil, err
		}
		ts := binary24.BigEndian.Uint24(h[0:3])
		prev.messageLength = binary24.BigEndian.Uint24(h[3:6])
		prev.messageTypeID = h[6]
		prev.streamID = binary.LittleEndian.Uint32(h[7:11])
		if ts == 0xFFFFFF {
			ext := make([]byte, 4)
			if _, err := io.ReadFull(rd.r, ext); err != nil {
				return nil, err
			}
			ts = binary.BigEndian.Uint32(ext)
		}
		prev.timestamp = ts
	case chunkType1:
		h := make([]byte, 7)
		if _, err := io.ReadFull(rd.r, h); err != nil {
			return nil, err
		}
		delta := binary24.BigEndian.Uint24(h[0:3])
		prev.messageLength = binary24.BigEndian.Uint24(h[3:6])
		prev.messageTypeID = h[6]
		if delta == 0xFFFFFF {
			ext := make([]byte, 4)
			if _, err := io.ReadFull(rd.r, ext); err != nil {
				return nil, err
			}
			delta = binary.BigEndian.Uint32(ext)
		}
		prev.timestamp += delta
	case chunkType2:
		h := make([]byte, 3)
		if _, err := io.ReadFull(rd.r, h); err != nil {
			return nil, err
		}
		delta := binary24.BigEndian.Uint24(h)
		if delta == 0xFFFFFF {
			ext := make([]byte, 4)
			if _, err := io.ReadFull(rd.r, ext); err != nil {
				return nil, err
			}
			delta = binary.BigEndian.Uint32(ext)
		}
		prev.timestamp += delta
	case chunkType3:
		// Nothing to read; reuse every field from the previous header for
		// this chunk stream ID, including timestamp.
	default:
		return nil, ErrUnknownChunkType
	}

	out := *prev
	return &out, nil
}

// writer serializes outbound rtmp.Message values as a chunk-0 header
// followed by type-3 continuation chunks once the payload exceeds the
// negotiated outbound chunk size. Safe for concurrent use: every write is
// serialized behind mu, since key-frame replay can be triggered from a
// different goroutine than the connection's own read loop.
type writer struct {
	mu        sync.Mutex
	w         *bufio.Writer
	chunkSize uint32
}

func newWriter(w *bufio.Writer) *writer {
	return &writer{w: w, chunkSize: config.DefaultChunkSize}
}

func csidForType(t rtmp.MessageType) uint32 {
	switch t {
	case rtmp.TypeAudio:
		return AudioChunkStreamID
	case rtmp.TypeVideo:
		return VideoChunkStreamID
	case rtmp.TypeAMF0Command, rtmp.TypeAMF0Data:
		return CommandChunkStreamID
	default:
		return ControlChunkStreamID
	}
}

// WriteMessage frames msg as chunk-0 plus any necessary type-3 continuation
// chunks and writes it to the underlying buffered writer. It does not flush;
// callers batch control-triad writes and flush once.
func (wr *writer) WriteMessage(msg *rtmp.Message) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	csid := csidForType(msg.Type)
	payload := msg.Payload.Bytes()

	header := make([]byte, 12)
	header[0] = (chunkType0 << 6) | byte(csid)
	binary24.BigEndian.PutUint24(header[1:4], msg.Timestamp)
	binary24.BigEndian.PutUint24(header[4:7], uint32(len(payload)))
	header[7] = byte(msg.Type)
	binary.LittleEndian.PutUint32(header[8:12], msg.StreamID)

	if _, err := wr.w.Write(header); err != nil {
		return err
	}

	chunkSize := wr.chunkSize
	if uint32(len(payload)) <= chunkSize {
		_, err := wr.w.Write(payload)
		if err == nil && msg.Type == rtmp.TypeSetChunkSize {
			wr.applyOutboundChunkSize(payload)
		}
		return err
	}

	continuation := byte((chunkType3 << 6) | byte(csid&0x3F))
	written := uint32(0)
	first := true
	for written < uint32(len(payload)) {
		if !first {
			if err := wr.w.WriteByte(continuation); err != nil {
				return err
			}
		}
		first = false
		end := written + chunkSize
		if end > uint32(len(payload)) {
			end = uint32(len(payload))
		}
		if _, err := wr.w.Write(payload[written:end]); err != nil {
			return err
		}
		written = end
	}
	return nil
}

// applyOutboundChunkSize takes effect for every chunk written after this
// one, mirroring what SetChunkSize tells the peer to expect from us.
func (wr *writer) applyOutboundChunkSize(payload []byte) {
	if len(payload) != 4 {
		return
	}
	wr.chunkSize = binary.BigEndian.Uint32(payload)
}

func (wr *writer) Flush() error {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	return wr.w.Flush()
}
