package transport

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/rtmpbroker/broker/rand"
)

const rtmpVersion3 = 3

var (
	ErrUnsupportedRTMPVersion = errors.New("transport: unsupported rtmp version")
	ErrC2Mismatch             = errors.New("transport: c2 does not echo s1")
)

// handshake performs the server side of the RTMP handshake: read C0+C1,
// reply with S0+S1+S2, read C2, and verify C2 echoes the S1 we sent. On
// success the connection is ready to carry chunk stream traffic.
func handshake(r *bufio.Reader, w *bufio.Writer) error {
	c1, err := readC0C1(r)
	if err != nil {
		return err
	}
	s1, err := sendS0S1S2(w, c1)
	if err != nil {
		return err
	}
	c2, err := readC2(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(s1, c2) {
		return ErrC2Mismatch
	}
	return nil
}

// readC0C1 reads the version byte plus the 1536-byte C1 message and returns
// C1 alone.
func readC0C1(r *bufio.Reader) ([]byte, error) {
	var c0c1 [1537]byte
	if _, err := io.ReadFull(r, c0c1[:]); err != nil {
		return nil, err
	}
	if c0c1[0] != rtmpVersion3 {
		return nil, ErrUnsupportedRTMPVersion
	}
	return c0c1[1:], nil
}

// readC2 reads the 1536-byte C2 message.
func readC2(r *bufio.Reader) ([]byte, error) {
	var c2 [1536]byte
	if _, err := io.ReadFull(r, c2[:]); err != nil {
		return nil, err
	}
	return c2[:], nil
}

// sendS0S1S2 writes S0 (version) + S1 (our own random handshake data,
// time field left zero) + S2 (an echo of C1), flushes, and returns S1 so
// the caller can later verify C2 against it.
func sendS0S1S2(w *bufio.Writer, c1 []byte) ([]byte, error) {
	var s0s1s2 [1 + 2*1536]byte
	s0s1s2[0] = rtmpVersion3

	s1 := s0s1s2[1:1537]
	if err := rand.GenerateCryptoSafeRandomData(s1[8:]); err != nil {
		return nil, err
	}
	copy(s0s1s2[1537:], c1)

	if _, err := w.Write(s0s1s2[:]); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return s1, nil
}
