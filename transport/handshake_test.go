package transport

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/rtmpbroker/broker/rand"
)

func TestHandshakeAcceptsWellFormedClient(t *testing.T) {
	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- handshake(bufio.NewReader(serverIn), bufio.NewWriter(serverOut))
	}()

	clientW := bufio.NewWriter(clientOut)
	clientR := bufio.NewReader(clientIn)

	var c0c1 [1537]byte
	c0c1[0] = rtmpVersion3
	if err := rand.GenerateCryptoSafeRandomData(c0c1[9:]); err != nil {
		t.Fatalf("generating c1: %v", err)
	}
	if _, err := clientW.Write(c0c1[:]); err != nil {
		t.Fatalf("writing c0c1: %v", err)
	}
	if err := clientW.Flush(); err != nil {
		t.Fatalf("flushing c0c1: %v", err)
	}

	var s0s1s2 [1 + 2*1536]byte
	if _, err := io.ReadFull(clientR, s0s1s2[:]); err != nil {
		t.Fatalf("reading s0s1s2: %v", err)
	}
	if s0s1s2[0] != rtmpVersion3 {
		t.Fatalf("s0 version = %d, want %d", s0s1s2[0], rtmpVersion3)
	}
	s2 := s0s1s2[1537:]
	if !bytes.Equal(s2, c0c1[1:]) {
		t.Fatalf("s2 does not echo c1")
	}

	s1 := s0s1s2[1:1537]
	if _, err := clientW.Write(s1); err != nil {
		t.Fatalf("writing c2: %v", err)
	}
	if err := clientW.Flush(); err != nil {
		t.Fatalf("flushing c2: %v", err)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server handshake returned error: %v", err)
	}
}

func TestHandshakeRejectsMismatchedC2(t *testing.T) {
	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- handshake(bufio.NewReader(serverIn), bufio.NewWriter(serverOut))
	}()

	clientW := bufio.NewWriter(clientOut)
	clientR := bufio.NewReader(clientIn)

	var c0c1 [1537]byte
	c0c1[0] = rtmpVersion3
	clientW.Write(c0c1[:])
	clientW.Flush()

	var s0s1s2 [1 + 2*1536]byte
	io.ReadFull(clientR, s0s1s2[:])

	wrongC2 := make([]byte, 1536)
	wrongC2[0] = 0xFF
	clientW.Write(wrongC2)
	clientW.Flush()

	if err := <-serverErr; err != ErrC2Mismatch {
		t.Fatalf("err = %v, want ErrC2Mismatch", err)
	}
}

func TestReadC0C1RejectsUnsupportedVersion(t *testing.T) {
	var c0c1 [1537]byte
	c0c1[0] = 9
	r := bufio.NewReader(bytes.NewReader(c0c1[:]))
	if _, err := readC0C1(r); err != ErrUnsupportedRTMPVersion {
		t.Fatalf("err = %v, want ErrUnsupportedRTMPVersion", err)
	}
}
