package rtmp

// ConnectionHandle is the capability the transport layer exposes to the
// core for one connection. The core never touches a socket or a chunk
// stream directly; everything it needs from the network is behind this
// interface, so the chunk-assembly/disassembly layer, the handshake, and
// the transport can all change without touching session, registry, or
// handler code.
//
// Write and WriteAndFlush take ownership of the reference msg holds on its
// payload buffer: the implementation releases it once the bytes have been
// copied into the chunk stream (or the write fails), whichever comes
// first. Callers that retain a message for fan-out must do so once per
// write, not once overall.
type ConnectionHandle interface {
	// Write queues msg for sending without forcing a flush. Used for the
	// buffered half of the connect response triad.
	Write(msg *Message) error
	// WriteAndFlush queues msg and flushes the connection's output.
	WriteAndFlush(msg *Message) error
	// Close tears down the connection.
	Close() error
	// Session returns the session attached to this connection.
	Session() *Session
}
