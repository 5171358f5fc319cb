package rtmp

import "github.com/pkg/errors"

// Error kinds the dispatcher and handlers use to decide whether a failure
// closes the connection, per the propagation policy: MalformedCommand and
// StreamKeyInUse close the offending connection; PublisherMissing closes
// the subscriber; WriteFailed on key-frame replay closes the subscriber
// (steady-state fan-out failures are left to the transport); Unsupported
// closes the connection.
var (
	// ErrMalformedCommand covers an empty AMF0 payload, wrong arity, or the
	// wrong AMF0 type at an expected position.
	ErrMalformedCommand = errors.New("rtmp: malformed command")

	// ErrPublisherMissing is returned by play when no publisher is
	// registered for the requested stream key.
	ErrPublisherMissing = errors.New("rtmp: no publisher for stream")

	// ErrWriteFailed marks a transport write failure during key-frame
	// replay.
	ErrWriteFailed = errors.New("rtmp: write failed")

	// ErrUnsupported marks a recognized-but-unimplemented command
	// (call, close, play2, deleteStream, closeStream, receiveAudio,
	// receiveVideo, seek). The protocol state is unknown afterward, so the
	// connection closes.
	ErrUnsupported = errors.New("rtmp: unsupported command")
)

// closesConnection reports whether err, per the propagation policy above,
// should cause the dispatcher to close the connection it came from.
func closesConnection(err error) bool {
	return err != nil
}
