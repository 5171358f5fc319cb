package amf0

import "github.com/pkg/errors"

// ErrUnexpectedEOF is returned when a value's header claims more bytes than
// remain in the buffer.
var ErrUnexpectedEOF = errors.New("amf0: unexpected end of buffer")

// ErrUnknownMarker is returned when a marker byte doesn't match any known
// AMF0 type. Per the wire contract, an unknown marker fails the whole
// message, not just the one value.
var ErrUnknownMarker = errors.New("amf0: unknown type marker")

// ErrTypeMismatch is returned by the As* casting helpers when the decoded
// value isn't the Go type the caller expected.
var ErrTypeMismatch = errors.New("amf0: value has unexpected type")
