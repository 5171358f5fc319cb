// Package buffer provides the refcounted byte buffer capability the RTMP
// core consumes. Payloads are pooled so steady-state fan-out to many
// subscribers doesn't allocate per frame; the pool and the reference count
// are independent concerns, kept together here because every caller needs
// both.
package buffer

import (
	"sync"
	"sync/atomic"
)

// defaultCapacity sizes fresh pooled slices for a typical compressed
// audio/video frame so most acquisitions don't need to grow.
const defaultCapacity = 64 * 1024

var pool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, defaultCapacity)
		return &b
	},
}

// Buffer is an opaque, reference-counted byte buffer. The zero value is not
// usable; obtain one with Acquire or Wrap.
//
// Ownership: a fresh Buffer has refcount 1. Retain shares the same backing
// bytes and bumps the count; Duplicate copies the bytes into an independent
// Buffer with its own count. Release drops the count by one and returns the
// backing slice to the pool once it reaches zero. Using a Buffer after its
// count reaches zero is a bug in the caller.
type Buffer struct {
	data   []byte
	refs   *int32
	pooled bool
}

// Acquire returns a Buffer of length n backed by a pooled slice, refcount 1.
func Acquire(n int) *Buffer {
	p := pool.Get().(*[]byte)
	buf := *p
	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	refs := int32(1)
	return &Buffer{data: buf, refs: &refs, pooled: true}
}

// Wrap adopts an existing slice as a Buffer, refcount 1. The slice is not
// returned to the pool on release; use this for buffers that didn't come
// from Acquire, e.g. a freshly AMF0-encoded command payload.
func Wrap(data []byte) *Buffer {
	refs := int32(1)
	return &Buffer{data: data, refs: &refs}
}

// Bytes returns the buffer's contents. The returned slice is only valid as
// long as the caller holds a reference (i.e. between acquiring/retaining
// and releasing).
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Retain increments the refcount and returns the same handle, so the
// returned value and b alias the same bytes. Each Retain must be balanced
// by exactly one Release.
func (b *Buffer) Retain() *Buffer {
	if b == nil {
		return nil
	}
	atomic.AddInt32(b.refs, 1)
	return b
}

// Duplicate returns a new Buffer with an independent copy of b's bytes and
// its own refcount of 1. Use this when caching a frame past the lifetime of
// the buffer that delivered it.
func (b *Buffer) Duplicate() *Buffer {
	if b == nil {
		return nil
	}
	dup := Acquire(len(b.data))
	copy(dup.data, b.data)
	return dup
}

// Release decrements the refcount. When it reaches zero the backing slice
// is returned to the pool (if pooled) and the buffer must not be used
// again.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	if atomic.AddInt32(b.refs, -1) > 0 {
		return
	}
	if b.pooled {
		buf := b.data[:0]
		pool.Put(&buf)
	}
	b.data = nil
}

// RefCount reports the current reference count. Intended for tests; the
// core never needs to inspect it.
func (b *Buffer) RefCount() int32 {
	if b == nil {
		return 0
	}
	return atomic.LoadInt32(b.refs)
}
