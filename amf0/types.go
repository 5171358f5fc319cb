// Package amf0 implements Action Message Format version 0, the tagged-value
// encoding RTMP uses for command and data payloads.
package amf0

import "time"

// Marker is the one-byte type tag that precedes every AMF0 value on the wire.
type Marker byte

const (
	MarkerNumber      Marker = 0x00
	MarkerBoolean     Marker = 0x01
	MarkerString      Marker = 0x02
	MarkerObject      Marker = 0x03
	MarkerMovieClip   Marker = 0x04 // reserved, not supported
	MarkerNull        Marker = 0x05
	MarkerUndefined   Marker = 0x06
	MarkerReference   Marker = 0x07
	MarkerEcmaArray   Marker = 0x08
	MarkerObjectEnd   Marker = 0x09
	MarkerStrictArray Marker = 0x0A
	MarkerDate        Marker = 0x0B
	MarkerLongString  Marker = 0x0C
	MarkerUnsupported Marker = 0x0D
	MarkerRecordSet   Marker = 0x0E // reserved, not supported
	MarkerXMLDocument Marker = 0x0F
	MarkerTypedObject Marker = 0x10
)

// Value is the Go representation of a decoded AMF0 value. The concrete type
// carried is one of: float64 (Number), bool (Boolean), string (String and
// LongString collapse to the same Go type; the encoder picks the marker
// based on length), nil (Null), Undefined, *Object, *EcmaArray, StrictArray,
// Date, Reference.
type Value = interface{}

// Undefined is the AMF0 "undefined" value.
type Undefined struct{}

// Reference is an AMF0 object reference (an index into the set of objects
// seen so far in the same AMF0 stream). The core never emits references and
// treats an incoming one opaquely.
type Reference uint16

// Date is an AMF0 date: milliseconds since the Unix epoch plus a timezone
// offset that the RTMP command layer ignores, per the AMF0 spec.
type Date struct {
	Milliseconds float64
	TimezoneMins int16
}

func (d Date) Time() time.Time {
	return time.Unix(0, int64(d.Milliseconds)*int64(time.Millisecond))
}

// StrictArray is an AMF0 strict array: a dense, ordered list of values.
type StrictArray []Value

// Pair is one key/value entry of an Object, in wire order.
type Pair struct {
	Key   string
	Value Value
}

// Object is an AMF0 Object: an insertion-ordered string-keyed map. Order is
// preserved across decode/encode round trips since some encoders (and this
// package's own tests) depend on stable key ordering.
type Object struct {
	pairs []Pair
	index map[string]int
}

// NewObject returns an empty, ready-to-use Object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set inserts or updates key. Existing keys keep their original position;
// new keys are appended at the end.
func (o *Object) Set(key string, v Value) *Object {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.pairs[i].Value = v
		return o
	}
	o.index[key] = len(o.pairs)
	o.pairs = append(o.pairs, Pair{Key: key, Value: v})
	return o
}

// Get returns the value stored under key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.pairs[i].Value, true
}

// Pairs returns the object's entries in insertion order. Callers must not
// mutate the returned slice.
func (o *Object) Pairs() []Pair {
	if o == nil {
		return nil
	}
	return o.pairs
}

// Len returns the number of keys in the object.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.pairs)
}

// Equal reports whether o and other have the same keys, in the same order,
// with equal values (nested Object/EcmaArray compared recursively).
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.pairs) != len(other.pairs) {
		return false
	}
	for i, p := range o.pairs {
		q := other.pairs[i]
		if p.Key != q.Key || !valuesEqual(p.Value, q.Value) {
			return false
		}
	}
	return true
}

// EcmaArray is semantically identical to Object except that it carries an
// associative-count prefix on the wire.
type EcmaArray struct {
	Object
}

// NewEcmaArray returns an empty, ready-to-use EcmaArray.
func NewEcmaArray() *EcmaArray {
	return &EcmaArray{Object: Object{index: make(map[string]int)}}
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case *Object:
		bv, ok := b.(*Object)
		return ok && av.Equal(bv)
	case *EcmaArray:
		bv, ok := b.(*EcmaArray)
		return ok && av.Object.Equal(&bv.Object)
	case StrictArray:
		bv, ok := b.(StrictArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
