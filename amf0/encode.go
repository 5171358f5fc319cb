package amf0

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeAll encodes values in order and concatenates their wire forms, the
// inverse of DecodeAll.
func EncodeAll(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		b, err := Encode(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Encode returns the canonical AMF0 wire encoding of v.
func Encode(v Value) ([]byte, error) {
	switch tv := v.(type) {
	case nil:
		return []byte{byte(MarkerNull)}, nil
	case Undefined:
		return []byte{byte(MarkerUndefined)}, nil
	case float64:
		return encodeNumber(tv), nil
	case int:
		return encodeNumber(float64(tv)), nil
	case bool:
		return encodeBoolean(tv), nil
	case string:
		return encodeString(tv), nil
	case *Object:
		return encodeObject(tv), nil
	case *EcmaArray:
		return encodeEcmaArray(tv), nil
	case StrictArray:
		return encodeStrictArray(tv), nil
	case Date:
		return encodeDate(tv), nil
	case Reference:
		return encodeReference(tv), nil
	default:
		return nil, ErrTypeMismatch
	}
}

func encodeNumber(n float64) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(MarkerNumber)
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(n))
	return buf
}

func encodeBoolean(b bool) []byte {
	buf := make([]byte, 2)
	buf[0] = byte(MarkerBoolean)
	if b {
		buf[1] = 1
	}
	return buf
}

func encodeString(s string) []byte {
	if len(s) <= 0xFFFF {
		buf := make([]byte, 3+len(s))
		buf[0] = byte(MarkerString)
		binary.BigEndian.PutUint16(buf[1:3], uint16(len(s)))
		copy(buf[3:], s)
		return buf
	}
	buf := make([]byte, 5+len(s))
	buf[0] = byte(MarkerLongString)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(s)))
	copy(buf[5:], s)
	return buf
}

// encodeKey encodes a string as a bare (length, bytes) pair with no type
// marker, the form AMF0 object keys use.
func encodeKey(s string) []byte {
	buf := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(s)))
	copy(buf[2:], s)
	return buf
}

func encodeObjectEnd() []byte {
	return []byte{0x00, 0x00, byte(MarkerObjectEnd)}
}

func encodeObjectBody(o *Object) []byte {
	var buf bytes.Buffer
	for _, p := range o.Pairs() {
		buf.Write(encodeKey(p.Key))
		v, err := Encode(p.Value)
		if err != nil {
			// Unencodable nested values collapse to Null rather than
			// corrupting the sibling keys already written.
			v = []byte{byte(MarkerNull)}
		}
		buf.Write(v)
	}
	buf.Write(encodeObjectEnd())
	return buf.Bytes()
}

func encodeObject(o *Object) []byte {
	body := encodeObjectBody(o)
	buf := make([]byte, 1+len(body))
	buf[0] = byte(MarkerObject)
	copy(buf[1:], body)
	return buf
}

func encodeEcmaArray(a *EcmaArray) []byte {
	body := encodeObjectBody(&a.Object)
	buf := make([]byte, 5+len(body))
	buf[0] = byte(MarkerEcmaArray)
	binary.BigEndian.PutUint32(buf[1:5], uint32(a.Len()))
	copy(buf[5:], body)
	return buf
}

func encodeStrictArray(a StrictArray) []byte {
	var body bytes.Buffer
	for _, v := range a {
		b, err := Encode(v)
		if err != nil {
			b = []byte{byte(MarkerNull)}
		}
		body.Write(b)
	}
	buf := make([]byte, 5+body.Len())
	buf[0] = byte(MarkerStrictArray)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(a)))
	copy(buf[5:], body.Bytes())
	return buf
}

func encodeDate(d Date) []byte {
	buf := make([]byte, 11)
	buf[0] = byte(MarkerDate)
	binary.BigEndian.PutUint64(buf[1:9], math.Float64bits(d.Milliseconds))
	binary.BigEndian.PutUint16(buf[9:11], uint16(d.TimezoneMins))
	return buf
}

func encodeReference(r Reference) []byte {
	buf := make([]byte, 3)
	buf[0] = byte(MarkerReference)
	binary.BigEndian.PutUint16(buf[1:3], uint16(r))
	return buf
}
