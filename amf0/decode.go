package amf0

import (
	"encoding/binary"
	"math"
)

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.pos
}

func (d *decoder) need(n int) error {
	if d.remaining() < n {
		return ErrUnexpectedEOF
	}
	return nil
}

func (d *decoder) byte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// DecodeAll decodes every AMF0 value in buf and returns them in order. It
// keeps decoding until buf is exhausted, so every byte must belong to some
// value: bytes left after a value are decoded as further values, and a
// value cut short by the end of buf (or an unknown marker) fails the whole
// call, matching the AMF0 command/data payload contract where the whole
// message is a tightly-packed sequence of values.
func DecodeAll(buf []byte) ([]Value, error) {
	d := &decoder{buf: buf}
	var values []Value
	for d.remaining() > 0 {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Decode decodes a single AMF0 value from the start of buf and returns the
// value along with the number of bytes consumed.
func Decode(buf []byte) (Value, int, error) {
	d := &decoder{buf: buf}
	v, err := d.decodeValue()
	if err != nil {
		return nil, 0, err
	}
	return v, d.pos, nil
}

func (d *decoder) decodeValue() (Value, error) {
	marker, err := d.byte()
	if err != nil {
		return nil, err
	}
	switch Marker(marker) {
	case MarkerNumber:
		return d.decodeNumber()
	case MarkerBoolean:
		return d.decodeBoolean()
	case MarkerString:
		return d.decodeShortString()
	case MarkerLongString:
		return d.decodeLongString()
	case MarkerObject:
		return d.decodeObject()
	case MarkerNull:
		return nil, nil
	case MarkerUndefined:
		return Undefined{}, nil
	case MarkerReference:
		return d.decodeReference()
	case MarkerEcmaArray:
		return d.decodeEcmaArray()
	case MarkerStrictArray:
		return d.decodeStrictArray()
	case MarkerDate:
		return d.decodeDate()
	default:
		return nil, ErrUnknownMarker
	}
}

func (d *decoder) decodeNumber() (float64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (d *decoder) decodeBoolean() (bool, error) {
	b, err := d.byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (d *decoder) decodeShortString() (string, error) {
	lb, err := d.take(2)
	if err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lb)
	sb, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(sb), nil
}

func (d *decoder) decodeLongString() (string, error) {
	lb, err := d.take(4)
	if err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lb)
	sb, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(sb), nil
}

func (d *decoder) decodeReference() (Reference, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return Reference(binary.BigEndian.Uint16(b)), nil
}

// decodeObjectBody reads (key, value) pairs until the sentinel empty-key +
// ObjectEnd marker, per the AMF0 object encoding.
func (d *decoder) decodeObjectBody() (*Object, error) {
	obj := NewObject()
	for {
		lb, err := d.take(2)
		if err != nil {
			return nil, err
		}
		keyLen := binary.BigEndian.Uint16(lb)
		if keyLen == 0 {
			end, err := d.byte()
			if err != nil {
				return nil, err
			}
			if Marker(end) != MarkerObjectEnd {
				return nil, ErrUnknownMarker
			}
			return obj, nil
		}
		kb, err := d.take(int(keyLen))
		if err != nil {
			return nil, err
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		obj.Set(string(kb), val)
	}
}

func (d *decoder) decodeObject() (*Object, error) {
	return d.decodeObjectBody()
}

func (d *decoder) decodeEcmaArray() (*EcmaArray, error) {
	cb, err := d.take(4)
	if err != nil {
		return nil, err
	}
	_ = binary.BigEndian.Uint32(cb) // associative count; the trailer is authoritative, so we don't rely on it
	obj, err := d.decodeObjectBody()
	if err != nil {
		return nil, err
	}
	return &EcmaArray{Object: *obj}, nil
}

func (d *decoder) decodeStrictArray() (StrictArray, error) {
	cb, err := d.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(cb)
	arr := make(StrictArray, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func (d *decoder) decodeDate() (Date, error) {
	b, err := d.take(10)
	if err != nil {
		return Date{}, err
	}
	ms := math.Float64frombits(binary.BigEndian.Uint64(b[:8]))
	tz := int16(binary.BigEndian.Uint16(b[8:10]))
	return Date{Milliseconds: ms, TimezoneMins: tz}, nil
}
