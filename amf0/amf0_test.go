package amf0

import "testing"

func TestRoundTripScalars(t *testing.T) {
	values := []Value{
		float64(31),
		true,
		false,
		"hello world",
		nil,
		Undefined{},
	}

	for _, v := range values {
		encoded, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%#v) error: %v", v, err)
		}
		decoded, n, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if n != len(encoded) {
			t.Errorf("Decode consumed %d bytes, want %d", n, len(encoded))
		}
		if !valuesEqual(v, decoded) {
			t.Errorf("round trip mismatch: got %#v, want %#v", decoded, v)
		}
	}
}

func TestObjectPreservesKeyOrder(t *testing.T) {
	obj := NewObject().
		Set("fmsVer", "FMS/3,0,1,123").
		Set("capabilities", float64(31)).
		Set("mode", float64(1))

	encoded, err := Encode(obj)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("Decode consumed %d bytes, want %d", n, len(encoded))
	}

	got, ok := decoded.(*Object)
	if !ok {
		t.Fatalf("decoded value is %T, want *Object", decoded)
	}
	if !got.Equal(obj) {
		t.Fatalf("object round trip mismatch: got %+v, want %+v", got.Pairs(), obj.Pairs())
	}

	wantKeys := []string{"fmsVer", "capabilities", "mode"}
	for i, p := range got.Pairs() {
		if p.Key != wantKeys[i] {
			t.Errorf("key at position %d = %q, want %q", i, p.Key, wantKeys[i])
		}
	}
}

func TestEcmaArrayRoundTrip(t *testing.T) {
	arr := NewEcmaArray()
	arr.Set("width", float64(1280))
	arr.Set("height", float64(720))

	encoded, err := Encode(arr)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	got, ok := decoded.(*EcmaArray)
	if !ok {
		t.Fatalf("decoded value is %T, want *EcmaArray", decoded)
	}
	if got.Len() != 2 {
		t.Fatalf("got %d keys, want 2", got.Len())
	}
	if w, _ := got.Get("width"); w != float64(1280) {
		t.Errorf("width = %v, want 1280", w)
	}
}

func TestStrictArrayRoundTrip(t *testing.T) {
	arr := StrictArray{float64(1), "two", true, nil}
	encoded, err := Encode(arr)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	got, ok := decoded.(StrictArray)
	if !ok {
		t.Fatalf("decoded value is %T, want StrictArray", decoded)
	}
	if !valuesEqual(got, arr) {
		t.Errorf("round trip mismatch: got %#v, want %#v", got, arr)
	}
}

func TestDecodeAllConsumesWholeCommandPayload(t *testing.T) {
	cmd := []Value{"connect", float64(1), NewObject().Set("app", "live")}
	encoded, err := EncodeAll(cmd)
	if err != nil {
		t.Fatalf("EncodeAll error: %v", err)
	}

	values, err := DecodeAll(encoded)
	if err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	if len(values) != len(cmd) {
		t.Fatalf("got %d values, want %d", len(values), len(cmd))
	}
	name, err := AsString(values[0])
	if err != nil || name != "connect" {
		t.Errorf("values[0] = %v, %v; want \"connect\", nil", name, err)
	}
}

func TestDecodeAllRejectsTruncatedBuffer(t *testing.T) {
	encoded, _ := Encode("connect")
	_, err := DecodeAll(encoded[:len(encoded)-2])
	if err == nil {
		t.Fatal("expected an error decoding a truncated buffer, got nil")
	}
}

func TestDecodeUnknownMarkerFails(t *testing.T) {
	_, _, err := Decode([]byte{0x7F})
	if err != ErrUnknownMarker {
		t.Errorf("got %v, want ErrUnknownMarker", err)
	}
}

func TestCastHelpersSignalMismatch(t *testing.T) {
	if _, err := AsString(float64(1)); err != ErrTypeMismatch {
		t.Errorf("AsString: got %v, want ErrTypeMismatch", err)
	}
	if _, err := AsNumber("nope"); err != ErrTypeMismatch {
		t.Errorf("AsNumber: got %v, want ErrTypeMismatch", err)
	}
	if _, err := AsBoolean("nope"); err != ErrTypeMismatch {
		t.Errorf("AsBoolean: got %v, want ErrTypeMismatch", err)
	}
	if _, err := AsObject("nope"); err != ErrTypeMismatch {
		t.Errorf("AsObject: got %v, want ErrTypeMismatch", err)
	}
}
