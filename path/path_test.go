package path

import (
	"bytes"
	"sort"
	"testing"
)

func mustEncode(t *testing.T, r *Registry, v interface{}) []byte {
	t.Helper()
	b, err := r.Encode(v)
	if err != nil {
		t.Fatalf("Encode(%v): %v", v, err)
	}
	return b
}

// S5 / invariant 9: ordering of encoded numbers must match numeric
// ordering, including across the negative/positive boundary.
func TestNumberEncodingPreservesOrder(t *testing.T) {
	r := NewRegistry(nil)

	values := []float64{-1.5, -0.5, 0, 0.5, 1.5}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = mustEncode(t, r, v)
	}

	shuffled := append([][]byte{}, encoded...)
	sort.Slice(shuffled, func(i, j int) bool {
		return bytes.Compare(shuffled[i], shuffled[j]) < 0
	})
	for i := range shuffled {
		if !bytes.Equal(shuffled[i], encoded[i]) {
			t.Fatalf("sorted encodings out of order at %d: got %x, want %x", i, shuffled[i], encoded[i])
		}
	}
}

func TestNumberEncodingOrdersIntegersByMagnitude(t *testing.T) {
	r := NewRegistry(nil)
	values := []int64{-1000, -5, -1, 0, 1, 5, 1000}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = mustEncode(t, r, v)
	}
	for i := 1; i < len(encoded); i++ {
		if bytes.Compare(encoded[i-1], encoded[i]) >= 0 {
			t.Fatalf("encoding(%d) should sort before encoding(%d): %x >= %x",
				values[i-1], values[i], encoded[i-1], encoded[i])
		}
	}
}

func TestNumberRoundTrip(t *testing.T) {
	r := NewRegistry(nil)
	for _, v := range []int64{-12345, -1, 0, 1, 12345} {
		encoded := mustEncode(t, r, v)
		decoded, n, err := r.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%d): %v", v, err)
		}
		if n != len(encoded) {
			t.Fatalf("Decode consumed %d bytes, want %d", n, len(encoded))
		}
		if decoded.(int64) != v {
			t.Fatalf("round-tripped %d as %v", v, decoded)
		}
	}

	for _, v := range []float64{-12.5, 0, 3.25} {
		encoded := mustEncode(t, r, v)
		decoded, _, err := r.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%v): %v", v, err)
		}
		if decoded.(float64) != v {
			t.Fatalf("round-tripped %v as %v", v, decoded)
		}
	}
}

func TestStringBoolNullRoundTrip(t *testing.T) {
	r := NewRegistry(nil)

	cases := []interface{}{"hello", true, false, nil}
	for _, v := range cases {
		encoded := mustEncode(t, r, v)
		decoded, n, err := r.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%v): %v", v, err)
		}
		if n != len(encoded) {
			t.Fatalf("Decode(%v) consumed %d bytes, want %d", v, n, len(encoded))
		}
		switch want := v.(type) {
		case string:
			if decoded.(string) != want {
				t.Fatalf("got %v, want %v", decoded, want)
			}
		case bool:
			if decoded.(bool) != want {
				t.Fatalf("got %v, want %v", decoded, want)
			}
		case nil:
			if decoded != nil {
				t.Fatalf("got %v, want nil", decoded)
			}
		}
	}
}

func TestInfinitySentinelsSortOutermost(t *testing.T) {
	r := NewRegistry(nil)

	neg := mustEncode(t, r, NegInfinity{})
	mid := mustEncode(t, r, int64(0))
	pos := mustEncode(t, r, PosInfinity{})

	if bytes.Compare(neg, mid) >= 0 {
		t.Fatalf("negative infinity should sort below a finite number")
	}
	if bytes.Compare(mid, pos) >= 0 {
		t.Fatalf("a finite number should sort below positive infinity")
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	r := NewRegistry(nil)

	seq := []interface{}{"a", int64(1), true}
	encoded := mustEncode(t, r, seq)

	decoded, n, err := r.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode sequence: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("Decode consumed %d bytes, want %d", n, len(encoded))
	}
	items, ok := decoded.([]interface{})
	if !ok || len(items) != 3 {
		t.Fatalf("decoded sequence = %v", decoded)
	}
	if items[0].(string) != "a" || items[1].(int64) != 1 || items[2].(bool) != true {
		t.Fatalf("decoded sequence mismatch: %v", items)
	}
}

func TestNestedSequenceRoundTrip(t *testing.T) {
	r := NewRegistry(nil)

	seq := []interface{}{"outer", []interface{}{"inner", int64(2)}, "after"}
	encoded := mustEncode(t, r, seq)

	decoded, n, err := r.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode nested sequence: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("Decode consumed %d bytes, want %d", n, len(encoded))
	}
	items := decoded.([]interface{})
	if len(items) != 3 {
		t.Fatalf("expected 3 top-level items, got %d", len(items))
	}
	inner, ok := items[1].([]interface{})
	if !ok || len(inner) != 2 || inner[0].(string) != "inner" || inner[1].(int64) != 2 {
		t.Fatalf("nested sequence mismatch: %v", items[1])
	}
	if items[2].(string) != "after" {
		t.Fatalf("trailing element after nested sequence mismatch: %v", items[2])
	}
}

func TestPartialEncodeOmitsTrailingDelimiter(t *testing.T) {
	r := NewRegistry(nil)
	full := mustEncode(t, r, "abc")
	partial, err := r.PartialEncode("abc")
	if err != nil {
		t.Fatalf("PartialEncode: %v", err)
	}
	if len(partial) != len(full)-1 {
		t.Fatalf("partial encode should be 1 byte shorter than full: got %d vs %d", len(partial), len(full))
	}
	if !bytes.Equal(full[:len(full)-1], partial) {
		t.Fatalf("partial encode should match full minus trailing delimiter")
	}
}

func TestRegisterRefusesReservedByte(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(0x00, func(interface{}) ([]byte, bool) { return nil, false }, nil)
	if err != ErrReservedTypeByte {
		t.Fatalf("Register(0x00) = %v, want ErrReservedTypeByte", err)
	}
}

func TestRegisterCustomType(t *testing.T) {
	r := NewRegistry(nil)

	type point struct{ x, y byte }
	err := r.Register(0x90,
		func(v interface{}) ([]byte, bool) {
			p, ok := v.(point)
			if !ok {
				return nil, false
			}
			return []byte{p.x, p.y}, true
		},
		func(body []byte) (interface{}, error) {
			if len(body) != 2 {
				return nil, ErrNoMatchingDecoder
			}
			return point{body[0], body[1]}, nil
		},
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	encoded := mustEncode(t, r, point{3, 4})
	decoded, _, err := r.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode custom type: %v", err)
	}
	if decoded.(point) != (point{3, 4}) {
		t.Fatalf("decoded = %v, want {3 4}", decoded)
	}
}

func TestEncodeUnregisteredTypeFails(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Encode(struct{ unsupported int }{1})
	if err != ErrNoMatchingEncoder {
		t.Fatalf("Encode unsupported type = %v, want ErrNoMatchingEncoder", err)
	}
}

func TestDecodeUnknownTypeByteFails(t *testing.T) {
	r := NewRegistry(nil)
	_, _, err := r.Decode([]byte{0xff, 0x00})
	if err != ErrNoMatchingDecoder {
		t.Fatalf("Decode unknown type byte = %v, want ErrNoMatchingDecoder", err)
	}
}
