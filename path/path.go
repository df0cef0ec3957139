// Package path implements the order-preserving key encoding from
// spec.md §4.9: every element is a type byte, a body, and a trailing
// 0x00 delimiter, chosen so that the byte-lexicographic order of
// encoded keys matches the intended ordering of the underlying values.
package path

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// delimiter terminates every encoded element.
const delimiter = 0x00

const (
	nullTypeByte         = 0x10
	falseTypeByte        = 0x20
	trueTypeByte         = 0x21
	instantTypeByte      = 0x25
	negInfinityTypeByte  = 0x30
	posInfinityTypeByte  = 0x32
	symbolTypeByte       = 0x68
	tagTypeByte          = 0x69
	stringTypeByte       = 0x70
)

type codec struct {
	typeByte byte
	encode   func(v interface{}) ([]byte, bool)
	decode   func(body []byte) (interface{}, error)
}

// Registry holds the type-byte table used to encode and decode keys.
// The baseline table (spec.md §4.9) is registered by NewRegistry;
// callers may extend it with Register.
type Registry struct {
	mu     sync.RWMutex
	byByte map[byte]*codec
	order  []*codec
	logger hclog.Logger
}

// NewRegistry builds a Registry preloaded with the baseline type-byte
// table.
func NewRegistry(logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &Registry{
		byByte: make(map[byte]*codec),
		logger: logger,
	}
	registerBaseline(r)
	registerNumber(r)
	registerSequence(r)
	return r
}

func registerBaseline(r *Registry) {
	r.mustRegisterBuiltin(nullTypeByte,
		func(v interface{}) ([]byte, bool) {
			if v == nil {
				return []byte{}, true
			}
			return nil, false
		},
		func([]byte) (interface{}, error) { return nil, nil })

	r.mustRegisterBuiltin(falseTypeByte,
		func(v interface{}) ([]byte, bool) {
			b, ok := v.(bool)
			return []byte{}, ok && !b
		},
		func([]byte) (interface{}, error) { return false, nil })

	r.mustRegisterBuiltin(trueTypeByte,
		func(v interface{}) ([]byte, bool) {
			b, ok := v.(bool)
			return []byte{}, ok && b
		},
		func([]byte) (interface{}, error) { return true, nil })

	r.mustRegisterBuiltin(instantTypeByte,
		func(v interface{}) ([]byte, bool) {
			s, ok := v.(Instant)
			if !ok {
				return nil, false
			}
			return []byte(string(s)), true
		},
		func(body []byte) (interface{}, error) { return Instant(body), nil })

	r.mustRegisterBuiltin(negInfinityTypeByte,
		func(v interface{}) ([]byte, bool) {
			_, ok := v.(NegInfinity)
			return []byte{}, ok
		},
		func([]byte) (interface{}, error) { return NegInfinity{}, nil })

	r.mustRegisterBuiltin(posInfinityTypeByte,
		func(v interface{}) ([]byte, bool) {
			_, ok := v.(PosInfinity)
			return []byte{}, ok
		},
		func([]byte) (interface{}, error) { return PosInfinity{}, nil })

	r.mustRegisterBuiltin(symbolTypeByte,
		func(v interface{}) ([]byte, bool) {
			s, ok := v.(Symbol)
			if !ok {
				return nil, false
			}
			return []byte(string(s)), true
		},
		func(body []byte) (interface{}, error) { return Symbol(body), nil })

	r.mustRegisterBuiltin(tagTypeByte,
		func(v interface{}) ([]byte, bool) {
			s, ok := v.(Tag)
			if !ok {
				return nil, false
			}
			return []byte(string(s)), true
		},
		func(body []byte) (interface{}, error) { return Tag(body), nil })

	// Scalar bodies are found by scanning for the next bare delimiter
	// byte (sequence.go's decodeElement), per spec.md §4.9's framing —
	// there is no escaping mechanism, so string/symbol/tag values must
	// not themselves contain a 0x00 byte.
	r.mustRegisterBuiltin(stringTypeByte,
		func(v interface{}) ([]byte, bool) {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			return []byte(s), true
		},
		func(body []byte) (interface{}, error) { return string(body), nil })
}

// Instant is a high-resolution instant value, carried as its ISO-8601
// rendering (spec.md §4.9).
type Instant string

// Symbol is an identifier-typed value (0x68).
type Symbol string

// Tag is a named-tag value (0x69).
type Tag string

// NegInfinity and PosInfinity are the sentinel unbounded range
// endpoints (0x30 / 0x32).
type NegInfinity struct{}
type PosInfinity struct{}

// mustRegisterBuiltin registers one of the baseline codecs. Baseline
// registration can never collide, so it panics rather than returning
// an error a caller would have no way to have anticipated.
func (r *Registry) mustRegisterBuiltin(typeByte byte, encode func(interface{}) ([]byte, bool), decode func([]byte) (interface{}, error)) {
	c := &codec{typeByte: typeByte, encode: encode, decode: decode}
	r.byByte[typeByte] = c
	r.order = append(r.order, c)
}

// Register adds a user-defined type codec. Registering 0x00 is
// refused since it is reserved for the delimiter; redefining an
// already-registered byte is allowed but logged as a warning
// (spec.md §4.9).
func (r *Registry) Register(typeByte byte, encode func(v interface{}) ([]byte, bool), decode func(body []byte) (interface{}, error)) error {
	if typeByte == delimiter {
		return ErrReservedTypeByte
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := &codec{typeByte: typeByte, encode: encode, decode: decode}
	if _, exists := r.byByte[typeByte]; exists {
		r.logger.Warn("redefining path type byte", "byte", typeByte)
		for i, existing := range r.order {
			if existing.typeByte == typeByte {
				r.order[i] = c
				break
			}
		}
	} else {
		r.order = append(r.order, c)
	}
	r.byByte[typeByte] = c
	return nil
}

// Encode produces the fully-delimited encoding of v: type byte, body,
// trailing 0x00.
func (r *Registry) Encode(v interface{}) ([]byte, error) {
	body, typeByte, err := r.encodeBody(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+2)
	out = append(out, typeByte)
	out = append(out, body...)
	out = append(out, delimiter)
	return out, nil
}

// PartialEncode produces type byte + body without the trailing
// delimiter, for constructing range-scan endpoints (spec.md §4.9).
func (r *Registry) PartialEncode(v interface{}) ([]byte, error) {
	body, typeByte, err := r.encodeBody(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, typeByte)
	out = append(out, body...)
	return out, nil
}

func (r *Registry) encodeBody(v interface{}) ([]byte, byte, error) {
	// Snapshot the codec list rather than holding the lock while
	// calling into codecs: a sequence's encode closure recurses back
	// into Encode, and re-acquiring a held RWMutex read lock from the
	// same goroutine is unsafe if a writer is queued in between.
	r.mu.RLock()
	codecs := r.order
	r.mu.RUnlock()

	for _, c := range codecs {
		if body, ok := c.encode(v); ok {
			return body, c.typeByte, nil
		}
	}
	return nil, 0, ErrNoMatchingEncoder
}

// Decode reads one fully-delimited element from the start of data and
// returns its value along with the number of bytes consumed.
func (r *Registry) Decode(data []byte) (interface{}, int, error) {
	return decodeElement(r, data, 0)
}
