package path

import "errors"

// ErrReservedTypeByte is returned by Register when asked to claim 0x00,
// which is reserved as the element delimiter.
var ErrReservedTypeByte = errors.New("path: type byte 0x00 is reserved for the delimiter")

// ErrNoMatchingEncoder is returned by Encode/PartialEncode when no
// registered codec claims a value (spec.md §7).
var ErrNoMatchingEncoder = errors.New("path: no matching encoder for value")

// ErrNoMatchingDecoder is returned by Decode when a key's leading type
// byte has no registered codec, or the encoding is truncated
// (spec.md §7).
var ErrNoMatchingDecoder = errors.New("path: no matching decoder for encoded value")
