package codec

import "errors"

// Distinct decode error kinds, per spec: decode is a pure function that
// never returns a partial structure, only one of these three.
var (
	// ErrInvalid means the input does not match the grammar (bad tag,
	// non-canonical integer, unsorted/duplicate dictionary keys, excess
	// trailing data, depth overflow).
	ErrInvalid = errors.New("codec: invalid encoding")
	// ErrInsufficient means more bytes are needed to complete the value;
	// returned by DecodePrefix when a length-prefixed field runs past the
	// end of the supplied buffer.
	ErrInsufficient = errors.New("codec: insufficient data")
	// ErrOutOfMemory means the encoded length of a field would require an
	// allocation so large it is rejected outright rather than attempted.
	ErrOutOfMemory = errors.New("codec: declared size too large")
)

// MaxDepth bounds container nesting to reject adversarial inputs.
const MaxDepth = 256

// maxStringLen bounds a single ByteString's declared length; well above any
// legitimate admin-service reply but far short of exhausting memory on a
// hostile declared length.
const maxStringLen = 64 << 20
