package codec

import (
	"fmt"
)

// Decode decodes b as a single Value. It succeeds only if the entire buffer
// is consumed.
func Decode(b []byte) (Value, error) {
	v, n, err := DecodePrefix(b, 0)
	if err != nil {
		return Value{}, err
	}
	if n != len(b) {
		return Value{}, fmt.Errorf("%w: trailing data after value", ErrInvalid)
	}
	return v, nil
}

// DecodePrefix decodes a single Value starting at offset, returning the
// value and the offset just past it. This allows streaming decode of
// multiple back-to-back values without copying.
func DecodePrefix(b []byte, offset int) (Value, int, error) {
	return decodeAt(b, offset, 0)
}

func decodeAt(b []byte, offset int, depth int) (Value, int, error) {
	if depth > MaxDepth {
		return Value{}, 0, fmt.Errorf("%w: nesting exceeds %d", ErrInvalid, MaxDepth)
	}
	if offset >= len(b) {
		return Value{}, 0, ErrInsufficient
	}

	switch b[offset] {
	case 'i':
		return decodeInt(b, offset)
	case 'l':
		return decodeList(b, offset, depth)
	case 'd':
		return decodeDict(b, offset, depth)
	case 'b':
		return decodeBool(b, offset)
	default:
		if b[offset] >= '0' && b[offset] <= '9' {
			return decodeString(b, offset)
		}
		return Value{}, 0, fmt.Errorf("%w: unexpected tag %q", ErrInvalid, b[offset])
	}
}

// decodeInt parses `i<decimal>e` enforcing canonical decimal form: no
// leading zeros (except the literal "0"), no "-0", and the value must fit
// in an int64.
func decodeInt(b []byte, offset int) (Value, int, error) {
	i := offset + 1
	neg := false
	if i < len(b) && b[i] == '-' {
		neg = true
		i++
	}
	digitsStart := i
	for i < len(b) && b[i] != 'e' {
		if b[i] < '0' || b[i] > '9' {
			return Value{}, 0, fmt.Errorf("%w: non-digit in integer", ErrInvalid)
		}
		i++
	}
	if i >= len(b) {
		return Value{}, 0, ErrInsufficient
	}
	if i == digitsStart {
		return Value{}, 0, fmt.Errorf("%w: empty integer", ErrInvalid)
	}
	digits := b[digitsStart:i]
	if len(digits) > 1 && digits[0] == '0' {
		return Value{}, 0, fmt.Errorf("%w: leading zero in integer", ErrInvalid)
	}
	if neg && len(digits) == 1 && digits[0] == '0' {
		return Value{}, 0, fmt.Errorf("%w: negative zero", ErrInvalid)
	}

	var n int64
	for _, d := range digits {
		digit := int64(d - '0')
		if n > (maxInt64-digit)/10 {
			return Value{}, 0, fmt.Errorf("%w: integer overflows int64", ErrInvalid)
		}
		n = n*10 + digit
	}
	if neg {
		n = -n
	}
	return Int64(n), i + 1, nil
}

const maxInt64 = 1<<63 - 1

// decodeString parses `<decimal>:<bytes>`, decimal being the unsigned byte
// length with no sign and no leading-zero exception (a bare "0" length is
// fine; "01" is not canonical).
func decodeString(b []byte, offset int) (Value, int, error) {
	i := offset
	start := i
	for i < len(b) && b[i] != ':' {
		if b[i] < '0' || b[i] > '9' {
			return Value{}, 0, fmt.Errorf("%w: non-digit in string length", ErrInvalid)
		}
		i++
	}
	if i >= len(b) {
		return Value{}, 0, ErrInsufficient
	}
	digits := b[start:i]
	if len(digits) > 1 && digits[0] == '0' {
		return Value{}, 0, fmt.Errorf("%w: leading zero in string length", ErrInvalid)
	}

	var length int64
	for _, d := range digits {
		digit := int64(d - '0')
		if length > (maxInt64-digit)/10 {
			return Value{}, 0, ErrOutOfMemory
		}
		length = length*10 + digit
	}
	if length > maxStringLen {
		return Value{}, 0, ErrOutOfMemory
	}

	contentStart := i + 1
	contentEnd := contentStart + int(length)
	if contentEnd < contentStart || contentEnd > len(b) {
		return Value{}, 0, ErrInsufficient
	}

	buf := make([]byte, length)
	copy(buf, b[contentStart:contentEnd])
	return String(buf), contentEnd, nil
}

func decodeBool(b []byte, offset int) (Value, int, error) {
	i := offset + 1
	if i >= len(b) {
		return Value{}, 0, ErrInsufficient
	}
	switch b[i] {
	case '0':
		return Boolean(false), i + 1, nil
	case '1':
		return Boolean(true), i + 1, nil
	default:
		return Value{}, 0, fmt.Errorf("%w: invalid boolean digit", ErrInvalid)
	}
}

func decodeList(b []byte, offset int, depth int) (Value, int, error) {
	i := offset + 1
	var items []Value
	for {
		if i >= len(b) {
			return Value{}, 0, ErrInsufficient
		}
		if b[i] == 'e' {
			return List(items...), i + 1, nil
		}
		v, n, err := decodeAt(b, i, depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		items = append(items, v)
		i = n
	}
}

func decodeDict(b []byte, offset int, depth int) (Value, int, error) {
	i := offset + 1
	m := make(map[string]Value)
	var lastKey string
	haveLast := false
	for {
		if i >= len(b) {
			return Value{}, 0, ErrInsufficient
		}
		if b[i] == 'e' {
			return Dict(m), i + 1, nil
		}
		if b[i] < '0' || b[i] > '9' {
			return Value{}, 0, fmt.Errorf("%w: dictionary key must be a byte string", ErrInvalid)
		}
		keyVal, n, err := decodeString(b, i)
		if err != nil {
			return Value{}, 0, err
		}
		key := string(keyVal.Str)
		if haveLast {
			if key <= lastKey {
				if key == lastKey {
					return Value{}, 0, fmt.Errorf("%w: duplicate dictionary key", ErrInvalid)
				}
				return Value{}, 0, fmt.Errorf("%w: dictionary keys out of order", ErrInvalid)
			}
		}
		lastKey = key
		haveLast = true

		val, n2, err := decodeAt(b, n, depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		m[key] = val
		i = n2
	}
}
