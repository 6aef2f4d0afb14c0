package codec

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Encode renders v in canonical form: dictionary keys ascending byte order,
// integers without redundant digits. Panics if v holds an invalid Kind,
// which can only happen from hand-constructed Values and is a programmer
// error, not a runtime condition callers need to recover from.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindInt:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteByte('e')
	case KindString:
		buf.WriteString(strconv.Itoa(len(v.Str)))
		buf.WriteByte(':')
		buf.Write(v.Str)
	case KindBool:
		buf.WriteByte('b')
		if v.Bool {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	case KindList:
		buf.WriteByte('l')
		for _, e := range v.List {
			encodeInto(buf, e)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeInto(buf, StringFrom(k))
			encodeInto(buf, v.Dict[k])
		}
		buf.WriteByte('e')
	default:
		panic(fmt.Sprintf("codec: encode of invalid Kind %d", v.Kind))
	}
}
