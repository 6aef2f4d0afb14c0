package registry

import (
	"bytes"
	"fmt"
)

// EventTag identifies the kind of a mesh datagram. Every datagram is
// shaped <1-byte tag><null-separated string fields>, except GREETING whose
// trailing fields are a variable-length channel list.
type EventTag byte

// Wire event tags, per spec.
const (
	EventGreeting EventTag = iota + 1
	EventMsg
	EventNotice
	EventJoin
	EventPart
	EventNick
)

// String names a tag for logging.
func (t EventTag) String() string {
	switch t {
	case EventGreeting:
		return "greeting"
	case EventMsg:
		return "msg"
	case EventNotice:
		return "notice"
	case EventJoin:
		return "join"
	case EventPart:
		return "part"
	case EventNick:
		return "nick"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}

// encodeEvent builds <tag><field>\0<field>\0... bounded to maxLen; fields
// that would overflow the budget are dropped and the datagram is truncated
// at the last complete field, matching spec's greeting/broadcast_event
// truncation behavior.
func encodeEvent(tag EventTag, maxLen int, fields ...string) []byte {
	buf := make([]byte, 0, maxLen)
	buf = append(buf, byte(tag))
	for _, f := range fields {
		if len(buf)+len(f)+1 > maxLen {
			break
		}
		buf = append(buf, f...)
		buf = append(buf, 0)
	}
	return buf
}

// splitNullFields parses zero or more null-terminated fields out of buf.
// If the buffer overruns without a final terminator, parsing stops at the
// last complete field, per spec ("parsing stops at the last complete
// null-terminated field").
func splitNullFields(buf []byte) []string {
	var fields []string
	for len(buf) > 0 {
		idx := bytes.IndexByte(buf, 0)
		if idx < 0 {
			break
		}
		fields = append(fields, string(buf[:idx]))
		buf = buf[idx+1:]
	}
	return fields
}

// takeNullField pulls exactly one null-terminated field off the front of
// buf. ok is false if no terminator is found before the end of the buffer,
// in which case the whole datagram should be dropped (a truncated required
// field, per spec, unlike the greeting's optional trailing channel list).
func takeNullField(buf []byte) (field string, rest []byte, ok bool) {
	idx := bytes.IndexByte(buf, 0)
	if idx < 0 {
		return "", nil, false
	}
	return string(buf[:idx]), buf[idx+1:], true
}
