package ircd

import (
	"bufio"
	"bytes"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// maxLineLen bounds a single line, matching the protocol's 512-byte cap
// (MESHCHAT_MESSAGE_LEN in the original relay).
const maxLineLen = 512

// Session is one accepted TCP connection from a local IRC client. All of
// its mutable bookkeeping (welcomed) is only ever touched from the
// server's loop goroutine, which also does every write; the connection's
// own goroutine only reads bytes and frames them into lines.
type Session struct {
	id   uuid.UUID
	conn net.Conn
	w    *bufio.Writer
	ip   string

	welcomed bool
}

func newSession(conn net.Conn) *Session {
	ip := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return &Session{
		id:   uuid.New(),
		conn: conn,
		w:    bufio.NewWriter(conn),
		ip:   ip,
	}
}

// send writes one complete IRC line, CRLF-terminated.
func (s *Session) send(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if _, err := s.w.WriteString("\r\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// sendf formats a message, optionally prefixed, and sends it.
func (s *Session) sendf(prefix Prefix, format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)
	if p := prefix.String(); p != "" {
		line = p + " " + line
	}
	return s.send(line)
}

// readLoop feeds complete lines to onLine until the connection closes or
// a line overruns maxLineLen without a terminator, per the framing
// invariant: bounded buffer, CRLF or bare LF framing, overflow closes the
// connection rather than silently resyncing.
func (s *Session) readLoop(onLine func(line string)) {
	defer s.conn.Close()

	var buf []byte
	chunk := make([]byte, 512)
	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				idx := bytes.IndexByte(buf, '\n')
				if idx < 0 {
					break
				}
				line := buf[:idx]
				buf = buf[idx+1:]
				line = bytes.TrimSuffix(line, []byte("\r"))
				if len(line) > 0 {
					onLine(string(line))
				}
			}
			if len(buf) > maxLineLen {
				return
			}
		}
		if err != nil {
			return
		}
	}
}
