package ircd

import "fmt"

// Prefix is an IRC message source, formatted per the ":nick!user@host "
// convention. Which fields are set determines the rendered shape, mirroring
// the original relay's sprint_prefix branches exactly.
type Prefix struct {
	Nick string
	User string
	Host string
}

// String renders the prefix including its leading colon, or "" if the
// prefix carries no identity at all (in which case callers omit it).
func (p Prefix) String() string {
	switch {
	case p.Nick != "" && p.Host != "" && p.User != "":
		return fmt.Sprintf(":%s!~%s@%s", p.Nick, p.User, p.Host)
	case p.Nick != "" && p.Host != "":
		return fmt.Sprintf(":%s@%s", p.Nick, p.Host)
	case p.Nick != "":
		return fmt.Sprintf(":%s", p.Nick)
	case p.Host != "":
		return fmt.Sprintf(":%s", p.Host)
	default:
		return ""
	}
}

const ctcpMarker = '\x01'

// wrapCTCPAction renders text as a CTCP ACTION payload ("\x01ACTION
// text\x01"), the form a PRIVMSG body takes for a /me-style action.
func wrapCTCPAction(text string) string {
	return string(ctcpMarker) + "ACTION " + text + string(ctcpMarker)
}

// unwrapCTCPAction recognizes a CTCP ACTION payload and returns its inner
// text. ok is false for any other PRIVMSG body, including other CTCP
// verbs, which this relay does not otherwise interpret.
func unwrapCTCPAction(body string) (text string, ok bool) {
	const prefix = "ACTION "
	if len(body) < 2 || body[0] != ctcpMarker || body[len(body)-1] != ctcpMarker {
		return "", false
	}
	inner := body[1 : len(body)-1]
	if len(inner) < len(prefix) || inner[:len(prefix)] != prefix {
		return "", false
	}
	return inner[len(prefix):], true
}
