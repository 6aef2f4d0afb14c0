package ircd

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// splitCommand splits a line into its command word and the remainder.
func splitCommand(line string) (cmd, rest string) {
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		return line[:idx], line[idx+1:]
	}
	return line, ""
}

// parseParams splits an IRC parameter string on spaces, except the final
// parameter may start with ':' to capture the remainder of the line
// (including embedded spaces) as a single trailing parameter.
func parseParams(rest string) []string {
	var params []string
	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return params
		}
		if rest[0] == ':' {
			return append(params, rest[1:])
		}
		idx := strings.IndexByte(rest, ' ')
		if idx < 0 {
			return append(params, rest)
		}
		params = append(params, rest[:idx])
		rest = rest[idx+1:]
	}
}

func (s *Server) displayNick() string {
	if s.nick == "" {
		return "*"
	}
	return s.nick
}

// handleLine runs on the loop goroutine and dispatches one client command,
// per the table in the original relay's ircd_handle_message.
func (s *Server) handleLine(sess *Session, line string) {
	cmd, rest := splitCommand(line)
	switch strings.ToUpper(cmd) {
	case "NICK":
		s.handleNick(sess, rest)
	case "USER":
		s.handleUser(sess, rest)
	case "CAP":
		// capability negotiation isn't implemented; clients that probe for
		// it should still fall through to plain registration.
	case "JOIN":
		s.handleJoin(sess, rest)
	case "PART":
		s.handlePart(sess, rest)
	case "TOPIC":
		s.handleTopic(sess, rest)
	case "PRIVMSG":
		s.handlePrivmsg(sess, rest)
	case "NOTICE":
		s.handleNotice(sess, rest)
	case "PING":
		token := ""
		if params := parseParams(rest); len(params) > 0 {
			token = params[0]
		}
		_ = sess.send("PONG :" + token)
	case "WHO":
		s.handleWho(sess, rest)
	case "WHOIS":
		s.handleWhois(sess, rest)
	case "LIST":
		s.handleList(sess, rest)
	case "MODE":
		// channel/user modes aren't modeled; silently accepted.
	case "QUIT":
		s.handleQuit(sess, rest)
	case "PASS":
		// no authentication in this relay.
	default:
		s.log.Debug("unhandled command", zap.String("cmd", cmd))
	}
}

func (s *Server) handleNick(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "431 %s :No nickname given", s.displayNick())
		return
	}
	newNick := params[0]
	oldNick := s.nick
	s.nick = newNick

	if oldNick != "" {
		for _, ch := range s.channels {
			ch.renameUser(oldNick, newNick)
		}
		s.broadcastToSessions(Prefix{Nick: oldNick}, "NICK :%s", newNick)
	}
	s.peers.OnLocalNick(newNick)

	if !sess.welcomed && s.username != "" {
		s.welcome(sess)
	}
}

func (s *Server) handleUser(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s USER :Not enough parameters", s.displayNick())
		return
	}
	s.username = params[0]
	s.realname = params[len(params)-1]

	if !sess.welcomed && s.nick != "" {
		s.welcome(sess)
	}
}

// welcome sends the registration numerics plus a JOIN+NAMES replay for
// every channel the bridged identity currently occupies, mirroring
// irc_session_welcome.
func (s *Server) welcome(sess *Session) {
	sess.welcomed = true
	nick := s.displayNick()

	_ = sess.sendf(Prefix{}, "001 %s :Welcome to this MeshChat Relay (I'm not really an IRC server!)", nick)
	_ = sess.sendf(Prefix{}, "002 %s :%s", nick, s.cfg.NetworkName)
	_ = sess.sendf(Prefix{}, "003 %s :Created 0", nick)
	_ = sess.sendf(Prefix{}, "004 %s %s %s DOQRSZaghilopswz CFILMPQSbcefgijklmnopqrstvz bkloveqjfI", nick, s.hostname, s.cfg.ServerName)

	prefix := s.selfPrefix()
	var names []string
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := s.channels[name]
		if !ch.Joined {
			continue
		}
		_ = sess.sendf(prefix, "JOIN :%s", ch.Name)
		s.sendNames(sess, ch)
	}
}

func (s *Server) sendNames(sess *Session, ch *Channel) {
	nick := s.displayNick()
	_ = sess.sendf(Prefix{}, "353 %s = %s :%s", nick, ch.Name, strings.Join(ch.Names(), " "))
	_ = sess.sendf(Prefix{}, "366 %s %s :End of /NAMES list.", nick, ch.Name)
}

func (s *Server) handleJoin(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s JOIN :Not enough parameters", s.displayNick())
		return
	}
	channel := params[0]
	s.peers.OnLocalJoin(channel)

	ch := s.getOrCreateChannel(channel)
	ch.Joined = true
	ch.addUser(s.nick, s.hostname, true)

	s.broadcastToSessions(s.selfPrefix(), "JOIN :%s", channel)
	s.sendNames(sess, ch)
}

func (s *Server) handlePart(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s PART :Not enough parameters", s.displayNick())
		return
	}
	channel := params[0]
	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}
	s.peers.OnLocalPart(channel, reason)

	if ch, ok := s.channels[channel]; ok {
		ch.removeUser(s.nick)
		ch.Joined = false
	}
	s.broadcastToSessions(s.selfPrefix(), "PART %s :%s", channel, reason)
}

func (s *Server) handleTopic(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s TOPIC :Not enough parameters", s.displayNick())
		return
	}
	channel := params[0]
	ch := s.getOrCreateChannel(channel)

	if len(params) == 1 {
		if ch.Topic == "" {
			_ = sess.sendf(Prefix{}, "331 %s %s :No topic is set", s.displayNick(), channel)
		} else {
			_ = sess.sendf(Prefix{}, "332 %s %s :%s", s.displayNick(), channel, ch.Topic)
		}
		return
	}
	ch.Topic = params[1]
	s.broadcastToSessions(s.selfPrefix(), "TOPIC %s :%s", channel, ch.Topic)
}

func (s *Server) handlePrivmsg(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) < 2 {
		_ = sess.sendf(Prefix{}, "461 %s PRIVMSG :Not enough parameters", s.displayNick())
		return
	}
	channel, body := params[0], params[1]
	ch, ok := s.channels[channel]
	if !ok || !ch.Joined {
		return
	}

	if action, ok := unwrapCTCPAction(body); ok {
		s.peers.OnLocalMsg(channel, wrapCTCPAction(action))
	} else {
		s.peers.OnLocalMsg(channel, body)
	}
	s.broadcastExcept(sess, s.selfPrefix(), "PRIVMSG %s :%s", channel, body)
}

func (s *Server) handleNotice(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) < 2 {
		return
	}
	channel, body := params[0], params[1]
	if len(body) > 0 && body[0] == ctcpMarker {
		s.log.Debug("ignoring CTCP notice", zap.String("channel", channel))
		return
	}
	s.peers.OnLocalNotice(channel, body)
	s.broadcastExcept(sess, s.selfPrefix(), "NOTICE %s :%s", channel, body)
}

func (s *Server) handleWho(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s WHO :Not enough parameters", s.displayNick())
		return
	}
	channel := params[0]
	if ch, ok := s.channels[channel]; ok {
		for _, nick := range ch.Names() {
			u, _ := ch.user(nick)
			hopcount := "0"
			if !u.Self {
				hopcount = "1"
			}
			_ = sess.sendf(Prefix{}, "352 %s %s ~%s %s %s %s H :%s %s",
				s.displayNick(), channel, u.Nick, u.Host, u.Host, u.Nick, hopcount, u.Nick)
		}
	}
	_ = sess.sendf(Prefix{}, "315 %s %s :End of /WHO list.", s.displayNick(), channel)
}

func (s *Server) handleWhois(sess *Session, rest string) {
	params := parseParams(rest)
	if len(params) == 0 {
		_ = sess.sendf(Prefix{}, "461 %s WHOIS :Not enough parameters", s.displayNick())
		return
	}
	target := params[0]
	_ = sess.sendf(Prefix{}, "318 %s %s :End of /WHOIS list.", s.displayNick(), target)
}

func (s *Server) handleList(sess *Session, rest string) {
	var names []string
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := s.channels[name]
		_ = sess.sendf(Prefix{}, "322 %s %s %d :%s", s.displayNick(), ch.Name, len(ch.users), ch.Topic)
	}
	_ = sess.sendf(Prefix{}, "323 %s :End of /LIST", s.displayNick())
}

func (s *Server) handleQuit(sess *Session, rest string) {
	params := parseParams(rest)
	reason := ""
	if len(params) > 0 {
		reason = params[0]
	}
	s.peers.OnLocalQuit(reason)
	sess.conn.Close()
}

// broadcastExcept is broadcastToSessions but skips one session, used so a
// client doesn't see its own PRIVMSG/NOTICE echoed back.
func (s *Server) broadcastExcept(skip *Session, prefix Prefix, format string, args ...interface{}) {
	for id, sess := range s.sessions {
		if id == skip.id {
			continue
		}
		if err := sess.sendf(prefix, format, args...); err != nil {
			s.log.Debug("write to session failed", zap.Stringer("session", sess.id), zap.Error(err))
		}
	}
}
