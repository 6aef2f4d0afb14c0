package ircd

// The methods in this file satisfy pkg/registry's ChatEvents interface:
// they're how the mesh side tells the chat front end what remote peers
// did, so it can mirror that state into the channel table and the
// connected sessions. Every one of them queues its work onto actionch so
// it is serialized against local command handling.

func (s *Server) DeliverJoin(channel, nick, host string) {
	s.actionch <- func() {
		ch := s.getOrCreateChannel(channel)
		if !ch.addUser(nick, host, false) {
			return
		}
		s.broadcastToSessions(Prefix{Nick: nick, Host: host}, "JOIN :%s", channel)
	}
}

func (s *Server) DeliverPart(channel, nick, reason string) {
	s.actionch <- func() {
		ch, ok := s.channels[channel]
		if !ok {
			return
		}
		u, ok := ch.user(nick)
		if !ok {
			return
		}
		host := u.Host
		ch.removeUser(nick)
		s.broadcastToSessions(Prefix{Nick: nick, Host: host}, "PART %s :%s", channel, reason)
	}
}

func (s *Server) DeliverQuit(nick, reason string) {
	s.actionch <- func() {
		host := s.findHost(nick)
		for _, ch := range s.channels {
			ch.removeUser(nick)
		}
		s.broadcastToSessions(Prefix{Nick: nick, Host: host}, "QUIT :%s", reason)
	}
}

func (s *Server) DeliverMsg(channel, nick, text string) {
	s.actionch <- func() {
		s.broadcastToSessions(Prefix{Nick: nick, Host: s.channelHost(channel, nick)}, "PRIVMSG %s :%s", channel, text)
	}
}

func (s *Server) DeliverNotice(channel, nick, text string) {
	s.actionch <- func() {
		s.broadcastToSessions(Prefix{Nick: nick, Host: s.channelHost(channel, nick)}, "NOTICE %s :%s", channel, text)
	}
}

// DeliverNick renames the peer in every channel it occupies rather than
// removing and re-adding it (Open Question 2: re-key on NICK), which would
// otherwise have produced a spurious PART/JOIN pair in every client's view.
func (s *Server) DeliverNick(oldNick, newNick string) {
	s.actionch <- func() {
		host := s.findHost(oldNick)
		for _, ch := range s.channels {
			ch.renameUser(oldNick, newNick)
		}
		s.broadcastToSessions(Prefix{Nick: oldNick, Host: host}, "NICK :%s", newNick)
	}
}

// channelHost looks up nick's host within channel's membership, for
// PRIVMSG/NOTICE prefixes. Empty if the channel or the nick within it is
// unknown.
func (s *Server) channelHost(channel, nick string) string {
	ch, ok := s.channels[channel]
	if !ok {
		return ""
	}
	return s.hostOf(ch, nick)
}

// findHost scans every channel for nick's membership record, for events
// (QUIT, NICK) that aren't scoped to one channel.
func (s *Server) findHost(nick string) string {
	for _, ch := range s.channels {
		if host := s.hostOf(ch, nick); host != "" {
			return host
		}
	}
	return ""
}

func (s *Server) hostOf(ch *Channel, nick string) string {
	u, ok := ch.user(nick)
	if !ok {
		return ""
	}
	return u.Host
}
