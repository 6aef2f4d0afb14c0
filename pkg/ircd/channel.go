package ircd

import "sort"

// User is one nick's membership record within a Channel.
type User struct {
	Nick string
	Host string
	Self bool
}

// Channel is a channel as this relay sees it: its topic, and the set of
// nicks (local or mesh-origin) currently known to occupy it. Joined
// records whether the bridged local identity itself is "in" the channel,
// mirroring the original's irc_channel.in flag.
type Channel struct {
	Name   string
	Topic  string
	Joined bool
	users  map[string]*User
}

func newChannel(name string) *Channel {
	return &Channel{Name: name, users: make(map[string]*User)}
}

// addUser inserts nick into the channel's membership if not already
// present. Returns true if it was newly added.
func (c *Channel) addUser(nick, host string, self bool) bool {
	if _, ok := c.users[nick]; ok {
		return false
	}
	c.users[nick] = &User{Nick: nick, Host: host, Self: self}
	return true
}

// removeUser drops nick from membership. Returns true if it had been present.
func (c *Channel) removeUser(nick string) bool {
	if _, ok := c.users[nick]; !ok {
		return false
	}
	delete(c.users, nick)
	return true
}

// renameUser moves a membership entry to a new nick in place, so a NICK
// change doesn't produce a spurious PART/JOIN pair in the channel's roster.
func (c *Channel) renameUser(oldNick, newNick string) bool {
	u, ok := c.users[oldNick]
	if !ok {
		return false
	}
	delete(c.users, oldNick)
	u.Nick = newNick
	c.users[newNick] = u
	return true
}

// Names returns the channel's current nick list, sorted for stable /NAMES
// and /WHO output.
func (c *Channel) Names() []string {
	names := make([]string, 0, len(c.users))
	for n := range c.users {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Channel) user(nick string) (*User, bool) {
	u, ok := c.users[nick]
	return u, ok
}

// getOrCreateChannel returns the named channel, creating an empty one if
// this is the first time it's been referenced. Must run on the loop
// goroutine.
func (s *Server) getOrCreateChannel(name string) *Channel {
	if c, ok := s.channels[name]; ok {
		return c
	}
	c := newChannel(name)
	s.channels[name] = c
	return c
}

// JoinedChannels returns the names of every channel the bridged local
// identity currently occupies; it satisfies registry.ChannelSource, used
// to build outgoing greetings.
func (s *Server) JoinedChannels() []string {
	done := make(chan []string, 1)
	s.actionch <- func() {
		var names []string
		for name, c := range s.channels {
			if c.Joined {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		done <- names
	}
	return <-done
}
