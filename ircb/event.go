package ircb

// Event is what a Plugin receives. It is either a StartupEvent or a CommandEvent.
type Event interface {
	event()
}

// StartupEvent is delivered once per process, before the first connection is dialed.
type StartupEvent struct{}

// CommandEvent is a command addressed to a plugin.
type CommandEvent struct {
	Name   string // command name, without prefix
	Args   string // raw argument string
	Nick   string // invoking nick
	Target string // channel, or Nick for a private query
	Prefix string // command prefix, for usage messages
	Owner  bool   // Nick is the authenticated bot master
}

func (StartupEvent) event() {}
func (CommandEvent) event() {}

// Sender is the outbound half of a connection, as seen by plugins.
type Sender interface {
	PrivMsg(to, text string) error
	Notice(to, text string) error
}

// Plugin handles events for the command names it was added with.
type Plugin interface {
	Handle(s Sender, ev Event)
}

// Listener is called with every parsed message of the verb it was added for.
type Listener func(c *Connection, irc *IRC)

// NewCommandEvent builds the CommandEvent for a parsed command message.
func (c *Connection) NewCommandEvent(irc *IRC) CommandEvent {
	target := irc.ReplyTo
	if IsChannel(irc.To) {
		target = irc.To
	}
	return CommandEvent{
		Name:   irc.Command,
		Args:   irc.Args,
		Nick:   irc.ReplyTo,
		Target: target,
		Prefix: c.CommandPrefix(),
		Owner:  c.IsOwner(irc.ReplyTo),
	}
}
