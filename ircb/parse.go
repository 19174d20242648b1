package ircb

import (
	"fmt"
	"strings"
)

// IRC is a parsed message received from IRC server
type IRC struct {
	Raw       string   // As received
	Verb      string   // Using 'Verb' because we took 'Command' :)
	Source    string   // Full prefix, nick!user@host or server name
	ReplyTo   string   // From user (nick part of Source)
	To        string   // First parameter, can be c.config.Nick
	Channel   string   // Where a reply should go: To if it is a channel, else ReplyTo
	Params    []string // All parameters after the verb, trailing included
	IsCommand bool     // Is a public command
	IsWhisper bool     // Is not from channel
	Message   string   // Parsed message (would still include command prefix)
	Command   string   // Parsed command (stripped of command prefix, first word)
	Args      string   // Everything after Command, as typed
	Arguments []string // Parsed arguments (can be nil)
}

// Encode prepares an IRC message to be sent to server, PRIVMSG unless Verb is set.
func (irc IRC) Encode() []byte {
	verb := irc.Verb
	if verb == "" {
		verb = "PRIVMSG"
	}
	return []byte(fmt.Sprintf("%s %s :%s\r\n", verb, irc.To, irc.Message))
}

// ReplyUser doesnt send to #channel, only sends
func (irc *IRC) ReplyUser(c *Connection, s string) {
	if IsChannel(irc.ReplyTo) || strings.TrimSpace(s) == "" {
		c.Log.Debug("should not use ReplyUser for channel")
		return
	}
	c.Send(IRC{
		To:      irc.ReplyTo,
		Message: s,
	})
}

// Reply replies to an irc message, preferring a channel
func (irc *IRC) Reply(c *Connection, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	reply := IRC{
		To:      irc.ReplyTo,
		Message: s,
	}
	if IsChannel(irc.To) {
		reply.To = irc.To
	}
	c.Send(reply)
}

// IsChannel reports whether target names a channel rather than a nick
func IsChannel(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}

// Parse input string into IRC struct. To parse fully, use config method cfg.Parse(input string)
//
//	:Name COMMAND parameter list
//
// Where list could begin with ':', which states the rest of list is just one item
// Sending, we use this format:
//
//	COMMAND argument :string\r\n
//	PRIVMSG ##ircb :hello world\r\n
func Parse(input string) *IRC {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	var irc = new(IRC)
	irc.Raw = input
	prefixed := strings.HasPrefix(input, ":")
	input = strings.TrimPrefix(input, ":")

	// a colon after a space marks the end of tokens
	var trailing string
	hasTrailing := false
	if i := strings.Index(input, " :"); i != -1 {
		trailing = input[i+2:]
		input = input[:i]
		hasTrailing = true
	}
	s := strings.Fields(input)
	if len(s) == 0 {
		irc.Message = trailing
		return irc
	}

	n := len(s)
	if hasTrailing {
		n++
	}

	// 'PING server' and 'FOO' have no source
	if !prefixed && n <= 2 {
		irc.Verb = s[0]
		irc.Params = append(irc.Params, s[1:]...)
		if hasTrailing {
			irc.Params = append(irc.Params, trailing)
		}
		if len(irc.Params) > 0 {
			irc.Message = irc.Params[len(irc.Params)-1]
		}
		return irc
	}

	irc.Source = s[0]
	irc.ReplyTo = strings.Split(s[0], "!")[0]
	if len(s) > 1 {
		irc.Verb = s[1]
	}
	if len(s) > 2 {
		irc.Params = append(irc.Params, s[2:]...)
	}
	if hasTrailing {
		irc.Params = append(irc.Params, trailing)
	}
	if len(irc.Params) > 0 {
		irc.To = irc.Params[0]
	}
	switch {
	case hasTrailing:
		irc.Message = trailing
	case len(irc.Params) > 1:
		irc.Message = irc.Params[1]
	}

	irc.Channel = irc.ReplyTo
	if IsChannel(irc.To) {
		irc.Channel = irc.To
	}
	return irc
}

// Parse adds IsWhisper and command parsing, using the configured nick and command prefix
func (cfg Config) Parse(input string) *IRC {
	irc := Parse(input)
	if irc == nil {
		return nil
	}
	irc.IsWhisper = strings.EqualFold(irc.To, cfg.Nick)

	// What is a command?
	// > anything with commandprefix gets split into irc.Command and irc.Arguments
	if irc.Verb == "PRIVMSG" && cfg.CommandPrefix != "" &&
		strings.HasPrefix(irc.Message, cfg.CommandPrefix) && len(irc.Message) > len(cfg.CommandPrefix) {
		cmd := strings.TrimPrefix(irc.Message, cfg.CommandPrefix)
		if command := strings.SplitN(cmd, " ", 2)[0]; command != "" {
			irc.Command = command
			irc.Args = strings.TrimLeft(cmd[len(command):], " ") // rest, as typed
			irc.Arguments = strings.Fields(irc.Args)
			irc.IsCommand = true
		}
	}

	return irc
}

const formatauth = "NickServ!NickServ@services. NOTICE %s :%s ACC 3" // botname mastername
const formatauth2 = "STATUS %s 1"                                    // mastername
