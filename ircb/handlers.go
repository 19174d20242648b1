package ircb

import (
	"fmt"
	"strconv"
	"strings"
)

// numeric replies plugins commonly listen for
const (
	RplWhoisUser = "311"
	RplEndOfMotd = "376"
	ErrNoMotd    = "422"
)

// dispatch hands irc to every listener added for its verb
func (c *Connection) dispatch(irc *IRC) {
	c.maplock.Lock()
	listeners := append([]Listener(nil), c.listeners[irc.Verb]...)
	c.maplock.Unlock()
	for _, fn := range listeners {
		fn(c, irc)
	}
}

func verbIntHandler(c *Connection, irc *IRC) bool {
	verb, err := strconv.Atoi(irc.Verb)
	if err != nil {
		return nothandled
	}
	switch verb {
	default: // unknown numerical verb
		if c.config.Verbose {
			c.Log.Debugf("%s %q", irc.Verb, irc.Message)
		}
		return handled
	case 331, 353:
		c.Log.Debugf("%s %q", irc.Verb, irc.Message)
		return handled
	case 221:
		c.Log.Debugf("UMODE: %q", irc.Message)
		return handled
	case 433:
		// nick in use, try again with an underscore
		c.maplock.Lock()
		c.nick += "_"
		nick := c.nick
		c.maplock.Unlock()
		c.Log.Warnw("nickname in use", "trying", nick)
		c.Write([]byte(fmt.Sprintf("NICK %s", nick)))
		return handled
	}
}

// :NickServ!NickServ@services. NOTICE mastername :mustangsally ACC 3
func noticeHandler(c *Connection, irc *IRC) {
	if irc.ReplyTo != "NickServ" {
		c.Log.Debugw("NOTICE", "from", irc.ReplyTo, "message", irc.Message)
		return
	}
	master := c.config.MasterName()
	switch c.config.AuthMode {
	default:
		if irc.Raw == ":"+fmt.Sprintf(formatauth, c.Nick(), master) ||
			irc.Message == fmt.Sprintf("%s ACC 3", master) {
			c.setMasterAuth()
		}
	case -1:
		c.setMasterAuth()
	case 1:
		if strings.HasPrefix(irc.Message, fmt.Sprintf(formatauth2, master)) {
			c.setMasterAuth()
		}
	}
}

// handle anything from master, returning false if message has not been handled
func privmsgMasterHandler(c *Connection, irc *IRC) bool {
	if !strings.EqualFold(irc.ReplyTo, c.config.MasterName()) {
		c.Log.Debugw("not master", "nick", irc.ReplyTo)
		return nothandled
	}

	mp := c.config.MasterPrefix() // master prefix
	if mp == "" {
		c.Log.Warn("bad config, no master prefix in Master field")
		return nothandled
	}
	if !strings.HasPrefix(irc.Message, mp) {
		// just master sending messages or normal commands
		return nothandled
	}

	if !c.IsOwner(irc.ReplyTo) {
		c.Log.Infow("need reauth", "nick", irc.ReplyTo)
		c.MasterCheck()
		c.SendMaster("authenticating, try again in a moment")
		return handled
	}

	// re-parse for master command
	message := strings.TrimPrefix(irc.Message, mp)
	command := strings.SplitN(message, " ", 2)[0]
	master := *irc
	master.Command = command
	master.Args = strings.TrimLeft(message[len(command):], " ")
	master.Arguments = strings.Fields(master.Args)
	if c.config.Verbose {
		c.Log.Debugf("master command parsed: %s", master)
	}
	if master.Command == "" {
		return nothandled
	}
	c.maplock.Lock()
	fn, ok := c.MasterMap[master.Command]
	c.maplock.Unlock()
	if ok {
		c.Log.Infow("master command found", "command", master.Command)
		fn(c, &master)
		return handled
	}
	c.SendMaster("master command not found")
	return handled
}

// handle any PRIVMSG, should go *after* privmsgMasterHandler and verbIntHandler
func privmsgHandler(c *Connection, irc *IRC) bool {
	if irc.Command == "" {
		return nothandled
	}
	c.maplock.Lock()
	fn, ok := c.CommandMap[irc.Command]
	c.maplock.Unlock()
	if ok {
		c.Log.Debugw("command found", "command", irc.Command)
		fn(c, irc)
		return handled
	}
	c.Log.Debugw("command not found", "command", irc.Command)
	return nothandled
}
