package ircb

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const handled = true
const nothandled = false

// Command is what executes using a parsed IRC message
// irc message '!echo arg1 arg2' gets parsed as:
//
//	'irc.Command = echo', 'irc.Arguments = []string{"arg1","arg2"}
//
// Command will be executed if it is in CommandMap or MasterMap.
// Plugins are easier to write and test, see AddPlugin.
//
// Reply with irc.ReplyUser (for /msg reply) or irc.Reply (for channel)
type Command func(c *Connection, irc *IRC)

// AddMasterCommand adds a new master command, named 'name' to the MasterMap
func (c *Connection) AddMasterCommand(name string, fn Command) {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	c.MasterMap[name] = fn
}

// AddCommand adds a new public command, named 'name' to the CommandMap
func (c *Connection) AddCommand(name string, fn Command) {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	c.CommandMap[name] = fn
}

// RemoveCommand removes a public command, named 'name' from the CommandMap
func (c *Connection) RemoveCommand(name string) {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	delete(c.CommandMap, name)
}

// AddUsage sets the text shown by 'help name'
func (c *Connection) AddUsage(name, usage string) {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	c.usage[name] = usage
}

// AddListener calls fn for every message with the given verb, such as "311" or "JOIN".
// Listeners run on the reader goroutine and must not block.
func (c *Connection) AddListener(verb string, fn Listener) {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	c.listeners[verb] = append(c.listeners[verb], fn)
}

// AddPlugin routes the named public commands to p as CommandEvents.
// p also receives the StartupEvent once, before the first connection.
func (c *Connection) AddPlugin(p Plugin, names ...string) {
	c.maplock.Lock()
	c.plugins = append(c.plugins, p)
	c.maplock.Unlock()
	for _, name := range names {
		c.AddCommand(name, func(c *Connection, irc *IRC) {
			p.Handle(c, c.NewCommandEvent(irc))
		})
	}
}

func (c *Connection) emit(ev Event) {
	c.maplock.Lock()
	plugins := append([]Plugin(nil), c.plugins...)
	c.maplock.Unlock()
	for _, p := range plugins {
		p.Handle(c, ev)
	}
}

// DefaultCommandMap returns default command map
func DefaultCommandMap() map[string]Command {
	m := make(map[string]Command)
	m["up"] = commandUptime
	m["help"] = commandHelp
	return m
}

// DefaultMasterMap returns default master command map
func DefaultMasterMap() map[string]Command {
	m := make(map[string]Command)
	m["do"] = commandMasterDo
	m["part"] = commandMasterPart
	m["help"] = commandMasterHelp
	m["set"] = commandMasterSet
	return m
}

func commandUptime(c *Connection, irc *IRC) {
	irc.Reply(c, time.Since(c.since).Round(time.Second).String())
}

func commandHelp(c *Connection, irc *IRC) {
	c.maplock.Lock()
	prefix := c.config.CommandPrefix
	var list []string
	for i := range c.CommandMap {
		list = append(list, i)
	}
	var usage string
	var ok bool
	if len(irc.Arguments) > 0 {
		usage, ok = c.usage[strings.TrimPrefix(irc.Arguments[0], prefix)]
	}
	c.maplock.Unlock()

	if len(irc.Arguments) == 0 {
		sort.Strings(list)
		irc.Reply(c, fmt.Sprintf("%v commands: %s", len(list), strings.Join(list, " ")))
		return
	}
	if !ok {
		irc.Reply(c, fmt.Sprintf("no help for %q", irc.Arguments[0]))
		return
	}
	irc.Reply(c, strings.ReplaceAll(usage, "{prefix}", prefix))
}

func commandMasterHelp(c *Connection, irc *IRC) {
	c.maplock.Lock()
	var list []string
	for i := range c.MasterMap {
		list = append(list, i)
	}
	c.maplock.Unlock()
	sort.Strings(list)
	irc.Reply(c, fmt.Sprintf("%v master commands: %s", len(list), strings.Join(list, " ")))
}

func commandMasterDo(c *Connection, irc *IRC) {
	c.Log.Infow("master do", "line", irc.Args)
	if _, err := c.Write([]byte(irc.Args)); err != nil {
		c.SendMaster("%v", err)
	}
}

func commandMasterPart(c *Connection, irc *IRC) {
	part := func(ch string) []byte {
		return []byte("PART :" + ch)
	}
	if len(irc.Arguments) == 1 && IsChannel(irc.Arguments[0]) {
		c.Write(part(irc.Arguments[0]))
		c.SendMaster("Parted channel: %q", irc.Arguments[0])
		return
	}
	if IsChannel(irc.To) {
		irc.Reply(c, ":(")
		c.Write(part(irc.To))
		c.SendMaster("Parted channel: %q", irc.To)
	}
}

// set option value, persisted in the settings database
func commandMasterSet(c *Connection, irc *IRC) {
	if len(irc.Arguments) != 2 {
		irc.Reply(c, `usage: set timezone|prefix value`)
		return
	}
	option := irc.Arguments[0]
	value := irc.Arguments[1]
	switch option {
	default:
		irc.Reply(c, `no option like that`)
		return
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil {
			irc.Reply(c, Red+"unknown timezone: "+value)
			return
		}
		if err := c.settings.Set(settingTimezone, value); err != nil {
			c.Log.Errorw("settings", "option", option, "error", err)
			irc.Reply(c, Red+"could not save, check logs")
			return
		}
	case "prefix":
		if err := c.settings.Set(settingPrefix, value); err != nil {
			c.Log.Errorw("settings", "option", option, "error", err)
			irc.Reply(c, Red+"could not save, check logs")
			return
		}
		c.setCommandPrefix(value)
	}
	c.Log.Infow("setting changed", "option", option, "value", value)
	irc.Reply(c, fmt.Sprintf(Green+"%s: %q", option, value))
}
