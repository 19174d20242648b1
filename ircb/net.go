package ircb

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var version = "remindbot v0.1.0"

// ErrNotConnected is returned when writing without a live connection
var ErrNotConnected = errors.New("not connected")

// ErrAlreadyConnected is returned by Connect while a connection is running
var ErrAlreadyConnected = errors.New("already connected")

type Connection struct {
	Log        *zap.SugaredLogger
	CommandMap map[string]Command // map of command names to Command functions
	MasterMap  map[string]Command // map of master command names to Command functions
	config     *Config            // current config
	nick       string             // nick in use, guarded by maplock
	settings   *Settings          // opened settings database, can be nil
	conn       io.ReadWriteCloser
	since      time.Time // since connected to server
	masterauth time.Time // auth and auth timeout
	reader     *bufio.Reader
	maplock    sync.Mutex // guards command maps, listeners, plugins, usage and prefix
	writelock  sync.Mutex // guards conn writes
	authlock   sync.Mutex // guards masterauth
	listeners  map[string][]Listener
	plugins    []Plugin
	usage      map[string]string
	running    atomic.Bool // inside Connect
	online     atomic.Bool // registered with the server
	started    sync.Once
	joined     bool
}

// NewConnection opens the settings database and prepares command maps. It does not dial.
func (config *Config) NewConnection(log *zap.SugaredLogger) (*Connection, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := newConnection(config, log)
	if config.Database != "" {
		settings, err := OpenSettings(config.Database)
		if err != nil {
			return nil, fmt.Errorf("open settings: %w", err)
		}
		c.settings = settings
		if prefix := settings.Get(settingPrefix); prefix != "" {
			config.CommandPrefix = prefix
		}
	}
	return c, nil
}

func newConnection(config *Config, log *zap.SugaredLogger) *Connection {
	c := new(Connection)
	c.config = config
	c.nick = config.Nick
	c.Log = log
	c.since = time.Now()
	c.CommandMap = DefaultCommandMap()
	c.MasterMap = DefaultMasterMap()
	c.listeners = make(map[string][]Listener)
	c.usage = make(map[string]string)
	return c
}

// Connect dials, registers and reads until the connection is lost or ctx is done.
// Plugins get their StartupEvent before the first dial.
func (c *Connection) Connect(ctx context.Context) (err error) {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	defer c.running.Store(false)

	c.started.Do(func() {
		c.emit(StartupEvent{})
	})

	c.Log.Infow("connecting...", "host", c.config.Host, "tls", c.config.UseSSL)
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.writelock.Lock()
	c.conn = conn
	c.writelock.Unlock()
	c.maplock.Lock()
	c.nick = c.config.Nick
	c.maplock.Unlock()
	c.joined = false
	c.since = time.Now()
	c.online.Store(true)
	defer func() {
		c.online.Store(false)
		c.Close()
	}()

	if err = c.initialconnect(); err != nil {
		return err
	}
	c.Log.Info("connected.")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return c.readerwriter(conn)
}

func (c *Connection) dial(ctx context.Context) (io.ReadWriteCloser, error) {
	d := &net.Dialer{Timeout: 30 * time.Second}
	if c.config.UseSSL {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{
			InsecureSkipVerify: c.config.InvalidSSL,
		}}
		return td.DialContext(ctx, "tcp", c.config.Host)
	}
	return d.DialContext(ctx, "tcp", c.config.Host)
}

// Connected reports whether the connection is up. Workers stop when it turns false.
func (c *Connection) Connected() bool {
	return c.online.Load()
}

// Close sends QUIT and closes the network connection. Settings stay open for a reconnect.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	c.online.Store(false)
	c.writelock.Lock()
	defer c.writelock.Unlock()
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	if _, err := conn.Write([]byte(fmt.Sprintf("QUIT :%s\r\n", version))); err != nil {
		c.Log.Debugw("quit", "error", err)
	}
	return conn.Close()
}

// Shutdown closes the network connection and the settings database.
func (c *Connection) Shutdown() error {
	err := c.Close()
	if c.settings != nil {
		if err1 := c.settings.Close(); err1 != nil {
			c.Log.Errorw("settings close", "error", err1)
		}
	}
	return err
}

// Write to irc connection, adding '\r\n'
func (c *Connection) Write(b []byte) (n int, err error) {
	if strings.TrimSpace(string(b)) == "" || len(b) < 4 {
		return 0, fmt.Errorf("write too small")
	}
	if string(b[len(b)-2:]) != "\r\n" {
		b = append(b, "\r\n"...)
	}
	if c.config.Verbose {
		c.Log.Debugf("SEND %q", string(b))
	}
	c.writelock.Lock()
	defer c.writelock.Unlock()
	if c.conn == nil {
		return 0, ErrNotConnected
	}
	return c.conn.Write(b)
}

// MasterCheck sends a private message to NickServ to authenticate master user
//
//	-1 no auth mode
//	0 default, freenode and oragono ACC style
//	1 STATUS style
func (c *Connection) MasterCheck() {
	switch c.config.AuthMode {
	case -1:
		c.Log.Warn("authentication disabled")
		c.setMasterAuth()
	default:
		// freenode and oragono style
		if _, err := c.Write([]byte("PRIVMSG NickServ :ACC " + c.config.MasterName())); err != nil {
			c.Log.Errorw("auth", "error", err)
		}
	case 1:
		if _, err := c.Write([]byte("PRIVMSG NickServ :STATUS " + c.config.MasterName())); err != nil {
			c.Log.Errorw("auth", "error", err)
		}
	}
}

func (c *Connection) setMasterAuth() {
	c.authlock.Lock()
	c.masterauth = time.Now()
	c.authlock.Unlock()
}

// IsOwner reports whether nick is the bot master and has authenticated in the last 5 minutes
func (c *Connection) IsOwner(nick string) bool {
	if !strings.EqualFold(nick, c.config.MasterName()) {
		return false
	}
	if c.config.AuthMode == -1 {
		return true
	}
	c.authlock.Lock()
	defer c.authlock.Unlock()
	return time.Since(c.masterauth) < 5*time.Minute
}

// SendMaster sends formatted text to master user
func (c *Connection) SendMaster(format string, i ...interface{}) {
	if strings.TrimSpace(format) == "" {
		return
	}
	c.Send(IRC{
		To:      c.config.MasterName(),
		Message: fmt.Sprintf(format, i...),
	})
}

// Send IRC message (uses Verb, To and Message fields), logging errors
func (c *Connection) Send(irc IRC) {
	if err := c.send(irc); err != nil {
		c.Log.Errorw("send", "to", irc.To, "error", err)
	}
}

// PrivMsg sends text to a nick or channel
func (c *Connection) PrivMsg(to, text string) error {
	return c.send(IRC{To: to, Message: text})
}

// Notice sends a NOTICE to a nick or channel
func (c *Connection) Notice(to, text string) error {
	return c.send(IRC{Verb: "NOTICE", To: to, Message: text})
}

// Whois asks the server about one or more nicks, in a single request
func (c *Connection) Whois(nicks ...string) error {
	if len(nicks) == 0 {
		return nil
	}
	_, err := c.Write([]byte("WHOIS " + strings.Join(nicks, ",")))
	return err
}

func (c *Connection) send(irc IRC) error {
	irc.Message = strings.TrimSuffix(irc.Message, "\n")
	if strings.Contains(irc.Message, "\n") {
		messages := strings.Split(irc.Message, "\n")
		for i, v := range messages {
			if strings.TrimSpace(v) == "" {
				continue
			}
			line := irc
			line.Message = v
			if err := c.send(line); err != nil {
				return err
			}
			if i < len(messages)-1 {
				<-time.After(time.Second)
			}
		}
		return nil
	}
	e := irc.Encode()
	if len(e) < 512 {
		_, err := c.Write(e)
		return err
	}

	// too long for one line, split on rune boundaries
	var line []rune
	for _, r := range irc.Message {
		line = append(line, r)
		if len(string(line)) >= 400 {
			chunk := irc
			chunk.Message = string(line)
			if _, err := c.Write(chunk.Encode()); err != nil {
				return err
			}
			line = line[:0]
		}
	}
	if len(line) > 0 {
		chunk := irc
		chunk.Message = string(line)
		_, err := c.Write(chunk.Encode())
		return err
	}
	return nil
}

func (c *Connection) initialconnect() error {
	nick := c.Nick()
	if _, err := c.Write([]byte(fmt.Sprintf("NICK %s", nick))); err != nil {
		return err
	}
	if _, err := c.Write([]byte(fmt.Sprintf("USER %s 0.0.0.0 0.0.0.0 :%s", nick, nick))); err != nil {
		return err
	}
	_, err := c.Write([]byte(fmt.Sprintf("MODE %s :+i", nick)))
	return err
}

// read until read error
func (c *Connection) readerwriter(conn io.Reader) error {
	c.Log.Debug("reading from net")
	defer c.Log.Debug("reader stopping")
	c.reader = bufio.NewReaderSize(conn, 512)
	for {
		msg, err := c.reader.ReadString('\n')
		if err != nil {
			return err
		}
		c.handleLine(msg)
	}
}

// handleLine reacts to a single line from the server
func (c *Connection) handleLine(msg string) {
	if c.config.Verbose {
		c.Log.Debugf("read: %q", msg)
	}

	// handle PING
	if strings.HasPrefix(msg, "PING") {
		pong := []byte(strings.Replace(msg, "PING", "PONG", 1))
		if _, err := c.Write(pong); err != nil {
			c.Log.Errorw("pong", "error", err)
		}
		return
	}

	// parse
	irc := c.parse(msg)
	if irc == nil {
		return
	}
	c.dispatch(irc)

	// numeric 'verb'
	if isNumeric(irc.Verb) {
		verbIntHandler(c, irc)
		return
	}

	switch irc.Verb {
	default:
		if c.config.Verbose {
			c.Log.Debugf("new verb %s %s", irc.Verb, irc)
		}
	case "QUIT", "PART", "NICK", "JOIN":
	case "NOTICE":
		noticeHandler(c, irc)
	case "MODE":
		c.Log.Debugf("NEW MODE: %q", irc.Message)
		if !c.joined {
			for _, ch := range strings.Split(c.config.Channels, ",") {
				if ch = strings.TrimSpace(ch); ch != "" {
					c.Log.Infow("joining channel", "channel", ch)
					c.Write([]byte(fmt.Sprintf("JOIN %s", ch)))
				}
			}
			c.joined = true
		}
	case "PRIVMSG":
		// maybe master command
		if strings.EqualFold(irc.ReplyTo, c.config.MasterName()) {
			if privmsgMasterHandler(c, irc) {
				return
			}
		}
		privmsgHandler(c, irc)
	}
}

func (c *Connection) parse(msg string) *IRC {
	c.maplock.Lock()
	cfg := *c.config
	cfg.Nick = c.nick
	c.maplock.Unlock()
	return cfg.Parse(msg)
}

// Nick returns the nick in use. It differs from the configured nick after
// a collision; the config is left alone so a saved config keeps the original.
func (c *Connection) Nick() string {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	return c.nick
}

// CommandPrefix returns the current public command prefix
func (c *Connection) CommandPrefix() string {
	c.maplock.Lock()
	defer c.maplock.Unlock()
	return c.config.CommandPrefix
}

func (c *Connection) setCommandPrefix(prefix string) {
	c.maplock.Lock()
	c.config.CommandPrefix = prefix
	c.maplock.Unlock()
}

// Timezone is the display timezone: the persisted setting, then config, then UTC
func (c *Connection) Timezone() string {
	if tz := c.settings.Get(settingTimezone); tz != "" {
		return tz
	}
	if c.config.Timezone != "" {
		return c.config.Timezone
	}
	return "UTC"
}

func isNumeric(verb string) bool {
	if len(verb) != 3 {
		return false
	}
	for _, r := range verb {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
