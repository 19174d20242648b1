package ircb

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	c, tc := NewTestConnection()
	if _, err := c.Write([]byte("NICK x")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Write([]byte(" ")); err == nil {
		t.Fatal("expected error writing a blank line")
	}
	lines := tc.Lines()
	if len(lines) != 1 || lines[0] != "NICK x" {
		t.Fatalf("unexpected lines %q", lines)
	}

	c.Close()
	if _, err := c.Write([]byte("NICK y")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if c.Connected() {
		t.Fatal("connected after Close")
	}
}

func TestWhois(t *testing.T) {
	c, tc := NewTestConnection()
	if err := c.Whois(); err != nil {
		t.Fatal(err)
	}
	if err := c.Whois("alice", "bob", "carol"); err != nil {
		t.Fatal(err)
	}
	lines := tc.Lines()
	if len(lines) != 1 || lines[0] != "WHOIS alice,bob,carol" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestPrivMsgNotice(t *testing.T) {
	c, tc := NewTestConnection()
	c.PrivMsg("bob", "You asked me to remind you:")
	c.Notice("#go", "alice: Reminder #3 deleted.")
	expected := []string{
		"PRIVMSG bob :You asked me to remind you:",
		"NOTICE #go :alice: Reminder #3 deleted.",
	}
	if got := tc.Lines(); strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestSendLong(t *testing.T) {
	c, tc := NewTestConnection()
	c.PrivMsg("bob", strings.Repeat("é", 500))
	lines := tc.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if len(line) > 510 {
			t.Fatalf("line too long: %d", len(line))
		}
		if !strings.HasPrefix(line, "PRIVMSG bob :") {
			t.Fatalf("unexpected line %q", line)
		}
	}
}

func TestHandlePing(t *testing.T) {
	c, tc := NewTestConnection()
	c.handleLine("PING :irc.test\r\n")
	if lines := tc.Lines(); len(lines) != 1 || lines[0] != "PONG :irc.test" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestNickInUse(t *testing.T) {
	c, tc := NewTestConnection()
	c.handleLine(":irc.test 433 * testing :Nickname is already in use\r\n")
	if lines := tc.Lines(); len(lines) != 1 || lines[0] != "NICK testing_" {
		t.Fatalf("unexpected lines %q", lines)
	}
	c.handleLine(":irc.test 433 * testing_ :Nickname is already in use\r\n")
	if lines := tc.Lines(); len(lines) != 1 || lines[0] != "NICK testing__" {
		t.Fatalf("unexpected lines %q", lines)
	}
	if c.Nick() != "testing__" {
		t.Fatalf("expected nick testing__, got %q", c.Nick())
	}
	if c.config.Nick != "testing" {
		t.Fatalf("collision changed the configured nick to %q", c.config.Nick)
	}

	// whispers follow the nick in use
	irc := c.parse(":alice!a@h PRIVMSG testing__ :!up\r\n")
	if !irc.IsWhisper {
		t.Fatal("message to the retry nick not seen as private")
	}
}

func TestJoinOnMode(t *testing.T) {
	c, tc := NewTestConnection()
	c.config.Channels = "#go, #remind"
	c.handleLine(":testing MODE testing :+i\r\n")
	c.handleLine(":testing MODE testing :+w\r\n")
	expected := []string{"JOIN #go", "JOIN #remind"}
	if got := tc.Lines(); strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestListener(t *testing.T) {
	c, _ := NewTestConnection()
	var got []string
	c.AddListener(RplWhoisUser, func(c *Connection, irc *IRC) {
		got = append(got, irc.Params[1])
	})
	c.AddListener(RplWhoisUser, func(c *Connection, irc *IRC) {
		got = append(got, "second")
	})
	c.handleLine(":irc.test 311 testing bob ~bob example.org * :Bob\r\n")
	c.handleLine(":irc.test 312 testing bob irc.test :server\r\n")
	if strings.Join(got, ",") != "bob,second" {
		t.Fatalf("unexpected listener calls %q", got)
	}
}

// testplugin records the events it is given
type testplugin struct {
	events []Event
}

func (p *testplugin) Handle(s Sender, ev Event) {
	p.events = append(p.events, ev)
	if cmd, ok := ev.(CommandEvent); ok {
		s.Notice(cmd.Target, "ok "+cmd.Name)
	}
}

func TestPlugin(t *testing.T) {
	c, tc := NewTestConnection()
	p := new(testplugin)
	c.AddPlugin(p, "remind", "remindme")

	c.emit(StartupEvent{})
	c.handleLine(":alice!a@h PRIVMSG #go :!remind bob in 5 mins stretch\r\n")
	c.handleLine(":alice!a@h PRIVMSG testing :!remindme in 1 hour tea\r\n")
	c.handleLine(":alice!a@h PRIVMSG #go :!karma bob\r\n")

	if len(p.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(p.events))
	}
	if _, ok := p.events[0].(StartupEvent); !ok {
		t.Fatalf("expected StartupEvent first, got %T", p.events[0])
	}
	expected := CommandEvent{
		Name:   "remind",
		Args:   "bob in 5 mins stretch",
		Nick:   "alice",
		Target: "#go",
		Prefix: "!",
	}
	if p.events[1] != expected {
		t.Fatalf("expected %+v, got %+v", expected, p.events[1])
	}
	if cmd := p.events[2].(CommandEvent); cmd.Target != "alice" || cmd.Args != "in 1 hour tea" {
		t.Fatalf("private command should reply to the nick, got %+v", cmd)
	}

	lines := tc.Lines()
	if len(lines) != 2 || lines[0] != "NOTICE #go :ok remind" || lines[1] != "NOTICE alice :ok remindme" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestIsOwner(t *testing.T) {
	c, _ := NewTestConnection()
	if !c.IsOwner("Tester") {
		t.Fatal("master not owner with auth disabled")
	}
	if c.IsOwner("alice") {
		t.Fatal("alice is not the owner")
	}

	c.config.AuthMode = 0
	if c.IsOwner("tester") {
		t.Fatal("owner without NickServ confirmation")
	}
	c.handleLine(":NickServ!NickServ@services. NOTICE testing :tester ACC 3\r\n")
	if !c.IsOwner("tester") {
		t.Fatal("owner not confirmed after ACC 3")
	}
}

func TestHelp(t *testing.T) {
	c, tc := NewTestConnection()
	c.AddCommand("remind", func(c *Connection, irc *IRC) {})
	c.AddUsage("remind", "{prefix}remind <nick> in <interval> <text>")

	c.handleLine(":alice!a@h PRIVMSG #go :!help remind\r\n")
	c.handleLine(":alice!a@h PRIVMSG #go :!help !remind\r\n")
	c.handleLine(":alice!a@h PRIVMSG #go :!help\r\n")
	c.handleLine(":alice!a@h PRIVMSG #go :!help nothing\r\n")
	expected := []string{
		"PRIVMSG #go :!remind <nick> in <interval> <text>",
		"PRIVMSG #go :!remind <nick> in <interval> <text>",
		"PRIVMSG #go :3 commands: help remind up",
		`PRIVMSG #go :no help for "nothing"`,
	}
	if got := tc.Lines(); strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Fatalf("expected %q\ngot %q", expected, got)
	}
}

func TestMasterSet(t *testing.T) {
	c, tc := NewTestConnection()
	settings, err := OpenSettings(filepath.Join(t.TempDir(), "bolt.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer settings.Close()
	c.settings = settings

	c.handleLine(":tester!t@h PRIVMSG testing :$set prefix ?\r\n")
	if c.CommandPrefix() != "?" || settings.Get(settingPrefix) != "?" {
		t.Fatalf("prefix not changed: %q %q", c.CommandPrefix(), settings.Get(settingPrefix))
	}
	c.handleLine(":tester!t@h PRIVMSG testing :$set timezone Not/AZone\r\n")
	c.handleLine(":tester!t@h PRIVMSG testing :$set timezone UTC\r\n")
	if c.Timezone() != "UTC" {
		t.Fatalf("unexpected timezone %q", c.Timezone())
	}

	// only master commands from the master run
	c.handleLine(":alice!a@h PRIVMSG testing :$set prefix !\r\n")
	if c.CommandPrefix() != "?" {
		t.Fatal("non master changed the prefix")
	}

	lines := tc.Lines()
	if len(lines) != 3 || !strings.Contains(lines[1], "unknown timezone") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestSettings(t *testing.T) {
	var none *Settings
	if none.Get("x") != "" || none.Set("x", "y") == nil || none.Close() != nil {
		t.Fatal("nil settings should read empty and refuse writes")
	}

	path := filepath.Join(t.TempDir(), "bolt.db")
	s, err := OpenSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(settingTimezone, "Europe/Paris"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got := s.Get(settingTimezone); got != "Europe/Paris" {
		t.Fatalf("setting not persisted, got %q", got)
	}

	c, _ := NewTestConnection()
	c.config.Timezone = "Asia/Tokyo"
	if c.Timezone() != "Asia/Tokyo" {
		t.Fatalf("expected config timezone, got %q", c.Timezone())
	}
	c.settings = s
	if c.Timezone() != "Europe/Paris" {
		t.Fatalf("expected stored timezone, got %q", c.Timezone())
	}
}

func TestNewLogger(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "log.txt")
	log, err := NewLogger(false, logfile)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello")
	log.Sync()
}
