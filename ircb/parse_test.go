package ircb

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

var testconfig = &Config{
	Nick:          "testing",
	Master:        "tester:$",
	CommandPrefix: "!",
	AuthMode:      -1,
}

// testconnection is an in-memory server connection
type testconnection struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (t *testconnection) Close() error {
	return nil
}

func (t *testconnection) Write(b []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Write(b)
}

func (t *testconnection) Read(b []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Read(b)
}

// Lines returns everything written so far, one line per element
func (t *testconnection) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := strings.TrimSuffix(t.buf.String(), "\r\n")
	t.buf.Reset()
	if s == "" {
		return nil
	}
	return strings.Split(s, "\r\n")
}

func NewTestConnection() (*Connection, *testconnection) {
	tc := &testconnection{buf: new(bytes.Buffer)}
	config := *testconfig
	c := newConnection(&config, zap.NewNop().Sugar())
	c.conn = tc
	return c, tc
}

func TestTest(t *testing.T) {
	c, _ := NewTestConnection()
	_, err := c.Write([]byte("PING"))
	if err != nil {
		t.Fail()
		t.Log(err)
	}
}

func TestParse(t *testing.T) {
	irc := testconfig.Parse("foo PRIVMSG :bar")
	if irc.Verb != "PRIVMSG" {
		t.Logf("expected verb: PRIVMSG, got %q", irc.Verb)
		t.Fail()
	}

	irc = testconfig.Parse("FOO")
	if irc.Verb != "FOO" {
		t.Logf("expected verb: FOO, got %q", irc.Verb)
		t.Fail()
	}

	if testconfig.Parse(" \r\n") != nil {
		t.Log("expected nil for an empty line")
		t.Fail()
	}

	testcases := []struct {
		verb, message, input string
	}{
		{"433", "Nickname is already in use", ":host.test 433 * mustangsally :Nickname is already in use\r\n"},
		{"451", "You need to register before you can use that command", ":oragono.test 451 * :You need to register before you can use that command\r\n"},
		{"PING", "mustangsally", "PING mustangsally\r\n"},
		{"PRIVMSG", "hello", "mustangsally!ok@ok PRIVMSG #ok :hello"},
		{"311", "Bob Smith", ":irc.test 311 testing bob ~bob example.org * :Bob Smith\r\n"},
		{"376", "End of /MOTD command.", ":irc.test 376 testing :End of /MOTD command.\r\n"},
	}

	for _, test := range testcases {
		irc := testconfig.Parse(test.input)
		if irc.Verb != test.verb {
			t.Logf("wanted verb: %q", test.verb)
			t.Logf("but got: %q", irc.Verb)
			t.Fail()
		}
		if irc.Message != test.message {
			t.Logf("wanted message: %q", test.message)
			t.Logf("but got: %q", irc.Message)
			t.Fail()
		}
	}
}

func TestParseWhoisUser(t *testing.T) {
	irc := testconfig.Parse(":irc.test 311 testing Bob ~bob example.org * :Bob Smith\r\n")
	if len(irc.Params) < 2 || irc.Params[1] != "Bob" {
		t.Fatalf("expected nick in Params[1], got %q", irc.Params)
	}
	if irc.To != "testing" || irc.ReplyTo != "irc.test" {
		t.Fatalf("unexpected To %q ReplyTo %q", irc.To, irc.ReplyTo)
	}
}

func TestParseCommand(t *testing.T) {
	testcases := []struct {
		input, command, args string
		arguments            int
		whisper              bool
	}{
		{":alice!a@h PRIVMSG #go :!remind bob in 5 mins  stretch", "remind", "bob in 5 mins  stretch", 5, false},
		{":alice!a@h PRIVMSG testing :!remindme in 1 hour tea", "remindme", "in 1 hour tea", 4, true},
		{":alice!a@h PRIVMSG #go :!up", "up", "", 0, false},
		{":alice!a@h PRIVMSG #go :! remind bob", "", "", 0, false},
		{":alice!a@h PRIVMSG #go :!", "", "", 0, false},
		{":alice!a@h PRIVMSG #go :remind bob", "", "", 0, false},
		{":alice!a@h NOTICE #go :!remind bob", "", "", 0, false},
	}
	for _, test := range testcases {
		irc := testconfig.Parse(test.input)
		if irc.Command != test.command || irc.Args != test.args ||
			len(irc.Arguments) != test.arguments || irc.IsWhisper != test.whisper {
			t.Logf("%q: got command %q args %q arguments %q whisper %v",
				test.input, irc.Command, irc.Args, irc.Arguments, irc.IsWhisper)
			t.Fail()
		}
		if irc.IsCommand != (test.command != "") {
			t.Logf("%q: IsCommand %v", test.input, irc.IsCommand)
			t.Fail()
		}
	}
}

func TestEncode(t *testing.T) {
	testcases := []struct {
		irc      IRC
		expected string
	}{
		{IRC{To: "#go", Message: "hi"}, "PRIVMSG #go :hi\r\n"},
		{IRC{Verb: "NOTICE", To: "bob", Message: "hi there"}, "NOTICE bob :hi there\r\n"},
	}
	for _, test := range testcases {
		if got := string(test.irc.Encode()); got != test.expected {
			t.Logf("expected %q, got %q", test.expected, got)
			t.Fail()
		}
	}
}

func TestConfigFromJSON(t *testing.T) {
	config, err := ConfigFromJSON([]byte(`{"Nick":"remindbot","Master":"owner:%","RemindDriver":"postgres"}`))
	if err != nil {
		t.Fatal(err)
	}
	if config.Nick != "remindbot" || config.RemindDriver != "postgres" || config.Host != "localhost:6667" {
		t.Fatalf("unexpected config %+v", config)
	}
	if config.MasterName() != "owner" || config.MasterPrefix() != "%" {
		t.Fatalf("unexpected master %q %q", config.MasterName(), config.MasterPrefix())
	}
	if (Config{Master: "owner"}).MasterPrefix() != "" {
		t.Fatal("expected empty master prefix")
	}

	b, err := config.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := ConfigFromJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if *again != *config {
		t.Fatalf("config changed after a round trip: %+v", again)
	}
}
