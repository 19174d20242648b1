package remind

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/aerth/remindbot/ircb"
	"go.uber.org/zap"
)

// TestRegisterDelivers runs a bot against a loopback server: end of MOTD
// starts the worker, its WHOIS is answered and the reminder is sent.
func TestRegisterDelivers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	clock := newFakeClock()
	s := newTestStore(t, clock)
	id := insert(t, s, clock, "bob", "alice", "#go", "check the oven", 0)

	config := ircb.NewDefaultConfig()
	config.Host = ln.Addr().String()
	config.Nick = "bot"
	config.Channels = ""
	config.Database = ""
	c, err := config.NewConnection(zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWorker(s, c, fastConfig, zap.NewNop())
	NewPlugin(s, w, clock.Now, nil, zap.NewNop()).Register(ctx, c)

	done := make(chan error, 1)
	go func() { done <- c.Connect(ctx) }()

	server, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	server.SetDeadline(time.Now().Add(10 * time.Second))

	if _, err := server.Write([]byte(":srv 376 bot :End of /MOTD command.\r\n")); err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"WHOIS bob",
		"PRIVMSG Bob :alice asked me in #go to remind you:",
		"PRIVMSG Bob :check the oven",
	}
	var got []string
	answered := false
	r := bufio.NewReader(server)
	for len(expected) != 0 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("waiting for %q: %v, read %q", expected[0], err, got)
		}
		line = strings.TrimRight(line, "\r\n")
		got = append(got, line)
		if line != expected[0] {
			continue
		}
		expected = expected[1:]
		if !answered {
			answered = true
			if _, err := server.Write([]byte(":srv 311 bot Bob ~bob example.org * :Bob\r\n")); err != nil {
				t.Fatal(err)
			}
		}
	}

	if ok, _ := s.Exists(context.Background(), id); ok {
		t.Fatal("delivered reminder still stored")
	}
	cancel()
	server.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return after cancel")
	}
}
