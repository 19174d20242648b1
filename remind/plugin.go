package remind

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aerth/remindbot/internal/metrics"
	"github.com/aerth/remindbot/ircb"
	"go.uber.org/zap"
)

// Commands handled by Plugin
var Commands = []string{
	"remind",
	"remindme", "remind_me", "remind-me",
	"remind-delete",
	"remind-initialize",
}

var usage = map[string]string{
	"remind":        "{prefix}remind <nick> in <interval> <text>, <interval> is like '7 mins' or '2 days and 3 hours'",
	"remindme":      "{prefix}remindme in <interval> <text>, like remind but always reminds you",
	"remind-delete": "{prefix}remind-delete <id>, delete a reminder you set or received",
}

// longest interval a time.Duration can hold
const maxSeconds = int64(1<<63-1) / int64(time.Second)

// Plugin is the remind command front-end
type Plugin struct {
	store    Store
	worker   *Worker
	now      Clock
	timezone func() string
	logger   *zap.Logger
}

// NewPlugin returns a Plugin storing to store. timezone names the zone used
// to show delivery dates, and may be nil for UTC.
func NewPlugin(store Store, worker *Worker, clock Clock, timezone func() string, logger *zap.Logger) *Plugin {
	if clock == nil {
		clock = time.Now
	}
	if timezone == nil {
		timezone = func() string { return "UTC" }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{
		store:    store,
		worker:   worker,
		now:      clock,
		timezone: timezone,
		logger:   logger,
	}
}

// Register adds the remind commands to c and starts the worker on every
// end of MOTD. Worker runs stop when ctx is done or the connection drops.
func (p *Plugin) Register(ctx context.Context, c *ircb.Connection) {
	c.AddPlugin(p, Commands...)
	for name, text := range usage {
		c.AddUsage(name, text)
	}
	c.AddUsage("remind_me", usage["remindme"])
	c.AddUsage("remind-me", usage["remindme"])

	if p.worker == nil {
		return
	}
	start := func(c *ircb.Connection, irc *ircb.IRC) {
		go func() {
			err := p.worker.Run(ctx)
			if errors.Is(err, ErrWorkerRunning) {
				p.logger.Debug("remind worker already running")
			}
		}()
	}
	c.AddListener(ircb.RplEndOfMotd, start)
	c.AddListener(ircb.ErrNoMotd, start)
	c.AddListener(ircb.RplWhoisUser, func(c *ircb.Connection, irc *ircb.IRC) {
		// :server 311 ournick theirnick user host * :realname
		if len(irc.Params) < 2 {
			return
		}
		go p.worker.Confirmed(ctx, irc.Params[1])
	})
}

func (p *Plugin) Handle(s ircb.Sender, ev ircb.Event) {
	ctx := context.Background()
	switch ev := ev.(type) {
	case ircb.StartupEvent:
		if err := p.store.Init(ctx); err != nil {
			p.logger.Error("failed to initialize remind store", zap.Error(err))
		}
	case ircb.CommandEvent:
		p.command(ctx, s, ev)
	}
}

func (p *Plugin) command(ctx context.Context, s ircb.Sender, ev ircb.CommandEvent) {
	switch ev.Name {
	case "remind-initialize":
		if !ev.Owner {
			return
		}
		if err := p.store.Init(ctx); err != nil {
			p.logger.Error("failed to initialize remind store", zap.Error(err))
			return
		}
		s.Notice(ev.Nick, "remind: database initialized")
	case "remind":
		argv := strings.SplitN(ev.Args, " ", 3)
		if len(argv) < 3 {
			s.Notice(ev.Target, fmt.Sprintf("Usage: %s%s <nick> in <interval> <text>", ev.Prefix, ev.Name))
			return
		}
		p.add(ctx, s, ev, argv[0], argv[2])
	case "remind-delete":
		p.delete(ctx, s, ev)
	default:
		argv := strings.SplitN(ev.Args, " ", 2)
		if len(argv) < 2 {
			s.Notice(ev.Target, fmt.Sprintf("Usage: %s%s in <interval> <text>", ev.Prefix, ev.Name))
			return
		}
		p.add(ctx, s, ev, ev.Nick, argv[1])
	}
}

// add parses "<interval> <text>" and stores a reminder for receiver
func (p *Plugin) add(ctx context.Context, s ircb.Sender, ev ircb.CommandEvent, receiver, rest string) {
	seconds, message, ok := ParseInterval(rest)
	if !ok {
		s.Notice(ev.Target, fmt.Sprintf("%s: Invalid interval. Try %shelp remind", ev.Name, ev.Prefix))
		return
	}
	if message == "" {
		s.Notice(ev.Target, fmt.Sprintf("%s: Looks like you forgot to enter the message.", ev.Name))
		return
	}

	if seconds > maxSeconds {
		s.Notice(ev.Target, fmt.Sprintf("%s: Invalid interval. Try %shelp remind", ev.Name, ev.Prefix))
		return
	}
	// the sweep would drop it before it comes due
	if seconds > int64(Retention/time.Second) {
		s.Notice(ev.Target, fmt.Sprintf("%s: Reminders can be set at most %d days ahead.", ev.Name, int(Retention/(24*time.Hour))))
		return
	}
	due := p.now().Add(time.Duration(seconds) * time.Second)
	id, err := p.store.Insert(ctx, Reminder{
		Receiver: receiver,
		AddedBy:  ev.Nick,
		Message:  message,
		Channel:  ev.Target,
		DueAt:    due,
	})
	if err != nil {
		p.logger.Error("failed to store reminder", zap.String("nick", ev.Nick), zap.Error(err))
		return
	}
	metrics.RecordCreated()
	p.logger.Info("reminder set",
		zap.Int64("id", id),
		zap.String("receiver", receiver),
		zap.String("added_by", ev.Nick),
		zap.Time("due", due),
	)
	s.Notice(ev.Target, fmt.Sprintf("%s: You set a reminder for %s. Id: %d.", ev.Nick, FormatDate(due, p.location()), id))
}

func (p *Plugin) delete(ctx context.Context, s ircb.Sender, ev ircb.CommandEvent) {
	argv := strings.Fields(ev.Args)
	if len(argv) != 1 {
		s.Notice(ev.Target, fmt.Sprintf("Usage: %s%s <id>", ev.Prefix, ev.Name))
		return
	}
	notFound := fmt.Sprintf("%s: Reminder #%s could not be found.", ev.Nick, argv[0])
	id, err := strconv.ParseInt(argv[0], 10, 64)
	if err != nil {
		s.Notice(ev.Target, notFound)
		return
	}

	exists, err := p.store.Exists(ctx, id)
	if err != nil {
		p.logger.Error("failed to look up reminder", zap.Int64("id", id), zap.Error(err))
		return
	}
	if !exists {
		s.Notice(ev.Target, notFound)
		return
	}
	allowed, err := p.store.HasDeleteRights(ctx, id, ev.Nick)
	if err != nil {
		p.logger.Error("failed to check delete rights", zap.Int64("id", id), zap.Error(err))
		return
	}
	if !allowed {
		s.Notice(ev.Target, fmt.Sprintf("%s: Looks like you cannot delete this reminder.", ev.Nick))
		return
	}
	removed, err := p.store.Delete(ctx, id, ev.Nick)
	if err != nil {
		p.logger.Error("failed to delete reminder", zap.Int64("id", id), zap.Error(err))
		return
	}
	// delivered or swept since the rights check
	if !removed {
		s.Notice(ev.Target, notFound)
		return
	}
	metrics.RecordRemoved(metrics.ReasonDeleted, 1)
	s.Notice(ev.Target, fmt.Sprintf("%s: Reminder #%d deleted.", ev.Nick, id))
}

func (p *Plugin) location() *time.Location {
	loc, err := time.LoadLocation(p.timezone())
	if err != nil {
		return time.UTC
	}
	return loc
}
