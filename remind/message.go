package remind

import (
	"fmt"
	"strings"
	"time"
)

// Header is the line sent before a reminder's message, naming who set it
// and where.
func Header(r Reminder) string {
	switch {
	case strings.EqualFold(r.Receiver, r.AddedBy):
		return "You asked me to remind you:"
	case strings.EqualFold(r.Channel, r.AddedBy):
		return fmt.Sprintf("%s asked me in private to remind you:", r.AddedBy)
	default:
		return fmt.Sprintf("%s asked me in %s to remind you:", r.AddedBy, r.Channel)
	}
}

// FormatDate renders t in loc as "Friday 17 October 2026 14:05 UTC".
// The zone is shown by its configured name, as typed in the settings.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday 2 January 2006 15:04") + " " + loc.String()
}
