package ircb

import "github.com/kr/pretty"

// mIRC formatting codes
const (
	Bold  = "\x02"
	Reset = "\x0f"
	Green = "\x033"
	Red   = "\x035"
)

func (irc IRC) String() string {
	return pretty.Sprint(irc)
}
