package remind

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Seconds per calendrical unit. A month is a flat 30 days.
const (
	Second int64 = 1
	Minute       = 60 * Second
	Hour         = 60 * Minute
	Day          = 24 * Hour
	Week         = 7 * Day
	Month        = 30 * Day
)

// calendricals is looked up with the exact token first, then lowercased,
// so "M" is a month while "m" and "MIN" are minutes.
var calendricals = map[string]int64{
	"seconds": Second,
	"second":  Second,
	"secs":    Second,
	"sec":     Second,
	"s":       Second,

	"minutes": Minute,
	"minute":  Minute,
	"mins":    Minute,
	"min":     Minute,
	"m":       Minute,

	"hours": Hour,
	"hour":  Hour,
	"hrs":   Hour,
	"hr":    Hour,
	"h":     Hour,

	"days": Day,
	"day":  Day,
	"d":    Day,

	"weeks": Week,
	"week":  Week,
	"wks":   Week,
	"wk":    Week,
	"w":     Week,

	"months": Month,
	"month":  Month,
	"mon":    Month,
	"M":      Month,
}

// ParseInterval reads an expression such as "2 days and 3 hours" from the
// front of text. It returns the total in seconds and the text that follows
// the expression. ok is false if text does not start with a valid interval.
func ParseInterval(text string) (seconds int64, rest string, ok bool) {
	return parseInterval(text, 0, false)
}

func parseInterval(text string, acc int64, accumulated bool) (int64, string, bool) {
	digits, rest := splitDigits(text)
	if digits == "" {
		if !accumulated {
			return 0, "", false
		}
		return acc, text, true
	}

	unit, rest := splitWord(strings.TrimSpace(rest))
	if unit == "" {
		return 0, "", false
	}
	if strings.HasSuffix(unit, ",") { // as in "1 day, 2 hours"
		unit = strings.TrimSuffix(unit, ",")
		if rest != "" {
			rest = "," + rest
		}
	}

	multiplier, found := calendricals[unit]
	if !found {
		multiplier, found = calendricals[strings.ToLower(unit)]
	}
	if !found {
		return 0, "", false
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > (math.MaxInt64-acc)/multiplier {
		return 0, "", false
	}
	acc += n * multiplier
	rest = strings.TrimSpace(rest)

	switch {
	case startsWithWord(rest, "and"):
		return parseInterval(strings.TrimSpace(rest[3:]), acc, true)
	case strings.HasPrefix(rest, ","):
		return parseInterval(strings.TrimSpace(rest[1:]), acc, true)
	}
	return acc, rest, true
}

// splitDigits returns the leading run of ASCII digits and what follows it
func splitDigits(text string) (digits, rest string) {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	return text[:i], text[i:]
}

// splitWord returns the first whitespace delimited word and what follows it
func splitWord(text string) (word, rest string) {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i == -1 {
		return text, ""
	}
	return text[:i], text[i:]
}

// startsWithWord reports whether text begins with word, case-insensitively,
// followed by whitespace or the end of text
func startsWithWord(text, word string) bool {
	if len(text) < len(word) || !strings.EqualFold(text[:len(word)], word) {
		return false
	}
	if len(text) == len(word) {
		return true
	}
	r := rune(text[len(word)])
	return unicode.IsSpace(r)
}
