package remind

import "testing"

func TestParseInterval(t *testing.T) {
	testcases := []struct {
		input   string
		seconds int64
		rest    string
		ok      bool
	}{
		{"7 mins", 420, "", true},
		{"7mins buy milk", 420, "buy milk", true},
		{"2 days and 3 hours do the thing", 2*86400 + 3*3600, "do the thing", true},
		{"1 day, 2 hours and 30 s stretch", 86400 + 7200 + 30, "stretch", true},
		{"1 day ,2 hours x", 86400 + 7200, "x", true},
		{"10 M", 10 * 2592000, "", true},
		{"10 m", 600, "", true},
		{"1 Mon", 2592000, "", true},
		{"3 HOURS later", 10800, "later", true},
		{"2 wks", 2 * 604800, "", true},
		{"1 hour AND 1 min", 3660, "", true},
		{"1 hour and then some", 3600, "then some", true},
		{"7 mins android update", 420, "android update", true},
		{"7 mins and", 420, "", true},
		{"0 s now", 0, "now", true},

		{"abc", 0, "", false},
		{"", 0, "", false},
		{"5", 0, "", false},
		{"5 fortnights", 0, "", false},
		{"1 hour and 5 fortnights", 0, "", false},
		{"in 5 mins", 0, "", false},
		{"99999999999999999999 s", 0, "", false},
		{"9223372036854775807 months", 0, "", false},
	}

	for _, test := range testcases {
		seconds, rest, ok := ParseInterval(test.input)
		if ok != test.ok {
			t.Logf("%q: expected ok %v, got %v", test.input, test.ok, ok)
			t.Fail()
			continue
		}
		if seconds != test.seconds || rest != test.rest {
			t.Logf("%q: expected (%d, %q), got (%d, %q)", test.input, test.seconds, test.rest, seconds, rest)
			t.Fail()
		}
	}
}

func TestStartsWithWord(t *testing.T) {
	testcases := []struct {
		text     string
		expected bool
	}{
		{"and", true},
		{"And 5 mins", true},
		{"and\t5", true},
		{"android", false},
		{"an", false},
		{"", false},
	}
	for _, test := range testcases {
		if got := startsWithWord(test.text, "and"); got != test.expected {
			t.Logf("%q: expected %v, got %v", test.text, test.expected, got)
			t.Fail()
		}
	}
}
