package gate

import (
	"strconv"
	"strings"
	"time"
)

// DefaultSessionStart and DefaultSessionEnd bound the session used when the
// configured window cannot be parsed.
const (
	DefaultSessionStart = 13
	DefaultSessionEnd   = 17
)

// ParseSession reads a window such as "13:00-17:00Z" into UTC start and end
// hours. Blank or malformed input returns the default 13-17 window.
func ParseSession(s string) (start, end int) {
	core := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "Z", "")
	if core == "" {
		return DefaultSessionStart, DefaultSessionEnd
	}

	from, to, ok := strings.Cut(core, "-")
	if !ok {
		return DefaultSessionStart, DefaultSessionEnd
	}

	startHour, err1 := strconv.Atoi(strings.TrimSpace(strings.Split(from, ":")[0]))
	endHour, err2 := strconv.Atoi(strings.TrimSpace(strings.Split(to, ":")[0]))

	if err1 != nil || err2 != nil {
		return DefaultSessionStart, DefaultSessionEnd
	}

	return startHour, endHour
}

// InSession reports whether t falls in [start, end) UTC hours.
func InSession(t time.Time, start, end int) bool {
	hour := t.UTC().Hour()

	return hour >= start && hour < end
}
