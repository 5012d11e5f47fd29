package parse

import (
	"strconv"
	"strings"
)

// RRuleCount extracts the COUNT token from a recurrence-rule string such as
// "FREQ=WEEKLY;COUNT=16". It tolerates a leading "RRULE:" prefix and mixed
// case. Returns false when no COUNT token is present or it is not a number.
func RRuleCount(rrule string) (int, bool) {
	rule := strings.TrimSpace(rrule)
	if idx := strings.IndexByte(rule, ':'); idx >= 0 && strings.EqualFold(rule[:idx], "RRULE") {
		rule = rule[idx+1:]
	}
	for _, part := range strings.Split(rule, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "COUNT") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
