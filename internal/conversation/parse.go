package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// weekday names accepted from chat input, Monday-based to match the numeric
// form users type (0=Monday .. 6=Sunday).
var weekdayNames = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// ParseWeekday parses a report weekday from either its numeric form ("0".."6",
// 0=Monday) or an English day name ("friday", "Fri").
func ParseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty weekday")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d not in [0,6]", n)
		}
		return n, nil
	}
	for name, n := range weekdayNames {
		if name == s || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
