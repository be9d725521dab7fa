package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateLayouts are tried in order. Day-first layouts come before year-first ones;
// a year-first string never matches a day-first layout because the first field
// would overflow the day.
var dateLayouts = func() []string {
	var out []string
	for _, sep := range []string{"-", "/", "."} {
		out = append(out,
			"2"+sep+"1"+sep+"2006",
			"2"+sep+"1"+sep+"06",
			"2006"+sep+"1"+sep+"2",
		)
	}
	return out
}()

// ParseDate parses a calendar date leniently.
//
// Accepted forms include "05-03-2025", "5/3/25", "05.03.2025" (day-month-year)
// and "2025-03-05", "2025/3/5" (year-month-day). Anything else is handed to
// dateparse with day-first preference. The result is normalized to midnight UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on error. Intended for tests and literals.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}
