package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

const isoDate = "2006-01-02"

// localDate turns a --date value into the YYYY-MM-DD calendar date it names
// in now's location. Empty or "today" is now itself; anything else not in ISO
// form goes through natural language parsing ("yesterday", "3 days ago",
// "last friday").
func localDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "", "today", "now":
		return now.Format(isoDate), nil
	}
	if t, err := time.ParseInLocation(isoDate, input, now.Location()); err == nil {
		return t.Format(isoDate), nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return "", fmt.Errorf("could not understand date %q: %w", input, err)
	}
	if result.Time.IsZero() {
		return "", fmt.Errorf("could not understand date %q", input)
	}
	return result.Time.In(now.Location()).Format(isoDate), nil
}
