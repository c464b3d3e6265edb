package clock

import (
	"fmt"
	"time"
)

const layout = "2006-01-02T15:04:05Z"

func Now() string {
	return time.Now().UTC().Format(layout)
}

// Format renders a time in the store's canonical UTC layout.
func Format(t time.Time) string {
	return t.UTC().Format(layout)
}

// Parse reads a timestamp written by Format. The zero time is returned for
// an empty string so optional columns round-trip cleanly.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a valid time: %s", s)
	}
	return t, nil
}
