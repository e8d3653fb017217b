// Package clockface formats wall-clock triples for the matrix display.
package clockface

import "fmt"

// Options select the display variant of a formatted time.
type Options struct {
	// TwelveHour converts to 12-hour display (0 shows as 12).
	TwelveHour bool
	// ShowSeconds appends ":SS".
	ShowSeconds bool
	// DST adds one hour before formatting, wrapping 24 back to 0.
	DST bool
}

// Format renders h/m/s as "HH:MM:SS" (8 chars) or "HH:MM" (5 chars).
// A zero tens digit in the hour renders as a space, not a zero.
func Format(h, m, s int, o Options) string {
	h = ((h % 24) + 24) % 24
	m = ((m % 60) + 60) % 60
	s = ((s % 60) + 60) % 60

	if o.DST {
		h = (h + 1) % 24
	}
	if o.TwelveHour {
		switch {
		case h == 0:
			h = 12
		case h > 12:
			h -= 12
		}
	}
	if o.ShowSeconds {
		return fmt.Sprintf("%2d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%2d:%02d", h, m)
}
