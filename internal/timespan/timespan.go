// Package timespan renders tracked durations for display.
package timespan

import (
	"fmt"
	"time"
)

// Seconds converts a wall-clock delta to whole seconds. Fractions are
// truncated and negative deltas count as zero.
func Seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Clock formats secs as H:MM:SS. Hours are not padded, minutes and seconds
// always are.
func Clock(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// ClockDuration is Clock for a time.Duration.
func ClockDuration(d time.Duration) string {
	return Clock(Seconds(d))
}

// Hours formats secs as "Xh Ym", dropping seconds.
func Hours(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// Decimal formats secs as fractional hours, e.g. "1.5h".
func Decimal(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%.1fh", float64(secs)/3600)
}
