package main

import (
	"fmt"
	"time"
)

// formatMillis renders a timeline offset as m:ss.mmm.
func formatMillis(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	return fmt.Sprintf("%s%d:%02d.%03d", sign, minutes, seconds, ms%1000)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
