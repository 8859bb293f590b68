package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps running totals across every query of a batch
type StatusTracker struct {
	TotalDownloaded int
	TotalFailed     int
	QueryDownloaded int
	QueryLimit      int
	StartTime       time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// StartQuery resets the per-query counters
func (st *StatusTracker) StartQuery(limit int) {
	st.QueryDownloaded = 0
	st.QueryLimit = limit
}

// IncrementDownloaded increments both total and query counters
func (st *StatusTracker) IncrementDownloaded() {
	st.TotalDownloaded++
	st.QueryDownloaded++
}

// IncrementFailed counts a failed attempt
func (st *StatusTracker) IncrementFailed() {
	st.TotalFailed++
}

// GetQueryProgress returns a formatted progress bar for the current query
func (st *StatusTracker) GetQueryProgress() string {
	const width = 20
	filled := 0
	if st.QueryLimit > 0 {
		filled = st.QueryDownloaded * width / st.QueryLimit
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.QueryDownloaded, st.QueryLimit)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average download rate (items per minute)
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalDownloaded) / elapsed
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
