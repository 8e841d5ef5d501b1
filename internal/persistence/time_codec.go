package persistence

import "time"

// Journal timestamp columns store unix milliseconds, with 0 meaning unknown:
// an unfinished speedtest has no finished_at yet, and zero-value times must
// survive a round trip as zero values.

func journalMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func journalTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
