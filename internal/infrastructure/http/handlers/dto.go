package handlers

import "time"

// Timestamps cross the wire as epoch milliseconds, matching what the bridge
// and the UI exchange.

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timeToMs(t time.Time) int64 {
	return t.UnixMilli()
}

func timePtrToMs(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
