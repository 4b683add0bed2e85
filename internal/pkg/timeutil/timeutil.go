package timeutil

import "time"

// NowISO returns the current UTC time as an RFC 3339 instant. Share
// timestamps are stored in this form.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
