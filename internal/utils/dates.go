package utils

import "time"

// ISODate is the canonical date layout used across the databases.
const ISODate = "2006-01-02"

// UnixToDate converts a Unix timestamp to a YYYY-MM-DD date string (UTC)
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(ISODate)
}
