// Package chrono coerces the loosely ISO-shaped timestamps the portal
// emits ("2024-09-02T08:25:00.0000000Z", sometimes truncated or plain
// wrong) into display strings and real UTC datetimes.
package chrono

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"magister-backend/lib/timezone"
)

// the sentinel returned for absent timestamps
const Unknown = "?"

var fieldSplit = regexp.MustCompile(`[-T:Z.]`)

func splitFields(ts string) []int {
	parts := fieldSplit.Split(ts, -1)
	// a well-formed value ends in "Z" or a fractional-second group,
	// leaving one trailing element to discard
	parts = parts[:len(parts)-1]

	fields := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		fields[i] = n
	}
	return fields
}

// Datum renders a portal timestamp as "YYYY-MM-DD HH:MM:SS" in local
// (portal) time. Absent input yields Unknown, malformed input is
// truncated rather than rejected.
func Datum(ts string) string {
	if ts == "" {
		return Unknown
	}
	f := splitFields(ts)
	if len(f) != 7 {
		if len(ts) > 19 {
			return ts[:19]
		}
		return ts
	}
	t := time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, time.UTC)
	return t.In(timezone.Location).Format("2006-01-02 15:04:05")
}

// Ymd returns just the date part of Datum.
func Ymd(ts string) string {
	d := Datum(ts)
	if len(d) > 10 {
		return d[:10]
	}
	return d
}

// UtcTime parses a portal timestamp into a true UTC datetime.
func UtcTime(ts string) (time.Time, error) {
	f := splitFields(ts)
	if len(f) < 6 {
		return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", ts)
	}
	return time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, time.UTC), nil
}

// DeltaYmd returns today's date shifted by the given offset as
// "YYYY-MM-DD". Only the first nonzero offset applies.
func DeltaYmd(years, days, weeks int) string {
	t := timezone.Now()
	switch {
	case years != 0:
		t = t.Add(time.Duration(365*years) * 24 * time.Hour)
	case days != 0:
		t = t.Add(time.Duration(days) * 24 * time.Hour)
	case weeks != 0:
		t = t.Add(time.Duration(7*weeks) * 24 * time.Hour)
	}
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}
