package magister

import (
	"sort"
	"time"

	"magister-backend/lib/timezone"
)

// short tags for the portal's numeric schedule info types
var infoTypeTags = []string{"", "hw", "T!", "TT", "SO", "MO", "in", "aa"}

// InfoTypeTag maps an info type code to its short tag, "??" for
// codes this version doesn't know.
func InfoTypeTag(t int) string {
	if t >= 0 && t < len(infoTypeTags) {
		return infoTypeTags[t]
	}
	return "??"
}

func parseLocal(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, timezone.Location)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type timedAppointment struct {
	Appointment
	start time.Time
	end   time.Time
}

func (a timedAppointment) duration() time.Duration {
	d := a.end.Sub(a.start)
	if d < 0 {
		return 0
	}
	return d
}

// AppointmentsBetween returns the appointments overlapping the
// [start, end] window, with multi-day entries expanded into one
// segment per covered calendar day (same start/end time-of-day,
// marked as a daily recurrence). The result is ordered by start time
// ascending, shorter entries first on ties. Entries with unparseable
// times are skipped.
func AppointmentsBetween(afspraken []Appointment, start, end time.Time) []Appointment {
	events := appointmentsBetween(afspraken, start, end)
	out := make([]Appointment, len(events))
	for i, e := range events {
		out[i] = e.Appointment
	}
	return out
}

func appointmentsBetween(afspraken []Appointment, start, end time.Time) []timedAppointment {
	var events []timedAppointment
	for _, a := range afspraken {
		startDt, ok := parseLocal(a.Start)
		if !ok {
			continue
		}
		endDt, ok := parseLocal(a.Einde)
		if !ok {
			continue
		}
		if startDt.After(end) || endDt.Before(start) {
			continue
		}

		sameDay := startDt.Year() == endDt.Year() &&
			startDt.Month() == endDt.Month() &&
			startDt.Day() == endDt.Day()
		if sameDay {
			events = append(events, timedAppointment{Appointment: a, start: startDt, end: endDt})
			continue
		}

		// expand a multi-day entry into one segment per covered day,
		// keeping the original times-of-day
		segStart := startDt
		for !segStart.After(endDt) {
			segEnd := time.Date(
				segStart.Year(), segStart.Month(), segStart.Day(),
				endDt.Hour(), endDt.Minute(), endDt.Second(), 0,
				timezone.Location,
			)
			if !segStart.After(end) && !segEnd.Before(start) {
				segment := a
				segment.Herhaling = "FREQ=DAILY"
				segment.Start = segStart.Format("2006-01-02 15:04:05")
				segment.Einde = segEnd.Format("2006-01-02 15:04:05")
				events = append(events, timedAppointment{Appointment: segment, start: segStart, end: segEnd})
			}
			segStart = segStart.AddDate(0, 0, 1)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].start.Equal(events[j].start) {
			return events[i].start.Before(events[j].start)
		}
		return events[i].duration() < events[j].duration()
	})
	return events
}

// CurrentOrNext picks the single appointment a display surface should
// show: among appointments currently in progress, the shortest one
// (latest start breaking ties); otherwise the earliest upcoming one.
func CurrentOrNext(afspraken []Appointment, now time.Time) (Appointment, bool) {
	current := appointmentsBetween(afspraken, now, now)
	if len(current) > 0 {
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].start.After(current[j].start)
		})
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].duration() < current[j].duration()
		})
		return current[0].Appointment, true
	}

	upcoming := appointmentsBetween(afspraken, now, farFuture)
	if len(upcoming) > 0 {
		return upcoming[0].Appointment, true
	}
	return Appointment{}, false
}

var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
