package magister

import (
	"testing"
	"time"

	"magister-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestInfoTypeTag(t *testing.T) {
	require.Equal(t, "", InfoTypeTag(0))
	require.Equal(t, "hw", InfoTypeTag(1))
	require.Equal(t, "aa", InfoTypeTag(7))
	require.Equal(t, "??", InfoTypeTag(8))
	require.Equal(t, "??", InfoTypeTag(-1))
}

func localTime(day, hour, min int) time.Time {
	return time.Date(2024, 9, day, hour, min, 0, 0, timezone.Location)
}

func appt(vak, start, einde string) Appointment {
	return Appointment{Vak: vak, Start: start, Einde: einde}
}

func TestAppointmentsBetween(t *testing.T) {
	afspraken := []Appointment{
		appt("ne", "2024-09-02 09:00:00", "2024-09-02 09:45:00"),
		appt("wi", "2024-09-02 10:00:00", "2024-09-02 10:45:00"),
		appt("en", "2024-09-05 09:00:00", "2024-09-05 09:45:00"),
		appt("??", "?", "?"),
	}

	got := AppointmentsBetween(afspraken, localTime(2, 0, 0), localTime(2, 23, 59))
	require.Len(t, got, 2)
	require.Equal(t, "ne", got[0].Vak)
	require.Equal(t, "wi", got[1].Vak)
	require.Empty(t, got[0].Herhaling)

	got = AppointmentsBetween(afspraken, localTime(3, 0, 0), localTime(4, 0, 0))
	require.Empty(t, got)
}

func TestAppointmentsBetweenExpandsMultiDay(t *testing.T) {
	afspraken := []Appointment{
		appt("kamp", "2024-09-02 22:00:00", "2024-09-04 23:15:00"),
	}

	got := AppointmentsBetween(afspraken, localTime(1, 0, 0), localTime(6, 0, 0))
	require.Len(t, got, 3)
	for i, day := range []int{2, 3, 4} {
		require.Equal(t, localTime(day, 22, 0).Format("2006-01-02 15:04:05"), got[i].Start)
		require.Equal(t, localTime(day, 23, 15).Format("2006-01-02 15:04:05"), got[i].Einde)
		require.Equal(t, "FREQ=DAILY", got[i].Herhaling)
		require.Equal(t, "kamp", got[i].Vak)
	}

	// only the segments overlapping the window survive
	got = AppointmentsBetween(afspraken, localTime(3, 0, 0), localTime(3, 23, 59))
	require.Len(t, got, 1)
	require.Equal(t, localTime(3, 22, 0).Format("2006-01-02 15:04:05"), got[0].Start)
}

func TestAppointmentsBetweenOrdering(t *testing.T) {
	afspraken := []Appointment{
		appt("lang", "2024-09-02 09:00:00", "2024-09-02 11:00:00"),
		appt("vroeg", "2024-09-02 08:00:00", "2024-09-02 08:45:00"),
		appt("kort", "2024-09-02 09:00:00", "2024-09-02 09:30:00"),
	}

	got := AppointmentsBetween(afspraken, localTime(2, 0, 0), localTime(2, 23, 59))
	require.Len(t, got, 3)
	require.Equal(t, "vroeg", got[0].Vak)
	// equal starts order by duration, shortest first
	require.Equal(t, "kort", got[1].Vak)
	require.Equal(t, "lang", got[2].Vak)
}

func TestCurrentOrNext(t *testing.T) {
	afspraken := []Appointment{
		appt("lang", "2024-09-02 10:00:00", "2024-09-02 12:00:00"),
		appt("kort", "2024-09-02 10:15:00", "2024-09-02 11:00:00"),
		appt("middel", "2024-09-02 09:00:00", "2024-09-02 10:45:00"),
		appt("later", "2024-09-02 13:00:00", "2024-09-02 14:00:00"),
	}

	// in progress: the shortest running appointment wins
	got, ok := CurrentOrNext(afspraken, localTime(2, 10, 30))
	require.True(t, ok)
	require.Equal(t, "kort", got.Vak)

	// nothing in progress: the earliest upcoming one
	got, ok = CurrentOrNext(afspraken, localTime(2, 8, 0))
	require.True(t, ok)
	require.Equal(t, "middel", got.Vak)

	_, ok = CurrentOrNext(afspraken, localTime(2, 15, 0))
	require.False(t, ok)

	_, ok = CurrentOrNext(nil, localTime(2, 10, 0))
	require.False(t, ok)
}

func TestCurrentOrNextPrefersLatestStartOnEqualDuration(t *testing.T) {
	afspraken := []Appointment{
		appt("eerste", "2024-09-02 10:00:00", "2024-09-02 11:00:00"),
		appt("tweede", "2024-09-02 10:20:00", "2024-09-02 11:20:00"),
	}

	got, ok := CurrentOrNext(afspraken, localTime(2, 10, 30))
	require.True(t, ok)
	require.Equal(t, "tweede", got.Vak)
}
