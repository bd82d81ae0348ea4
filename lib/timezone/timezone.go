package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		panic(err)
	}
}

// force the timezone to be the portal's timezone because schedule
// windows and "today" counts are computed from
// <time.Time>.Year()/Month()/Day()/... and the host machine may
// end up in a different zone
func Now() time.Time {
	return time.Now().In(Location)
}
