package raster

import (
	"time"
)

// SolarDay returns the calendar day of t in local solar time at lon.
// The offset is lon/15 hours, 240 seconds per degree.
func SolarDay(t time.Time, lon float64) time.Time {
	local := t.UTC().Add(time.Duration(lon*240) * time.Second)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
