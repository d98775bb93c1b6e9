package playlist

import (
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// IsActive reports whether now falls inside the rule's date and time
// window, both bounds inclusive. It fails closed: a rule missing any of
// the four fields, or carrying one that doesn't parse, is never shown.
//
// The time window does not wrap across midnight. An end time earlier
// than its start time yields a window that is false all day.
func IsActive(r Rule, now time.Time) bool {
	if r.StartDate == "" || r.EndDate == "" || r.StartTime == "" || r.EndTime == "" {
		return false
	}

	startDate, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return false
	}
	endDate, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if today.Before(startDate) || today.After(endDate) {
		return false
	}

	startTime, err := time.Parse(timeLayout, r.StartTime)
	if err != nil {
		return false
	}
	endTime, err := time.Parse(timeLayout, r.EndTime)
	if err != nil {
		return false
	}

	secs := now.Hour()*3600 + now.Minute()*60 + now.Second()
	startSecs := startTime.Hour()*3600 + startTime.Minute()*60 + startTime.Second()
	endSecs := endTime.Hour()*3600 + endTime.Minute()*60 + endTime.Second()

	return startSecs <= secs && secs <= endSecs
}

// Zone resolves the fixed kiosk time zone so window checks behave the
// same regardless of where a unit is deployed.
func Zone(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}
