// Package markethours models the CME Globex electronic session for
// equity index futures. Globex runs Sunday 18:00 ET through Friday
// 17:00 ET with a 60-minute maintenance break at 17:00 ET each weekday.
package markethours

import (
	"fmt"
	"time"
)

// et is the exchange time zone. CME session boundaries are defined in
// ET including DST transitions, so a fixed offset would drift twice a
// year.
var et = mustLoadET()

func mustLoadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// IANA db missing from the host; fall back to EST so session
		// gating degrades rather than panics.
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// Session boundaries in ET.
const (
	openHour  = 18 // Sunday open and weekday resume
	closeHour = 17 // daily maintenance break and Friday close
)

// ET returns the exchange time zone location.
func ET() *time.Location {
	return et
}

// IsSessionOpen reports whether t falls inside the Globex electronic
// session, excluding exchange holidays.
func IsSessionOpen(t time.Time) bool {
	lt := t.In(et)
	if IsHoliday(lt) {
		return false
	}
	h := lt.Hour()
	switch lt.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return h >= openHour
	case time.Friday:
		return h < closeHour
	default:
		// Mon-Thu: open except the 17:00-18:00 maintenance break.
		return h < closeHour || h >= openHour
	}
}

// IsMaintenanceBreak reports whether t falls in the daily 17:00-18:00
// ET halt on a weekday.
func IsMaintenanceBreak(t time.Time) bool {
	lt := t.In(et)
	wd := lt.Weekday()
	if wd == time.Saturday || wd == time.Sunday || wd == time.Friday {
		return false
	}
	return lt.Hour() == closeHour
}

// IsTradingDay reports whether the date of t (in ET) has any session
// activity: every day except Saturday and exchange holidays. Sunday
// counts because the week opens Sunday evening.
func IsTradingDay(t time.Time) bool {
	lt := t.In(et)
	return lt.Weekday() != time.Saturday && !IsHoliday(lt)
}

// NextOpen returns the next session open at or after t: 18:00 ET on
// the current day if the session has not yet resumed, otherwise the
// next eligible evening.
func NextOpen(t time.Time) time.Time {
	lt := t.In(et)

	for i := 0; i < 14; i++ {
		d := lt.AddDate(0, 0, i)
		open := time.Date(d.Year(), d.Month(), d.Day(), openHour, 0, 0, 0, et)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Friday || IsHoliday(open) {
			continue
		}
		if open.After(lt) {
			return open
		}
	}
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, openHour, 0, 0, 0, et)
}

// NextClose returns the next session halt at or after t: the 17:00 ET
// maintenance break on Mon-Thu or the weekly close on Friday.
func NextClose(t time.Time) time.Time {
	lt := t.In(et)
	for i := 0; i < 14; i++ {
		d := lt.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		close := time.Date(d.Year(), d.Month(), d.Day(), closeHour, 0, 0, 0, et)
		if close.After(lt) {
			return close
		}
	}
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, closeHour, 0, 0, 0, et)
}

// TimeUntilClose returns the duration until the next session halt, or 0
// when the session is already halted.
func TimeUntilClose(t time.Time) time.Duration {
	if !IsSessionOpen(t) {
		return 0
	}
	return NextClose(t).Sub(t)
}

// TimeUntilOpen returns the duration until the next session open.
func TimeUntilOpen(t time.Time) time.Duration {
	if IsSessionOpen(t) {
		return 0
	}
	return NextOpen(t).Sub(t)
}

// StatusString returns a human-readable session status.
func StatusString(t time.Time) string {
	if IsSessionOpen(t) {
		return fmt.Sprintf("Session Open — halts in %s", fmtDur(TimeUntilClose(t)))
	}
	if IsMaintenanceBreak(t) {
		return fmt.Sprintf("Maintenance Break — resumes in %s", fmtDur(TimeUntilOpen(t)))
	}
	next := NextOpen(t).In(et)
	return fmt.Sprintf("Session Closed — opens %s %s ET (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(NextOpen(t).Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
