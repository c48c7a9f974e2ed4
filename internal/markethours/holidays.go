package markethours

import "time"

// CME full-closure holidays, per year. Globex equity index products
// also have early-close days (halt at 13:00 ET) which this list does
// not model; on those dates the engine simply sees no bars after the
// halt. Source: CME Group holiday calendars.
var cmeHolidays = map[int][]struct {
	month time.Month
	day   int
}{
	2025: {
		{time.January, 1},   // New Year's Day
		{time.April, 18},    // Good Friday
		{time.December, 25}, // Christmas
	},
	2026: {
		{time.January, 1},   // New Year's Day
		{time.April, 3},     // Good Friday
		{time.December, 25}, // Christmas
	},
	2027: {
		{time.January, 1},  // New Year's Day
		{time.March, 26},   // Good Friday
		// Christmas 2027 falls on a Saturday, already closed.
	},
}

var holidaySet map[string]bool

func init() {
	holidaySet = make(map[string]bool)
	for year, days := range cmeHolidays {
		for _, h := range days {
			holidaySet[dateKey(year, h.month, h.day)] = true
		}
	}
}

// IsHoliday reports whether the date of t (in ET) is a CME full
// closure. Years missing from cmeHolidays report no holidays; the
// table must be extended when rolling into a new year.
func IsHoliday(t time.Time) bool {
	lt := t.In(et)
	return holidaySet[dateKey(lt.Year(), lt.Month(), lt.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, et).Format("2006-01-02")
}
