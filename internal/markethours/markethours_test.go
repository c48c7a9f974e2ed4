package markethours

import (
	"testing"
	"time"
)

func etTime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, et)
}

func TestIsSessionOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday midday", etTime(2026, time.March, 9, 11, 0), true},
		{"monday maintenance break", etTime(2026, time.March, 9, 17, 30), false},
		{"monday evening resume", etTime(2026, time.March, 9, 18, 0), true},
		{"tuesday overnight", etTime(2026, time.March, 10, 2, 0), true},
		{"friday before close", etTime(2026, time.March, 13, 16, 59), true},
		{"friday after close", etTime(2026, time.March, 13, 17, 0), false},
		{"saturday", etTime(2026, time.March, 14, 12, 0), false},
		{"sunday before open", etTime(2026, time.March, 15, 17, 59), false},
		{"sunday open", etTime(2026, time.March, 15, 18, 0), true},
		{"good friday holiday", etTime(2026, time.April, 3, 11, 0), false},
		{"christmas", etTime(2026, time.December, 25, 11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionOpen(tt.t); got != tt.want {
				t.Errorf("IsSessionOpen(%s) = %v, want %v", tt.t.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestIsHoliday_PerYearTable(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"good friday 2025", etTime(2025, time.April, 18, 11, 0), true},
		{"new year 2026", etTime(2026, time.January, 1, 11, 0), true},
		{"good friday 2027", etTime(2027, time.March, 26, 11, 0), true},
		{"ordinary wednesday 2025", etTime(2025, time.April, 16, 11, 0), false},
		// Years beyond the table report no holidays until extended.
		{"new year 2030 untabled", etTime(2030, time.January, 1, 11, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHoliday(tt.t); got != tt.want {
				t.Errorf("IsHoliday(%s) = %v, want %v", tt.t.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestIsMaintenanceBreak(t *testing.T) {
	if !IsMaintenanceBreak(etTime(2026, time.March, 9, 17, 30)) {
		t.Error("monday 17:30 ET should be the maintenance break")
	}
	if IsMaintenanceBreak(etTime(2026, time.March, 13, 17, 30)) {
		t.Error("friday 17:30 ET is the weekly close, not a break")
	}
	if IsMaintenanceBreak(etTime(2026, time.March, 9, 16, 59)) {
		t.Error("16:59 ET is inside the session")
	}
}

func TestNextOpen(t *testing.T) {
	// During the Monday break the next open is the same evening.
	got := NextOpen(etTime(2026, time.March, 9, 17, 10))
	want := etTime(2026, time.March, 9, 18, 0)
	if !got.Equal(want) {
		t.Errorf("NextOpen(monday break) = %s, want %s", got, want)
	}

	// After the Friday close the next open is Sunday evening.
	got = NextOpen(etTime(2026, time.March, 13, 17, 5))
	want = etTime(2026, time.March, 15, 18, 0)
	if !got.Equal(want) {
		t.Errorf("NextOpen(friday close) = %s, want %s", got, want)
	}
}

func TestNextClose(t *testing.T) {
	got := NextClose(etTime(2026, time.March, 9, 11, 0))
	want := etTime(2026, time.March, 9, 17, 0)
	if !got.Equal(want) {
		t.Errorf("NextClose(monday midday) = %s, want %s", got, want)
	}

	// Overnight Tuesday: next halt is Tuesday 17:00.
	got = NextClose(etTime(2026, time.March, 10, 2, 0))
	want = etTime(2026, time.March, 10, 17, 0)
	if !got.Equal(want) {
		t.Errorf("NextClose(tuesday overnight) = %s, want %s", got, want)
	}
}

func TestTimeUntil(t *testing.T) {
	open := etTime(2026, time.March, 9, 16, 0)
	if d := TimeUntilClose(open); d != time.Hour {
		t.Errorf("TimeUntilClose = %s, want 1h", d)
	}
	if d := TimeUntilOpen(open); d != 0 {
		t.Errorf("TimeUntilOpen during session = %s, want 0", d)
	}

	halted := etTime(2026, time.March, 9, 17, 30)
	if d := TimeUntilOpen(halted); d != 30*time.Minute {
		t.Errorf("TimeUntilOpen during break = %s, want 30m", d)
	}
	if d := TimeUntilClose(halted); d != 0 {
		t.Errorf("TimeUntilClose during break = %s, want 0", d)
	}
}

func TestStatusString(t *testing.T) {
	if s := StatusString(etTime(2026, time.March, 9, 16, 0)); s != "Session Open — halts in 1h0m" {
		t.Errorf("open status = %q", s)
	}
	if s := StatusString(etTime(2026, time.March, 9, 17, 30)); s != "Maintenance Break — resumes in 30m" {
		t.Errorf("break status = %q", s)
	}
}
