package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: now.Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "expires right now",
			expiresAt: now,
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: now.Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: now.Add(-1 * time.Hour),
			}
			if result := session.IsExpired(now); result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestKidIsOwnedBy(t *testing.T) {
	kid := &Kid{ID: 5, UserID: 1, Name: "Asha"}
	if !kid.IsOwnedBy(1) {
		t.Error("kid should be owned by user 1")
	}
	if kid.IsOwnedBy(2) {
		t.Error("kid should not be owned by user 2")
	}
	var missing *Kid
	if missing.IsOwnedBy(1) {
		t.Error("nil kid should not be owned by anyone")
	}
}

func TestDateArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Date
		want Date
	}{
		{"add one day", NewDate(2024, time.March, 10).AddDays(1), NewDate(2024, time.March, 11)},
		{"cross month", NewDate(2024, time.March, 31).AddDays(1), NewDate(2024, time.April, 1)},
		{"leap day", NewDate(2024, time.February, 28).AddDays(1), NewDate(2024, time.February, 29)},
		{"cross year", NewDate(2023, time.December, 31).AddDays(1), NewDate(2024, time.January, 1)},
		{"normalised overflow", NewDate(2023, time.February, 29), NewDate(2023, time.March, 1)},
		{"month start", NewDate(2024, time.March, 15).MonthStart(), NewDate(2024, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.March, 31},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestDateOrderingAndWeekday(t *testing.T) {
	a := NewDate(2024, time.March, 10)
	b := NewDate(2024, time.March, 11)

	if !a.Before(b) || a.After(b) {
		t.Errorf("%v should be before %v", a, b)
	}
	if a.Before(a) || a.After(a) {
		t.Errorf("%v should not be before or after itself", a)
	}
	if a.Weekday() != time.Sunday {
		t.Errorf("%v weekday = %v, want Sunday", a, a.Weekday())
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-03-05"` {
		t.Errorf("Marshal() = %s, want \"2024-03-05\"", data)
	}

	var parsed Date
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if parsed != NewDate(2024, time.March, 15) {
		t.Errorf("Unmarshal() = %v", parsed)
	}

	for _, bad := range []string{`"2024-13-01"`, `"15/03/2024"`, `20240315`} {
		if err := json.Unmarshal([]byte(bad), &parsed); err == nil {
			t.Errorf("Unmarshal(%s) should fail", bad)
		}
	}
}

func TestDateScan(t *testing.T) {
	want := NewDate(2024, time.March, 15)
	tests := []struct {
		name string
		src  interface{}
	}{
		{"time", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"string", "2024-03-15"},
		{"bytes", []byte("2024-03-15")},
		{"timestamp string", "2024-03-15T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if d != want {
				t.Errorf("Scan() = %v, want %v", d, want)
			}
		})
	}

	var d Date
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestMenuItemServesOn(t *testing.T) {
	item := MonthlyMenuItem{Month: FirstOfMonth(2024, time.March), IsAvailable: true}

	if !item.ServesOn(NewDate(2024, time.March, 15)) {
		t.Error("item should serve on a date in its month")
	}
	if item.ServesOn(NewDate(2024, time.April, 1)) {
		t.Error("item should not serve outside its month")
	}
	item.IsAvailable = false
	if item.ServesOn(NewDate(2024, time.March, 15)) {
		t.Error("unavailable item should not serve")
	}
}
