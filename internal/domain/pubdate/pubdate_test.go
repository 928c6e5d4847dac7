package pubdate

import (
	"testing"
	"time"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"rfc1123z", "Tue, 10 Jun 2025 09:00:00 +0300", true},
		{"rfc1123", "Tue, 10 Jun 2025 09:00:00 MSK", true},
		{"single digit day", "Mon, 2 Jun 2025 09:00:00 +0300", true},
		{"rfc3339", "2025-06-10T09:00:00+03:00", true},
		{"rfc3339 zulu", "2025-06-10T06:00:00Z", true},
		{"sql style", "2025-06-10 09:00:00", true},
		{"empty", "", false},
		{"garbage", "вчера вечером", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Parse(tt.in); ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
		})
	}
}

func TestBoostBuckets(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{6 * time.Hour, 1.30},
		{23 * time.Hour, 1.30},
		{48 * time.Hour, 1.20},
		{100 * time.Hour, 1.10},
		{300 * time.Hour, 1.05},
		{1000 * time.Hour, 1.00},
	}
	for _, tt := range tests {
		published := now.Add(-tt.age).Format(time.RFC1123Z)
		if got := Boost(published, now); got != tt.want {
			t.Fatalf("Boost(age=%v) = %f, want %f", tt.age, got, tt.want)
		}
	}
}

func TestBoostMonotone(t *testing.T) {
	prev := 2.0
	for age := time.Hour; age < 2000*time.Hour; age += 13 * time.Hour {
		published := now.Add(-age).Format(time.RFC1123Z)
		got := Boost(published, now)
		if got > prev {
			t.Fatalf("boost increased with age at %v: %f > %f", age, got, prev)
		}
		prev = got
	}
}

func TestBoostUnparsable(t *testing.T) {
	if got := Boost("not a date", now); got != 1.0 {
		t.Fatalf("Boost(unparsable) = %f, want neutral 1.0", got)
	}
}

func TestDaysAgo(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"fresh", now.Add(-6 * time.Hour).Format(time.RFC1123Z), 0},
		{"three days", now.Add(-75 * time.Hour).Format(time.RFC1123Z), 3},
		{"future", now.Add(48 * time.Hour).Format(time.RFC1123Z), 0},
		{"unparsable", "скоро", StaleDays},
		{"empty", "", StaleDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysAgo(tt.in, now); got != tt.want {
				t.Fatalf("DaysAgo(%q) = %f, want %f", tt.in, got, tt.want)
			}
		})
	}
}
