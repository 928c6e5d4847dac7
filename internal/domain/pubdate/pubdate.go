// Package pubdate parses free-form feed publication dates and derives the
// age-based signals shared by score fusion and feature extraction.
package pubdate

import (
	"strings"
	"time"
)

// StaleDays is the sentinel age for unparsable or absent dates.
const StaleDays = 999

// Feed dates arrive in RFC 2822 variants; everything else falls back to RFC 3339.
var feedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Parse attempts to parse a publication date. ok is false when no known
// layout matches; callers treat that as maximally stale, never as an error.
func Parse(published string) (t time.Time, ok bool) {
	published = strings.TrimSpace(published)
	if published == "" {
		return time.Time{}, false
	}

	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, published); err == nil {
			return t, true
		}
	}

	if t, err := time.Parse(time.RFC3339, strings.Replace(published, "Z", "+00:00", 1)); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", published); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Boost returns the recency multiplier for a raw published date.
// Monotonically non-increasing in age; parse failure means no boost.
func Boost(published string, now time.Time) float64 {
	t, ok := Parse(published)
	if !ok {
		return 1.0
	}

	ageHours := now.Sub(t).Hours()
	switch {
	case ageHours < 24:
		return 1.30
	case ageHours < 72:
		return 1.20
	case ageHours < 168:
		return 1.10
	case ageHours < 720:
		return 1.05
	default:
		return 1.00
	}
}

// DaysAgo returns the document age in whole days, or StaleDays when the date
// cannot be parsed. Future-dated documents count as zero days old.
func DaysAgo(published string, now time.Time) float64 {
	t, ok := Parse(published)
	if !ok {
		return StaleDays
	}

	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return float64(days)
}
