package deadlines

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = "january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec"

var (
	dayMonthYearRe = regexp.MustCompile(`(\d{1,2})\s+(` + monthNames + `)\s+(\d{4})`)
	monthDayYearRe = regexp.MustCompile(`(` + monthNames + `)\s+(\d{1,2}),?\s+(\d{4})`)
	numericDateRe  = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	isoDateRe      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	dayMonthRe     = regexp.MustCompile(`(\d{1,2})\s+(` + monthNames + `)`)
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// parseDeadline extracts a date from the free-form deadline strings job
// listings carry. It tries, in order: "31 December 2024", "December 31,
// 2024", day-first "31/12/2024", ISO "2024-12-31", and bare "31
// December" with the year inferred from now, rolling to next year when
// the date is more than 30 days gone.
func parseDeadline(raw string, now time.Time) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	lowered := strings.ToLower(trimmed)

	if m := dayMonthYearRe.FindStringSubmatch(lowered); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, months[m[2]], day); ok {
			return t, true
		}
	}

	if m := monthDayYearRe.FindStringSubmatch(lowered); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, months[m[1]], day); ok {
			return t, true
		}
	}

	if m := numericDateRe.FindStringSubmatch(trimmed); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, time.Month(month), day); ok {
			return t, true
		}
	}

	if m := isoDateRe.FindStringSubmatch(trimmed); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(year, time.Month(month), day); ok {
			return t, true
		}
	}

	if m := dayMonthRe.FindStringSubmatch(lowered); m != nil {
		day, _ := strconv.Atoi(m[1])
		if t, ok := makeDate(now.Year(), months[m[2]], day); ok {
			if t.Before(now.AddDate(0, 0, -30)) {
				return makeDate(now.Year()+1, months[m[2]], day)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// makeDate rejects impossible dates instead of letting time.Date
// normalize them into the next month.
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
