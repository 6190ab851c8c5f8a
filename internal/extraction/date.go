package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// P1/P2/P3 with a 2-4 digit year; month-first unless P1 > 12
	numericDatePattern = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})\b`)
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})\b`)
	monthDatePattern   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})\b`)
)

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

type dateFormat struct {
	pattern *regexp.Regexp
	resolve func(m []string) (year, month, day int, ok bool)
}

var dateFormats = []dateFormat{
	{pattern: numericDatePattern, resolve: resolveNumericDate},
	{pattern: isoDatePattern, resolve: resolveISODate},
	{pattern: monthDatePattern, resolve: resolveMonthDate},
}

// findDate returns the first calendar-valid date in the text as YYYY-MM-DD
func findDate(lines []string) (string, bool) {
	for _, line := range lines {
		for _, f := range dateFormats {
			for _, m := range f.pattern.FindAllStringSubmatch(line, -1) {
				year, month, day, ok := f.resolve(m)
				if !ok {
					continue
				}
				if date, ok := normalizeDate(year, month, day); ok {
					return date, true
				}
			}
		}
	}
	return "", false
}

func resolveNumericDate(m []string) (int, int, int, bool) {
	p1, _ := strconv.Atoi(m[1])
	p2, _ := strconv.Atoi(m[2])
	year, ok := expandYear(m[3])
	if !ok {
		return 0, 0, 0, false
	}
	month, day := p1, p2
	if p1 > 12 {
		month, day = p2, p1
	}
	return year, month, day, true
}

func resolveISODate(m []string) (int, int, int, bool) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return year, month, day, true
}

func resolveMonthDate(m []string) (int, int, int, bool) {
	month, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return 0, 0, 0, false
	}
	day, _ := strconv.Atoi(m[2])
	year, ok := expandYear(m[3])
	if !ok {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// expandYear accepts 2 or 4 digit years; 2 digit years below 50 are 20xx, the rest 19xx
func expandYear(s string) (int, bool) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	switch len(s) {
	case 2:
		if year < 50 {
			return 2000 + year, true
		}
		return 1900 + year, true
	case 4:
		return year, true
	default:
		return 0, false
	}
}

// normalizeDate rejects out-of-range and non-calendar dates such as 02/30
func normalizeDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// stripDates blanks out date tokens so their parts are not read as amounts
func stripDates(line string) string {
	for _, f := range dateFormats {
		line = f.pattern.ReplaceAllString(line, " ")
	}
	return line
}
