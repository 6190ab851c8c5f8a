package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	vendorScanLines = 5
	maxVendorLength = 100
)

var (
	vendorSkipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`^[^\p{L}\p{N}]+$`),
		regexp.MustCompile(`(?i)\b(?:receipt|invoice|order|date|time)\b`),
		regexp.MustCompile(`^\$?\d+(?:[.,]\d+)*$`),
		regexp.MustCompile(`(?i)^(?:mon|tues?|wed|thu(?:rs)?|fri|sat|sun)(?:day|nesday|sday|urday)?\b`),
	}
	letterPattern      = regexp.MustCompile(`\p{L}`)
	vendorStripPattern = regexp.MustCompile(`[^\p{L}\p{N}\s&'-]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// findVendor picks the vendor name from the first lines of the receipt
func findVendor(lines []string, heuristic VendorHeuristic) (string, bool) {
	if len(lines) > vendorScanLines {
		lines = lines[:vendorScanLines]
	}
	for _, line := range lines {
		var name string
		switch heuristic {
		case VendorSimple:
			if !isSimpleVendorLine(line) {
				continue
			}
			name = truncateRunes(whitespacePattern.ReplaceAllString(line, " "), maxVendorLength)
		default:
			if !isLikelyVendorLine(line) {
				continue
			}
			name = cleanVendorName(line)
		}
		if name != "" {
			return name, true
		}
	}
	return "", false
}

func isLikelyVendorLine(line string) bool {
	for _, p := range vendorSkipPatterns {
		if p.MatchString(line) {
			return false
		}
	}
	n := utf8.RuneCountInString(line)
	return n >= 3 && n <= 50 &&
		letterPattern.MatchString(line) &&
		!strings.Contains(line, "...")
}

func isSimpleVendorLine(line string) bool {
	if utf8.RuneCountInString(line) <= 2 {
		return false
	}
	if line[0] >= '0' && line[0] <= '9' {
		return false
	}
	return !strings.Contains(line, "$") && !numericDatePattern.MatchString(line)
}

func cleanVendorName(name string) string {
	name = vendorStripPattern.ReplaceAllString(name, "")
	name = whitespacePattern.ReplaceAllString(name, " ")
	return truncateRunes(strings.TrimSpace(name), maxVendorLength)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
