package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// maxAmount is the largest dollar figure accepted from receipt text. Longer
// digit runs are card numbers, barcodes or OCR noise.
const maxAmount = 1_000_000

// numberExpr captures a money amount with optional thousands separators
const numberExpr = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

var (
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:sub\s*total|total|amount|sum|balance)(?:\s+(?:due|paid))?\s*:?\s*\$?\s*` + numberExpr),
		regexp.MustCompile(`(?i)\$\s*` + numberExpr + `\s*(?:total|amount|sum)\b`),
		regexp.MustCompile(`(?i)\b(\d+\.\d{2})\s*(?:total|amount|sum)\b`),
	}
	taxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:sales\s+tax|tax|hst|gst|pst|vat)\b\s*(?:\(?\d+(?:\.\d+)?\s*%\)?)?\s*:?\s*\$?\s*` + numberExpr),
	}
	tipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:tip|gratuity)\b\s*:?\s*\$?\s*` + numberExpr),
	}

	// moneyPattern matches any decimal money-shaped token, used when no
	// keyword-anchored total exists.
	moneyPattern = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})+\.\d{1,2}|\d+\.\d{1,2})\b`)
)

type pickPolicy int

const (
	pickFirst pickPolicy = iota
	pickLargest
)

// amountRule is an ordered pattern list plus the policy for choosing among matches
type amountRule struct {
	patterns    []*regexp.Regexp
	pick        pickPolicy
	requirePlus bool // reject zero amounts
}

var (
	totalRule = amountRule{patterns: totalPatterns, pick: pickLargest, requirePlus: true}
	taxRule   = amountRule{patterns: taxPatterns, pick: pickFirst}
	tipRule   = amountRule{patterns: tipPatterns, pick: pickFirst}
)

// find scans lines in order and returns the amount chosen by the rule's policy
func (r amountRule) find(lines []string) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, line := range lines {
		for _, pattern := range r.patterns {
			for _, m := range pattern.FindAllStringSubmatchIndex(line, -1) {
				if followedByPercent(line, m[3]) {
					continue
				}
				amount, ok := parseAmount(line[m[2]:m[3]])
				if !ok || (r.requirePlus && amount <= 0) {
					continue
				}
				if r.pick == pickFirst {
					return amount, true
				}
				if !found || amount > best {
					best = amount
					found = true
				}
			}
		}
	}
	return best, found
}

// fallbackTotal returns the largest money-shaped token in the text, ignoring dates
func fallbackTotal(lines []string) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, line := range lines {
		line = stripDates(line)
		for _, m := range moneyPattern.FindAllStringSubmatchIndex(line, -1) {
			if followedByPercent(line, m[3]) {
				continue
			}
			amount, ok := parseAmount(line[m[2]:m[3]])
			if !ok || amount <= 0 {
				continue
			}
			if !found || amount > best {
				best = amount
				found = true
			}
		}
	}
	return best, found
}

// followedByPercent reports whether the number ending at end is a rate like "8.25%"
func followedByPercent(line string, end int) bool {
	rest := strings.TrimLeft(line[end:], " \t")
	return strings.HasPrefix(rest, "%")
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 || v > maxAmount {
		return 0, false
	}
	return v, true
}
