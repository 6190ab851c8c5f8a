package extraction

import "strings"

// Extractor parses OCR text with a fixed strategy. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	strategy Strategy
}

// New creates an Extractor for the given strategy
func New(strategy Strategy) Extractor {
	if strategy.ConfidenceCeiling <= 0 || strategy.ConfidenceCeiling > 100 {
		strategy.ConfidenceCeiling = 100
	}
	if len(strategy.PaymentOrder) == 0 {
		strategy.PaymentOrder = defaultPaymentOrder
	}
	return Extractor{strategy: strategy}
}

// Extract parses text with the default strategy
func Extract(rawText string) Fields {
	return New(DefaultStrategy).Extract(rawText)
}

// Strategy returns the strategy the extractor was built with
func (e Extractor) Strategy() Strategy {
	return e.strategy
}

// Extract parses raw OCR text into receipt fields. It never fails: fields that
// cannot be found are left nil and lower the confidence.
func (e Extractor) Extract(rawText string) Fields {
	lines := splitLines(rawText)
	if len(lines) == 0 {
		return Fields{}
	}

	s := e.strategy
	w := s.Weights
	var f Fields
	score := s.BaseConfidence

	if name, ok := findVendor(lines, s.Vendor); ok {
		f.VendorName = &name
		score += w.Vendor
	}

	if total, ok := totalRule.find(lines); ok {
		f.TotalAmount = &total
		score += w.Total
	} else if total, ok := fallbackTotal(lines); ok {
		f.TotalAmount = &total
		score += w.TotalFallback
	}

	if date, ok := findDate(lines); ok {
		f.ReceiptDate = &date
		score += w.Date
	}

	if tax, ok := taxRule.find(lines); ok {
		f.TaxAmount = &tax
		score += w.Tax
	}

	if tip, ok := tipRule.find(lines); ok {
		f.TipAmount = &tip
		score += w.Tip
	}

	method, matched := detectPayment(rawText, s.PaymentOrder)
	f.PaymentMethod = &method
	if matched {
		score += w.Payment
	}

	f.Confidence = clamp(score, 0, s.ConfidenceCeiling)
	return f
}

// splitLines returns the trimmed, non-empty lines of text
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
