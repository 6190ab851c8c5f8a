package extraction

import "regexp"

var paymentPatterns = map[PaymentMethod]*regexp.Regexp{
	PaymentCard:    regexp.MustCompile(`(?i)\b(?:card|visa|mastercard|master\s+card|amex|american\s+express|discover|debit)\b|(?:\*{2,}|[xX]{4,}|#{2,})\s*\d{4}\b`),
	PaymentCash:    regexp.MustCompile(`(?i)\bcash\b`),
	PaymentDigital: regexp.MustCompile(`(?i)\b(?:paypal|venmo|zelle|apple\s*pay|google\s*pay)\b`),
}

var defaultPaymentOrder = []PaymentMethod{PaymentCard, PaymentCash, PaymentDigital}

// detectPayment returns the first method in order whose keywords appear in the
// text. Card is assumed when nothing matches; matched reports whether a keyword
// was actually seen.
func detectPayment(text string, order []PaymentMethod) (method PaymentMethod, matched bool) {
	for _, m := range order {
		if p, ok := paymentPatterns[m]; ok && p.MatchString(text) {
			return m, true
		}
	}
	return PaymentCard, false
}
