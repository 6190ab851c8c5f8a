// Package extraction turns raw OCR text from a receipt into structured fields
// with a heuristic confidence score.
package extraction

// PaymentMethod describes how a receipt was paid
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentDigital PaymentMethod = "digital"
)

// ReviewThreshold is the confidence below which a receipt must be checked by a person
const ReviewThreshold = 70

// Fields contains the data extracted from one receipt's OCR text.
// A nil field was not found in the text.
type Fields struct {
	VendorName    *string        `json:"vendor_name,omitempty"`
	TotalAmount   *float64       `json:"total_amount,omitempty"`
	ReceiptDate   *string        `json:"receipt_date,omitempty"` // YYYY-MM-DD
	TaxAmount     *float64       `json:"tax_amount,omitempty"`
	TipAmount     *float64       `json:"tip_amount,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Confidence    int            `json:"confidence"`
}

// NeedsReview reports whether a confidence score is too low to trust the extracted fields
func NeedsReview(confidence int) bool {
	return confidence < ReviewThreshold
}
