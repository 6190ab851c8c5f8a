package receipt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zombor/receiptbox/internal/extraction"
)

// ErrNotFound is returned when a receipt or one of its files does not exist
var ErrNotFound = errors.New("not found")

// ValidationError reports input the client has to fix
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Receipt represents an uploaded receipt and what was read from it
type Receipt struct {
	ID                string                   `json:"id"`
	VendorName        string                   `json:"vendor_name"`
	Date              time.Time                `json:"date"`
	Amount            int                      `json:"amount"` // Amount in cents
	TaxAmount         *int                     `json:"tax_amount,omitempty"`
	TipAmount         *int                     `json:"tip_amount,omitempty"`
	PaymentMethod     extraction.PaymentMethod `json:"payment_method,omitempty"`
	Currency          string                   `json:"currency"`
	Filename          string                   `json:"filename"`
	ThumbnailFilename string                   `json:"thumbnail_filename,omitempty"`
	ContentType       string                   `json:"content_type"`
	FileSize          int64                    `json:"file_size"`

	OCREngine        string             `json:"ocr_engine,omitempty"`
	OCRRawText       string             `json:"ocr_raw_text"`
	OCRConfidence    int                `json:"ocr_confidence"`
	NeedsReview      bool               `json:"needs_review"`
	ProcessingError  string             `json:"processing_error,omitempty"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
	Strategy         string             `json:"strategy,omitempty"`
	Extracted        *extraction.Fields `json:"extracted,omitempty"` // as produced by the extractor, before any review

	CategoryID      string   `json:"category_id,omitempty"`
	BusinessPurpose string   `json:"business_purpose,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Tags            []string `json:"tags,omitempty"`

	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UploadOptions carries the user supplied metadata sent with an upload
type UploadOptions struct {
	CategoryID      string
	BusinessPurpose string
	Notes           string
	Tags            []string
	// AutoOCR runs the OCR provider on the upload; when false the receipt is stored for manual entry
	AutoOCR bool
}

// ListFilter narrows ListReceipts. Nil fields match everything.
type ListFilter struct {
	NeedsReview *bool
}

// ReviewUpdate holds the corrections made by a person. Nil fields are left unchanged.
type ReviewUpdate struct {
	VendorName      *string   `json:"vendor_name"`
	Date            *string   `json:"date"`   // YYYY-MM-DD
	Amount          *int      `json:"amount"` // cents
	TaxAmount       *int      `json:"tax_amount"`
	TipAmount       *int      `json:"tip_amount"`
	PaymentMethod   *string   `json:"payment_method"`
	CategoryID      *string   `json:"category_id"`
	BusinessPurpose *string   `json:"business_purpose"`
	Notes           *string   `json:"notes"`
	Tags            *[]string `json:"tags"`
}

// toCents converts a dollar amount to integer cents. It reports false for
// amounts that are negative, not a number or too large to store.
func toCents(dollars float64) (int, bool) {
	cents := math.Round(dollars * 100)
	if math.IsNaN(cents) || cents < 0 || cents > math.MaxInt32 {
		return 0, false
	}
	return int(cents), true
}
