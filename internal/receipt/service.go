package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/receiptbox/internal/extraction"
	"github.com/zombor/receiptbox/internal/scanning"
)

const (
	// DefaultMaxUploadSize is the largest accepted upload, in bytes
	DefaultMaxUploadSize = 10 << 20

	defaultCurrency = "USD"

	// processingFailedMessage is shown to the user when OCR could not read the upload
	processingFailedMessage = "processing failed, please enter details manually"
)

// allowedContentTypes are the upload formats the scanners can decode
var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config tunes the ingestion pipeline
type Config struct {
	Strategy      extraction.Strategy
	MaxUploadSize int64
	ThumbnailSize int
}

func (c Config) withDefaults() Config {
	if c.Strategy.Name == "" {
		c.Strategy = extraction.DefaultStrategy
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.ThumbnailSize <= 0 {
		c.ThumbnailSize = scanning.DefaultThumbnailSize
	}
	return c
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	extractor   extraction.Extractor
	config      Config
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID identifiers and the wall clock.
// A nil scanner disables OCR; receipts are then stored for manual entry.
func NewService(db DB, scanner scanning.Scanner, storage Storage, cfg Config) *Service {
	return NewServiceWithDeps(db, scanner, storage, cfg, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, cfg Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		extractor:   extraction.New(cfg.Strategy),
		config:      cfg,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameCharsPattern = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spacesPattern        = regexp.MustCompile(`\s+`)
	extensionPattern     = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = filenameCharsPattern.ReplaceAllString(base, "")
	base = strings.TrimSpace(spacesPattern.ReplaceAllString(base, " "))

	// Phones produce long names; 50 chars is plenty
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if !extensionPattern.MatchString(ext) {
		ext = ""
	}
	return base + ext
}

// normalizeContentType lowercases a MIME type and drops any parameters
func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	return contentType
}

func (s *Service) validateUpload(data []byte, contentType string) error {
	if !allowedContentTypes[contentType] {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported file type %q; supported types are JPEG, PNG, WebP, GIF, HEIC, HEIF and PDF", contentType),
		}
	}
	if len(data) == 0 {
		return &ValidationError{Field: "file", Message: "file is empty"}
	}
	if int64(len(data)) > s.config.MaxUploadSize {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file is too large; maximum size is %dMB", s.config.MaxUploadSize>>20),
		}
	}
	return nil
}

// ProcessReceipt validates and stores an upload, builds its thumbnail, runs OCR
// and field extraction, and saves the resulting receipt. An OCR failure does not
// fail the upload: the receipt is saved with zero confidence for manual entry.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string, opts UploadOptions) (*Receipt, error) {
	started := time.Now()
	contentType = normalizeContentType(contentType)
	if err := s.validateUpload(data, contentType); err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receipt := &Receipt{
		ID:              id,
		Currency:        defaultCurrency,
		Filename:        savedPath,
		ContentType:     contentType,
		FileSize:        int64(len(data)),
		Strategy:        s.extractor.Strategy().Name,
		CategoryID:      strings.TrimSpace(opts.CategoryID),
		BusinessPurpose: strings.TrimSpace(opts.BusinessPurpose),
		Notes:           strings.TrimSpace(opts.Notes),
		Tags:            cleanTags(opts.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	runOCR := opts.AutoOCR && s.scanner != nil

	var (
		g       errgroup.Group
		rawText string
		ocrErr  error
	)

	g.Go(func() error {
		thumb, err := scanning.Thumbnail(data, contentType, s.config.ThumbnailSize)
		if err != nil {
			// The receipt is still usable without a thumbnail
			slog.Warn("Failed to build thumbnail", "id", id, "content_type", contentType, "error", err)
			return nil
		}
		thumbPath, err := s.storage.Save(fmt.Sprintf("%s_thumb.jpg", id), thumb)
		if err != nil {
			return fmt.Errorf("saving thumbnail: %w", err)
		}
		receipt.ThumbnailFilename = thumbPath
		return nil
	})

	if runOCR {
		receipt.OCREngine = s.scanner.Engine()
		g.Go(func() error {
			rawText, ocrErr = s.scanner.ScanText(data, contentType)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.removeFiles(receipt)
		return nil, err
	}

	if ocrErr != nil {
		slog.Error("Failed to scan receipt",
			"id", id,
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"engine", receipt.OCREngine,
			"error", ocrErr,
		)
		rawText = ""
		receipt.ProcessingError = processingFailedMessage
	}

	if runOCR {
		fields := s.extractor.Extract(rawText)
		receipt.Extracted = &fields
		receipt.OCRRawText = rawText
		applyFields(receipt, fields)
	}
	receipt.NeedsReview = extraction.NeedsReview(receipt.OCRConfidence)

	if receipt.Date.IsZero() {
		receipt.Date = startOfDay(now)
	}

	receipt.ProcessingTimeMS = time.Since(started).Milliseconds()

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.removeFiles(receipt)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Processed receipt",
		"id", id,
		"engine", receipt.OCREngine,
		"confidence", receipt.OCRConfidence,
		"needs_review", receipt.NeedsReview,
		"duration_ms", receipt.ProcessingTimeMS,
	)
	return receipt, nil
}

// applyFields copies extracted values onto the receipt
func applyFields(r *Receipt, f extraction.Fields) {
	r.OCRConfidence = f.Confidence
	if f.VendorName != nil {
		r.VendorName = *f.VendorName
	}
	if f.TotalAmount != nil {
		if cents, ok := toCents(*f.TotalAmount); ok {
			r.Amount = cents
		}
	}
	if f.ReceiptDate != nil {
		if d, err := time.Parse(time.DateOnly, *f.ReceiptDate); err == nil {
			r.Date = d
		}
	}
	if f.TaxAmount != nil {
		if tax, ok := toCents(*f.TaxAmount); ok {
			r.TaxAmount = &tax
		}
	}
	if f.TipAmount != nil {
		if tip, ok := toCents(*f.TipAmount); ok {
			r.TipAmount = &tip
		}
	}
	if f.PaymentMethod != nil {
		r.PaymentMethod = *f.PaymentMethod
	}
}

func (s *Service) removeFiles(r *Receipt) {
	for _, path := range []string{r.Filename, r.ThumbnailFilename} {
		if path == "" {
			continue
		}
		if err := s.storage.Delete(path); err != nil {
			slog.Warn("Failed to delete file", "filename", path, "error", err)
		}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// ExtractText runs field extraction on text recognized by the client.
// An empty strategy name uses the service's configured strategy.
func (s *Service) ExtractText(rawText string, strategyName string) (extraction.Fields, error) {
	extractor := s.extractor
	if strings.TrimSpace(strategyName) != "" {
		strategy, err := extraction.StrategyByName(strategyName)
		if err != nil {
			return extraction.Fields{}, err
		}
		extractor = extraction.New(strategy)
	}
	return extractor.Extract(rawText), nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns the receipts matching filter, newest first
func (s *Service) ListReceipts(filter ListFilter) ([]*Receipt, error) {
	all, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	receipts := make([]*Receipt, 0, len(all))
	for _, r := range all {
		if filter.NeedsReview != nil && r.NeedsReview != *filter.NeedsReview {
			continue
		}
		receipts = append(receipts, r)
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		if receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].ID > receipts[j].ID
		}
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// ReviewReceipt applies a person's corrections and marks the receipt as reviewed
func (s *Service) ReviewReceipt(id string, update ReviewUpdate) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt for review: %w", err)
	}

	if err := applyReview(receipt, update); err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	receipt.NeedsReview = false
	receipt.ReviewedAt = &now
	receipt.UpdatedAt = now

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving reviewed receipt: %w", err)
	}
	return receipt, nil
}

func applyReview(r *Receipt, u ReviewUpdate) error {
	var date time.Time
	if u.Date != nil {
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(*u.Date))
		if err != nil {
			return &ValidationError{Field: "date", Message: "must be formatted as YYYY-MM-DD"}
		}
		date = d
	}
	amounts := []struct {
		field string
		value *int
	}{
		{"amount", u.Amount},
		{"tax_amount", u.TaxAmount},
		{"tip_amount", u.TipAmount},
	}
	for _, a := range amounts {
		if a.value != nil && *a.value < 0 {
			return &ValidationError{Field: a.field, Message: "must not be negative"}
		}
	}
	var method extraction.PaymentMethod
	if u.PaymentMethod != nil {
		method = extraction.PaymentMethod(strings.ToLower(strings.TrimSpace(*u.PaymentMethod)))
		switch method {
		case extraction.PaymentCash, extraction.PaymentCard, extraction.PaymentDigital:
		default:
			return &ValidationError{Field: "payment_method", Message: "must be one of cash, card or digital"}
		}
	}

	// Validated; nothing below can fail
	if u.Date != nil {
		r.Date = date
	}
	if u.PaymentMethod != nil {
		r.PaymentMethod = method
	}
	if u.VendorName != nil {
		r.VendorName = strings.TrimSpace(*u.VendorName)
	}
	if u.Amount != nil {
		r.Amount = *u.Amount
	}
	if u.TaxAmount != nil {
		tax := *u.TaxAmount
		r.TaxAmount = &tax
	}
	if u.TipAmount != nil {
		tip := *u.TipAmount
		r.TipAmount = &tip
	}
	if u.CategoryID != nil {
		r.CategoryID = strings.TrimSpace(*u.CategoryID)
	}
	if u.BusinessPurpose != nil {
		r.BusinessPurpose = strings.TrimSpace(*u.BusinessPurpose)
	}
	if u.Notes != nil {
		r.Notes = strings.TrimSpace(*u.Notes)
	}
	if u.Tags != nil {
		r.Tags = cleanTags(*u.Tags)
	}
	return nil
}

// DeleteReceipt removes a receipt, its file and its thumbnail
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	// Missing files should not keep the record alive
	s.removeFiles(receipt)

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the original upload for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// GetReceiptThumbnail retrieves the JPEG thumbnail for a receipt
func (s *Service) GetReceiptThumbnail(id string) ([]byte, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.ThumbnailFilename == "" {
		return nil, fmt.Errorf("receipt %s has no thumbnail: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(receipt.ThumbnailFilename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt thumbnail: %w", err)
	}
	return data, nil
}

// isValidation reports whether err is a *ValidationError
func isValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
