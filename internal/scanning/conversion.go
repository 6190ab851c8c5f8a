package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxScanDimension is the longest side sent to an OCR provider
	MaxScanDimension = 2000
	// DefaultThumbnailSize is the bounding box of generated thumbnails
	DefaultThumbnailSize = 300
)

// transcribePrompt is the shared prompt used by the LLM providers
const transcribePrompt = `You are reading a photographed or scanned receipt. Transcribe ALL text exactly as it appears, line by line, from top to bottom.

Rules:
- Keep every line on its own line, in the original order
- Keep numbers, prices, dates and punctuation exactly as printed
- Do not summarize, translate, correct or explain anything
- Do not add headings, commentary or markdown
- If the image contains no readable text, return an empty response`

// pdfToImage renders the first page of a PDF (most receipts are single page)
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// decodeImage decodes any supported upload (JPEG, PNG, GIF, WebP, HEIC/HEIF, PDF)
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if mimeType == "application/pdf" {
		return pdfToImage(data)
	}

	// Go's standard image package doesn't support HEIC (common on iPhones)
	if isHEICFormat(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WebP, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

// prepareImageData converts an upload to a PNG no larger than MaxScanDimension
// on its long side. A PNG that is already small enough is returned unchanged.
func prepareImageData(imageData []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMimeType(contentType)

	if mimeType == "image/png" && !isHEICFormat(imageData) {
		cfg, err := png.DecodeConfig(bytes.NewReader(imageData))
		if err == nil && cfg.Width <= MaxScanDimension && cfg.Height <= MaxScanDimension {
			return imageData, nil
		}
	}

	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > MaxScanDimension || b.Dy() > MaxScanDimension {
		img = imaging.Fit(img, MaxScanDimension, MaxScanDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail renders a JPEG that fits inside a maxSize x maxSize box.
// Images already smaller than the box are not enlarged.
func Thumbnail(imageData []byte, contentType string, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}

	img, err := decodeImage(imageData, normalizeMimeType(contentType))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
