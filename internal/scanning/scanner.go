package scanning

// Engine names recorded on each receipt
const (
	EngineVision = "google_vision"
	EngineGemini = "gemini"
	EngineOllama = "ollama"
)

// Scanner defines the interface for OCR providers
type Scanner interface {
	// ScanText reads all text from a receipt image/PDF. An image without any
	// text yields an empty string and no error.
	ScanText(imageData []byte, contentType string) (string, error)
	// Engine names the provider, e.g. "google_vision"
	Engine() string
	// Close closes the scanner and releases resources
	Close() error
}
