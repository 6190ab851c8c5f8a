package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	retry  RetryConfig
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string, retry RetryConfig) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Transcription should be deterministic
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
		retry:  retry.withDefaults(),
	}, nil
}

// ScanText asks the model to transcribe the receipt verbatim
func (g *Gemini) ScanText(imageData []byte, contentType string) (string, error) {
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not the full MIME type.
	// After prepareImageData, everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(transcribePrompt),
	}

	var resp *genai.GenerateContentResponse
	err = withRetry(context.Background(), g.retry, EngineGemini, func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.model.GenerateContent(ctx, parts...)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return cleanTranscript(responseText.String()), nil
}

// Engine returns the provider name
func (g *Gemini) Engine() string {
	return EngineGemini
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
