package scanning

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// Vision implements the Scanner interface using Google Cloud Vision
// document text detection
type Vision struct {
	svc   *vision.Service
	retry RetryConfig
}

// NewVision creates a new Vision Scanner instance authenticated with an API key.
// Extra client options (e.g. option.WithEndpoint) are passed to the API client.
func NewVision(apiKey string, retry RetryConfig, opts ...option.ClientOption) (*Vision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := vision.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Vision{
		svc:   svc,
		retry: retry.withDefaults(),
	}, nil
}

// ScanText sends the receipt to the images:annotate endpoint and returns the full text
func (v *Vision) ScanText(imageData []byte, contentType string) (string, error) {
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{
				Content: base64.StdEncoding.EncodeToString(finalImageData),
			},
			Features: []*vision.Feature{{
				Type:       "DOCUMENT_TEXT_DETECTION",
				MaxResults: 1,
			}},
			ImageContext: &vision.ImageContext{
				LanguageHints: []string{"en"},
			},
		}},
	}

	var resp *vision.BatchAnnotateImagesResponse
	err = withRetry(context.Background(), v.retry, EngineVision, func(ctx context.Context) error {
		var callErr error
		resp, callErr = v.svc.Images.Annotate(req).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("annotating image: %w", err)
	}

	if len(resp.Responses) == 0 {
		return "", nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision API error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation != nil {
		return r.FullTextAnnotation.Text, nil
	}
	// Older responses only carry the plain text annotations; the first one is the whole page
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}

// Engine returns the provider name
func (v *Vision) Engine() string {
	return EngineVision
}

// Close is a no-op; the REST client holds no resources
func (v *Vision) Close() error {
	return nil
}
