package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// DefaultVertexModel is used when no Vertex model name is configured
const DefaultVertexModel = "gemini-1.5-pro"

// Vertex implements the Backend interface using Gemini models hosted on Vertex AI.
// Credentials come from Application Default Credentials.
type Vertex struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	timeout   time.Duration
}

// NewVertex creates a new Vertex Backend for the given project and region
func NewVertex(ctx context.Context, projectID, region, modelName string) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex project and region are required")
	}
	if modelName == "" {
		modelName = DefaultVertexModel
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		// Forces a JSON reply
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &Vertex{
		client:    client,
		model:     model,
		modelName: modelName,
		timeout:   60 * time.Second,
	}, nil
}

// Analyze sends the receipt image with the field-set prompt and parses the JSON reply
func (v *Vertex) Analyze(ctx context.Context, imageData []byte, contentType string) (*AnalyzeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	pngData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := v.model.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(receiptScanPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from vertex: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from vertex")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result, err := parseFieldSetJSON(text.String(), v.modelName)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return result, nil
}

// Close closes the Vertex client
func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
