package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.0-flash"

// GeminiService is the CompletionService backed by the Gemini API.
type GeminiService struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// NewGeminiService creates a Gemini-backed service. temperature < 0 keeps the model default.
func NewGeminiService(ctx context.Context, apiKey, model string, temperature float32) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiService: API key is required")
	}
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiService: create genai client: %w", err)
	}

	s := &GeminiService{client: client, model: model}
	if temperature >= 0 {
		t := temperature
		s.temperature = &t
	}
	return s, nil
}

// Complete implements CompletionService.
func (s *GeminiService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	contents := buildContents(req)

	config := &genai.GenerateContentConfig{Temperature: s.temperature}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Complete: empty response from model")
	}
	return text, nil
}

// buildContents converts history and the new message to genai contents.
func buildContents(req CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, e := range req.History {
		contents = append(contents, &genai.Content{
			Role:  string(e.Role),
			Parts: []*genai.Part{{Text: e.Text}},
		})
	}

	parts := []*genai.Part{{Text: req.Text}}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Image.MIMEType,
				Data:     req.Image.Data,
			},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  string(RoleUser),
		Parts: parts,
	})
	return contents
}

var _ CompletionService = (*GeminiService)(nil)
