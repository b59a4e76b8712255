package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ulugbek-dev/tarjimon/internal/config"
	"github.com/ulugbek-dev/tarjimon/internal/domain"
)

const systemInstruction = "You are a translator. Translate the user's content into Uzbek. " +
	"If an image is provided, first extract its text, then translate it. " +
	"If the content is already in Uzbek, reply with the original text unchanged. " +
	"Reply with the translation only, no commentary."

// GeminiService wraps the Gemini API for translation and image OCR. It
// reports the provider's actual token usage so the ledger can record real
// consumption rather than estimates.
type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiService{client: client, model: model}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// TranslationResult carries the generated text and the token usage reported
// by the provider.
type TranslationResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TranslateText translates a plain text message.
func (s *GeminiService) TranslateText(ctx context.Context, text string) (*TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyContent
	}
	if len(text) > config.MaxTextLength {
		return nil, domain.ErrTextTooLong
	}
	return s.generate(ctx, genai.Text(text))
}

// TranslateImage extracts and translates text from an image, with an
// optional caption translated alongside it.
func (s *GeminiService) TranslateImage(ctx context.Context, data []byte, mimeType, caption string) (*TranslationResult, error) {
	if len(data) > config.MaxImageSizeMB*1024*1024 {
		return nil, domain.ErrImageTooLarge
	}
	parts := []genai.Part{genai.Blob{MIMEType: mimeType, Data: data}}
	if strings.TrimSpace(caption) != "" {
		parts = append(parts, genai.Text(caption))
	}
	return s.generate(ctx, parts...)
}

func (s *GeminiService) generate(ctx context.Context, parts ...genai.Part) (*TranslationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("generate content: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	result := &TranslationResult{Text: strings.TrimSpace(sb.String())}
	if result.Text == "" {
		return nil, fmt.Errorf("generate content: no text in response")
	}

	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	} else {
		// Fall back to a character-based estimate when the provider omits
		// usage metadata.
		result.OutputTokens = EstimateTokens(result.Text)
	}
	return result, nil
}

// EstimateTokens approximates token count for text: roughly one token per
// four characters, plus 10% overhead.
func EstimateTokens(text string) int {
	return len(text) / config.TokenEstimationRatio * 11 / 10
}
