package llm

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// GoogleDefaultModel is used when no model is configured for the Google
// provider.
const GoogleDefaultModel = "gemini-2.0-flash-exp"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreJudge against Google's Gemini API.
type googleProvider struct {
	BaseProvider
	client          *genai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newGoogleProvider creates a Google Gemini provider from client
// configuration.
func newGoogleProvider(config ClientConfig) (CoreJudge, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends the judgment prompt to Gemini. Gemini has no separate
// system role, so the system instruction is passed through the generation
// config's SystemInstruction field.
func (p *googleProvider) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(spec.User, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{}
	if spec.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(spec.System, genai.RoleUser)
	}
	if spec.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(clamp(*spec.Temperature, 0.0, 2.0)))
	}
	if spec.MaxTokens > 0 {
		if spec.MaxTokens > math.MaxInt32 {
			cfg.MaxOutputTokens = math.MaxInt32
		} else {
			cfg.MaxOutputTokens = int32(spec.MaxTokens)
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.GetModel(), contents, cfg)
	if err != nil {
		return ports.JudgeResponse{}, p.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return ports.JudgeResponse{}, p.errorClassifier.ClassifyTransportShape(
			"response contained no text", ErrEmptyResponse)
	}

	return ports.JudgeResponse{
		Text:      text,
		TokensIn:  p.getTokenCount(resp.UsageMetadata, true, spec.System+spec.User),
		TokensOut: p.getTokenCount(resp.UsageMetadata, false, text),
	}, nil
}

// getTokenCount prefers usage metadata from the API, falling back to
// estimation when the metadata is absent.
func (p *googleProvider) getTokenCount(usage *genai.GenerateContentResponseUsageMetadata, isInput bool, text string) int {
	if usage != nil {
		if isInput && usage.PromptTokenCount > 0 {
			return int(usage.PromptTokenCount)
		}
		if !isInput && usage.CandidatesTokenCount > 0 {
			return int(usage.CandidatesTokenCount)
		}
	}
	return p.tokenCounter.EstimateTokens(text)
}

// handleError classifies Google API failures into the engine's taxonomy.
func (p *googleProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	if apiErr, ok := err.(*googleapi.Error); ok {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return p.errorClassifier.ClassifyHTTPError(0, "request failed", err)
}
