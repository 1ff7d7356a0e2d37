package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// AnthropicDefaultModel is used when no model is configured for the
// Anthropic provider.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreJudge against Anthropic's Messages API.
type anthropicProvider struct {
	BaseProvider
	client          anthropic.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newAnthropicProvider creates an Anthropic provider from client
// configuration.
func newAnthropicProvider(config ClientConfig) (CoreJudge, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &anthropicProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          anthropic.NewClient(opts...),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends the judgment prompt with the system instruction as a
// dedicated system block and returns the reply with token usage.
func (p *anthropicProvider) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	maxTokens := spec.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.GetModel()),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(spec.User)),
		},
	}
	if spec.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: spec.System}}
	}
	if spec.Temperature != nil {
		params.Temperature = anthropic.Float(clamp(*spec.Temperature, 0.0, 1.0))
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ports.JudgeResponse{}, p.handleError(err)
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			responseText.WriteString(content.Text)
		}
	}

	text := responseText.String()
	if text == "" {
		return ports.JudgeResponse{}, p.errorClassifier.ClassifyTransportShape(
			"response contained no text blocks", ErrEmptyResponse)
	}

	return ports.JudgeResponse{
		Text:      text,
		TokensIn:  p.tokenCounter.GetTokenCount(int(message.Usage.InputTokens), spec.System+spec.User),
		TokensOut: p.tokenCounter.GetTokenCount(int(message.Usage.OutputTokens), text),
	}, nil
}

// handleError classifies Anthropic SDK failures into the engine's taxonomy.
func (p *anthropicProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}

	return p.errorClassifier.ClassifyHTTPError(0, "request failed", err)
}
