package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// OpenAIDefaultModel is used when no model is configured for the OpenAI
// provider.
const OpenAIDefaultModel = "gpt-4o"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreJudge against OpenAI's chat completion API.
type openAIProvider struct {
	BaseProvider
	client          *openai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newOpenAIProvider creates an OpenAI provider from client configuration.
func newOpenAIProvider(config ClientConfig) (CoreJudge, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          openai.NewClientWithConfig(clientConfig),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends the judgment prompt as a system+user message pair and
// returns the reply with token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	req := openai.ChatCompletionRequest{
		Model: p.GetModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: spec.System},
			{Role: openai.ChatMessageRoleUser, Content: spec.User},
		},
	}
	if spec.MaxTokens > 0 {
		req.MaxTokens = spec.MaxTokens
	}
	if spec.Temperature != nil {
		req.Temperature = float32(clamp(*spec.Temperature, 0.0, 2.0))
	}
	// The judge format instruction asks for a bare JSON object; request
	// JSON mode so the repair path stays rare.
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ports.JudgeResponse{}, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return ports.JudgeResponse{}, p.errorClassifier.ClassifyTransportShape(
			"response contained no choices", ErrNoResponseChoice)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return ports.JudgeResponse{}, p.errorClassifier.ClassifyTransportShape(
			"response contained empty content", ErrEmptyResponse)
	}

	return ports.JudgeResponse{
		Text:      content,
		TokensIn:  p.tokenCounter.GetTokenCount(resp.Usage.PromptTokens, spec.System+spec.User),
		TokensOut: p.tokenCounter.GetTokenCount(resp.Usage.CompletionTokens, content),
	}, nil
}

// handleError classifies OpenAI SDK failures into the engine's taxonomy.
func (p *openAIProvider) handleError(err error) error {
	if isContextError(err) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return p.errorClassifier.ClassifyHTTPError(0, "request failed", err)
}
