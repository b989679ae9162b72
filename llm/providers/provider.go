package providers

import (
	"context"
	"fmt"

	"stockdesk/config"

	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const (
	defaultOpenAIModel = "gpt-4.1-nano"
	defaultGeminiModel = "gemini-2.5-flash"
)

// NewChatModel creates the tool-calling chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIModel(ctx, cfg)
	case "gemini":
		return NewGeminiModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewOpenAIModel creates an OpenAI-compatible chat model.
// An empty BaseURL talks to the official OpenAI endpoint.
func NewOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required: set OPENAI_API_KEY or API_KEY")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
	})
}

// NewGeminiModel creates a Google Gemini chat model.
func NewGeminiModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when using the gemini provider")
	}

	modelName := cfg.Model
	if modelName == "" || modelName == defaultOpenAIModel {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  modelName,
	})
}
