package llm

import (
	"context"
	"errors"
	"fmt"

	generativeAI "github.com/FACorreiaa/go-genai-sdk/lib"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/FACorreiaa/loci-trip-planner/pkg/config"
)

// Generator is one generative-AI backend. Implementations return the model's text or an error;
// turning errors into user-safe output is the Gateway's job.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

var errEmptyResponse = errors.New("model returned no text")

// NewGenerator resolves the configured backend once at startup.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.Backend {
	case config.BackendStudio, "":
		return NewStudioGenerator(ctx, cfg)
	case config.BackendVertex:
		return NewVertexGenerator(ctx, cfg)
	case config.BackendOpenAI:
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI backend %q", cfg.Backend)
	}
}

func contentConfig(temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
}

// StudioGenerator talks to Gemini with an API key.
type StudioGenerator struct {
	client      *generativeAI.LLMChatClient
	temperature float32
}

func NewStudioGenerator(ctx context.Context, cfg config.AIConfig) (*StudioGenerator, error) {
	client, err := generativeAI.NewLLMChatClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &StudioGenerator{client: client, temperature: cfg.Temperature}, nil
}

func (g *StudioGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.GenerateResponse(ctx, prompt, contentConfig(g.temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Text() == "" {
		return "", errEmptyResponse
	}
	return resp.Text(), nil
}

func (g *StudioGenerator) Model() string {
	if g.client == nil {
		return ""
	}
	return g.client.ModelName
}

// VertexGenerator talks to Gemini through a Google Cloud project.
type VertexGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewVertexGenerator(ctx context.Context, cfg config.AIConfig) (*VertexGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.GCPProject,
		Location: cfg.GCPLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &VertexGenerator{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *VertexGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), contentConfig(g.temperature))
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func (g *VertexGenerator) Model() string { return g.model }

// OpenAIGenerator talks to any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIGenerator(cfg config.AIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Model() string { return g.model }
