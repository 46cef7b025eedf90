package astraai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	api "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature   float64
	ContextWindow int
	TopP          float64 // 0 leaves the backend default
}

// Completer is the text-completion collaborator behind quiz generation
// and document chat. Implementations wrap a concrete model backend; tests
// substitute canned responses.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

// OllamaCompleter talks to a locally hosted model through the Ollama API.
type OllamaCompleter struct {
	client *api.Client
	model  string
}

// NewOllamaCompleter creates a completer against an Ollama server, e.g.
// http://localhost:11434 with model "llama3.2".
func NewOllamaCompleter(baseURL, model string) (*OllamaCompleter, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &OllamaCompleter{
		client: api.NewClient(base, httpClient),
		model:  model,
	}, nil
}

// Complete sends one system+user exchange and returns the full response text.
func (oc *OllamaCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:  oc.model,
		Stream: &stream,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_ctx":     opts.ContextWindow,
		},
	}
	if opts.TopP > 0 {
		req.Options["top_p"] = opts.TopP
	}

	var sb strings.Builder
	err := oc.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		sb.WriteString(cr.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return sb.String(), nil
}

// OpenAICompleter talks to OpenAI or any OpenAI-compatible local server
// (llama.cpp server, LM Studio, vLLM) via a configurable base URL.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer for an OpenAI-compatible endpoint.
// baseURL may be empty for the hosted OpenAI API.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete sends one system+user exchange and returns the response text.
func (oc *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       oc.model,
		Temperature: float32(opts.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	}
	if opts.TopP > 0 {
		req.TopP = float32(opts.TopP)
	}

	resp, err := oc.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return resp.Choices[0].Message.Content, nil
}
