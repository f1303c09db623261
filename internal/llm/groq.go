package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conneroisu/groq-go"

	"storyreel/pkg/prompts"
)

const (
	DefaultStyle   = "tiktok"
	DefaultTone    = "casual"
	DefaultSeconds = 60
)

// GroqClient talks to any OpenAI compatible chat completion endpoint through
// the groq client, including local llama.cpp servers.
type GroqClient struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
}

func NewGroqClient(apiKey, baseURL, model string, p *prompts.Prompts) (*GroqClient, error) {
	var client *groq.Client
	var err error
	if baseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(baseURL))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	if p == nil {
		p = prompts.Default()
	}

	return &GroqClient{
		client:  client,
		model:   groq.ChatModel(model),
		prompts: p,
	}, nil
}

func (c *GroqClient) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if req.Text == "" {
		return "", fmt.Errorf("summarize: empty story")
	}
	if req.Seconds <= 0 {
		req.Seconds = DefaultSeconds
	}
	if req.Style == "" {
		req.Style = DefaultStyle
	}
	if req.Tone == "" {
		req.Tone = DefaultTone
	}

	params := prompts.SummarizeParams{
		Datasource: req.Datasource,
		Text:       req.Text,
		Style:      req.Style,
		Tone:       req.Tone,
		Theme:      req.Theme,
		Length:     req.Seconds,
		WordLimit:  WordLimit(req.Seconds),
	}

	system, err := c.prompts.RenderSystem(params)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	user, err := c.prompts.RenderSummarize(params)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generate(ctx, system, user, MaxTokens(req.Seconds))
	if err != nil {
		return "", err
	}

	script := FormatScript(content)
	if script == "" {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("Script generated", "words", countWords(script), "limit", params.WordLimit)
	return script, nil
}

func (c *GroqClient) generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}
