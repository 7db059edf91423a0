package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type contentGenerator interface {
	generate(ctx context.Context, model, prompt string, temperature float32) (string, error)
}

// Gemini completes prompts with Google's Gemini API.
type Gemini struct {
	generator   contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(&genaiGenerator{client: client}, cfg), nil
}

func newGemini(generator contentGenerator, cfg GeminiConfig) *Gemini {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gemini{
		generator:   generator,
		model:       model,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
	}
}

func (g *Gemini) Provider() string { return "gemini" }

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.generator.generate(ctx, g.model, prompt, g.temperature)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

type genaiGenerator struct {
	client *genai.Client
}

func (g *genaiGenerator) generate(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)},
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
