// Package gemini reads amounts and dates from expense documents with the
// Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ContentGenerator is the slice of the genai API the client calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Client extracts document data through a ContentGenerator.
type Client struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithModel selects the Gemini model. Blank names keep DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// WithTimeout bounds each extraction call. Non-positive values keep ExtractTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func newClient(generator ContentGenerator, opts []Option) *Client {
	c := &Client{generator: generator, model: DefaultModel, timeout: ExtractTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient connects to the Gemini API with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newClient(&modelsAdapter{models: client.Models}, opts), nil
}

// NewClientWithGenerator builds a Client over generator, typically a test double.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	return newClient(generator, opts)
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
