// Package claude implements analysis.Provider on the Anthropic Messages API
// via the official SDK.
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

// Client wraps the SDK client with the single-shot completion shape the
// analyzer needs.
type Client struct {
	client anthropic.Client
	model  string
}

var _ analysis.Provider = (*Client)(nil)

// New creates a client for the given API key and model. An empty baseURL
// means the public endpoint; tests point it at a local server. Retries are
// disabled: the caller surfaces provider failures instead of waiting them
// out.
func New(apiKey, model, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) Name() string  { return "claude" }
func (c *Client) Model() string { return c.model }

// Complete sends one message and concatenates the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req *analysis.CompletionRequest) (*analysis.CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return nil, &analysis.ProviderError{
				Provider:   "claude",
				StatusCode: apierr.StatusCode,
				Err:        apierr,
			}
		}
		return nil, &analysis.ProviderError{Provider: "claude", Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &analysis.ProviderError{Provider: "claude", Err: errors.New("response has no text content")}
	}

	return &analysis.CompletionResponse{
		Text:  text.String(),
		Model: string(msg.Model),
		Usage: analysis.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
