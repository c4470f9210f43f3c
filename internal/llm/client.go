// Package llm wraps the OpenAI-compatible chat completion API behind a small
// gateway interface. Services depend on the Gateway interface, which keeps
// them testable against an httptest server (the client's base URL is
// configurable) and insulates them from the SDK surface.
//
// All calls honor context cancellation: aborting the caller's context aborts
// the upstream HTTP request, including an in-flight streaming response.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGateway wraps any upstream completion failure so callers can classify
// model errors without inspecting SDK types.
var ErrGateway = errors.New("llm gateway error")

// Gateway is the model-facing surface used by the services layer.
type Gateway interface {
	// Complete sends a single-prompt completion and returns the full reply.
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)

	// Stream sends a single-prompt completion and invokes fn for each content
	// chunk, in arrival order. fn returning an error aborts the stream and
	// propagates the error.
	Stream(ctx context.Context, prompt string, temperature float32, fn func(chunk string) error) error

	// GenerateImage produces one image for the prompt and returns raw PNG
	// bytes (decoded from the API's base64 payload).
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Client is the production Gateway backed by github.com/sashabaranov/go-openai.
type Client struct {
	api        *openai.Client
	model      string
	imageModel string
}

// Options configure a Client. BaseURL is optional and exists chiefly so tests
// can point the client at a local httptest server.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

// New builds a Client from Options.
func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		imageModel: opts.ImageModel,
	}
}

// Complete implements Gateway.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGateway)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream implements Gateway.
func (c *Client) Stream(ctx context.Context, prompt string, temperature float32, fn func(chunk string) error) error {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// Context cancellation surfaces as-is so callers can tell an
			// aborted stream from an upstream failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := fn(chunk); err != nil {
				return err
			}
		}
	}
}

// GenerateImage implements Gateway.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image response", ErrGateway)
	}
	b, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image payload: %v", ErrGateway, err)
	}
	return b, nil
}
